package feature

import (
	"fmt"
	"math"
	"sort"

	"github.com/googol-lab/tvm/internal/access"
	"github.com/googol-lab/tvm/internal/effect"
	"github.com/googol-lab/tvm/internal/ir"
	"github.com/googol-lab/tvm/internal/mathop"
	"github.com/googol-lab/tvm/internal/region"
	"github.com/googol-lab/tvm/internal/reuse"
	"github.com/googol-lab/tvm/internal/stride"
	"github.com/googol-lab/tvm/internal/xerrors"
)

// loopFrame is one enclosing loop of the current walk, real or synthesized
// from a GPU thread-extent/virtual-thread attribute scope. key identifies
// the originating IR node for forTouchRegions lookups: loop and attr-scope
// nodes are each visited exactly once per walk, so node identity is a
// stable key for the per-loop region table across the single recursive
// descent through that subtree.
type loopFrame struct {
	key    any
	v      ir.Var
	min    ir.Expr
	extent int64
	kind   ir.LoopKind
}

// Extractor is the per-store orchestrator from spec §4.7: a single pre/
// post recursive walk that maintains loop stacks, GPU thread extents,
// pragma state, and a per-loop region table, emitting one FeatureSet per
// BufferStore visited.
type Extractor struct {
	cfg     Config
	effects *effect.Table

	outerLoopProd                                float64
	loopStack                                     []loopFrame
	vecStack, unrollStack, parallelStack          []loopFrame

	isGPU                                        bool
	blockIdxXLen, blockIdxYLen, blockIdxZLen     int64
	threadIdxXLen, threadIdxYLen, threadIdxZLen  int64
	vthreadLen                                   int64
	curAutoUnrollMaxStep                         int64

	forTouchRegions map[any]reuse.LoopRegions

	bufferFeatures map[ir.BufferID]*FeatureSet
	bufferNames    map[ir.BufferID]string
	order          []ir.BufferID
}

// NewExtractor returns an Extractor ready to Walk one record. effects
// classifies call purity for the math-op counter; it is an injected
// collaborator, not an ambient singleton (spec §9).
func NewExtractor(cfg Config, effects *effect.Table) *Extractor {
	return &Extractor{
		cfg:                  cfg,
		effects:              effects,
		outerLoopProd:        1,
		blockIdxXLen:         1,
		blockIdxYLen:         1,
		blockIdxZLen:         1,
		threadIdxXLen:        1,
		threadIdxYLen:        1,
		threadIdxZLen:        1,
		vthreadLen:           1,
		forTouchRegions:      make(map[any]reuse.LoopRegions),
		bufferFeatures:       make(map[ir.BufferID]*FeatureSet),
		bufferNames:          make(map[ir.BufferID]string),
	}
}

// Results returns one FeatureSet per distinct destination buffer, in the
// order each was first visited. A buffer written by more than one store
// keeps only the last store's features (spec §9's documented last-write-
// wins rule).
func (ex *Extractor) Results() []*FeatureSet {
	out := make([]*FeatureSet, 0, len(ex.order))
	for _, id := range ex.order {
		out = append(out, ex.bufferFeatures[id])
	}
	return out
}

// BufferName returns the name recorded for id, or "" if id was never
// visited.
func (ex *Extractor) BufferName(id ir.BufferID) string { return ex.bufferNames[id] }

// Walk traverses prog, accumulating one FeatureSet per store. It returns an
// irrecoverable-per-record error (spec §7) on a malformed IR node or a
// non-constant value the IR view requires to be constant; it never panics
// for such cases. Programmer-error invariant violations still panic via
// xerrors.Assertf, since those indicate a bug in this package, not a
// malformed input.
func (ex *Extractor) Walk(prog ir.Node) error {
	return ex.walkNode(prog)
}

func (ex *Extractor) walkNode(node ir.Node) error {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *ir.Seq:
		for _, stmt := range n.Stmts {
			if err := ex.walkNode(stmt); err != nil {
				return err
			}
		}
		return nil
	case *ir.Loop:
		return ex.walkLoop(n)
	case *ir.AttrScope:
		return ex.walkAttrScope(n)
	case *ir.BufferStore:
		return ex.visitStore(n)
	case *ir.BufferRealize:
		return ex.walkRealize(n)
	default:
		return xerrors.NewRecordError("E_UNKNOWN_NODE", "unsupported node kind in walk", "", fmt.Errorf("kind=%d", node.Kind()))
	}
}

// clampExtent resolves a loop/realize-bound extent to a constant integer,
// clamping non-constant extents to 1 (spec §3's documented silent
// coarsening, not an error).
func clampExtent(e ir.Expr) int64 {
	if c, ok := ir.IsIntConst(e); ok && c > 0 {
		return c
	}
	return 1
}

func (ex *Extractor) pushLoop(f loopFrame) {
	ex.loopStack = append(ex.loopStack, f)
	ex.outerLoopProd *= float64(f.extent)
	switch f.kind {
	case ir.LoopVectorized:
		ex.vecStack = append(ex.vecStack, f)
	case ir.LoopUnrolled:
		ex.unrollStack = append(ex.unrollStack, f)
	case ir.LoopParallel:
		ex.parallelStack = append(ex.parallelStack, f)
	}
}

func (ex *Extractor) popLoop(f loopFrame) {
	n := len(ex.loopStack)
	xerrors.Assertf(n > 0 && ex.loopStack[n-1].key == f.key, "loop stack pop mismatch")
	ex.loopStack = ex.loopStack[:n-1]
	ex.outerLoopProd /= float64(f.extent)
	switch f.kind {
	case ir.LoopVectorized:
		ex.vecStack = ex.vecStack[:len(ex.vecStack)-1]
	case ir.LoopUnrolled:
		ex.unrollStack = ex.unrollStack[:len(ex.unrollStack)-1]
	case ir.LoopParallel:
		ex.parallelStack = ex.parallelStack[:len(ex.parallelStack)-1]
	}
}

func (ex *Extractor) walkLoop(l *ir.Loop) error {
	frame := loopFrame{key: l, v: l.Var, min: l.Min, extent: clampExtent(l.Extent), kind: l.LoopKind}
	ex.pushLoop(frame)
	defer ex.popLoop(frame)
	return ex.walkNode(l.Body)
}

func (ex *Extractor) walkAttrScope(a *ir.AttrScope) error {
	switch a.Key {
	case ir.AttrThreadExtent:
		return ex.walkThreadExtent(a)
	case ir.AttrVirtualThread:
		return ex.walkVirtualThread(a)
	case ir.AttrPragmaAutoUnrollMaxStep:
		return ex.walkPragma(a)
	default:
		return ex.walkNode(a.Body)
	}
}

func (ex *Extractor) threadLenPtr(axis ir.ThreadAxis) (*int64, error) {
	switch axis {
	case ir.AxisBlockIdxX:
		return &ex.blockIdxXLen, nil
	case ir.AxisBlockIdxY:
		return &ex.blockIdxYLen, nil
	case ir.AxisBlockIdxZ:
		return &ex.blockIdxZLen, nil
	case ir.AxisThreadIdxX:
		return &ex.threadIdxXLen, nil
	case ir.AxisThreadIdxY:
		return &ex.threadIdxYLen, nil
	case ir.AxisThreadIdxZ:
		return &ex.threadIdxZLen, nil
	default:
		return nil, xerrors.NewRecordError("E_THREAD_AXIS", "invalid thread itervar", "", fmt.Errorf("axis=%d", axis))
	}
}

func (ex *Extractor) walkThreadExtent(a *ir.AttrScope) error {
	extentVal, ok := ir.IsIntConst(a.Value)
	if !ok {
		return xerrors.NewRecordError("E_THREAD_EXTENT", "non-constant thread_extent value", "", fmt.Errorf("var=%s", a.Var.Name))
	}
	plen, err := ex.threadLenPtr(a.Axis)
	if err != nil {
		return err
	}
	before := *plen
	*plen = extentVal
	ex.isGPU = true
	defer func() { *plen = before }()

	frame := loopFrame{key: a, v: a.Var, min: &ir.ConstExpr{IntValue: 0}, extent: extentVal, kind: ir.LoopSyntheticThread}
	ex.pushLoop(frame)
	defer ex.popLoop(frame)
	return ex.walkNode(a.Body)
}

func (ex *Extractor) walkVirtualThread(a *ir.AttrScope) error {
	extentVal, ok := ir.IsIntConst(a.Value)
	if !ok {
		return xerrors.NewRecordError("E_VTHREAD_EXTENT", "non-constant virtual_thread value", "", fmt.Errorf("var=%s", a.Var.Name))
	}
	before := ex.vthreadLen
	ex.vthreadLen *= extentVal
	ex.isGPU = true
	defer func() { ex.vthreadLen = before }()

	frame := loopFrame{key: a, v: a.Var, min: &ir.ConstExpr{IntValue: 0}, extent: extentVal, kind: ir.LoopSyntheticThread}
	ex.pushLoop(frame)
	defer ex.popLoop(frame)
	return ex.walkNode(a.Body)
}

func (ex *Extractor) walkPragma(a *ir.AttrScope) error {
	val, ok := ir.IsIntConst(a.Value)
	if !ok {
		return xerrors.NewRecordError("E_PRAGMA_VALUE", "non-constant pragma_auto_unroll_max_step value", "", fmt.Errorf("var=%s", a.Var.Name))
	}
	before := ex.curAutoUnrollMaxStep
	ex.curAutoUnrollMaxStep = val
	defer func() { ex.curAutoUnrollMaxStep = before }()
	return ex.walkNode(a.Body)
}

func (ex *Extractor) featureSetFor(buf *ir.Buffer) *FeatureSet {
	fs, ok := ex.bufferFeatures[buf.ID()]
	if !ok {
		fs = &FeatureSet{}
		ex.bufferFeatures[buf.ID()] = fs
		ex.bufferNames[buf.ID()] = buf.Name
		ex.order = append(ex.order, buf.ID())
	}
	return fs
}

func (ex *Extractor) regionTable(key any) reuse.LoopRegions {
	t, ok := ex.forTouchRegions[key]
	if !ok {
		t = make(reuse.LoopRegions)
		ex.forTouchRegions[key] = t
	}
	return t
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// slog is the signed log transform: sign(x) * log2(|x|+1), with slog(0)=0.
func slog(x float64) float64 {
	if x < 0 {
		return -math.Log2(-x + 1)
	}
	return math.Log2(x + 1)
}

func (ex *Extractor) walkRealize(r *ir.BufferRealize) error {
	if err := ex.walkNode(r.Body); err != nil {
		return err
	}
	fs := ex.featureSetFor(r.Buffer)

	allocSize := int64(1)
	for _, b := range r.Bounds {
		allocSize *= clampExtent(b.Extent)
	}
	fs.AllocSize = float64(allocSize) * float64(r.Buffer.Bytes())
	fs.AllocOuterProd = ex.outerLoopProd
	fs.AllocProd = float64(allocSize) * ex.outerLoopProd
	if ex.outerLoopProd != 0 {
		fs.AllocInnerProd = fs.OuterProd / ex.outerLoopProd
	}
	return nil
}

func (ex *Extractor) visitStore(st *ir.BufferStore) error {
	fs := ex.featureSetFor(st.Buffer)

	counts := mathop.Count(st.Value, ex.effects)
	prod := ex.outerLoopProd

	fs.FloatMad = prod * counts.FloatMad
	fs.FloatAddSub = prod * counts.FloatAddSub
	fs.FloatMul = prod * counts.FloatMul
	fs.FloatDivMod = prod * counts.FloatDivMod
	fs.FloatCmp = prod * counts.FloatCmp
	fs.FloatMathFunc = prod * counts.FloatMathFunc
	fs.FloatOtherFunc = prod * counts.FloatOtherFunc
	fs.IntMad = prod * counts.IntMad
	fs.IntAddSub = prod * counts.IntAddSub
	fs.IntMul = prod * counts.IntMul
	fs.IntDivMod = prod * counts.IntDivMod
	fs.IntCmp = prod * counts.IntCmp
	fs.IntMathFunc = prod * counts.IntMathFunc
	fs.IntOtherFunc = prod * counts.IntOtherFunc
	fs.BoolOp = prod * counts.BoolOp
	fs.SelectOp = prod * counts.SelectOp

	fs.OuterProd = ex.outerLoopProd
	fs.NumLoops = float64(len(ex.loopStack))
	fs.AutoUnrollMaxStep = float64(ex.curAutoUnrollMaxStep)

	fs.VecLen, fs.UnrollLen, fs.ParallelLen = 0, 0, 0
	fs.VecProd, fs.UnrollProd, fs.ParallelProd = 0, 0, 0
	fs.VecType, fs.UnrollType, fs.ParallelType = PosNone, PosNone, PosNone

	fs.VecNum = float64(len(ex.vecStack))
	if len(ex.vecStack) > 0 {
		fs.VecLen = float64(ex.vecStack[len(ex.vecStack)-1].extent)
		p := 1.0
		for _, f := range ex.vecStack {
			p *= float64(f.extent)
		}
		fs.VecProd = p
		// Finer-grained spatial/reduce position tagging was considered and
		// not wired; see PosType's doc comment.
		fs.VecType = PosMixed
	}
	fs.UnrollNum = float64(len(ex.unrollStack))
	if len(ex.unrollStack) > 0 {
		fs.UnrollLen = float64(ex.unrollStack[len(ex.unrollStack)-1].extent)
		p := 1.0
		for _, f := range ex.unrollStack {
			p *= float64(f.extent)
		}
		fs.UnrollProd = p
		// Finer-grained spatial/reduce position tagging was considered and
		// not wired; see PosType's doc comment.
		fs.UnrollType = PosMixed
	}
	fs.ParallelNum = float64(len(ex.parallelStack))
	if len(ex.parallelStack) > 0 {
		fs.ParallelLen = float64(ex.parallelStack[len(ex.parallelStack)-1].extent)
		p := 1.0
		for _, f := range ex.parallelStack {
			p *= float64(f.extent)
		}
		fs.ParallelProd = p
		// Finer-grained spatial/reduce position tagging was considered and
		// not wired; see PosType's doc comment.
		fs.ParallelType = PosMixed
	}

	fs.IsGPU = boolToFloat(ex.isGPU)
	fs.BlockIdxXLen = float64(ex.blockIdxXLen)
	fs.BlockIdxYLen = float64(ex.blockIdxYLen)
	fs.BlockIdxZLen = float64(ex.blockIdxZLen)
	fs.ThreadIdxXLen = float64(ex.threadIdxXLen)
	fs.ThreadIdxYLen = float64(ex.threadIdxYLen)
	fs.ThreadIdxZLen = float64(ex.threadIdxZLen)
	fs.VthreadLen = float64(ex.vthreadLen)

	accesses := access.Collect(st)

	ana := region.NewSimpleAnalyzer()
	oneExtent := &ir.ConstExpr{IntValue: 1}
	for _, f := range ex.loopStack {
		ana.Bind(f.v, f.min, oneExtent)
	}

	cur := counts.FloatComputeOps()
	var memBytesList, computeOpsList []float64

	for i := len(ex.loopStack) - 1; i >= 0; i-- {
		f := ex.loopStack[i]
		ana.Bind(f.v, f.min, &ir.ConstExpr{IntValue: f.extent})

		table := ex.regionTable(f.key)
		var memBytes int64
		for _, acc := range accesses {
			reg := region.Estimate(acc.Indices, ana)
			touched := region.ElementProduct(reg)
			table[acc.Buffer.ID()] = append(table[acc.Buffer.ID()], reuse.RegionEntry{
				ElementCount: touched,
				ElementBytes: acc.Buffer.Bytes(),
			})
			memBytes += touched * acc.Buffer.Bytes()
		}
		memBytesList = append(memBytesList, math.Log2(float64(memBytes)))
		cur *= float64(f.extent)
		computeOpsList = append(computeOpsList, math.Log2(cur))
	}

	fs.ArithIntensityCurve = arithIntensityCurve(cur, computeOpsList, memBytesList)

	fs.AccessFeas = ex.buildAccessFeatures(accesses, ana)

	return nil
}

// arithIntensityCurve implements spec §4.7 step 7.
func arithIntensityCurve(curComputeOps float64, computeOpsList, memBytesList []float64) [ArithIntensityCurveSampleN]float64 {
	var out [ArithIntensityCurveSampleN]float64
	if curComputeOps <= 0 || len(computeOpsList) == 0 {
		return out
	}
	pt := 0
	last := computeOpsList[len(computeOpsList)-1]
	for i := 0; i < ArithIntensityCurveSampleN; i++ {
		x := last * float64(i+1) / float64(ArithIntensityCurveSampleN)
		for pt < len(computeOpsList)-1 && computeOpsList[pt] < x-1e-4 {
			pt++
		}
		var value float64
		if pt == 0 {
			value = computeOpsList[0] / memBytesList[0]
		} else {
			base := computeOpsList[pt-1] / memBytesList[pt-1]
			slope := (computeOpsList[pt]/memBytesList[pt] - computeOpsList[pt-1]/memBytesList[pt-1]) /
				(computeOpsList[pt] - computeOpsList[pt-1])
			value = base + slope*(x-computeOpsList[pt-1])
		}
		out[i] = value
	}
	return out
}

func (ex *Extractor) buildAccessFeatures(accesses map[ir.BufferID]*access.Access, ana *region.SimpleAnalyzer) []BufferAccessFeature {
	feas := make([]BufferAccessFeature, 0, len(accesses))
	for _, acc := range accesses {
		feas = append(feas, ex.buildAccessFeature(acc, ana))
	}
	return feas
}

func (ex *Extractor) buildAccessFeature(acc *access.Access, ana *region.SimpleAnalyzer) BufferAccessFeature {
	buf := acc.Buffer
	eleBytes := buf.Bytes()
	bytes := ex.outerLoopProd * float64(eleBytes)

	var uniqueBytes, stride0, lines, uniqueLines float64

	if len(ex.loopStack) == 0 {
		uniqueBytes = float64(eleBytes)
		stride0 = 0
		lines = 1
		uniqueLines = 1
	} else {
		outermost := ex.loopStack[0]
		entries := ex.regionTable(outermost.key)[buf.ID()]
		xerrors.Assertf(len(entries) > 0, "missing region-table entry for buffer %s", buf.Name)
		uniqueBytes = float64(entries[0].ElementCount) * float64(eleBytes)

		var sigma int64
		reduceRatio := int64(1)
		foundIdx := -1
		for i := len(ex.loopStack) - 1; i >= 0; i-- {
			s := stride.ToCacheLines(acc.Indices, buf.Shape, ex.loopStack[i].v)
			if s != 0 {
				sigma = s
				foundIdx = i
				break
			}
			reduceRatio *= ex.loopStack[i].extent
		}

		l := ex.outerLoopProd / float64(reduceRatio) * minF(1, float64(sigma)*float64(eleBytes)/float64(ex.cacheLineSize()))
		lines = maxF(1, l)

		if foundIdx == len(ex.loopStack)-1 {
			stride0 = float64(sigma)
		} else {
			stride0 = 0
		}

		finalRegion := region.Estimate(acc.Indices, ana)
		nContinuous := float64(eleBytes)
		for i := len(finalRegion) - 1; i >= 0; i-- {
			if i < len(buf.Shape) && finalRegion[i] == buf.Shape[i] {
				nContinuous *= float64(finalRegion[i])
				break
			}
		}
		uniqueLines = maxF(1, uniqueBytes/minF(nContinuous, float64(ex.cacheLineSize())))
	}

	frames := make([]reuse.Frame, len(ex.loopStack))
	for i, f := range ex.loopStack {
		frames[len(ex.loopStack)-1-i] = reuse.Frame{
			Var:     f.v,
			Extent:  f.extent,
			Regions: ex.regionTable(f.key),
		}
	}
	reuseResult := reuse.Classify(buf.ID(), acc.Indices, frames)

	fea := BufferAccessFeature{
		BufferName:    buf.Name,
		Kind:          fromAccessKind(acc.Kind),
		Bytes:         bytes,
		UniqueBytes:   uniqueBytes,
		Lines:         lines,
		UniqueLines:   uniqueLines,
		ReuseType:     fromReuseType(reuseResult.Type),
		ReuseDisIter:  reuseResult.ReuseDisIter,
		ReuseDisBytes: reuseResult.ReuseDisBytes,
		ReuseCt:       reuseResult.ReuseCt,
		Stride:        stride0,
	}
	if fea.ReuseCt > 0.5 {
		fea.BytesDReuseCt = fea.Bytes / fea.ReuseCt
		fea.UniqueBytesDReuseCt = fea.UniqueBytes / fea.ReuseCt
		fea.LinesDReuseCt = fea.Lines / fea.ReuseCt
		fea.UniqueLinesDReuseCt = fea.UniqueLines / fea.ReuseCt
	} else {
		fea.BytesDReuseCt = fea.Bytes * 2
		fea.UniqueBytesDReuseCt = fea.UniqueBytes * 2
		fea.LinesDReuseCt = fea.Lines * 2
		fea.UniqueLinesDReuseCt = fea.UniqueLines * 2
	}
	return fea
}

func (ex *Extractor) cacheLineSize() int64 {
	if ex.cfg.CacheLineSize <= 0 {
		return 64
	}
	return ex.cfg.CacheLineSize
}

// WalkAll walks an entire program and returns one FeatureSet per distinct
// destination buffer in visitation order (spec's "last-write-wins" rule
// applies per buffer, per spec §9). This is the package's primary
// convenience entry point; Extractor itself is exposed for callers that
// need the BufferName/Results split across multiple partial walks.
func WalkAll(prog ir.Node, cfg Config, effects *effect.Table) ([]*FeatureSet, error) {
	ex := NewExtractor(cfg, effects)
	if err := ex.Walk(prog); err != nil {
		return nil, err
	}
	return ex.Results(), nil
}

// SortAccessFeas orders feas by (Lines desc, Bytes desc), per spec §3.
// Exposed for internal/emit, which owns the truncate/pad-to-max_n_bufs
// step (spec §4.8).
func SortAccessFeas(feas []BufferAccessFeature) {
	sort.SliceStable(feas, func(i, j int) bool {
		if feas[i].Lines != feas[j].Lines {
			return feas[i].Lines > feas[j].Lines
		}
		return feas[i].Bytes > feas[j].Bytes
	})
}
