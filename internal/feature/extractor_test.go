package feature

import (
	"math"
	"testing"

	"github.com/googol-lab/tvm/internal/effect"
	"github.com/googol-lab/tvm/internal/ir"
)

var f32 = ir.ElemType{FloatKind: true, BitWidth: 32}

func constF(v float64) ir.Expr { return &ir.ConstExpr{FloatValue: v, Type: f32} }
func constI(v int64) ir.Expr   { return &ir.ConstExpr{IntValue: v} }
func varF(v ir.Var) ir.Expr    { return &ir.VarExpr{Var: v, Type: f32} }

// TestScalarStoreNoLoops is spec §8 scenario 1: B[0] = A[0] + 1.0.
func TestScalarStoreNoLoops(t *testing.T) {
	a := ir.NewBuffer(1, "A", []int64{1}, f32)
	b := ir.NewBuffer(2, "B", []int64{1}, f32)
	load := &ir.BufferLoad{Buffer: a, Indices: []ir.Expr{constI(0)}}
	value := &ir.BinaryExpr{Op: ir.OpAdd, Left: load, Right: constF(1), Type: f32}
	store := &ir.BufferStore{Buffer: b, Indices: []ir.Expr{constI(0)}, Value: value}

	sets, err := WalkAll(store, DefaultConfig(), effect.StandardTable())
	if err != nil {
		t.Fatalf("WalkAll: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("len(sets) = %d, want 1", len(sets))
	}
	fs := sets[0]
	if fs.FloatAddSub != 1 {
		t.Errorf("FloatAddSub = %v, want 1", fs.FloatAddSub)
	}
	if fs.OuterProd != 1 {
		t.Errorf("OuterProd = %v, want 1", fs.OuterProd)
	}
	if fs.NumLoops != 0 {
		t.Errorf("NumLoops = %v, want 0", fs.NumLoops)
	}
	for _, v := range fs.ArithIntensityCurve {
		if v != 0 {
			t.Errorf("ArithIntensityCurve has nonzero entry %v, want all zero (empty loop stack)", v)
			break
		}
	}
	if len(fs.AccessFeas) != 2 {
		t.Fatalf("len(AccessFeas) = %d, want 2 (A read, B write)", len(fs.AccessFeas))
	}
	for _, fea := range fs.AccessFeas {
		if fea.Bytes != 4 || fea.Lines != 1 || fea.UniqueLines != 1 || fea.Stride != 0 {
			t.Errorf("access feature for empty loop stack = %+v, want bytes=4 lines=1 unique_lines=1 stride=0", fea)
		}
	}
}

// TestOneDCopy is spec §8 scenario 2: for i in 0..1024: B[i] = A[i].
func TestOneDCopy(t *testing.T) {
	a := ir.NewBuffer(1, "A", []int64{1024}, f32)
	b := ir.NewBuffer(2, "B", []int64{1024}, f32)
	v := ir.NewVar(3, "i")

	load := &ir.BufferLoad{Buffer: a, Indices: []ir.Expr{varF(v)}}
	store := &ir.BufferStore{Buffer: b, Indices: []ir.Expr{varF(v)}, Value: load}
	loop := &ir.Loop{Var: v, Min: constI(0), Extent: constI(1024), LoopKind: ir.LoopSerial, Body: store}

	cfg := DefaultConfig()
	sets, err := WalkAll(loop, cfg, effect.StandardTable())
	if err != nil {
		t.Fatalf("WalkAll: %v", err)
	}
	fs := sets[0]
	if fs.OuterProd != 1024 {
		t.Fatalf("OuterProd = %v, want 1024", fs.OuterProd)
	}
	for _, fea := range fs.AccessFeas {
		if fea.Bytes != 4096 {
			t.Errorf("bytes = %v, want 4096", fea.Bytes)
		}
		if fea.Stride != 1 {
			t.Errorf("stride = %v, want 1", fea.Stride)
		}
		if fea.Lines != 64 {
			t.Errorf("lines = %v, want 64", fea.Lines)
		}
		if fea.UniqueLines != 64 {
			t.Errorf("unique_lines = %v, want 64", fea.UniqueLines)
		}
		if fea.ReuseType != ReuseNoReuse {
			t.Errorf("reuse_type = %v, want NoReuse", fea.ReuseType)
		}
	}
}

// TestVectorizedInnermost is spec §8 scenario 4.
func TestVectorizedInnermost(t *testing.T) {
	b := ir.NewBuffer(1, "B", []int64{8192}, f32)
	vi := ir.NewVar(2, "i")
	vv := ir.NewVar(3, "v")

	flatIdx := &ir.BinaryExpr{Op: ir.OpAdd,
		Left:  &ir.BinaryExpr{Op: ir.OpMul, Left: varF(vi), Right: constI(8), Type: f32},
		Right: varF(vv), Type: f32}
	store := &ir.BufferStore{Buffer: b, Indices: []ir.Expr{flatIdx}, Value: constF(1)}
	vecLoop := &ir.Loop{Var: vv, Min: constI(0), Extent: constI(8), LoopKind: ir.LoopVectorized, Body: store}
	outer := &ir.Loop{Var: vi, Min: constI(0), Extent: constI(1024), LoopKind: ir.LoopSerial, Body: vecLoop}

	sets, err := WalkAll(outer, DefaultConfig(), effect.StandardTable())
	if err != nil {
		t.Fatalf("WalkAll: %v", err)
	}
	fs := sets[0]
	if fs.VecNum != 1 {
		t.Errorf("VecNum = %v, want 1", fs.VecNum)
	}
	if fs.VecLen != 8 {
		t.Errorf("VecLen = %v, want 8", fs.VecLen)
	}
	if fs.VecProd != 8 {
		t.Errorf("VecProd = %v, want 8", fs.VecProd)
	}
	if fs.VecType != PosMixed {
		t.Errorf("VecType = %v, want Mixed", fs.VecType)
	}
}

// TestGPUThreadExtents is spec §8 scenario 5.
func TestGPUThreadExtents(t *testing.T) {
	b := ir.NewBuffer(1, "B", []int64{128 * 32}, f32)
	vBlock := ir.NewVar(2, "blockIdx.x")
	vThread := ir.NewVar(3, "threadIdx.x")

	store := &ir.BufferStore{Buffer: b, Indices: []ir.Expr{constI(0)}, Value: constF(1)}
	threadScope := &ir.AttrScope{
		Key: ir.AttrThreadExtent, Var: vThread, Axis: ir.AxisThreadIdxX,
		Value: constI(32), Body: store,
	}
	blockScope := &ir.AttrScope{
		Key: ir.AttrThreadExtent, Var: vBlock, Axis: ir.AxisBlockIdxX,
		Value: constI(128), Body: threadScope,
	}

	sets, err := WalkAll(blockScope, DefaultConfig(), effect.StandardTable())
	if err != nil {
		t.Fatalf("WalkAll: %v", err)
	}
	fs := sets[0]
	if fs.IsGPU != 1 {
		t.Errorf("IsGPU = %v, want 1", fs.IsGPU)
	}
	if fs.BlockIdxXLen != 128 {
		t.Errorf("BlockIdxXLen = %v, want 128", fs.BlockIdxXLen)
	}
	if fs.ThreadIdxXLen != 32 {
		t.Errorf("ThreadIdxXLen = %v, want 32", fs.ThreadIdxXLen)
	}
	if fs.OuterProd != 128*32 {
		t.Errorf("OuterProd = %v, want 4096", fs.OuterProd)
	}
}

// TestOuterLoopProdRestoredAfterWalk is the spec §8 invariant that
// outer_loop_prod returns to its initial value once the walk completes.
func TestOuterLoopProdRestoredAfterWalk(t *testing.T) {
	b := ir.NewBuffer(1, "B", []int64{32}, f32)
	v := ir.NewVar(2, "i")
	store := &ir.BufferStore{Buffer: b, Indices: []ir.Expr{varF(v)}, Value: constF(1)}
	loop := &ir.Loop{Var: v, Min: constI(0), Extent: constI(32), LoopKind: ir.LoopSerial, Body: store}

	ex := NewExtractor(DefaultConfig(), effect.StandardTable())
	if err := ex.Walk(loop); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if ex.outerLoopProd != 1 {
		t.Fatalf("outerLoopProd after walk = %v, want 1", ex.outerLoopProd)
	}
	if len(ex.loopStack) != 0 {
		t.Fatalf("loopStack after walk has %d frames, want 0", len(ex.loopStack))
	}
}

func TestSlogProperties(t *testing.T) {
	if slog(0) != 0 {
		t.Fatalf("slog(0) = %v, want 0", slog(0))
	}
	if slog(4) <= slog(3) {
		t.Fatalf("slog not monotone around positive values: slog(3)=%v slog(4)=%v", slog(3), slog(4))
	}
	if math.Abs(slog(-5)+slog(5)) > 1e-9 {
		t.Fatalf("slog(-x) != -slog(x): slog(-5)=%v slog(5)=%v", slog(-5), slog(5))
	}
}

func TestWalkUnknownNodeReturnsRecordError(t *testing.T) {
	ex := NewExtractor(DefaultConfig(), effect.StandardTable())
	err := ex.Walk(unsupportedNode{})
	if err == nil {
		t.Fatal("expected an error for an unsupported node kind")
	}
}

type unsupportedNode struct{}

func (unsupportedNode) Kind() ir.NodeKind { return ir.KindBufferLoad + 100 }
