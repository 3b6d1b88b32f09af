package region

import (
	"math"

	"github.com/googol-lab/tvm/internal/ir"
)

const (
	posInf = math.MaxInt64
	negInf = math.MinInt64
)

// SimpleAnalyzer is a conservative interval-propagation BoundAnalyzer: it
// mirrors the shape of arith::Analyzer::const_int_bound without attempting
// its full symbolic machinery, which spec §1 names out of scope ("exact
// linear-algebra of index expressions... deliberate approximations").
// Unknown expressions get the +/-infinity sentinel bound.
type SimpleAnalyzer struct {
	bounds map[ir.NodeID]interval
}

type interval struct{ lo, hi int64 }

// NewSimpleAnalyzer returns an analyzer with no variables bound yet.
func NewSimpleAnalyzer() *SimpleAnalyzer {
	return &SimpleAnalyzer{bounds: make(map[ir.NodeID]interval)}
}

// Bind associates v with [min, min+extent). min and extent must themselves
// resolve to constant bounds through this same analyzer; a non-constant
// extent is clamped to 1, per spec §3's "integer loop extents are clamped
// to 1 when non-constant" invariant — callers are expected to have already
// applied that clamp before calling Bind for loop extents, but Bind applies
// it defensively too.
func (a *SimpleAnalyzer) Bind(v ir.Var, min, extent ir.Expr) {
	minLo, minHi := a.ConstIntBound(min)
	var extentVal int64 = 1
	if c, ok := ir.IsIntConst(extent); ok && c > 0 {
		extentVal = c
	}
	lo := minLo
	hi := minHi + extentVal - 1
	if lo == negInf || hi == posInf {
		a.bounds[v.ID()] = interval{negInf, posInf}
		return
	}
	a.bounds[v.ID()] = interval{lo, hi}
}

// ConstIntBound returns a conservative [min, max] bound for e.
func (a *SimpleAnalyzer) ConstIntBound(e ir.Expr) (int64, int64) {
	return a.bound(e).lo, a.bound(e).hi
}

func (a *SimpleAnalyzer) bound(e ir.Expr) interval {
	switch n := e.(type) {
	case *ir.ConstExpr:
		if !n.Type.IsFloat() {
			return interval{n.IntValue, n.IntValue}
		}
		return interval{negInf, posInf}
	case *ir.VarExpr:
		if iv, ok := a.bounds[n.Var.ID()]; ok {
			return iv
		}
		return interval{negInf, posInf}
	case *ir.BinaryExpr:
		l, r := a.bound(n.Left), a.bound(n.Right)
		if l.lo == negInf || l.hi == posInf || r.lo == negInf || r.hi == posInf {
			return a.binaryFallback(n.Op, l, r)
		}
		switch n.Op {
		case ir.OpAdd:
			return interval{l.lo + r.lo, l.hi + r.hi}
		case ir.OpSub:
			return interval{l.lo - r.hi, l.hi - r.lo}
		case ir.OpMul:
			return mulInterval(l, r)
		case ir.OpMax:
			return interval{maxI(l.lo, r.lo), maxI(l.hi, r.hi)}
		case ir.OpMin:
			return interval{minI(l.lo, r.lo), minI(l.hi, r.hi)}
		case ir.OpFloorDiv, ir.OpDiv:
			if r.lo > 0 {
				return interval{l.lo / r.hi, l.hi / r.lo}
			}
		}
		return interval{negInf, posInf}
	default:
		return interval{negInf, posInf}
	}
}

// binaryFallback is used when either operand is unbounded; it derives no
// bound and conservatively returns the infinite interval.
func (a *SimpleAnalyzer) binaryFallback(_ ir.BinaryOp, _, _ interval) interval {
	return interval{negInf, posInf}
}

func mulInterval(l, r interval) interval {
	candidates := []int64{l.lo * r.lo, l.lo * r.hi, l.hi * r.lo, l.hi * r.hi}
	lo, hi := candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	return interval{lo, hi}
}

func maxI(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minI(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
