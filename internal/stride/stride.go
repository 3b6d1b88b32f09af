// Package stride provides an approximate stride extractor: given an index
// expression and a target loop variable, how quickly does the flattened
// address move when the variable ticks by one, and a per-variable
// cache-line stride over a set of index tuples and a buffer shape.
//
// Grounded on CoefficientExtractor and ComputeStride in the original
// feature extractor (spec §4.3–§4.4). This is a deliberate approximation,
// not exact linear algebra: it recognizes the affine common case `c*V + k`
// precisely and falls back to a conservative nonzero sentinel for anything
// more exotic.
package stride

import "github.com/googol-lab/tvm/internal/ir"

// Coefficient returns an approximate stride contribution of loop variable v
// within expression e, per spec §4.3.
func Coefficient(e ir.Expr, v ir.Var) int64 {
	coef, _ := coefficientAndFound(e, v)
	return coef
}

func coefficientAndFound(e ir.Expr, v ir.Var) (int64, bool) {
	var c coeffState
	c.walk(e, v)
	if c.sawVar && !c.sawMul && !c.sawAdd {
		return 1, true
	}
	return c.stride, c.sawVar
}

type coeffState struct {
	sawVar, sawMul, sawAdd bool
	stride                 int64
}

// walk recurses post-order, mirroring CoefficientExtractor's VisitExpr_
// overrides for Mul/Add/Var in that exact order of concerns: children are
// visited first, then the current node updates the flags.
func (c *coeffState) walk(e ir.Expr, v ir.Var) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ir.VarExpr:
		if n.Var.ID() == v.ID() {
			c.sawVar = true
			// Magic default stride in case the approximation strategy below
			// fails to pin down anything more precise.
			c.stride = 2
		}
	case *ir.BinaryExpr:
		c.walk(n.Left, v)
		c.walk(n.Right, v)
		switch n.Op {
		case ir.OpMul:
			if c.sawVar && !c.sawAdd {
				if val, ok := ir.IsIntConst(n.Left); ok {
					c.sawMul = true
					c.stride = val
				} else if val, ok := ir.IsIntConst(n.Right); ok {
					c.sawMul = true
					c.stride = val
				}
			}
		case ir.OpAdd:
			if c.sawVar && !c.sawMul {
				c.sawAdd = true
				c.stride = 1
			}
		}
	case *ir.UnaryExpr:
		c.walk(n.Operand, v)
	case *ir.LogicalExpr:
		for _, operand := range n.Operands {
			c.walk(operand, v)
		}
	case *ir.SelectExpr:
		c.walk(n.Cond, v)
		c.walk(n.Then, v)
		c.walk(n.Else, v)
	case *ir.CallExpr:
		for _, arg := range n.Args {
			c.walk(arg, v)
		}
	case *ir.BufferLoad:
		for _, idx := range n.Indices {
			c.walk(idx, v)
		}
	}
}

// ToCacheLines computes the per-loop-variable stride sigma(v) across a set
// of index tuples against a buffer shape, per spec §4.4: the minimum over
// tuples of |coefficient| times the product of shape dims strictly inside
// (to the right of) the dim in which v was found, searching dims from
// innermost (last) backward. Returns 0 if v never appears in any tuple.
func ToCacheLines(tuples [][]ir.Expr, shape []int64, v ir.Var) int64 {
	var minStride int64 = -1
	for _, tuple := range tuples {
		var shapeStride int64 = 1
		for i := len(tuple) - 1; i >= 0; i-- {
			coef, found := coefficientAndFound(tuple[i], v)
			if found {
				abs := coef
				if abs < 0 {
					abs = -abs
				}
				candidate := abs * shapeStride
				if minStride < 0 || candidate < minStride {
					minStride = candidate
				}
				break
			}
			if i < len(shape) {
				shapeStride *= shape[i]
			}
		}
	}
	if minStride < 0 {
		return 0
	}
	return minStride
}
