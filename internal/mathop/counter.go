package mathop

import (
	"github.com/googol-lab/tvm/internal/effect"
	"github.com/googol-lab/tvm/internal/ir"
)

// Count walks expr post-order and returns its op Counts, classifying call
// purity through table.
func Count(expr ir.Expr, table *effect.Table) Counts {
	var c Counts
	visit(expr, table, &c)
	return c
}

func visit(e ir.Expr, table *effect.Table, c *Counts) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ir.BinaryExpr:
		visit(n.Left, table, c)
		visit(n.Right, table, c)
		isFloat := exprIsFloat(n.Left)
		switch n.Op {
		case ir.OpAdd, ir.OpSub:
			bump(isFloat, &c.FloatAddSub, &c.IntAddSub)
		case ir.OpMul:
			bump(isFloat, &c.FloatMul, &c.IntMul)
		case ir.OpDiv, ir.OpMod, ir.OpFloorDiv, ir.OpFloorMod:
			bump(isFloat, &c.FloatDivMod, &c.IntDivMod)
		case ir.OpMax, ir.OpMin, ir.OpEQ, ir.OpNE, ir.OpLT, ir.OpLE, ir.OpGT, ir.OpGE:
			bump(isFloat, &c.FloatCmp, &c.IntCmp)
		}
	case *ir.LogicalExpr:
		for _, operand := range n.Operands {
			visit(operand, table, c)
		}
		c.BoolOp++
	case *ir.UnaryExpr:
		visit(n.Operand, table, c)
	case *ir.SelectExpr:
		visit(n.Cond, table, c)
		visit(n.Then, table, c)
		visit(n.Else, table, c)
		c.SelectOp++
	case *ir.CallExpr:
		for _, arg := range n.Args {
			visit(arg, table, c)
		}
		kind := table.Lookup(n.OpName)
		isFloat := n.Type.IsFloat()
		if kind.IsPure() {
			bump(isFloat, &c.FloatMathFunc, &c.IntMathFunc)
		} else {
			bump(isFloat, &c.FloatOtherFunc, &c.IntOtherFunc)
		}
	case *ir.BufferLoad:
		for _, idx := range n.Indices {
			visit(idx, table, c)
		}
	case *ir.VarExpr, *ir.ConstExpr:
		// leaves
	}
}

func bump(isFloat bool, floatCt, intCt *float64) {
	if isFloat {
		*floatCt++
	} else {
		*intCt++
	}
}

// exprIsFloat reports whether e's static type is floating point, used to
// decide which (float, int) bucket a binary op's counts land in. The
// original classifies by the left operand's dtype; ties here to the same
// convention.
func exprIsFloat(e ir.Expr) bool {
	switch n := e.(type) {
	case *ir.BinaryExpr:
		return n.Type.IsFloat()
	case *ir.UnaryExpr:
		return n.Type.IsFloat()
	case *ir.LogicalExpr:
		return n.Type.IsFloat()
	case *ir.SelectExpr:
		return n.Type.IsFloat()
	case *ir.CallExpr:
		return n.Type.IsFloat()
	case *ir.VarExpr:
		return n.Type.IsFloat()
	case *ir.ConstExpr:
		return n.Type.IsFloat()
	case *ir.BufferLoad:
		return n.Buffer.Elem.IsFloat()
	default:
		return false
	}
}
