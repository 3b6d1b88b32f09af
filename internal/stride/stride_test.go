package stride

import (
	"testing"

	"github.com/googol-lab/tvm/internal/ir"
)

var i32 = ir.ElemType{BitWidth: 32}

func varExpr(v ir.Var) ir.Expr { return &ir.VarExpr{Var: v, Type: i32} }
func constI(n int64) ir.Expr   { return &ir.ConstExpr{IntValue: n, Type: i32} }

func TestCoefficientBareVar(t *testing.T) {
	v := ir.NewVar(1, "i")
	if got := Coefficient(varExpr(v), v); got != 1 {
		t.Fatalf("Coefficient(i) = %d, want 1", got)
	}
}

func TestCoefficientScaled(t *testing.T) {
	v := ir.NewVar(1, "i")
	expr := &ir.BinaryExpr{Op: ir.OpMul, Left: constI(4), Right: varExpr(v), Type: i32}
	if got := Coefficient(expr, v); got != 4 {
		t.Fatalf("Coefficient(4*i) = %d, want 4", got)
	}
}

func TestCoefficientAdditiveOffset(t *testing.T) {
	v := ir.NewVar(1, "i")
	expr := &ir.BinaryExpr{Op: ir.OpAdd, Left: varExpr(v), Right: constI(7), Type: i32}
	if got := Coefficient(expr, v); got != 1 {
		t.Fatalf("Coefficient(i+7) = %d, want 1", got)
	}
}

func TestCoefficientAbsentVar(t *testing.T) {
	v := ir.NewVar(1, "i")
	other := ir.NewVar(2, "j")
	if got := Coefficient(varExpr(other), v); got != 0 {
		t.Fatalf("Coefficient(j) w.r.t. i = %d, want 0", got)
	}
}

func TestToCacheLinesInnermostContiguous(t *testing.T) {
	v := ir.NewVar(1, "k")
	tuples := [][]ir.Expr{{varExpr(v)}}
	shape := []int64{32}
	if got := ToCacheLines(tuples, shape, v); got != 1 {
		t.Fatalf("sigma = %d, want 1 (innermost dim, coefficient 1)", got)
	}
}

func TestToCacheLinesOuterDimAccumulatesShapeStride(t *testing.T) {
	vi := ir.NewVar(1, "i")
	vk := ir.NewVar(2, "k")
	// A[i][k], shape [32,32]; stride of i is shape[1] = 32.
	tuples := [][]ir.Expr{{varExpr(vi), varExpr(vk)}}
	shape := []int64{32, 32}
	if got := ToCacheLines(tuples, shape, vi); got != 32 {
		t.Fatalf("sigma(i) = %d, want 32", got)
	}
	if got := ToCacheLines(tuples, shape, vk); got != 1 {
		t.Fatalf("sigma(k) = %d, want 1", got)
	}
}

func TestToCacheLinesVarAbsentReturnsZero(t *testing.T) {
	vi := ir.NewVar(1, "i")
	vj := ir.NewVar(2, "j")
	tuples := [][]ir.Expr{{varExpr(vi)}}
	shape := []int64{32}
	if got := ToCacheLines(tuples, shape, vj); got != 0 {
		t.Fatalf("sigma(j) = %d, want 0 (j never appears)", got)
	}
}

func TestToCacheLinesMinimumAcrossTuples(t *testing.T) {
	v := ir.NewVar(1, "i")
	tuples := [][]ir.Expr{
		{&ir.BinaryExpr{Op: ir.OpMul, Left: constI(4), Right: varExpr(v), Type: i32}},
		{varExpr(v)},
	}
	shape := []int64{64}
	if got := ToCacheLines(tuples, shape, v); got != 1 {
		t.Fatalf("sigma = %d, want 1 (min over tuples)", got)
	}
}
