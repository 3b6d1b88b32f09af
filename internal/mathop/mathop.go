// Package mathop counts arithmetic, comparison, logical, and call
// operations in a scalar expression, split by float/int operand type and
// by call purity.
//
// Grounded on MathOpCounter in the original auto-scheduler feature
// extractor: a post-order StmtExprVisitor that buckets each binary node by
// its left operand's dtype. The "mad" (fused multiply-add) count is
// reserved but always zero — detecting fused mad ops is a documented TODO
// upstream that this core does not attempt either.
package mathop

// Counts is a pair of (float, int) op counts per category, one struct per
// store's value expression.
type Counts struct {
	FloatMad, FloatAddSub, FloatMul, FloatDivMod, FloatCmp, FloatMathFunc, FloatOtherFunc float64
	IntMad, IntAddSub, IntMul, IntDivMod, IntCmp, IntMathFunc, IntOtherFunc                float64
	BoolOp, SelectOp                                                                       float64
}

// FloatComputeOps sums the float-typed compute categories, used as the
// numerator of the arithmetic-intensity curve (spec §4.7 step 7). Bool/
// select ops are not compute ops for this purpose, matching the original's
// cur_compute_ops definition.
func (c Counts) FloatComputeOps() float64 {
	return c.FloatMad + c.FloatAddSub + c.FloatMul + c.FloatDivMod + c.FloatCmp +
		c.FloatMathFunc + c.FloatOtherFunc
}
