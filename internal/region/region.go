// Package region estimates the axis-aligned touched region of a buffer's
// index tuples under a live bound analyzer, per spec §4.5.
package region

import "github.com/googol-lab/tvm/internal/ir"

// BoundAnalyzer binds loop variables to ranges and answers conservative
// integer bounds for arbitrary expressions, mirroring the lowering
// collaborator's arith::Analyzer (spec §6).
type BoundAnalyzer interface {
	// Bind associates v with the half-open range [min, min+extent).
	Bind(v ir.Var, min, extent ir.Expr)
	// ConstIntBound returns a conservative [min, max] bound for e, using
	// +/-infinity sentinels when no bound can be derived.
	ConstIntBound(e ir.Expr) (min, max int64)
}

// Estimate returns, for each dimension, the extent of the bounding box
// touched by tuples under ana's current bindings: per spec §4.5,
// max_j bound(tuple[j][k]).max - min_j bound(tuple[j][k]).min + 1.
//
// When there is exactly one tuple the per-dim loop is the same computation
// specialized to a single index (no min/max needed across tuples).
func Estimate(tuples [][]ir.Expr, ana BoundAnalyzer) []int64 {
	if len(tuples) == 0 {
		return nil
	}
	dims := len(tuples[0])
	region := make([]int64, dims)
	for k := 0; k < dims; k++ {
		minV, maxV := int64(1), int64(-1)
		first := true
		for _, tuple := range tuples {
			lo, hi := ana.ConstIntBound(tuple[k])
			if first {
				minV, maxV = lo, hi
				first = false
				continue
			}
			if lo < minV {
				minV = lo
			}
			if hi > maxV {
				maxV = hi
			}
		}
		region[k] = maxV - minV + 1
	}
	return region
}

// ElementProduct multiplies the per-dim extents into a single touched
// element count.
func ElementProduct(region []int64) int64 {
	p := int64(1)
	for _, r := range region {
		p *= r
	}
	return p
}
