// Package reuse classifies data reuse for one buffer access against the
// current loop stack and per-loop touched-region tables, per spec §4.6.
//
// Grounded on ComputeReuse in the original feature extractor: walk the
// loop stack from innermost outward, accumulate the iteration-distance
// product while the loop variable is an "iteration carrier" for this
// access, and short-circuit into LoopMultipleRead the first time a loop is
// found that does not carry the variable, or into
// SerialMultipleReadWrite if the current loop's region table shows more
// than one distinct access entry for this buffer.
package reuse

import "github.com/googol-lab/tvm/internal/ir"

// Type enumerates the three reuse kinds spec §3/§4.6 distinguish.
type Type int

const (
	LoopMultipleRead Type = iota
	SerialMultipleReadWrite
	NoReuse
)

// RegionEntry is one (access kind, element count, element bytes) entry
// recorded for a buffer under a loop, per spec §3's PerLoopRegionTable.
type RegionEntry struct {
	ElementCount int64
	ElementBytes int64
}

// LoopRegions is the per-loop table: for each buffer touched in this
// loop's subtree, the list of access entries recorded there.
type LoopRegions map[ir.BufferID][]RegionEntry

// Frame is one enclosing loop, from innermost (index 0 as handed to
// Classify) outward, paired with its region table.
type Frame struct {
	Var     ir.Var
	Extent  int64
	Regions LoopRegions
}

// Result is the four reuse outputs spec §3/§4.6 name.
type Result struct {
	Type          Type
	ReuseDisIter  float64
	ReuseDisBytes float64
	ReuseCt       float64
}

// varIn reports whether v appears in any scalar expression of tuple.
func varIn(tuples [][]ir.Expr, v ir.Var) bool {
	for _, tuple := range tuples {
		for _, e := range tuple {
			if exprHasVar(e, v) {
				return true
			}
		}
	}
	return false
}

func exprHasVar(e ir.Expr, v ir.Var) bool {
	switch n := e.(type) {
	case *ir.VarExpr:
		return n.Var.ID() == v.ID()
	case *ir.BinaryExpr:
		return exprHasVar(n.Left, v) || exprHasVar(n.Right, v)
	case *ir.UnaryExpr:
		return exprHasVar(n.Operand, v)
	case *ir.LogicalExpr:
		for _, operand := range n.Operands {
			if exprHasVar(operand, v) {
				return true
			}
		}
		return false
	case *ir.SelectExpr:
		return exprHasVar(n.Cond, v) || exprHasVar(n.Then, v) || exprHasVar(n.Else, v)
	case *ir.CallExpr:
		for _, arg := range n.Args {
			if exprHasVar(arg, v) {
				return true
			}
		}
		return false
	case *ir.BufferLoad:
		for _, idx := range n.Indices {
			if exprHasVar(idx, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Classify walks stack from innermost (stack[0]) to outermost, per spec
// §4.6. buf identifies the buffer this access belongs to, used to look up
// its entries in each frame's region table.
func Classify(buf ir.BufferID, indices [][]ir.Expr, stack []Frame) Result {
	reuseDisIter := 1.0
	reuseDisBytes := -1.0

	for _, frame := range stack {
		carries := varIn(indices, frame.Var)

		if carries {
			reuseDisIter *= float64(frame.Extent)
			reuseDisBytes = sumBytes(frame.Regions)
		} else {
			if reuseDisBytes < 0 {
				reuseDisBytes = sumUnitBytes(frame.Regions)
			}
			return Result{
				Type:          LoopMultipleRead,
				ReuseDisIter:  reuseDisIter,
				ReuseDisBytes: reuseDisBytes,
				ReuseCt:       float64(frame.Extent),
			}
		}

		entries := frame.Regions[buf]
		serialReuse := len(entries) - 1
		if serialReuse > 0 {
			minCount := entries[0].ElementCount
			for _, e := range entries[1:] {
				if e.ElementCount < minCount {
					minCount = e.ElementCount
				}
			}
			bytesSum := sumBytes(frame.Regions)
			extent := float64(frame.Extent)
			return Result{
				Type:          SerialMultipleReadWrite,
				ReuseDisIter:  float64(minCount) / extent,
				ReuseDisBytes: bytesSum / extent,
				ReuseCt:       float64(serialReuse),
			}
		}
	}

	return Result{Type: NoReuse}
}

func sumBytes(regions LoopRegions) float64 {
	total := 0.0
	for _, entries := range regions {
		for _, e := range entries {
			total += float64(e.ElementCount) * float64(e.ElementBytes)
		}
	}
	return total
}

func sumUnitBytes(regions LoopRegions) float64 {
	total := 0.0
	for _, entries := range regions {
		for _, e := range entries {
			total += float64(e.ElementBytes)
		}
	}
	return total
}
