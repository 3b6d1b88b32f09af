// Package access collects, per buffer, an access kind (read/write/
// read-write) and the list of index-expression tuples observed in one
// store statement's write plus the reads reachable from its value
// expression.
//
// Grounded on BufferAccessExtractor in the original feature extractor:
// a one-shot visitor over the store's value expression that folds in the
// store's own write, using the acc_type state machine from spec §4.2.
package access

import "github.com/googol-lab/tvm/internal/ir"

// Kind is a buffer's access kind within one store.
type Kind int

const (
	Unknown Kind = iota
	Read
	Write
	ReadWrite
)

// transition implements the spec §4.2 state table.
func transition(prior Kind, isLoad bool) Kind {
	switch prior {
	case Unknown:
		if isLoad {
			return Read
		}
		return Write
	case Read:
		if isLoad {
			return Read
		}
		return ReadWrite
	case Write:
		if isLoad {
			return ReadWrite
		}
		return Write
	default: // ReadWrite
		return ReadWrite
	}
}

// Access records the accesses to one buffer observed within one store.
type Access struct {
	Buffer  *ir.Buffer
	Kind    Kind
	Indices [][]ir.Expr
}

// Collect visits store's write and the reads reachable from value, and
// returns one Access per distinct buffer touched, keyed by buffer identity.
func Collect(store *ir.BufferStore) map[ir.BufferID]*Access {
	accesses := make(map[ir.BufferID]*Access)
	insert(accesses, store.Buffer, false, store.Indices)
	collectLoads(store.Value, accesses)
	return accesses
}

func collectLoads(e ir.Expr, accesses map[ir.BufferID]*Access) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ir.BufferLoad:
		for _, idx := range n.Indices {
			collectLoads(idx, accesses)
		}
		insert(accesses, n.Buffer, true, n.Indices)
	case *ir.BinaryExpr:
		collectLoads(n.Left, accesses)
		collectLoads(n.Right, accesses)
	case *ir.UnaryExpr:
		collectLoads(n.Operand, accesses)
	case *ir.LogicalExpr:
		for _, operand := range n.Operands {
			collectLoads(operand, accesses)
		}
	case *ir.SelectExpr:
		collectLoads(n.Cond, accesses)
		collectLoads(n.Then, accesses)
		collectLoads(n.Else, accesses)
	case *ir.CallExpr:
		for _, arg := range n.Args {
			collectLoads(arg, accesses)
		}
	}
}

func insert(accesses map[ir.BufferID]*Access, buf *ir.Buffer, isLoad bool, indices []ir.Expr) {
	acc, ok := accesses[buf.ID()]
	if !ok {
		acc = &Access{Buffer: buf}
		accesses[buf.ID()] = acc
	}
	acc.Kind = transition(acc.Kind, isLoad)
	if acc.Kind != ReadWrite {
		// A buffer that is both read and written within the same store is an
		// update, and in this IR such updates always share indices — so once
		// the kind becomes ReadWrite we stop appending further tuples.
		tuple := make([]ir.Expr, len(indices))
		copy(tuple, indices)
		acc.Indices = append(acc.Indices, tuple)
	}
}
