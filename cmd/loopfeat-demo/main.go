// Command loopfeat-demo builds the matmul-inner-reduction scenario from
// spec §8 scenario 3 in-process, runs the extractor, and prints the
// flattened feature vector next to its field names for inspection.
//
// Grounded on the teacher's small, self-contained cmd/ binaries that
// exercise one internal package end to end rather than wiring a full
// service (SeleniaProject-Orizon's cmd/ tools follow the same shape).
package main

import (
	"fmt"
	"os"

	"github.com/googol-lab/tvm/internal/effect"
	"github.com/googol-lab/tvm/internal/emit"
	"github.com/googol-lab/tvm/internal/feature"
	"github.com/googol-lab/tvm/internal/ir"
)

const float32Bits = 32

func float32Elem() ir.ElemType { return ir.ElemType{FloatKind: true, BitWidth: float32Bits} }

func constInt(v int64) *ir.ConstExpr { return &ir.ConstExpr{IntValue: v} }

// buildMatmul returns `for i,j,k: C[i,j] += A[i,k]*B[k,j]` with extents
// 32x32x32 over 4-byte float buffers, per spec §8 scenario 3.
func buildMatmul() ir.Node {
	elem := float32Elem()
	a := ir.NewBuffer(1, "A", []int64{32, 32}, elem)
	b := ir.NewBuffer(2, "B", []int64{32, 32}, elem)
	c := ir.NewBuffer(3, "C", []int64{32, 32}, elem)

	vi := ir.NewVar(10, "i")
	vj := ir.NewVar(11, "j")
	vk := ir.NewVar(12, "k")

	loadC := &ir.BufferLoad{Buffer: c, Indices: []ir.Expr{
		&ir.VarExpr{Var: vi, Type: elem}, &ir.VarExpr{Var: vj, Type: elem},
	}}
	loadA := &ir.BufferLoad{Buffer: a, Indices: []ir.Expr{
		&ir.VarExpr{Var: vi, Type: elem}, &ir.VarExpr{Var: vk, Type: elem},
	}}
	loadB := &ir.BufferLoad{Buffer: b, Indices: []ir.Expr{
		&ir.VarExpr{Var: vk, Type: elem}, &ir.VarExpr{Var: vj, Type: elem},
	}}

	mul := &ir.BinaryExpr{Op: ir.OpMul, Left: loadA, Right: loadB, Type: elem}
	value := &ir.BinaryExpr{Op: ir.OpAdd, Left: loadC, Right: mul, Type: elem}

	store := &ir.BufferStore{
		Buffer:  c,
		Indices: []ir.Expr{&ir.VarExpr{Var: vi, Type: elem}, &ir.VarExpr{Var: vj, Type: elem}},
		Value:   value,
	}

	loopK := &ir.Loop{Var: vk, Min: constInt(0), Extent: constInt(32), LoopKind: ir.LoopSerial, Body: store}
	loopJ := &ir.Loop{Var: vj, Min: constInt(0), Extent: constInt(32), LoopKind: ir.LoopSerial, Body: loopK}
	loopI := &ir.Loop{Var: vi, Min: constInt(0), Extent: constInt(32), LoopKind: ir.LoopSerial, Body: loopJ}

	return loopI
}

func main() {
	prog := buildMatmul()
	cfg := feature.DefaultConfig()
	cfg.MaxNBufs = 5

	sets, err := feature.WalkAll(prog, cfg, effect.StandardTable())
	if err != nil {
		fmt.Fprintln(os.Stderr, "extraction failed:", err)
		os.Exit(1)
	}

	vec := emit.Vector(sets, cfg)
	names := emit.Names(cfg.MaxNBufs)

	fmt.Printf("store_count\t%g\n", vec[0])
	width := len(names)
	for i := 0; i < len(sets); i++ {
		fmt.Printf("--- store %d ---\n", i)
		block := vec[1+i*width : 1+(i+1)*width]
		for j, name := range names {
			fmt.Printf("%-45s %g\n", name, block[j])
		}
	}
}
