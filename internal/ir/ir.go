// Package ir defines a read-only structural view of a lowered tensor-program
// intermediate representation: loop nests over typed, shaped buffers after
// bound inference, storage flattening, and vectorization have already run.
//
// The view is intentionally small. It exposes only what the feature
// extractor in internal/feature needs to walk: loops, GPU/unroll attribute
// scopes, buffer stores/loads/realizes, and scalar expressions. Lowering
// itself — canonicalization, bound inference, storage flattening,
// vectorization, GPU verification — is an external collaborator's concern.
package ir

// NodeID identifies a buffer or variable by identity rather than by
// structural equality, mirroring how the lowering pipeline hands out stable
// identities to the objects it allocates.
type NodeID uint64

// Node is the sealed interface implemented by every IR node this package
// knows about. Dispatch is by tagged union (Kind) plus a type switch in
// consumers, not by open interface inheritance.
type Node interface {
	Kind() NodeKind
}

// NodeKind tags the concrete type of a Node for dispatch without relying on
// a type switch at every call site.
type NodeKind int

const (
	KindLoop NodeKind = iota
	KindAttrScope
	KindBufferStore
	KindBufferLoad
	KindBufferRealize
	KindSeq
	KindBinaryExpr
	KindUnaryExpr
	KindLogicalExpr
	KindSelectExpr
	KindCallExpr
	KindVarExpr
	KindConstExpr
)

// LoopKind classifies how a loop was scheduled by the time it reaches this
// core. Serial is the default; the rest name annotations the lowering
// pipeline has already committed to.
type LoopKind int

const (
	LoopSerial LoopKind = iota
	LoopParallel
	LoopVectorized
	LoopUnrolled
	// LoopSyntheticThread marks a fake loop frame synthesized from a GPU
	// thread-extent or virtual-thread attribute scope (spec §4.7), not a
	// loop that appears in the IR directly.
	LoopSyntheticThread
)

// Var is a scalar loop or program variable, identified by NodeID so that
// expression walks can compare variables by identity rather than name.
type Var struct {
	id   NodeID
	Name string
}

func NewVar(id NodeID, name string) Var { return Var{id: id, Name: name} }

func (v Var) ID() NodeID { return v.id }

// Loop is a single `for` node: a scalar loop variable ranging over
// [Min, Min+Extent).
type Loop struct {
	Var    Var
	Min    Expr
	Extent Expr
	LoopKind LoopKind
	Body   Node
}

func (*Loop) Kind() NodeKind { return KindLoop }

// AttrKey names the attribute-scope keys the extractor understands.
type AttrKey int

const (
	AttrThreadExtent AttrKey = iota
	AttrVirtualThread
	AttrPragmaAutoUnrollMaxStep
)

// ThreadAxis names one of the six GPU thread-extent axes a thread_extent
// attribute scope can bind.
type ThreadAxis int

const (
	AxisNone ThreadAxis = iota
	AxisBlockIdxX
	AxisBlockIdxY
	AxisBlockIdxZ
	AxisThreadIdxX
	AxisThreadIdxY
	AxisThreadIdxZ
)

// AttrScope is a `(key, node, value, body)` attribute-scope node: the
// lowering pipeline's way of attaching GPU thread bindings and unroll
// pragmas to a subtree without introducing a dedicated statement kind for
// each one.
type AttrScope struct {
	Key   AttrKey
	Var   Var    // bound variable, meaningful for AttrThreadExtent/AttrVirtualThread
	Axis  ThreadAxis // meaningful for AttrThreadExtent only
	Value Expr
	Body  Node
}

func (*AttrScope) Kind() NodeKind { return KindAttrScope }

// BufferID identifies a buffer by identity.
type BufferID = NodeID

// Buffer is a typed, shaped multi-dimensional storage location.
type Buffer struct {
	id    BufferID
	Name  string
	Shape []int64 // constant dims; spec treats non-constant dims as out of scope
	Elem  ElemType
}

func NewBuffer(id BufferID, name string, shape []int64, elem ElemType) *Buffer {
	return &Buffer{id: id, Name: name, Shape: shape, Elem: elem}
}

func (b *Buffer) ID() BufferID { return b.id }

// Bytes returns the element size in bytes.
func (b *Buffer) Bytes() int64 { return b.Elem.Bytes() }

// ElemType is a scalar element type, just precise enough to tell bytes and
// float-vs-int apart.
type ElemType struct {
	FloatKind bool
	BitWidth  int
}

func (e ElemType) Bytes() int64 { return int64(e.BitWidth) / 8 }
func (e ElemType) IsFloat() bool { return e.FloatKind }

// BufferStore is an assignment into a buffer: `buf[indices] = value`.
type BufferStore struct {
	Buffer  *Buffer
	Indices []Expr
	Value   Expr
}

func (*BufferStore) Kind() NodeKind { return KindBufferStore }

// BufferLoad reads a buffer at a set of indices. It appears only inside
// expressions, never as a top-level statement.
type BufferLoad struct {
	Buffer  *Buffer
	Indices []Expr
}

func (*BufferLoad) Kind() NodeKind { return KindBufferLoad }

func (*BufferLoad) exprNode() {}

// Bound is a half-open integer range [Min, Min+Extent).
type Bound struct {
	Min    Expr
	Extent Expr
}

// BufferRealize declares the allocation bounds of a buffer for the scope
// of Body.
type BufferRealize struct {
	Buffer *Buffer
	Bounds []Bound
	Body   Node
}

func (*BufferRealize) Kind() NodeKind { return KindBufferRealize }

// Seq sequences a list of statements. It is the only composite statement
// kind besides Loop/AttrScope/BufferRealize bodies — the IR this core
// consumes is a lowered loop nest, not a general control-flow graph.
type Seq struct {
	Stmts []Node
}

func (*Seq) Kind() NodeKind { return KindSeq }

// Expr is any scalar expression node. It is a marker interface over Node so
// that expression-only contexts (indices, store values, loop bounds) can be
// typed without a downcast at every use.
type Expr interface {
	Node
	exprNode()
}

// BinaryOp enumerates the arithmetic, comparison op kinds the math-op
// counter and coefficient extractor distinguish. mathop.Count buckets
// these into addsub/mul/divmod/cmp categories (spec §4.1); the exact
// op identity still matters to stride.Coefficient (it cares about Add
// and Mul specifically).
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpFloorDiv
	OpFloorMod
	OpMax
	OpMin
	OpEQ
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
)

// BinaryExpr is a two-operand arithmetic or comparison expression.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	Type  ElemType
}

func (*BinaryExpr) Kind() NodeKind { return KindBinaryExpr }
func (*BinaryExpr) exprNode()      {}

// UnaryOp enumerates the logical-negation op this core needs; other unary
// forms (bitwise not, numeric negate) are out of scope for feature
// purposes and fold into LogicalExpr/ConstExpr at the edges.
type UnaryOp int

const (
	OpNot UnaryOp = iota
)

// LogicalOp enumerates boolean-connective ops.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
	OpLogicalNot
)

// LogicalExpr is an `and`/`or`/`not` boolean connective.
type LogicalExpr struct {
	Op       LogicalOp
	Operands []Expr
	Type     ElemType
}

func (*LogicalExpr) Kind() NodeKind { return KindLogicalExpr }
func (*LogicalExpr) exprNode()      {}

// UnaryExpr is reserved for future unary numeric ops; unused by the current
// math-op categories but kept in the sealed node set since the collaborator
// interface (spec §6) names unary/logical/select/call node kinds together.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
	Type    ElemType
}

func (*UnaryExpr) Kind() NodeKind { return KindUnaryExpr }
func (*UnaryExpr) exprNode()      {}

// SelectExpr is a ternary `cond ? t : f`.
type SelectExpr struct {
	Cond, Then, Else Expr
	Type             ElemType
}

func (*SelectExpr) Kind() NodeKind { return KindSelectExpr }
func (*SelectExpr) exprNode()      {}

// CallExpr is a call to an intrinsic or function op. OpName is looked up in
// an effect.Table by the caller; this package carries only the name, not
// the classification, so that the effect table stays an injected
// collaborator rather than an ambient singleton (spec §9).
type CallExpr struct {
	OpName string
	Args   []Expr
	Type   ElemType
}

func (*CallExpr) Kind() NodeKind { return KindCallExpr }
func (*CallExpr) exprNode()      {}

// VarExpr references a scalar variable (a loop variable, typically).
type VarExpr struct {
	Var  Var
	Type ElemType
}

func (*VarExpr) Kind() NodeKind { return KindVarExpr }
func (*VarExpr) exprNode()      {}

// ConstExpr is an integer or float literal.
type ConstExpr struct {
	IntValue   int64
	FloatValue float64
	Type       ElemType
}

func (*ConstExpr) Kind() NodeKind { return KindConstExpr }
func (*ConstExpr) exprNode()      {}

// IsIntConst reports whether e is a constant-integer expression, and if so
// its value. Used by the coefficient extractor and loop-extent resolution.
func IsIntConst(e Expr) (int64, bool) {
	c, ok := e.(*ConstExpr)
	if !ok || c.Type.IsFloat() {
		return 0, false
	}
	return c.IntValue, true
}
