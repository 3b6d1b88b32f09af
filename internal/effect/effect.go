// Package effect classifies call expressions by side-effect purity.
//
// It mirrors the teacher repo's EffectKind/EffectSet value types
// (internal/hir in the reference build) adapted to the three-way
// classification the feature extractor's math-op counter needs: pure,
// pure-by-annotation, and impure. The classification is looked up through
// an injected Table rather than an ambient global map, per the "no ambient
// singleton" design note.
package effect

// Kind classifies a call's side-effect purity.
type Kind int

const (
	// Pure calls have no side effects and are deterministic given their
	// arguments (e.g. exp, sqrt, max).
	Pure Kind = iota
	// PureAnnotation calls are treated as pure for feature-extraction
	// purposes even though they are not true intrinsics — e.g. explicit
	// annotations the lowering pipeline inserts that wrap a pure
	// computation without changing its value.
	PureAnnotation
	// Impure calls may have side effects or unspecified behavior and are
	// counted separately from math intrinsics.
	Impure
)

// IsPure reports whether k should be treated as pure for math-op counting:
// spec §4.1 buckets Pure and PureAnnotation together as "pure or
// pure-annotation".
func (k Kind) IsPure() bool { return k == Pure || k == PureAnnotation }

// Table is an immutable lookup service from call op name to effect Kind.
// It is constructed once by the collaborator that owns the lowering
// pipeline and passed into the extractor; this package never constructs
// one itself.
type Table struct {
	kinds map[string]Kind
}

// NewTable builds a Table from an explicit name->Kind map. Names absent
// from the map are classified Impure by Lookup — an unclassified call is
// the conservative default, not a silent pure assumption.
func NewTable(kinds map[string]Kind) *Table {
	cp := make(map[string]Kind, len(kinds))
	for k, v := range kinds {
		cp[k] = v
	}
	return &Table{kinds: cp}
}

// Lookup returns the effect Kind registered for name, or Impure if none is
// registered.
func (t *Table) Lookup(name string) Kind {
	if t == nil {
		return Impure
	}
	if k, ok := t.kinds[name]; ok {
		return k
	}
	return Impure
}

// StandardTable returns a Table pre-populated with the intrinsics a lowered
// tensor IR commonly calls: the usual transcendental math functions are
// pure; nothing is marked pure-by-annotation by default since annotation
// ops are backend-specific and supplied by the caller.
func StandardTable() *Table {
	pureNames := []string{
		"exp", "exp2", "exp10", "log", "log2", "log10",
		"sqrt", "rsqrt", "sin", "cos", "tan", "tanh", "sigmoid",
		"pow", "fabs", "floor", "ceil", "round", "trunc",
		"erf", "clz", "popcount",
	}
	kinds := make(map[string]Kind, len(pureNames))
	for _, n := range pureNames {
		kinds[n] = Pure
	}
	return NewTable(kinds)
}
