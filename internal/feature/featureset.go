// Package feature implements the per-store feature extractor: the
// orchestrator described by spec §4.7, a single pre/post recursive walk
// over a lowered IR that maintains loop stacks, GPU thread extents, pragma
// state, and a per-loop region table, emitting one FeatureSet per
// BufferStore it visits.
//
// Grounded end to end on PerStoreFeatureExtractor in the original
// auto-scheduler feature extractor (_examples/original_source/src/
// auto_scheduler/feature.cc).
package feature

import (
	"github.com/googol-lab/tvm/internal/access"
	"github.com/googol-lab/tvm/internal/reuse"
)

// ArithIntensityCurveSampleN is the fixed sample count for the arithmetic
// intensity curve, per spec §6.
const ArithIntensityCurveSampleN = 10

// Config carries the tuner knobs spec §6 names as external configuration.
type Config struct {
	CacheLineSize int64
	MaxNBufs      int
}

// DefaultConfig returns the spec's documented defaults: a 64-byte cache
// line and MaxNBufs of 0, which leaves the emitted vector with no
// buffer-access slots.
func DefaultConfig() Config {
	return Config{CacheLineSize: 64, MaxNBufs: 0}
}

// PosType is the annotation position encoding for vectorized/unrolled/
// parallel loops. GetAnnotationPosEncoding's finer-grained values exist in
// the original but are dead code at every call site (commented out); this
// core only ever produces PosNone or PosMixed, matching that reality
// rather than porting logic nothing calls (see DESIGN.md Open Question 2).
type PosType int

const (
	PosNone PosType = iota
	PosInnerSpatial
	PosMiddleSpatial
	PosOuterSpatial
	PosInnerReduce
	PosMiddleReduce
	PosOuterReduce
	PosMixed
)

// NumPosTypes is the one-hot width for a PosType field.
const NumPosTypes = int(PosMixed) + 1

// AccessKind mirrors access.Kind restricted to the three kinds a finished
// access can settle into (Unknown never survives to a FeatureSet).
type AccessKind int

const (
	AccRead AccessKind = iota
	AccWrite
	AccReadWrite
)

// NumAccessKinds is the one-hot width for an AccessKind field.
const NumAccessKinds = int(AccReadWrite) + 1

func fromAccessKind(k access.Kind) AccessKind {
	switch k {
	case access.Read:
		return AccRead
	case access.Write:
		return AccWrite
	default:
		return AccReadWrite
	}
}

// ReuseType mirrors reuse.Type, renamed to the feature-set's own vocabulary
// so internal/emit doesn't need to import internal/reuse directly.
type ReuseType int

const (
	ReuseLoopMultipleRead ReuseType = iota
	ReuseSerialMultipleReadWrite
	ReuseNoReuse
)

// NumReuseTypes is the one-hot width for a ReuseType field.
const NumReuseTypes = int(ReuseNoReuse) + 1

func fromReuseType(t reuse.Type) ReuseType {
	switch t {
	case reuse.LoopMultipleRead:
		return ReuseLoopMultipleRead
	case reuse.SerialMultipleReadWrite:
		return ReuseSerialMultipleReadWrite
	default:
		return ReuseNoReuse
	}
}

// BufferAccessFeature is per-buffer access features within one store,
// per spec §3.
type BufferAccessFeature struct {
	BufferName string
	Kind       AccessKind

	Bytes       float64
	UniqueBytes float64
	Lines       float64
	UniqueLines float64

	ReuseType     ReuseType
	ReuseDisIter  float64
	ReuseDisBytes float64
	ReuseCt       float64

	BytesDReuseCt       float64
	UniqueBytesDReuseCt float64
	LinesDReuseCt       float64
	UniqueLinesDReuseCt float64

	Stride float64
}

// FeatureSet is all features for one buffer-store, per spec §3.
type FeatureSet struct {
	// Compute features (16 fields).
	FloatMad, FloatAddSub, FloatMul, FloatDivMod, FloatCmp, FloatMathFunc, FloatOtherFunc float64
	IntMad, IntAddSub, IntMul, IntDivMod, IntCmp, IntMathFunc, IntOtherFunc                float64
	BoolOp, SelectOp                                                                       float64

	// Vectorized/unrolled/parallel triples + position tag.
	VecNum, VecProd, VecLen             float64
	VecType                            PosType
	UnrollNum, UnrollProd, UnrollLen   float64
	UnrollType                        PosType
	ParallelNum, ParallelProd, ParallelLen float64
	ParallelType                      PosType

	// GPU context.
	IsGPU                                                        float64
	BlockIdxXLen, BlockIdxYLen, BlockIdxZLen                     float64
	ThreadIdxXLen, ThreadIdxYLen, ThreadIdxZLen                  float64
	VthreadLen                                                   float64

	ArithIntensityCurve [ArithIntensityCurveSampleN]float64

	AccessFeas []BufferAccessFeature

	// Allocation features.
	AllocSize, AllocOuterProd, AllocProd, AllocInnerProd float64

	// Overall features.
	OuterProd, NumLoops, AutoUnrollMaxStep float64
}
