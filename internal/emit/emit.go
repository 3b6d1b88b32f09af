// Package emit flattens a program's per-store FeatureSets into the fixed-
// schema numeric vector the downstream cost model trains on, and produces
// the matching human-readable field names for debugging.
//
// Grounded on GetPerStoreFeature/GetPerStoreFeatureName in the original
// auto-scheduler feature extractor (_examples/original_source/src/
// auto_scheduler/feature.cc): one leading store count, then one
// fixed-width block per store (compute features, vec/unroll/parallel
// triples + one-hot position tag, GPU context, arithmetic-intensity
// curve, a sorted/truncated/padded buffer-access section, allocation
// features, overall features).
package emit

import (
	"fmt"
	"math"

	"github.com/googol-lab/tvm/internal/feature"
)

// slog is the signed log transform spec §6 names: sign(x)*log2(|x|+1),
// with slog(0) = 0. Used on every magnitude-scale field so the model sees
// roughly linear deltas across the huge dynamic range raw op/byte counts
// span.
func slog(x float64) float64 {
	if x < 0 {
		return -math.Log2(-x+1)
	}
	return math.Log2(x + 1)
}

func oneHot(n, selected int) []float64 {
	v := make([]float64, n)
	if selected >= 0 && selected < n {
		v[selected] = 1
	}
	return v
}

// Vector flattens sets into one flat feature vector, per spec §6. cfg's
// MaxNBufs bounds the per-store buffer-access section; a store with more
// distinct buffers than MaxNBufs keeps only the MaxNBufs with the largest
// (lines, bytes) key, and a store with fewer is zero-padded up to it.
func Vector(sets []*feature.FeatureSet, cfg feature.Config) []float64 {
	out := make([]float64, 0, 1+len(sets)*storeBlockWidth(cfg.MaxNBufs))
	out = append(out, float64(len(sets)))
	for _, fs := range sets {
		out = appendStore(out, fs, cfg)
	}
	return out
}

func storeBlockWidth(maxNBufs int) int {
	const fixedWidth = 16 + 3*(3+feature.NumPosTypes) + 8 + feature.ArithIntensityCurveSampleN + 4 + 3
	return fixedWidth + maxNBufs*18
}

func appendStore(out []float64, fs *feature.FeatureSet, cfg feature.Config) []float64 {
	out = append(out,
		slog(fs.FloatMad), slog(fs.FloatAddSub), slog(fs.FloatMul), slog(fs.FloatDivMod),
		slog(fs.FloatCmp), slog(fs.FloatMathFunc), slog(fs.FloatOtherFunc),
		slog(fs.IntMad), slog(fs.IntAddSub), slog(fs.IntMul), slog(fs.IntDivMod),
		slog(fs.IntCmp), slog(fs.IntMathFunc), slog(fs.IntOtherFunc),
		slog(fs.BoolOp), slog(fs.SelectOp),
	)

	out = append(out, slog(fs.VecNum), slog(fs.VecProd), slog(fs.VecLen))
	out = append(out, oneHot(feature.NumPosTypes, int(fs.VecType))...)
	out = append(out, slog(fs.UnrollNum), slog(fs.UnrollProd), slog(fs.UnrollLen))
	out = append(out, oneHot(feature.NumPosTypes, int(fs.UnrollType))...)
	out = append(out, slog(fs.ParallelNum), slog(fs.ParallelProd), slog(fs.ParallelLen))
	out = append(out, oneHot(feature.NumPosTypes, int(fs.ParallelType))...)

	out = append(out, fs.IsGPU,
		slog(fs.BlockIdxXLen), slog(fs.BlockIdxYLen), slog(fs.BlockIdxZLen),
		slog(fs.ThreadIdxXLen), slog(fs.ThreadIdxYLen), slog(fs.ThreadIdxZLen),
		slog(fs.VthreadLen),
	)

	for _, v := range fs.ArithIntensityCurve {
		out = append(out, v)
	}

	out = appendAccessSection(out, fs.AccessFeas, cfg.MaxNBufs)

	out = append(out, slog(fs.AllocSize), slog(fs.AllocProd), slog(fs.AllocOuterProd), slog(fs.AllocInnerProd))
	out = append(out, slog(fs.OuterProd), slog(fs.NumLoops), slog(fs.AutoUnrollMaxStep))

	return out
}

func appendAccessSection(out []float64, feas []feature.BufferAccessFeature, maxNBufs int) []float64 {
	ordered := make([]feature.BufferAccessFeature, len(feas))
	copy(ordered, feas)
	feature.SortAccessFeas(ordered)

	n := maxNBufs
	if len(ordered) < n {
		n = len(ordered)
	}
	for i := 0; i < n; i++ {
		fea := ordered[i]
		out = append(out, oneHot(feature.NumAccessKinds, int(fea.Kind))...)
		out = append(out,
			slog(fea.Bytes), slog(fea.UniqueBytes), slog(fea.Lines), slog(fea.UniqueLines),
		)
		out = append(out, oneHot(feature.NumReuseTypes, int(fea.ReuseType))...)
		out = append(out,
			slog(fea.ReuseDisIter), slog(fea.ReuseDisBytes), slog(fea.ReuseCt),
			slog(fea.BytesDReuseCt), slog(fea.UniqueBytesDReuseCt),
			slog(fea.LinesDReuseCt), slog(fea.UniqueLinesDReuseCt),
			slog(fea.Stride),
		)
	}
	for i := n; i < maxNBufs; i++ {
		out = append(out, make([]float64, 18)...)
	}
	return out
}

// Names returns the field name for every slot Vector would produce for a
// single store block of width determined by maxNBufs, matching
// GetPerStoreFeatureName. It does not include a name for the leading
// store count, since that slot belongs to the whole-vector framing rather
// than to any one store's feature schema.
func Names(maxNBufs int) []string {
	names := []string{
		"float_mad", "float_addsub", "float_mul", "float_divmod", "float_cmp",
		"float_mathfunc", "float_otherfunc",
		"int_mad", "int_addsub", "int_mul", "int_divmod", "int_cmp",
		"int_mathfunc", "int_otherfunc",
		"bool_op", "select_op",
	}
	names = append(names, "vec_num", "vec_prod", "vec_len")
	names = append(names, posTypeNames("vec_type")...)
	names = append(names, "unroll_num", "unroll_prod", "unroll_len")
	names = append(names, posTypeNames("unroll_type")...)
	names = append(names, "parallel_num", "parallel_prod", "parallel_len")
	names = append(names, posTypeNames("parallel_type")...)

	names = append(names, "is_gpu",
		"blockIdx_x_len", "blockIdx_y_len", "blockIdx_z_len",
		"threadIdx_x_len", "threadIdx_y_len", "threadIdx_z_len",
		"vthread_len",
	)

	for i := 0; i < feature.ArithIntensityCurveSampleN; i++ {
		names = append(names, fmt.Sprintf("arith_intensity_curve_%d", i))
	}

	for i := 0; i < maxNBufs; i++ {
		prefix := fmt.Sprintf("B%d.", i)
		names = append(names,
			prefix+"acc_type.kRead", prefix+"acc_type.kWrite", prefix+"acc_type.kReadWrite",
			prefix+"bytes", prefix+"unique_bytes", prefix+"lines", prefix+"unique_lines",
			prefix+"reuse_type.kLoopMultipleRead", prefix+"reuse_type.kSerialMultipleReadWrite",
			prefix+"reuse_type.kNoReuse",
			prefix+"reuse_dis_iter", prefix+"reuse_dis_bytes", prefix+"reuse_ct",
			prefix+"bytes_d_reuse_ct", prefix+"unique_bytes_d_reuse_ct",
			prefix+"lines_d_reuse_ct", prefix+"unique_lines_d_reuse_ct",
			prefix+"stride",
		)
	}

	names = append(names, "alloc_size", "alloc_prod", "alloc_outer_prod", "alloc_inner_prod")
	names = append(names, "outer_prod", "num_loops", "auto_unroll_max_step")

	return names
}

func posTypeNames(prefix string) []string {
	return []string{
		prefix + ".kPosNone", prefix + ".kPosInnerSpatial", prefix + ".kPosMiddleSpatial",
		prefix + ".kPosOuterSpatial", prefix + ".kPosInnerReduce", prefix + ".kPosMiddleReduce",
		prefix + ".kPosOuterReduce", prefix + ".kPosMixed",
	}
}
