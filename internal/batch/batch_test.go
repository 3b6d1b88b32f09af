package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/googol-lab/tvm/internal/effect"
	"github.com/googol-lab/tvm/internal/feature"
	"github.com/googol-lab/tvm/internal/ir"
	"github.com/googol-lab/tvm/internal/xerrors"
)

var f32 = ir.ElemType{FloatKind: true, BitWidth: 32}

func constI(v int64) ir.Expr { return &ir.ConstExpr{IntValue: v} }
func constF(v float64) ir.Expr { return &ir.ConstExpr{FloatValue: v, Type: f32} }

func goodRecord() Record {
	b := ir.NewBuffer(1, "B", []int64{1}, f32)
	store := &ir.BufferStore{Buffer: b, Indices: []ir.Expr{constI(0)}, Value: constF(1)}
	return NewRecord(store)
}

// unsupportedNode forces the extractor's default-case RecordError path,
// exercising the per-record failure branch without touching any real IR
// malformation.
type unsupportedNode struct{}

func (unsupportedNode) Kind() ir.NodeKind { return ir.KindBufferLoad + 100 }

func badRecord() Record {
	return NewRecord(unsupportedNode{})
}

func TestExtractMixedSuccessAndFailure(t *testing.T) {
	records := []Record{goodRecord(), badRecord(), goodRecord()}
	opts := Options{
		Concurrency: 2,
		Config:      feature.DefaultConfig(),
		Effects:     effect.StandardTable(),
	}

	res, err := Extract(context.Background(), records, opts)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := res.FailedRecords.Load(); got != 1 {
		t.Fatalf("FailedRecords = %d, want 1", got)
	}
	if len(res.Vectors) != 3 {
		t.Fatalf("len(Vectors) = %d, want 3", len(res.Vectors))
	}
	for _, rec := range []Record{records[0], records[2]} {
		if res.Vectors[rec.ID] == nil {
			t.Errorf("successful record %s has nil vector", rec.ID)
		}
	}
	if res.Vectors[records[1].ID] != nil {
		t.Errorf("failed record %s has non-nil vector", records[1].ID)
	}
}

func TestExtractUnboundedConcurrencyWhenZero(t *testing.T) {
	records := []Record{goodRecord(), goodRecord()}
	opts := Options{Config: feature.DefaultConfig(), Effects: effect.StandardTable()}
	res, err := Extract(context.Background(), records, opts)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.FailedRecords.Load() != 0 {
		t.Fatalf("FailedRecords = %d, want 0", res.FailedRecords.Load())
	}
}

func TestExtractNoRecords(t *testing.T) {
	opts := Options{Config: feature.DefaultConfig(), Effects: effect.StandardTable()}
	res, err := Extract(context.Background(), nil, opts)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Vectors) != 0 {
		t.Fatalf("len(Vectors) = %d, want 0", len(res.Vectors))
	}
}

// TestExtractOneRecordErrorDoesNotPanic confirms the ordinary irrecoverable
// per-record path (an *xerrors.RecordError from an unsupported node kind)
// returns an error rather than panicking; only an *xerrors.Invariant panic
// is meant to escape extractOne and take the whole batch down.
func TestExtractOneRecordErrorDoesNotPanic(t *testing.T) {
	opts := Options{Config: feature.DefaultConfig(), Effects: effect.StandardTable()}
	_, err := extractOne(badRecord(), opts)
	if err == nil {
		t.Fatal("expected an error for an unsupported node kind")
	}
	var recErr *xerrors.RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("err = %v, want an *xerrors.RecordError in its chain", err)
	}
}
