// Package batch extracts feature vectors for many records concurrently.
//
// Grounded on Manager.ResolveAndFetch in the teacher
// (_teacher_ref/manager_ref.go / SeleniaProject-Orizon's
// internal/packagemanager/manager.go): an errgroup.Group paired with a
// buffered channel used as a concurrency semaphore, each worker
// respecting ctx cancellation on the semaphore acquire. This package
// reuses that exact shape for a different payload (feature vectors
// instead of fetched package blobs) and a different error policy
// (spec §7: one record's irrecoverable failure must not cancel its
// siblings, unlike a failed package fetch which aborts the whole
// resolve).
package batch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/googol-lab/tvm/internal/effect"
	"github.com/googol-lab/tvm/internal/emit"
	"github.com/googol-lab/tvm/internal/feature"
	"github.com/googol-lab/tvm/internal/ir"
	"github.com/googol-lab/tvm/internal/xerrors"
)

// Record is one program to extract features from. ID is assigned by
// NewRecord for correlating a record with its result and any logged
// failure; callers that already have a stable identifier (a schedule
// hash, say) may overwrite it after construction.
type Record struct {
	ID      string
	Program ir.Node
}

// NewRecord wraps prog with a fresh correlation ID.
func NewRecord(prog ir.Node) Record {
	return Record{ID: uuid.NewString(), Program: prog}
}

// Options configures Extract.
type Options struct {
	// Concurrency bounds the number of records processed at once. Zero or
	// negative means unbounded (one goroutine per record).
	Concurrency int
	Config      feature.Config
	Effects     *effect.Table
}

// Vectors maps a record's ID to its flattened feature vector. A record
// that failed (spec §7's per-record irrecoverable-error case) maps to a
// nil slice rather than being omitted, so callers can align results
// positionally with the input Records slice if they choose to.
type Vectors map[string][]float64

// Result is the outcome of one Extract call.
type Result struct {
	Vectors Vectors
	// FailedRecords counts records whose extraction failed irrecoverably.
	// Ordering across goroutines is not meaningful; only the final count
	// is, so a plain atomic counter is enough (spec §7).
	FailedRecords atomic.Int64
}

// Extract runs feature extraction for every record, bounded by
// opts.Concurrency, and returns once all of them have finished or ctx is
// canceled. A record whose extraction fails irrecoverably (a malformed
// IR node, a non-constant value the IR view requires to be constant)
// contributes a nil vector and increments Result.FailedRecords; it does
// not fail the batch. A programmer-error invariant violation inside the
// extractor is not recovered here — it propagates and takes the whole
// batch down, since it signals a bug in this package's own bookkeeping
// rather than a bad record.
func Extract(ctx context.Context, records []Record, opts Options) (*Result, error) {
	res := &Result{Vectors: make(Vectors, len(records))}

	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = len(records)
		if limit == 0 {
			limit = 1
		}
	}
	sem := make(chan struct{}, limit)

	var vecMu atomicVecMap
	vecMu.m = res.Vectors

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			vec, err := extractOne(rec, opts)
			if err != nil {
				res.FailedRecords.Add(1)
				log.Printf("batch: record %s failed: %v", rec.ID, err)
				vecMu.set(rec.ID, nil)
				return nil
			}
			vecMu.set(rec.ID, vec)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	log.Printf("batch: extracted %d records, %d failed", len(records), res.FailedRecords.Load())
	return res, nil
}

// extractOne recovers an *xerrors.Invariant panic only long enough to
// attach the failing record's ID before re-panicking: spec §7 requires
// programmer errors to terminate the process, not be swallowed into a
// per-record failure, but a bare invariant message is useless without
// knowing which record triggered it.
func extractOne(rec Record, opts Options) (vec []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			if inv, ok := r.(*xerrors.Invariant); ok {
				panic(fmt.Errorf("record %s: %w", rec.ID, inv))
			}
			panic(r)
		}
	}()

	sets, walkErr := feature.WalkAll(rec.Program, opts.Config, opts.Effects)
	if walkErr != nil {
		return nil, walkErr
	}
	return emit.Vector(sets, opts.Config), nil
}

// atomicVecMap serializes writes into a shared map from many goroutines.
// A single mutex-free map would race; a full sync.Map is unneeded here
// since writes (one per record) vastly outnumber reads (none until
// g.Wait() returns), so a plain mutex is the simpler, grounded choice.
type atomicVecMap struct {
	mu sync.Mutex
	m  Vectors
}

func (a *atomicVecMap) set(id string, vec []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[id] = vec
}
