// Package reconcile fans a deduplicated batch of census addresses across a
// bounded worker pool and serializes the resulting cache writes.
package reconcile

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mapas-livres/cnefe-reconciler/internal/cnefe"
	"github.com/mapas-livres/cnefe-reconciler/internal/resilience"
)

// Resolver decides one record's fate. A nil record with nil error means the
// address was already cached and nothing needs persisting.
type Resolver interface {
	Resolve(ctx context.Context, rec *cnefe.AddressRecord) (*cnefe.AddressRecord, error)
}

// ResultStore is the write side of the reconciliation cache.
type ResultStore interface {
	Upsert(ctx context.Context, rec *cnefe.AddressRecord) error
	AddDeadLetter(ctx context.Context, rec *cnefe.AddressRecord, runID, errMsg, errType string) error
}

// Summary counts the outcomes of one batch.
type Summary struct {
	Resolved  int // upserted into the cache this run
	CacheHits int // skipped, already resolved in a prior run
	Failed    int // dead-lettered or failed to persist
}

// Orchestrator applies a Resolver to every record of a batch with a fixed
// worker pool. Resolutions are computed concurrently; cache writes happen in
// a single consumer, one commit per record, in worker-completion order.
type Orchestrator struct {
	resolver Resolver
	store    ResultStore
	workers  int
}

// New builds an Orchestrator. workers <= 0 selects 4.
func New(resolver Resolver, store ResultStore, workers int) *Orchestrator {
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{resolver: resolver, store: store, workers: workers}
}

// outcome carries one record's result from a worker to the writer.
type outcome struct {
	rec    *cnefe.AddressRecord // non-nil: persist it
	failed *cnefe.AddressRecord // non-nil: resolution failed, dead-letter it
	err    error
}

// Run processes one batch. Individual failures are dead-lettered or logged
// and never abort the batch; the returned error is reserved for batch-level
// problems such as context cancellation.
func (o *Orchestrator) Run(ctx context.Context, recs []*cnefe.AddressRecord, runID string) (Summary, error) {
	results := make(chan outcome)

	var sum Summary
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for out := range results {
			o.consume(ctx, out, runID, &sum)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, rec := range recs {
		g.Go(func() error {
			resolved, err := o.resolver.Resolve(gctx, rec)

			var out outcome
			switch {
			case err != nil:
				out = outcome{failed: rec, err: err}
			case resolved != nil:
				out = outcome{rec: resolved}
			default:
				// Cache hit: nothing to persist.
			}

			select {
			case results <- out:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err := g.Wait()
	close(results)
	<-writerDone

	if err != nil {
		return sum, eris.Wrap(err, "reconcile: batch aborted")
	}

	zap.L().Info("batch complete",
		zap.String("run_id", runID),
		zap.Int("resolved", sum.Resolved),
		zap.Int("cache_hits", sum.CacheHits),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

// consume integrates a single outcome into the cache. It runs only in the
// writer goroutine, so cache writes are never concurrent with each other.
func (o *Orchestrator) consume(ctx context.Context, out outcome, runID string, sum *Summary) {
	switch {
	case out.err != nil:
		sum.Failed++
		zap.L().Error("record resolution failed",
			zap.String("address", out.failed.Address),
			zap.String("sector", out.failed.IBGECensusSector),
			zap.Error(out.err),
		)
		if dlErr := o.store.AddDeadLetter(ctx, out.failed, runID, out.err.Error(), resilience.Classify(out.err)); dlErr != nil {
			zap.L().Warn("dead letter write failed", zap.Error(dlErr))
		}

	case out.rec != nil:
		if err := o.store.Upsert(ctx, out.rec); err != nil {
			// A record the store rejects is reported and skipped; it was
			// never cached, so the next run retries it.
			sum.Failed++
			zap.L().Error("cache upsert failed",
				zap.String("address", out.rec.Address),
				zap.Error(err),
			)
			return
		}
		sum.Resolved++

	default:
		sum.CacheHits++
	}
}
