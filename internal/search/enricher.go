package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"fmasearch/internal/backend"
	"fmasearch/internal/logger"
	"fmasearch/internal/metadata"
	"fmasearch/internal/metrics"
	"fmasearch/internal/trackid"
)

// Enricher joins similarity hits with per-track metadata. Lookups run on a
// bounded worker pool; output order always matches input order.
type Enricher struct {
	resolver *metadata.Resolver
	pool     *ants.Pool
	logger   *logger.Logger
}

// NewEnricher creates an Enricher running at most workers lookups at once.
func NewEnricher(resolver *metadata.Resolver, workers int, log *logger.Logger) (*Enricher, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v any) {
		logPanic(log, v)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup pool: %w", err)
	}
	return &Enricher{resolver: resolver, pool: pool, logger: log}, nil
}

// Release stops the worker pool.
func (e *Enricher) Release() {
	e.pool.Release()
}

// Enrich resolves metadata for each audio hit. A failed lookup degrades
// that record to placeholders and never affects the others.
func (e *Enricher) Enrich(ctx context.Context, hits []backend.Hit) []metadata.Record {
	out := make([]metadata.Record, len(hits))
	e.each(len(hits), func(i int) {
		id := trackid.Normalize(hits[i].TrackID.String())
		rec, err := e.resolver.Resolve(ctx, metadata.Audio, id, hits[i].Score)
		e.note(err)
		out[i] = rec
	})
	for i := range out {
		if out[i].TrackID == "" && out[i].Title == "" {
			out[i] = placeholder(metadata.Audio, trackid.Normalize(hits[i].TrackID.String()), hits[i].Score)
		}
	}
	return out
}

// EnrichText completes lyric search hits that arrived without a title or
// artist.
func (e *Enricher) EnrichText(ctx context.Context, recs []metadata.Record) []metadata.Record {
	out := make([]metadata.Record, len(recs))
	copy(out, recs)
	e.each(len(recs), func(i int) {
		rec, err := e.resolver.Complete(ctx, recs[i])
		e.note(err)
		out[i] = rec
	})
	for i := range out {
		if out[i].Title == "" {
			out[i].FillPlaceholders()
		}
	}
	return out
}

// each runs fn(0..n-1) on the pool and waits for all of them. When the pool
// refuses a task it runs inline, still recovering a panicking lookup.
func (e *Enricher) each(n int, fn func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			fn(i)
		}
		if err := e.pool.Submit(task); err != nil {
			e.logger.Debug("lookup pool rejected task %d: %v", i, err)
			e.inline(task)
		}
	}
	wg.Wait()
}

func (e *Enricher) inline(task func()) {
	defer func() {
		if v := recover(); v != nil {
			logPanic(e.logger, v)
		}
	}()
	task()
}

func logPanic(log *logger.Logger, v any) {
	log.Error("metadata lookup panic: %v", v)
}

func (e *Enricher) note(err error) {
	if err == nil {
		metrics.LookupsTotal.WithLabelValues("ok").Inc()
		return
	}
	metrics.LookupsTotal.WithLabelValues("failed").Inc()
	e.logger.Debug("%v", Wrap(LookupFailed, "using placeholders", err))
}

func placeholder(domain metadata.Domain, id trackid.ID, score float64) metadata.Record {
	rec := metadata.Record{Domain: domain, TrackID: id, Score: score, Degraded: true}
	rec.FillPlaceholders()
	return rec
}
