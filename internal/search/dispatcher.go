// Package search selects the similarity transport for a search, dispatches
// it to the backend and enriches the raw hits with metadata.
package search

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"fmasearch/internal/backend"
	"fmasearch/internal/logger"
	"fmasearch/internal/metrics"
	"fmasearch/internal/query"
	"fmasearch/internal/trackid"
)

// Mode is the similarity transport chosen for a search.
type Mode string

const (
	// Catalog searches by a 1-6 digit catalog id and may forward a
	// metadata predicate.
	Catalog Mode = "catalog"
	// Upload searches by an arbitrary audio file.
	Upload Mode = "upload"
)

// Similarity is the part of backend.Client the dispatcher needs.
type Similarity interface {
	FusionSimilarity(ctx context.Context, trackID string, p backend.SearchParams) ([]backend.Hit, error)
	FileSimilarity(ctx context.Context, filename string, audio io.Reader, p backend.SearchParams) ([]backend.Hit, error)
}

// File is an uploaded audio file.
type File struct {
	Name string
	Body io.Reader
}

// Input is the similarity operand of one search: a typed identifier, an
// uploaded file, or both. A typed catalog id wins over the file.
type Input struct {
	TrackID string
	File    *File
}

// Options configure a Dispatcher.
type Options struct {
	// Alpha weighs audio against metadata similarity in catalog mode.
	Alpha float64
	// UploadPredicates forwards the metadata predicate in upload mode too.
	// Off by default: the file endpoint is not known to honor it.
	UploadPredicates bool
}

// Dispatch is the outcome of one similarity search.
type Dispatch struct {
	Mode Mode
	// Reference is the normalized catalog id in catalog mode and the file
	// stem in upload mode.
	Reference trackid.ID
	Hits      []backend.Hit
	// Predicate is the filter actually sent, "" if none.
	Predicate string
	// PredicateSkipped is set when the statement carried a predicate that the
	// chosen mode did not forward.
	PredicateSkipped bool
	Elapsed          time.Duration
}

// Dispatcher chooses catalog or upload mode and issues the request.
type Dispatcher struct {
	sim    Similarity
	opts   Options
	logger *logger.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sim Similarity, opts Options, log *logger.Logger) *Dispatcher {
	return &Dispatcher{sim: sim, opts: opts, logger: log}
}

// SelectMode decides the transport for in. Catalog mode is chosen for a
// 1-6 digit identifier, typed or taken from the uploaded file's stem; other
// files go to upload mode. Anything else is an InvalidReference.
func SelectMode(in Input) (Mode, trackid.ID, error) {
	if typed := strings.TrimSpace(in.TrackID); typed != "" {
		if trackid.LooksLikeCatalogStem(typed) {
			return Catalog, trackid.Normalize(typed), nil
		}
		if in.File == nil {
			return "", "", New(InvalidReference, fmt.Sprintf("%q is not a catalog track id (1-6 digits)", typed))
		}
	}

	if in.File == nil {
		return "", "", New(InvalidReference, "select an audio file or enter a track id")
	}

	stem := trackid.Stem(in.File.Name)
	if trackid.LooksLikeCatalogStem(stem) {
		return Catalog, trackid.Normalize(stem), nil
	}
	if in.File.Body == nil {
		return "", "", New(InvalidReference, fmt.Sprintf("upload %q has no content", in.File.Name))
	}
	return Upload, trackid.ID(stem), nil
}

// Dispatch runs the similarity search described by in and spec.
func (d *Dispatcher) Dispatch(ctx context.Context, in Input, spec query.Spec) (Dispatch, error) {
	mode, ref, err := SelectMode(in)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("audio", "none", "invalid").Inc()
		return Dispatch{}, err
	}

	out := Dispatch{Mode: mode, Reference: ref}
	params := backend.SearchParams{K: spec.Limit, Alpha: d.opts.Alpha}
	if params.K < 1 {
		params.K = query.FallbackLimit
	}

	forward := spec.HasPredicate() && (mode == Catalog || d.opts.UploadPredicates)
	if forward {
		params.Filter = spec.Predicate
		out.Predicate = spec.Predicate
	} else if spec.HasPredicate() {
		out.PredicateSkipped = true
		metrics.PredicatesSkipped.Inc()
		d.logger.Debug("predicate %q not forwarded in %s mode", spec.Predicate, mode)
	}

	start := time.Now()
	var hits []backend.Hit
	switch mode {
	case Catalog:
		d.logger.Debug("fusion similarity id=%s k=%d alpha=%.2f q=%q", ref, params.K, params.Alpha, params.Filter)
		hits, err = d.sim.FusionSimilarity(ctx, ref.String(), params)
	case Upload:
		d.logger.Debug("file similarity name=%s k=%d", in.File.Name, params.K)
		hits, err = d.sim.FileSimilarity(ctx, in.File.Name, in.File.Body, params)
	}
	out.Elapsed = time.Since(start)
	metrics.SearchDuration.WithLabelValues("audio", string(mode)).Observe(out.Elapsed.Seconds())

	if err != nil {
		metrics.SearchesTotal.WithLabelValues("audio", string(mode), "failed").Inc()
		return out, Wrap(SearchFailed, fmt.Sprintf("%s similarity search for %s", mode, ref), err)
	}

	metrics.SearchesTotal.WithLabelValues("audio", string(mode), "ok").Inc()
	out.Hits = hits
	return out, nil
}
