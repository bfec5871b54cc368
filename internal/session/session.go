// Package session runs complete user actions (audio, lyric, metadata and
// raw query searches) on top of the translator, dispatcher, enricher and
// renderer. The CLI, the shell and the web server share it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fmasearch/internal/backend"
	"fmasearch/internal/config"
	"fmasearch/internal/logger"
	"fmasearch/internal/metadata"
	"fmasearch/internal/metrics"
	"fmasearch/internal/query"
	"fmasearch/internal/render"
	"fmasearch/internal/search"
	"fmasearch/internal/trackid"
)

// Backend is everything a Service needs from the search API.
type Backend interface {
	search.Similarity
	metadata.TrackFetcher
	TextSearch(ctx context.Context, q string, k int) ([]backend.TextHit, error)
	MetadataQuery(ctx context.Context, statement string) (backend.QueryResult, error)
}

// Kind names the action that produced a Result.
type Kind string

const (
	AudioSearch Kind = "audio"
	TextSearch  Kind = "text"
	TrackLookup Kind = "metadata"
	RawQuery    Kind = "query"
)

// Result is the outcome of one action, ready for display. The projection
// used for rendering travels with it.
type Result struct {
	Kind       Kind              `json:"kind"`
	Statement  string            `json:"statement,omitempty"`
	Projection query.Projection  `json:"-"`
	Mode       search.Mode       `json:"mode,omitempty"`
	Predicate  string            `json:"predicate,omitempty"`
	Reference  *render.Card      `json:"reference,omitempty"`
	Cards      []render.Card     `json:"cards"`
	Table      *render.Table     `json:"table,omitempty"`
	SQL        string            `json:"sql,omitempty"`
	Status     string            `json:"status"`
	Notices    []string          `json:"notices,omitempty"`
	Records    []metadata.Record `json:"-"`
}

// Notice texts.
const (
	NoticePredicateSkipped = "Metadata filters only apply to catalog track ids; the WHERE predicate was not sent with the uploaded file."
	NoticeTextPredicate    = "Lyric search does not support metadata filters; the WHERE predicate was ignored."
)

// Service runs searches against one backend.
type Service struct {
	backend    Backend
	dispatcher *search.Dispatcher
	enricher   *search.Enricher
	resolver   *metadata.Resolver
	audioLimit int
	textLimit  int
	logger     *logger.Logger
}

// New wires a Service from cfg. Metadata lookups go to the backend first and
// then to the local library when library_dir is set.
func New(cfg config.Config, b Backend, log *logger.Logger) (*Service, error) {
	lookups := []metadata.Lookup{metadata.NewBackendLookup(b)}
	if lib := metadata.NewLocalLibrary(cfg.LibraryDir); lib != nil {
		lookups = append(lookups, lib)
	}
	resolver := metadata.NewResolver(metadata.NewChain(lookups, log.Named("lookup")), log.Named("resolver"))

	enricher, err := search.NewEnricher(resolver, cfg.LookupWorkers, log.Named("enrich"))
	if err != nil {
		return nil, err
	}

	return &Service{
		backend: b,
		dispatcher: search.NewDispatcher(b, search.Options{
			Alpha:            cfg.FusionAlpha,
			UploadPredicates: cfg.UploadPredicates,
		}, log.Named("dispatch")),
		enricher:   enricher,
		resolver:   resolver,
		audioLimit: positive(cfg.AudioLimit, 8),
		textLimit:  positive(cfg.TextLimit, query.FallbackLimit),
		logger:     log,
	}, nil
}

// Close releases the lookup pool.
func (s *Service) Close() {
	s.enricher.Release()
}

// AudioLimit and TextLimit are the default row limits.
func (s *Service) AudioLimit() int { return s.audioLimit }
func (s *Service) TextLimit() int  { return s.textLimit }

// AudioRequest describes an audio similarity search.
type AudioRequest struct {
	Input search.Input
	// UploadPath is a local copy of the uploaded file, used to read its
	// tags for the reference card. Optional.
	UploadPath string
	// Statement is the pseudo-SQL text. Empty means a synthesized one.
	Statement string
	// Limit overrides the default when positive and the statement has no
	// LIMIT of its own.
	Limit int
}

// Audio runs an audio similarity search.
func (s *Service) Audio(ctx context.Context, req AudioRequest) (Result, error) {
	limit := positive(req.Limit, s.audioLimit)
	statement := req.Statement
	if strings.TrimSpace(statement) == "" {
		statement = query.AudioStatement(displayReference(req.Input), limit)
	}
	spec := query.Translate(statement, limit)
	if strings.TrimSpace(req.Statement) == "" {
		// The synthesized statement is for display; show every field.
		spec.Projection = query.All()
	}

	in := req.Input
	if strings.TrimSpace(in.TrackID) == "" && in.File == nil && spec.Reference() != query.ReferencePlaceholder {
		in.TrackID = spec.Reference()
	}

	res := Result{Kind: AudioSearch, Projection: spec.Projection}
	d, err := s.dispatcher.Dispatch(ctx, in, spec)
	if err != nil {
		res.Statement = statement
		res.Status = Describe(err)
		return res, err
	}

	res.Mode = d.Mode
	res.Predicate = d.Predicate
	shown := d.Reference.String()
	if d.Mode == search.Upload && in.File != nil {
		shown = in.File.Name
	}
	res.Statement = query.WithReference(statement, shown)
	if d.PredicateSkipped {
		res.Notices = append(res.Notices, NoticePredicateSkipped)
	}

	ref := s.referenceCard(ctx, d, in, req.UploadPath)
	res.Reference = &ref

	res.Records = s.enricher.Enrich(ctx, d.Hits)
	res.Cards = render.Render(res.Records, spec.Projection)
	if n := degraded(res.Records); n > 0 {
		res.Notices = append(res.Notices, fmt.Sprintf("%d of %d results are shown with placeholder metadata.", n, len(res.Records)))
	}
	res.Status = fmt.Sprintf("Showing %d results similar to %s.", len(res.Cards), d.Reference)
	return res, nil
}

func (s *Service) referenceCard(ctx context.Context, d search.Dispatch, in search.Input, uploadPath string) render.Card {
	if d.Mode == search.Upload {
		name := d.Reference.String()
		if in.File != nil {
			name = in.File.Name
		}
		return render.Reference(s.resolver.Upload(uploadPath, name))
	}
	rec, err := s.resolver.Resolve(ctx, metadata.Audio, d.Reference, 0)
	if err != nil {
		s.logger.Debug("reference %s: %v", d.Reference, err)
	}
	return render.Reference(rec)
}

// TextRequest describes a lyric search. Either Query or Statement is set;
// Statement wins.
type TextRequest struct {
	Query     string
	Statement string
	Limit     int
}

// Text runs a lyric search. With a statement, the @@ operand is the lyric
// query. A statement with an empty operand falls back to Query, and one with
// neither is sent whole.
func (s *Service) Text(ctx context.Context, req TextRequest) (Result, error) {
	limit := positive(req.Limit, s.textLimit)
	statement := req.Statement
	q := strings.TrimSpace(req.Query)
	if strings.TrimSpace(statement) == "" {
		statement = query.TextStatement(q, limit)
	}
	spec := query.Translate(statement, limit)
	if strings.TrimSpace(req.Statement) == "" {
		spec.Projection = query.All()
	} else if ref := strings.TrimSpace(spec.Reference()); ref != "" {
		q = ref
	} else if q == "" {
		q = strings.TrimSpace(req.Statement)
	}

	res := Result{Kind: TextSearch, Statement: statement, Projection: spec.Projection}
	if q == "" {
		err := search.New(search.InvalidReference, "enter some lyrics to search for")
		res.Status = Describe(err)
		metrics.SearchesTotal.WithLabelValues("text", "text", "invalid").Inc()
		return res, err
	}
	if spec.HasPredicate() {
		res.Notices = append(res.Notices, NoticeTextPredicate)
	}

	hits, err := s.backend.TextSearch(ctx, q, spec.Limit)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("text", "text", "failed").Inc()
		err = search.Wrap(search.SearchFailed, "lyric search", err)
		res.Status = Describe(err)
		return res, err
	}
	metrics.SearchesTotal.WithLabelValues("text", "text", "ok").Inc()

	recs := make([]metadata.Record, len(hits))
	for i, h := range hits {
		recs[i] = metadata.FromTextHit(h)
	}
	res.Records = s.enricher.EnrichText(ctx, recs)
	res.Cards = render.Render(res.Records, spec.Projection)
	res.Status = fmt.Sprintf("Showing %d lyric matches for %q.", len(res.Cards), q)
	return res, nil
}

// Metadata looks up one track by id. A missing track is not an error: the
// result carries no cards and says so.
func (s *Service) Metadata(ctx context.Context, rawID string) (Result, error) {
	res := Result{Kind: TrackLookup, Projection: query.All()}
	id := trackid.Normalize(rawID)
	if id == "" {
		err := search.New(search.InvalidReference, "enter a track id")
		res.Status = Describe(err)
		return res, err
	}

	meta, err := s.backend.TrackMetadata(ctx, id.String())
	if errors.Is(err, backend.ErrNotFound) {
		res.Status = fmt.Sprintf("No metadata found for %s.", id)
		return res, nil
	}
	if err != nil {
		err = search.Wrap(search.SearchFailed, fmt.Sprintf("metadata lookup for %s", id), err)
		res.Status = Describe(err)
		return res, err
	}

	rec := metadata.FromTrackData(meta.Data)
	rec.Domain = metadata.Audio
	rec.TrackID = id
	rec.Source = "backend"
	rec.FillPlaceholders()

	card := render.Reference(rec)
	card.Badge = "Metadata"
	res.Records = []metadata.Record{rec}
	res.Cards = []render.Card{card}
	res.Status = fmt.Sprintf("Metadata loaded for %s.", id)
	return res, nil
}

// Query sends a raw statement to the metadata SQL endpoint and lays out the
// rows using the statement's projection.
func (s *Service) Query(ctx context.Context, statement string) (Result, error) {
	spec := query.Translate(statement, s.audioLimit)
	res := Result{Kind: RawQuery, Statement: statement, Projection: spec.Projection}
	if strings.TrimSpace(statement) == "" {
		err := search.New(search.InvalidReference, "enter a query")
		res.Status = Describe(err)
		return res, err
	}

	qr, err := s.backend.MetadataQuery(ctx, statement)
	if err != nil {
		err = search.Wrap(search.SearchFailed, "metadata query", err)
		res.Status = Describe(err)
		return res, err
	}

	tbl := render.Rows(qr.Rows, spec.Projection)
	res.Table = &tbl
	res.SQL = qr.SQL
	res.Status = fmt.Sprintf("%d rows.", len(tbl.Rows))
	return res, nil
}

// Describe turns an action error into the single status line shown to the
// user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var e *search.E
	if errors.As(err, &e) {
		switch e.Kind {
		case search.InvalidReference:
			return "Invalid reference: " + e.Message + "."
		case search.SearchFailed:
			var se *backend.StatusError
			if errors.As(err, &se) && se.Detail != "" {
				return fmt.Sprintf("Search failed: %s (HTTP %d).", se.Detail, se.Code)
			}
			return fmt.Sprintf("Search failed: %v.", e.Err)
		}
	}
	return "Error: " + err.Error()
}

func displayReference(in search.Input) string {
	if t := strings.TrimSpace(in.TrackID); t != "" {
		return trackid.Normalize(t).String()
	}
	if in.File != nil {
		stem := trackid.Stem(in.File.Name)
		if trackid.LooksLikeCatalogStem(stem) {
			return trackid.Normalize(stem).String()
		}
		return in.File.Name
	}
	return ""
}

func degraded(recs []metadata.Record) int {
	n := 0
	for _, r := range recs {
		if r.Degraded {
			n++
		}
	}
	return n
}

func positive(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}
