package metadata

import (
	"context"
	"fmt"

	"fmasearch/internal/logger"
	"fmasearch/internal/trackid"
)

// Resolver turns track ids into display records. A failed lookup never
// fails the caller: the record is degraded to placeholders and the error is
// returned alongside it for logging.
type Resolver struct {
	lookup Lookup
	logger *logger.Logger
}

// NewResolver creates a Resolver over lookup.
func NewResolver(lookup Lookup, log *logger.Logger) *Resolver {
	return &Resolver{lookup: lookup, logger: log}
}

// Resolve looks id up and returns a record of the given domain with
// placeholders for anything missing.
func (r *Resolver) Resolve(ctx context.Context, domain Domain, id trackid.ID, score float64) (Record, error) {
	rec := Record{Domain: domain, TrackID: id, Score: score}

	found, err := r.lookup.Track(ctx, id)
	if err != nil {
		rec.Degraded = true
		rec.FillPlaceholders()
		return rec, fmt.Errorf("metadata for %s: %w", id, err)
	}

	rec.Merge(found)
	rec.FillPlaceholders()
	return rec, nil
}

// Complete fills the gaps of a record that already carries some metadata,
// such as a lyric search hit. Lookups happen only when title or artist is
// missing.
func (r *Resolver) Complete(ctx context.Context, rec Record) (Record, error) {
	if rec.Title != "" && rec.Artist != "" {
		rec.FillPlaceholders()
		return rec, nil
	}

	found, err := r.lookup.Track(ctx, rec.TrackID)
	if err != nil {
		rec.Degraded = !rec.HasDescription()
		rec.FillPlaceholders()
		return rec, fmt.Errorf("metadata for %s: %w", rec.TrackID, err)
	}
	rec.Merge(found)
	rec.FillPlaceholders()
	return rec, nil
}

// Upload builds the reference card of an uploaded file from its own tags.
// The display name supplies the identifier when tags are absent.
func (r *Resolver) Upload(path, name string) Record {
	stem := trackid.Stem(name)
	rec := Record{Domain: Audio, TrackID: trackid.ID(stem), Source: "upload"}

	tagged, err := ReadFileTags(path)
	if err != nil {
		r.logger.Debug("upload %s: %v", name, err)
		rec.Title = name
		rec.FillPlaceholders()
		return rec
	}
	rec.Merge(tagged)
	if rec.Title == "" {
		rec.Title = name
	}
	rec.FillPlaceholders()
	return rec
}
