package metadata

import (
	"context"

	"fmasearch/internal/backend"
	"fmasearch/internal/trackid"
)

// TrackFetcher is the part of backend.Client used for lookups.
type TrackFetcher interface {
	TrackMetadata(ctx context.Context, trackID string) (backend.TrackMetadata, error)
}

// BackendLookup reads metadata from the catalog's /metadata/track endpoint.
type BackendLookup struct {
	fetcher TrackFetcher
}

// NewBackendLookup creates a lookup backed by f.
func NewBackendLookup(f TrackFetcher) *BackendLookup {
	return &BackendLookup{fetcher: f}
}

func (b *BackendLookup) Name() string { return "backend" }

func (b *BackendLookup) Track(ctx context.Context, id trackid.ID) (Record, error) {
	meta, err := b.fetcher.TrackMetadata(ctx, id.String())
	if err != nil {
		return Record{}, err
	}
	rec := FromTrackData(meta.Data)
	rec.TrackID = id
	rec.Source = b.Name()
	return rec, nil
}

// FromTrackData converts a metadata payload into a record. Identity, score
// and domain are left for the caller.
func FromTrackData(d backend.TrackData) Record {
	return Record{
		Title:         cleanTag(d.Title.String()),
		Artist:        cleanTag(d.Artist.String()),
		Genre:         cleanTag(d.Genre.String()),
		Year:          cleanTag(d.Year.String()),
		Album:         cleanTag(d.Album.String()),
		Playlist:      cleanTag(d.Playlist.String()),
		LyricsExcerpt: d.LyricsExcerpt.String(),
		ElapsedMs:     float64(d.ElapsedMs),
	}
}

// FromTextHit converts a lyric search hit into a text-domain record.
func FromTextHit(h backend.TextHit) Record {
	return Record{
		Domain:        Text,
		TrackID:       trackid.Normalize(h.TrackID.String()),
		Score:         h.Score,
		Title:         cleanTag(h.Title.String()),
		Artist:        cleanTag(h.Artist.String()),
		Genre:         cleanTag(h.Genre.String()),
		Album:         cleanTag(h.Album.String()),
		Playlist:      cleanTag(h.Playlist.String()),
		LyricsExcerpt: h.LyricsExcerpt.String(),
		ElapsedMs:     float64(h.ElapsedMs),
		Source:        "text",
	}
}
