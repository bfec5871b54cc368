package metadata

import (
	"context"
	"errors"
	"strings"

	"fmasearch/internal/trackid"
)

// Domain tells which result family a record belongs to.
type Domain string

const (
	Audio Domain = "audio"
	Text  Domain = "text"
)

// Placeholder values substituted for absent metadata.
const (
	UnknownArtist = "Unknown Artist"
	Missing       = "-"
)

// ErrNoLookup is returned by a Chain with no lookups configured.
var ErrNoLookup = errors.New("no metadata lookup configured")

// Record is one enriched search result.
type Record struct {
	Domain  Domain
	TrackID trackid.ID
	Score   float64

	Title    string
	Artist   string
	Genre    string
	Year     string
	Album    string
	Playlist string

	LyricsExcerpt string
	ElapsedMs     float64

	// Source names the lookup that produced the metadata ("backend",
	// "library", "upload"). Empty when nothing was found.
	Source string
	// Degraded is set when the lookup failed and placeholders were used.
	Degraded bool
}

// PlaceholderTitle is the title shown for a track without metadata.
func PlaceholderTitle(id trackid.ID) string {
	return "Track " + id.String()
}

// FillPlaceholders replaces empty display fields with placeholders. Lyrics
// stay empty; an absent excerpt is simply not shown.
func (r *Record) FillPlaceholders() {
	if strings.TrimSpace(r.Title) == "" {
		r.Title = PlaceholderTitle(r.TrackID)
	}
	if strings.TrimSpace(r.Artist) == "" {
		r.Artist = UnknownArtist
	}
	for _, f := range []*string{&r.Genre, &r.Year, &r.Album, &r.Playlist} {
		if strings.TrimSpace(*f) == "" {
			*f = Missing
		}
	}
}

// Merge copies every non-empty descriptive field of other into r. Identity,
// score and domain are kept.
func (r *Record) Merge(other Record) {
	set := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	set(&r.Title, other.Title)
	set(&r.Artist, other.Artist)
	set(&r.Genre, other.Genre)
	set(&r.Year, other.Year)
	set(&r.Album, other.Album)
	set(&r.Playlist, other.Playlist)
	set(&r.LyricsExcerpt, other.LyricsExcerpt)
	if r.ElapsedMs == 0 {
		r.ElapsedMs = other.ElapsedMs
	}
	if r.Source == "" {
		r.Source = other.Source
	}
}

// HasDescription reports whether the record carries a title or artist of
// its own.
func (r Record) HasDescription() bool {
	return r.Title != "" || r.Artist != ""
}

// Lookup fetches metadata for one track.
type Lookup interface {
	Name() string
	Track(ctx context.Context, id trackid.ID) (Record, error)
}
