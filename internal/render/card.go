// Package render turns enriched records into display cards, showing only
// the fields a statement's projection selects.
package render

import (
	"fmt"
	"strings"

	"fmasearch/internal/metadata"
	"fmasearch/internal/query"
	"fmasearch/internal/trackid"
)

// Block is one labeled line of a card header. Title blocks have no label.
type Block struct {
	Field string `json:"field"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// Card is the displayable form of one record. Optional lines are empty when
// the projection hides them.
type Card struct {
	Domain  metadata.Domain `json:"domain"`
	TrackID trackid.ID      `json:"track_id"`
	Badge   string          `json:"badge"`
	Blocks  []Block         `json:"blocks"`
	// Fallback is set when the projection hid every descriptive field and
	// Blocks holds only the placeholder title.
	Fallback bool   `json:"fallback,omitempty"`
	Lyrics   string `json:"lyrics,omitempty"`
	Score    string `json:"score,omitempty"`
	Elapsed  string `json:"elapsed,omitempty"`
	IDLine   string `json:"id_line,omitempty"`
}

// field is one projectable header field and the names that select it.
type field struct {
	name  string
	label string
	names []string
	value func(metadata.Record) string
}

var (
	titleField    = field{"title", "", []string{"title"}, func(r metadata.Record) string { return r.Title }}
	artistField   = field{"artist", "Artist", []string{"artist"}, func(r metadata.Record) string { return r.Artist }}
	genreField    = field{"genre", "Genre", []string{"genre"}, func(r metadata.Record) string { return r.Genre }}
	yearField     = field{"year", "Year", []string{"year"}, func(r metadata.Record) string { return r.Year }}
	albumField    = field{"album", "Album", []string{"album"}, func(r metadata.Record) string { return r.Album }}
	playlistField = field{"playlist", "Playlist", []string{"playlist"}, func(r metadata.Record) string { return r.Playlist }}
)

// Header fields per domain, in display order.
var vocabulary = map[metadata.Domain][]field{
	metadata.Audio: {titleField, artistField, genreField, yearField},
	metadata.Text:  {titleField, artistField, genreField, albumField, playlistField},
}

// Names that select the optional lines.
var (
	lyricsNames  = []string{"lyric", "lyrics", "lyrics_excerpt"}
	elapsedNames = []string{"elapsed_ms", "time"}
	idNames      = []string{"track_id", "id"}
	scoreNames   = []string{"score"}
)

var badges = map[metadata.Domain]string{
	metadata.Audio: "Audio",
	metadata.Text:  "Text",
}

// Render builds one card per record, in order, using p to decide which
// fields appear.
func Render(records []metadata.Record, p query.Projection) []Card {
	cards := make([]Card, 0, len(records))
	for _, rec := range records {
		cards = append(cards, renderOne(rec, p))
	}
	return cards
}

// Reference builds the card of the track a similarity search started from.
// It shows every descriptive field and no score.
func Reference(rec metadata.Record) Card {
	c := renderOne(rec, query.All())
	c.Badge = "Original"
	c.Score = ""
	c.Elapsed = ""
	return c
}

func renderOne(rec metadata.Record, p query.Projection) Card {
	domain := rec.Domain
	if _, ok := vocabulary[domain]; !ok {
		domain = metadata.Audio
	}
	c := Card{Domain: domain, TrackID: rec.TrackID, Badge: badges[domain]}

	for _, f := range vocabulary[domain] {
		if !p.Shows(f.names...) {
			continue
		}
		v := strings.TrimSpace(f.value(rec))
		if v == "" {
			v = placeholderFor(f.name, rec.TrackID)
		}
		c.Blocks = append(c.Blocks, Block{Field: f.name, Label: f.label, Value: v})
	}
	if len(c.Blocks) == 0 {
		c.Fallback = true
		c.Blocks = []Block{{Field: "title", Value: metadata.PlaceholderTitle(rec.TrackID)}}
	}

	if domain == metadata.Text && p.Shows(lyricsNames...) {
		c.Lyrics = strings.TrimSpace(rec.LyricsExcerpt)
	}
	if p.Shows(scoreNames...) {
		c.Score = FormatScore(rec.Score)
	}
	if domain == metadata.Text && p.Shows(elapsedNames...) {
		c.Elapsed = FormatElapsed(rec.ElapsedMs)
	}
	if p.Shows(idNames...) {
		c.IDLine = rec.TrackID.String()
	}
	return c
}

func placeholderFor(name string, id trackid.ID) string {
	switch name {
	case "title":
		return metadata.PlaceholderTitle(id)
	case "artist":
		return metadata.UnknownArtist
	default:
		return metadata.Missing
	}
}

// FormatScore renders a similarity score with exactly 3 decimals.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.3f", score)
}

// FormatElapsed renders an elapsed time in milliseconds with exactly 2
// decimals.
func FormatElapsed(ms float64) string {
	return fmt.Sprintf("%.2f ms", ms)
}
