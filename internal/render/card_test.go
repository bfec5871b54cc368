package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pterm/pterm"

	"fmasearch/internal/metadata"
	"fmasearch/internal/query"
)

func audioRecord() metadata.Record {
	return metadata.Record{
		Domain:  metadata.Audio,
		TrackID: "000002",
		Score:   0.91234,
		Title:   "Food",
		Artist:  "AWOL",
		Genre:   "Hip-Hop",
		Year:    "2008",
	}
}

func textRecord() metadata.Record {
	return metadata.Record{
		Domain:        metadata.Text,
		TrackID:       "000010",
		Score:         1.5,
		Title:         "Song",
		Artist:        "Band",
		Genre:         "Folk",
		Album:         "LP",
		Playlist:      "Mix",
		LyricsExcerpt: "we are the ones",
		ElapsedMs:     3.14159,
	}
}

func fieldsOf(c Card) []string {
	var out []string
	for _, b := range c.Blocks {
		out = append(out, b.Field)
	}
	return out
}

func TestRenderAllShowsEverything(t *testing.T) {
	cards := Render([]metadata.Record{audioRecord(), textRecord()}, query.All())

	audio := cards[0]
	if diff := cmp.Diff([]string{"title", "artist", "genre", "year"}, fieldsOf(audio)); diff != "" {
		t.Errorf("audio fields (-want +got):\n%s", diff)
	}
	if audio.Score != "0.912" || audio.IDLine != "000002" || audio.Badge != "Audio" {
		t.Errorf("unexpected audio card: %+v", audio)
	}
	if audio.Elapsed != "" || audio.Lyrics != "" {
		t.Errorf("audio cards carry no text-only lines: %+v", audio)
	}

	text := cards[1]
	if diff := cmp.Diff([]string{"title", "artist", "genre", "album", "playlist"}, fieldsOf(text)); diff != "" {
		t.Errorf("text fields (-want +got):\n%s", diff)
	}
	if text.Score != "1.500" || text.Elapsed != "3.14 ms" || text.Lyrics != "we are the ones" {
		t.Errorf("unexpected text card: %+v", text)
	}
}

func TestRenderWildcardEqualsAll(t *testing.T) {
	recs := []metadata.Record{audioRecord(), textRecord()}
	if diff := cmp.Diff(Render(recs, query.All()), Render(recs, query.Named("*"))); diff != "" {
		t.Errorf("Named(*) should render like All (-all +named):\n%s", diff)
	}
}

func TestRenderProjection(t *testing.T) {
	tests := []struct {
		name       string
		rec        metadata.Record
		projection query.Projection
		fields     []string
		fallback   bool
		score      string
		idLine     string
		elapsed    string
		lyrics     string
	}{
		{
			name:       "audio id and title",
			rec:        audioRecord(),
			projection: query.Named("id", "title"),
			fields:     []string{"title"},
			idLine:     "000002",
		},
		{
			name:       "only id falls back to placeholder title",
			rec:        audioRecord(),
			projection: query.Named("id"),
			fields:     []string{"title"},
			fallback:   true,
			idLine:     "000002",
		},
		{
			name:       "score only",
			rec:        audioRecord(),
			projection: query.Named("score"),
			fields:     []string{"title"},
			fallback:   true,
			score:      "0.912",
		},
		{
			name:       "track_id alias",
			rec:        audioRecord(),
			projection: query.Named("track_id", "artist"),
			fields:     []string{"artist"},
			idLine:     "000002",
		},
		{
			name:       "lyric alias",
			rec:        textRecord(),
			projection: query.Named("title", "lyric"),
			fields:     []string{"title"},
			lyrics:     "we are the ones",
		},
		{
			name:       "lyrics_excerpt alias",
			rec:        textRecord(),
			projection: query.Named("lyrics_excerpt", "artist"),
			fields:     []string{"artist"},
			lyrics:     "we are the ones",
		},
		{
			name:       "time alias",
			rec:        textRecord(),
			projection: query.Named("time", "album"),
			fields:     []string{"album"},
			elapsed:    "3.14 ms",
		},
		{
			name:       "text fields hidden on audio",
			rec:        audioRecord(),
			projection: query.Named("album", "playlist"),
			fields:     []string{"title"},
			fallback:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Render([]metadata.Record{tt.rec}, tt.projection)[0]
			if diff := cmp.Diff(tt.fields, fieldsOf(c)); diff != "" {
				t.Errorf("fields (-want +got):\n%s", diff)
			}
			if c.Fallback != tt.fallback {
				t.Errorf("Fallback = %v, want %v", c.Fallback, tt.fallback)
			}
			if c.Score != tt.score || c.IDLine != tt.idLine || c.Elapsed != tt.elapsed || c.Lyrics != tt.lyrics {
				t.Errorf("optional lines = score %q id %q elapsed %q lyrics %q", c.Score, c.IDLine, c.Elapsed, c.Lyrics)
			}
			if tt.fallback && c.Blocks[0].Value != "Track "+tt.rec.TrackID.String() {
				t.Errorf("fallback title = %q", c.Blocks[0].Value)
			}
		})
	}
}

func TestRenderPlaceholdersForEmptyFields(t *testing.T) {
	c := Render([]metadata.Record{{Domain: metadata.Audio, TrackID: "000005"}}, query.All())[0]
	want := []Block{
		{Field: "title", Value: "Track 000005"},
		{Field: "artist", Label: "Artist", Value: metadata.UnknownArtist},
		{Field: "genre", Label: "Genre", Value: metadata.Missing},
		{Field: "year", Label: "Year", Value: metadata.Missing},
	}
	if diff := cmp.Diff(want, c.Blocks); diff != "" {
		t.Errorf("blocks (-want +got):\n%s", diff)
	}
}

func TestFormatting(t *testing.T) {
	if got := FormatScore(0.5); got != "0.500" {
		t.Errorf("FormatScore(0.5) = %q", got)
	}
	if got := FormatScore(1); got != "1.000" {
		t.Errorf("FormatScore(1) = %q", got)
	}
	if got := FormatElapsed(12); got != "12.00 ms" {
		t.Errorf("FormatElapsed(12) = %q", got)
	}
}

func TestReference(t *testing.T) {
	c := Reference(audioRecord())
	if c.Badge != "Original" || c.Score != "" {
		t.Errorf("unexpected reference card: %+v", c)
	}
	if c.IDLine != "000002" {
		t.Errorf("IDLine = %q", c.IDLine)
	}
}

func TestHTMLEscapes(t *testing.T) {
	rec := audioRecord()
	rec.Title = "<script>alert(1)</script>"
	var buf bytes.Buffer
	if err := HTML(&buf, Render([]metadata.Record{rec}, query.All())); err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<script>") {
		t.Errorf("title not escaped: %s", out)
	}
	if !strings.Contains(out, "Score: 0.912") || !strings.Contains(out, "Track ID: 000002") {
		t.Errorf("missing lines: %s", out)
	}
}

func TestHTMLEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := HTML(&buf, nil); err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No results.") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	Terminal(&buf, Render([]metadata.Record{textRecord()}, query.Named("title", "lyrics", "score")))
	out := pterm.RemoveColorFromString(buf.String())
	for _, want := range []string{"Song", "Score: 1.500", "we are the ones..."} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Artist:") {
		t.Errorf("artist should be hidden:\n%s", out)
	}
}
