package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmasearch/internal/backend"
	"fmasearch/internal/logger"
	"fmasearch/internal/metadata"
	"fmasearch/internal/trackid"
)

// scriptedLookup answers from a table, optionally sleeping so that lookups
// finish out of order.
type scriptedLookup struct {
	mu     sync.Mutex
	recs   map[trackid.ID]metadata.Record
	delays map[trackid.ID]time.Duration
	panics map[trackid.ID]bool
	calls  int
}

func (s *scriptedLookup) Name() string { return "scripted" }

func (s *scriptedLookup) Track(_ context.Context, id trackid.ID) (metadata.Record, error) {
	s.mu.Lock()
	s.calls++
	d := s.delays[id]
	rec, ok := s.recs[id]
	p := s.panics[id]
	s.mu.Unlock()

	if p {
		panic("lookup exploded")
	}
	time.Sleep(d)
	if !ok {
		return metadata.Record{}, errors.New("metadata endpoint returned 500")
	}
	return rec, nil
}

func newTestEnricher(t *testing.T, l metadata.Lookup, workers int) *Enricher {
	t.Helper()
	log := logger.New(false)
	e, err := NewEnricher(metadata.NewResolver(l, log), workers, log)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func TestEnrichOneFailureKeepsOrder(t *testing.T) {
	l := &scriptedLookup{recs: map[trackid.ID]metadata.Record{
		"000002": {Title: "Food", Artist: "AWOL"},
	}}
	e := newTestEnricher(t, l, 4)

	recs := e.Enrich(context.Background(), []backend.Hit{
		{TrackID: "2", Score: 0.9},
		{TrackID: "5", Score: 0.4},
	})

	require.Len(t, recs, 2)
	assert.Equal(t, trackid.ID("000002"), recs[0].TrackID)
	assert.Equal(t, "Food", recs[0].Title)
	assert.False(t, recs[0].Degraded)

	assert.Equal(t, trackid.ID("000005"), recs[1].TrackID)
	assert.Equal(t, "Track 000005", recs[1].Title)
	assert.Equal(t, metadata.UnknownArtist, recs[1].Artist)
	assert.True(t, recs[1].Degraded)
	assert.Equal(t, 0.4, recs[1].Score)
}

func TestEnrichPreservesRankUnderReordering(t *testing.T) {
	l := &scriptedLookup{
		recs:   map[trackid.ID]metadata.Record{},
		delays: map[trackid.ID]time.Duration{},
	}
	var hits []backend.Hit
	for i, id := range []trackid.ID{"000001", "000002", "000003", "000004", "000005", "000006"} {
		l.recs[id] = metadata.Record{Title: "T" + id.String(), Artist: "A"}
		// Earlier hits take longer, so completion order is reversed.
		l.delays[id] = time.Duration(6-i) * 5 * time.Millisecond
		hits = append(hits, backend.Hit{TrackID: backend.Text(id), Score: float64(10 - i)})
	}
	e := newTestEnricher(t, l, 6)

	recs := e.Enrich(context.Background(), hits)
	require.Len(t, recs, len(hits))
	for i, rec := range recs {
		assert.Equal(t, trackid.Normalize(hits[i].TrackID.String()), rec.TrackID, "slot %d", i)
		assert.Equal(t, hits[i].Score, rec.Score, "slot %d", i)
	}
}

func TestEnrichRecoversFromPanic(t *testing.T) {
	l := &scriptedLookup{
		recs:   map[trackid.ID]metadata.Record{"000001": {Title: "ok"}},
		panics: map[trackid.ID]bool{"000002": true},
	}
	e := newTestEnricher(t, l, 2)

	recs := e.Enrich(context.Background(), []backend.Hit{{TrackID: "1"}, {TrackID: "2", Score: 0.2}})
	require.Len(t, recs, 2)
	assert.Equal(t, "ok", recs[0].Title)
	assert.Equal(t, "Track 000002", recs[1].Title)
	assert.True(t, recs[1].Degraded)
}

func TestEnrichEmpty(t *testing.T) {
	e := newTestEnricher(t, &scriptedLookup{}, 1)
	assert.Empty(t, e.Enrich(context.Background(), nil))
}

func TestEnrichAfterRelease(t *testing.T) {
	l := &scriptedLookup{recs: map[trackid.ID]metadata.Record{"000001": {Title: "inline"}}}
	log := logger.New(false)
	e, err := NewEnricher(metadata.NewResolver(l, log), 1, log)
	require.NoError(t, err)
	e.Release()

	recs := e.Enrich(context.Background(), []backend.Hit{{TrackID: "1"}})
	require.Len(t, recs, 1)
	assert.Equal(t, "inline", recs[0].Title, "rejected tasks run inline")
}

func TestEnrichAfterReleaseRecoversFromPanic(t *testing.T) {
	l := &scriptedLookup{
		recs:   map[trackid.ID]metadata.Record{"000001": {Title: "inline"}},
		panics: map[trackid.ID]bool{"000002": true},
	}
	log := logger.New(false)
	e, err := NewEnricher(metadata.NewResolver(l, log), 1, log)
	require.NoError(t, err)
	e.Release()

	var recs []metadata.Record
	require.NotPanics(t, func() {
		recs = e.Enrich(context.Background(), []backend.Hit{{TrackID: "1"}, {TrackID: "2", Score: 0.3}})
	})
	require.Len(t, recs, 2)
	assert.Equal(t, "inline", recs[0].Title)
	assert.Equal(t, "Track 000002", recs[1].Title)
	assert.True(t, recs[1].Degraded)
	assert.Equal(t, 0.3, recs[1].Score)
}

func TestEnrichText(t *testing.T) {
	l := &scriptedLookup{recs: map[trackid.ID]metadata.Record{
		"000010": {Title: "From Backend", Artist: "Band", Genre: "Folk"},
	}}
	e := newTestEnricher(t, l, 2)

	in := []metadata.Record{
		{Domain: metadata.Text, TrackID: "000011", Title: "Complete", Artist: "Known", Score: 2},
		{Domain: metadata.Text, TrackID: "000010", LyricsExcerpt: "la la", Score: 1},
		{Domain: metadata.Text, TrackID: "000012", Score: 0.5},
	}
	recs := e.EnrichText(context.Background(), in)

	require.Len(t, recs, 3)
	assert.Equal(t, "Complete", recs[0].Title)
	assert.Equal(t, metadata.Missing, recs[0].Genre)
	assert.Equal(t, "From Backend", recs[1].Title)
	assert.Equal(t, "la la", recs[1].LyricsExcerpt)
	assert.Equal(t, "Track 000012", recs[2].Title)
	assert.Equal(t, 2, l.calls, "only incomplete hits are looked up")
}
