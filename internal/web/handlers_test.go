package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmasearch/internal/backend"
	"fmasearch/internal/config"
	"fmasearch/internal/logger"
	"fmasearch/internal/search"
	"fmasearch/internal/session"
)

var errTest = errors.New("test failure")

// fakeBackend serves the similarity and metadata endpoints from fixed data.
// Fusion requests for blockID wait until release is closed.
type fakeBackend struct {
	blockID string
	entered chan struct{}
	release chan struct{}
	files   chan string
	lyrics  chan string
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	tracks := map[string]string{
		"000002": `{"track_id":"000002","data":{"title":"Food","artist":"AWOL","genre":"Hip-Hop","year":2008}}`,
		"000005": `{"track_id":"000005","data":{"title":"This World","artist":"AWOL","genre":"Hip-Hop","year":2008}}`,
		"000010": `{"track_id":"000010","data":{"title":"Freeway","artist":"Kurt Vile","genre":"Pop","year":"2008-11-26"}}`,
	}
	hits := `[{"track_id":"000005","score":0.91},{"track_id":"000010","score":0.8}]`

	mux := http.NewServeMux()
	mux.HandleFunc("GET /fusion-similarity/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == f.blockID {
			f.entered <- struct{}{}
			<-f.release
		}
		io.WriteString(w, hits)
	})
	mux.HandleFunc("POST /file-similarity", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file-similarity without file: %v", err)
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		if f.files != nil {
			f.files <- header.Filename
		}
		io.WriteString(w, hits)
	})
	mux.HandleFunc("GET /metadata/track/{id}", func(w http.ResponseWriter, r *http.Request) {
		body, ok := tracks[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}
		io.WriteString(w, body)
	})
	mux.HandleFunc("GET /text/search", func(w http.ResponseWriter, r *http.Request) {
		if f.lyrics != nil {
			f.lyrics <- r.URL.Query().Get("q")
		}
		io.WriteString(w, `[{"track_id":"10","score":0.5,"title":"Freeway","artist":"Kurt Vile","lyrics_excerpt":"on the freeway","elapsed_ms":"1.5"}]`)
	})
	mux.HandleFunc("POST /metadata/query", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Query string }
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "broken") {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"detail":"syntax error near broken"}`)
			return
		}
		io.WriteString(w, `{"rows":[{"title":"Food","artist":"AWOL"},{"title":"Freeway","artist":"Kurt Vile"}],"sql":"SELECT title, artist FROM tracks"}`)
	})
	return mux
}

func newTestServer(t *testing.T, fb *fakeBackend) (*httptest.Server, context.CancelFunc) {
	t.Helper()

	be := httptest.NewServer(fb.handler(t))
	t.Cleanup(be.Close)

	cfg := config.DefaultConfig()
	cfg.BackendURL = be.URL
	log := logger.NewWithWriter(io.Discard, false)

	svc, err := session.New(cfg, backend.New(be.URL, "", 5*time.Second), log)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(NewServer(ctx, NewTracker(), svc, cfg, log).Router())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, cancel
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sess SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	return sess.ID
}

func postAudio(t *testing.T, srv *httptest.Server, fields map[string]string, fileName string, data []byte) (int, SearchResponse) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		fw.Write(data)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/audio", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, decodeSearch(t, resp)
}

func postJSON(t *testing.T, srv *httptest.Server, path string, v any) (int, SearchResponse) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, decodeSearch(t, resp)
}

func decodeSearch(t *testing.T, resp *http.Response) SearchResponse {
	t.Helper()
	var out SearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAudioCatalogSearch(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})
	id := createSession(t, srv)

	code, resp := postAudio(t, srv, map[string]string{"session_id": id, "track_id": "2", "k": "2"}, "", nil)
	require.Equal(t, http.StatusOK, code)

	assert.False(t, resp.Stale)
	assert.Equal(t, search.Ticket(1), resp.Ticket)
	assert.Equal(t, search.Catalog, resp.Result.Mode)
	require.Len(t, resp.Result.Cards, 2)
	assert.Equal(t, "000005", resp.Result.Cards[0].TrackID.String())
	require.NotNil(t, resp.Result.Reference)
	assert.Equal(t, "Original", resp.Result.Reference.Badge)
	assert.Contains(t, resp.Result.Statement, "'000002'")
	assert.Equal(t, "Showing 2 results similar to 000002.", resp.Result.Status)
	assert.Contains(t, resp.HTML, "This World")
	assert.Contains(t, resp.HTML, "Food")

	sess, err := http.Get(srv.URL + "/api/sessions/" + id)
	require.NoError(t, err)
	defer sess.Body.Close()
	var got SessionResponse
	require.NoError(t, json.NewDecoder(sess.Body).Decode(&got))
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 2, got.Results)
}

func TestAudioUploadSkipsPredicate(t *testing.T) {
	fb := &fakeBackend{files: make(chan string, 1)}
	srv, _ := newTestServer(t, fb)

	stmt := "SELECT title FROM Audio WHERE audio_sim <-> 'x' AND genre = 'Pop' LIMIT 2;"
	code, resp := postAudio(t, srv, map[string]string{"statement": stmt}, "my song.mp3", []byte("not really audio"))
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, search.Upload, resp.Result.Mode)
	assert.Equal(t, "my song.mp3", <-fb.files)
	assert.Contains(t, resp.Result.Notices, session.NoticePredicateSkipped)
	assert.Contains(t, resp.Result.Statement, "'my song.mp3'")
	require.NotNil(t, resp.Result.Reference)
	assert.Equal(t, search.Ticket(0), resp.Ticket, "requests without a session are untracked")
}

func TestAudioRejectsNonAudioUpload(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "notes.txt")
	fw.Write([]byte("hello"))
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/audio", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAudioInvalidReference(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	code, resp := postAudio(t, srv, map[string]string{"track_id": "not-an-id"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, strings.HasPrefix(resp.Result.Status, "Invalid reference"), resp.Result.Status)
	assert.Empty(t, resp.Result.Cards)
}

func TestTextSearch(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})
	id := createSession(t, srv)

	code, resp := postJSON(t, srv, "/api/text", TextRequest{
		SessionID: id,
		Statement: "SELECT * FROM Text WHERE lyric @@ 'freeway' LIMIT 3;",
	})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Result.Cards, 1)

	card := resp.Result.Cards[0]
	assert.Equal(t, "000010", card.TrackID.String())
	assert.Equal(t, "on the freeway", card.Lyrics)
	assert.Equal(t, "1.50 ms", card.Elapsed)
	assert.Equal(t, "0.500", card.Score)
	assert.Contains(t, resp.HTML, "Freeway")
}

func TestTextSimpleQueryShowsAllFields(t *testing.T) {
	fb := &fakeBackend{lyrics: make(chan string, 1)}
	srv, _ := newTestServer(t, fb)
	id := createSession(t, srv)

	code, resp := postJSON(t, srv, "/api/text", TextRequest{SessionID: id, Query: "freeway", K: 3})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "freeway", <-fb.lyrics)
	require.Len(t, resp.Result.Cards, 1)
	assert.Equal(t, "0.500", resp.Result.Cards[0].Score)
	assert.Equal(t, "Kurt Vile", resp.Result.Cards[0].Blocks[1].Value)
}

func TestTextStaleStatementUsesQuery(t *testing.T) {
	fb := &fakeBackend{lyrics: make(chan string, 1)}
	srv, _ := newTestServer(t, fb)
	id := createSession(t, srv)

	code, _ := postJSON(t, srv, "/api/text", TextRequest{
		SessionID: id,
		Query:     "freeway",
		Statement: "SELECT title, artist, lyric\nFROM Audio\nWHERE lyric @@ ''\nLIMIT 10;",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "freeway", <-fb.lyrics)
}

func TestMetadataNotFoundIsStatus(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	resp, err := http.Get(srv.URL + "/api/metadata/999")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeSearch(t, resp)
	assert.Equal(t, "No metadata found for 000999.", out.Result.Status)
	assert.Empty(t, out.Result.Cards)
}

func TestMetadataFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	resp, err := http.Get(srv.URL + "/api/metadata/10")
	require.NoError(t, err)
	defer resp.Body.Close()

	out := decodeSearch(t, resp)
	require.Len(t, out.Result.Cards, 1)
	assert.Equal(t, "Metadata", out.Result.Cards[0].Badge)
	assert.Contains(t, out.HTML, "Kurt Vile")
	assert.Contains(t, out.HTML, "2008")
}

func TestQuery(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	code, resp := postJSON(t, srv, "/api/query", QueryRequest{Statement: "SELECT title FROM Audio"})
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Result.Table)
	assert.Equal(t, []string{"title"}, resp.Result.Table.Columns)
	assert.Equal(t, [][]string{{"Food"}, {"Freeway"}}, resp.Result.Table.Rows)
	assert.Equal(t, "SELECT title, artist FROM tracks", resp.Result.SQL)
	assert.Contains(t, resp.HTML, "<table")
}

func TestQueryBackendDetail(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	code, resp := postJSON(t, srv, "/api/query", QueryRequest{Statement: "SELECT broken"})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "Search failed: syntax error near broken (HTTP 400).", resp.Result.Status)
}

func TestStaleResponseDropped(t *testing.T) {
	fb := &fakeBackend{
		blockID: "000007",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	srv, _ := newTestServer(t, fb)
	id := createSession(t, srv)

	type reply struct {
		code int
		resp SearchResponse
	}
	first := make(chan reply, 1)
	go func() {
		code, resp := postAudio(t, srv, map[string]string{"session_id": id, "track_id": "7"}, "", nil)
		first <- reply{code, resp}
	}()
	<-fb.entered

	code, second := postAudio(t, srv, map[string]string{"session_id": id, "track_id": "2"}, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, second.Stale)
	assert.Equal(t, search.Ticket(2), second.Ticket)

	close(fb.release)
	old := <-first
	assert.Equal(t, http.StatusOK, old.code)
	assert.True(t, old.resp.Stale)
	assert.Equal(t, search.Ticket(1), old.resp.Ticket)
	assert.Empty(t, old.resp.HTML)
}

func TestStatementEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	tests := []struct {
		path string
		want string
	}{
		{"/api/statement/audio?ref=000002&k=3", "SELECT id, title\nFROM Audio\nWHERE audio_sim <-> '000002'\nLIMIT 3;"},
		{"/api/statement/audio", "LIMIT 8;"},
		{"/api/statement/text?q=love&k=bogus", "LIMIT 10;"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			var out map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Contains(t, out["statement"], tt.want)
		})
	}
}

func TestUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	code, _ := postJSON(t, srv, "/api/query", QueryRequest{SessionID: "nope", Statement: "SELECT 1"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStaticAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	// metrics last so the earlier requests have been counted
	for _, tt := range []struct{ path, want string }{
		{"/", "FMA search"},
		{"/app.js", "createSession"},
		{"/metrics", "fmasearch_http_requests_total"},
	} {
		path, want := tt.path, tt.want
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, string(body), want, path)
	}
}

func TestWebSocketStreamsStatus(t *testing.T) {
	srv, cancel := newTestServer(t, &fakeBackend{})
	id := createSession(t, srv)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session_id=" + id
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var initial SessionResponse
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, StatusIdle, initial.Status)

	code, _ := postAudio(t, srv, map[string]string{"session_id": id, "track_id": "2"}, "", nil)
	require.Equal(t, http.StatusOK, code)

	var statuses []SearchStatus
	for len(statuses) < 2 {
		var msg SessionResponse
		require.NoError(t, conn.ReadJSON(&msg))
		statuses = append(statuses, msg.Status)
	}
	assert.Equal(t, []SearchStatus{StatusRunning, StatusCompleted}, statuses)

	cancel()
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server shutdown should close the stream")
}

func TestWebSocketRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t, &fakeBackend{})

	for _, q := range []string{"", "?session_id=missing"} {
		resp, err := http.Get(srv.URL + "/ws" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.NotEqual(t, http.StatusSwitchingProtocols, resp.StatusCode, fmt.Sprintf("query %q", q))
	}
}
