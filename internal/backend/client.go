// Package backend is the HTTP client for the catalog search API and the
// lyric index API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by TrackMetadata when the backend has no record
// for the requested id.
var ErrNotFound = errors.New("track not found")

const userAgent = "fmasearch/1.0"

// StatusError is a non-success HTTP response.
type StatusError struct {
	Endpoint string
	Code     int
	Detail   string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s returned %d", e.Endpoint, e.Code)
}

// Client talks to the catalog backend (similarity, metadata) and the lyric
// backend (text search). Both may share one base URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	textURL    string
}

// New creates a client. An empty textURL means the lyric index is served by
// the catalog backend.
func New(baseURL, textURL string, timeout time.Duration) *Client {
	if textURL == "" {
		textURL = baseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		textURL:    strings.TrimRight(textURL, "/"),
	}
}

// BaseURL returns the catalog backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// SearchParams are the query parameters of a similarity search.
type SearchParams struct {
	K int
	// Alpha weighs audio against metadata similarity. Catalog search only.
	Alpha float64
	// Filter is the metadata predicate, sent as q when non-empty.
	Filter string
}

// FusionSimilarity runs GET /fusion-similarity/{id}.
func (c *Client) FusionSimilarity(ctx context.Context, trackID string, p SearchParams) ([]Hit, error) {
	v := url.Values{}
	v.Set("k", strconv.Itoa(p.K))
	v.Set("alpha", strconv.FormatFloat(p.Alpha, 'f', -1, 64))
	if p.Filter != "" {
		v.Set("q", p.Filter)
	}
	reqURL := fmt.Sprintf("%s/fusion-similarity/%s?%s", c.baseURL, url.PathEscape(trackID), v.Encode())

	req, err := c.newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	if err := c.do(req, "fusion-similarity", &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// FileSimilarity runs POST /file-similarity with the audio as multipart
// field "file". Only K and Filter of p are used.
func (c *Client) FileSimilarity(ctx context.Context, filename string, audio io.Reader, p SearchParams) ([]Hit, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	v := url.Values{}
	v.Set("k", strconv.Itoa(p.K))
	if p.Filter != "" {
		v.Set("q", p.Filter)
	}
	reqURL := fmt.Sprintf("%s/file-similarity?%s", c.baseURL, v.Encode())
	req, err := c.newRequest(ctx, http.MethodPost, reqURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var hits []Hit
	if err := c.do(req, "file-similarity", &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// TrackMetadata runs GET /metadata/track/{id}. A 404 yields ErrNotFound.
func (c *Client) TrackMetadata(ctx context.Context, trackID string) (TrackMetadata, error) {
	reqURL := fmt.Sprintf("%s/metadata/track/%s", c.baseURL, url.PathEscape(trackID))
	req, err := c.newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return TrackMetadata{}, err
	}

	var meta TrackMetadata
	if err := c.do(req, "metadata", &meta); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return TrackMetadata{}, fmt.Errorf("%s: %w", trackID, ErrNotFound)
		}
		return TrackMetadata{}, err
	}
	if meta.TrackID == "" {
		meta.TrackID = Text(trackID)
	}
	return meta, nil
}

// TextSearch runs GET /text/search on the lyric backend.
func (c *Client) TextSearch(ctx context.Context, q string, k int) ([]TextHit, error) {
	v := url.Values{}
	v.Set("q", q)
	v.Set("k", strconv.Itoa(k))
	reqURL := fmt.Sprintf("%s/text/search?%s", c.textURL, v.Encode())

	req, err := c.newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	var hits []TextHit
	if err := c.do(req, "text-search", &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// MetadataQuery runs POST /metadata/query with the raw statement text.
func (c *Client) MetadataQuery(ctx context.Context, statement string) (QueryResult, error) {
	payload, err := json.Marshal(queryRequest{Query: statement})
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/metadata/query", bytes.NewReader(payload))
	if err != nil {
		return QueryResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var res QueryResult
	if err := c.do(req, "metadata-query", &res); err != nil {
		return QueryResult{}, err
	}
	return res, nil
}

func (c *Client) newRequest(ctx context.Context, method, reqURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx body into out. Anything else becomes a
// *StatusError carrying the backend's detail message.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		se := &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			se.Detail = eb.message()
		}
		if se.Detail == "" {
			se.Detail = strings.TrimSpace(string(body))
		}
		return se
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
