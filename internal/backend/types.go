package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Text decodes a JSON string, number or null into a string. The catalog
// backend is loose about types: track ids and years arrive either way.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// Number decodes a JSON number, numeric string or null into a float64.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Hit is one raw similarity result.
type Hit struct {
	TrackID Text    `json:"track_id"`
	Score   float64 `json:"score"`
}

// TrackData is the data object of a metadata lookup. Every field may be
// absent.
type TrackData struct {
	Title         Text   `json:"title"`
	Artist        Text   `json:"artist"`
	Genre         Text   `json:"genre"`
	Year          Text   `json:"year"`
	Album         Text   `json:"album"`
	Playlist      Text   `json:"playlist"`
	LyricsExcerpt Text   `json:"lyrics_excerpt"`
	ElapsedMs     Number `json:"elapsed_ms"`
}

// TrackMetadata is the response of GET /metadata/track/{id}.
type TrackMetadata struct {
	TrackID Text      `json:"track_id"`
	Data    TrackData `json:"data"`
}

// TextHit is one lyric search result. The text backend returns the hit and
// its metadata flattened into one object.
type TextHit struct {
	TrackID       Text    `json:"track_id"`
	Score         float64 `json:"score"`
	Title         Text    `json:"title"`
	Artist        Text    `json:"artist"`
	Genre         Text    `json:"genre"`
	Album         Text    `json:"album"`
	Playlist      Text    `json:"playlist"`
	LyricsExcerpt Text    `json:"lyrics_excerpt"`
	ElapsedMs     Number  `json:"elapsed_ms"`
}

// QueryResult is the response of POST /metadata/query.
type QueryResult struct {
	Rows []map[string]any `json:"rows"`
	SQL  string           `json:"sql,omitempty"`
}

type queryRequest struct {
	Query string `json:"query"`
}

// errorBody carries FastAPI-style error details. Detail is usually a
// string but validation failures send a list.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (e errorBody) message() string {
	if len(e.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return string(e.Detail)
}
