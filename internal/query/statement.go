package query

import (
	"fmt"
	"strconv"
	"strings"
)

// ReferencePlaceholder is shown in a synthesized audio statement before a
// file has been chosen.
const ReferencePlaceholder = "path/to/your/audio.ext"

// AudioStatement builds the statement displayed for an audio similarity
// search against ref.
func AudioStatement(ref string, limit int) string {
	if ref == "" {
		ref = ReferencePlaceholder
	}
	return fmt.Sprintf("SELECT id, title\nFROM Audio\nWHERE audio_sim <-> %s\nLIMIT %d;", Quote(ref), positive(limit))
}

// TextStatement builds the statement displayed for a lyric search.
func TextStatement(lyric string, limit int) string {
	return fmt.Sprintf("SELECT title, artist, lyric\nFROM Audio\nWHERE lyric @@ %s\nLIMIT %d;", Quote(lyric), positive(limit))
}

// Quote renders s as a single-quoted literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// WithReference rewrites the operand of the first similarity marker in
// statement to ref. A marker with no operand gets one appended. Statements
// without a marker are returned unchanged.
func WithReference(statement, ref string) string {
	toks := Lex(statement)
	m := indexMarker(toks)
	if m < 0 {
		return statement
	}
	if m+1 < len(toks) {
		switch operand := toks[m+1]; operand.Kind {
		case String, Word, Number:
			return statement[:operand.Start] + Quote(ref) + statement[operand.End:]
		}
	}
	end := toks[m].End
	return statement[:end] + " " + Quote(ref) + statement[end:]
}

// WithLimit sets the first LIMIT value in statement to n, appending a LIMIT
// clause when there is none.
func WithLimit(statement string, n int) string {
	n = positive(n)
	toks := Lex(statement)
	for i, t := range toks {
		if !t.Is("limit") {
			continue
		}
		if i+1 < len(toks) && toks[i+1].Kind == Number {
			num := toks[i+1]
			return statement[:num.Start] + strconv.Itoa(n) + statement[num.End:]
		}
	}

	trimmed := strings.TrimRight(statement, " \t\r\n")
	if strings.HasSuffix(trimmed, ";") {
		return strings.TrimSuffix(trimmed, ";") + fmt.Sprintf("\nLIMIT %d;", n)
	}
	if trimmed == "" {
		return fmt.Sprintf("LIMIT %d;", n)
	}
	return trimmed + fmt.Sprintf("\nLIMIT %d", n)
}

func positive(n int) int {
	if n < 1 {
		return FallbackLimit
	}
	return n
}
