package query

import "strings"

// Kind classifies a token.
type Kind int

const (
	Word Kind = iota
	Number
	String
	Operator
	Comma
	Semicolon
	LParen
	RParen
	Newline
)

// Token is a lexical unit of a statement. Start and End are byte offsets into
// the source text, so callers can slice the original spelling back out.
type Token struct {
	Kind  Kind
	Text  string
	Start int
	End   int
	Line  int
}

// Is reports whether t is the word keyword, compared case-insensitively.
func (t Token) Is(keyword string) bool {
	return t.Kind == Word && strings.EqualFold(t.Text, keyword)
}

// IsMarker reports whether t is a similarity operator.
func (t Token) IsMarker() bool {
	if t.Kind != Operator {
		return false
	}
	for _, m := range markers {
		if t.Text == m {
			return true
		}
	}
	return false
}

// Similarity operators: audio_sim <-> 'ref' and lyric @@ 'text'.
var markers = []string{"<->", "@@"}

// Multi-byte operators, longest first.
var operators = []string{"<->", "@@", "<=", ">=", "<>", "!=", "==", "||", "::"}

// Lex splits src into tokens. It never fails: an unterminated string runs to
// the end of the input, "--" comments are dropped up to the end of the line,
// and any byte it does not recognize becomes a one-byte Operator token.
func Lex(src string) []Token {
	var toks []Token
	line := 1
	i := 0

	emit := func(kind Kind, start, end int) {
		toks = append(toks, Token{Kind: kind, Text: src[start:end], Start: start, End: end, Line: line})
	}

	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			emit(Newline, i, i+1)
			line++
			i++

		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			i++

		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			for i < len(src) && src[i] != '\n' {
				i++
			}

		case c == '\'' || c == '"' || c == '`':
			start := i
			i = scanString(src, i)
			emit(String, start, i)
			line += strings.Count(src[start:i], "\n")

		case isDigit(c):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			emit(Number, start, i)

		case isWordByte(c):
			start := i
			for i < len(src) && (isWordByte(src[i]) || isDigit(src[i]) || src[i] == '.') {
				i++
			}
			emit(Word, start, i)

		case c == ',':
			emit(Comma, i, i+1)
			i++

		case c == ';':
			emit(Semicolon, i, i+1)
			i++

		case c == '(':
			emit(LParen, i, i+1)
			i++

		case c == ')':
			emit(RParen, i, i+1)
			i++

		default:
			n := operatorLen(src[i:])
			emit(Operator, i, i+n)
			i += n
		}
	}

	return toks
}

// scanString returns the offset just past the string literal opened at
// src[start]. A doubled quote inside the literal is an escaped quote.
func scanString(src string, start int) int {
	quote := src[start]
	i := start + 1
	for i < len(src) {
		if src[i] == quote {
			if i+1 < len(src) && src[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(src)
}

// Unquote strips the quotes from a String token's text and collapses doubled
// quotes. Other tokens are returned as is.
func Unquote(t Token) string {
	if t.Kind != String || len(t.Text) == 0 {
		return t.Text
	}
	q := t.Text[0]
	body := t.Text[1:]
	if len(body) > 0 && body[len(body)-1] == q {
		body = body[:len(body)-1]
	}
	return strings.ReplaceAll(body, string([]byte{q, q}), string(q))
}

func operatorLen(s string) int {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return len(op)
		}
	}
	return 1
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}
