package query

import (
	"strconv"
	"strings"
)

// Translate parses statement into a Spec. defaultLimit is used when the
// statement has no usable LIMIT; a non-positive defaultLimit is replaced by
// FallbackLimit.
func Translate(statement string, defaultLimit int) Spec {
	if defaultLimit < 1 {
		defaultLimit = FallbackLimit
	}

	toks := Lex(statement)
	spec := Spec{
		Projection: projection(statement, toks),
		Limit:      limit(toks, defaultLimit),
	}
	spec.Predicate, spec.Similarity = predicate(statement, toks)
	return spec
}

// projection reads the column list between the first SELECT and the first
// FROM after it.
func projection(src string, toks []Token) Projection {
	sel := indexWord(toks, 0, "select")
	if sel < 0 {
		return All()
	}
	from := indexWord(toks, sel+1, "from")
	if from < 0 {
		return All()
	}

	cols := splitTopLevel(withoutNewlines(toks[sel+1 : from]))
	if len(cols) == 0 {
		return All()
	}

	names := make([]string, 0, len(cols))
	for _, col := range cols {
		if len(col) == 0 {
			// "a,,b" or a dangling comma
			return All()
		}
		if as := indexWord(col, 0, "as"); as >= 0 {
			if as == 0 || as == len(col)-1 {
				return All()
			}
			col = col[:as]
		}
		name := strings.ToLower(strings.TrimSpace(span(src, col)))
		if name == "" || name == "*" {
			return All()
		}
		names = append(names, name)
	}
	return Named(names...)
}

// limit returns the value of the first "LIMIT <digits>" in toks, or def when
// there is none or it is not positive.
func limit(toks []Token, def int) int {
	for i, t := range toks {
		if !t.Is("limit") {
			continue
		}
		j := i + 1
		for j < len(toks) && toks[j].Kind == Newline {
			j++
		}
		if j >= len(toks) || toks[j].Kind != Number {
			continue
		}
		n, err := strconv.Atoi(leadingDigits(toks[j].Text))
		if err != nil || n <= 0 {
			return def
		}
		return n
	}
	return def
}

// predicate collects the metadata predicate fragments and the similarity
// sub-expression. It works line by line: the first line carrying WHERE opens
// the clause, and each later line led by AND or OR adds one fragment.
func predicate(src string, toks []Token) (string, *Similarity) {
	var (
		frags     []string
		sim       *Similarity
		seenWhere bool
	)

	for _, line := range lines(toks) {
		first := line[0]
		if first.Is("limit") {
			continue
		}

		if !seenWhere {
			w := indexWord(line, 0, "where")
			if w < 0 {
				continue
			}
			seenWhere = true
			frag, s := clauseFragment(src, clause(line[w+1:]))
			if frag != "" {
				frags = append(frags, frag)
			}
			sim = s
			continue
		}

		if !first.Is("and") && !first.Is("or") {
			continue
		}
		rest := clause(line[1:])
		if sim == nil && indexMarker(rest) >= 0 {
			frag, s := clauseFragment(src, rest)
			if frag != "" {
				frags = append(frags, frag)
			}
			sim = s
			continue
		}
		if len(rest) > 0 {
			frags = append(frags, span(src, rest))
		}
	}

	return strings.Join(frags, " AND "), sim
}

// clauseFragment returns the metadata part of a where clause. Without a
// similarity marker the whole clause is metadata; with one, only what follows
// the first AND after the marker.
func clauseFragment(src string, toks []Token) (string, *Similarity) {
	if len(toks) == 0 {
		return "", nil
	}
	m := indexMarker(toks)
	if m < 0 {
		return span(src, toks), nil
	}

	sim := &Similarity{Operator: toks[m].Text}
	if m > 0 && toks[m-1].Kind == Word {
		sim.Field = toks[m-1].Text
	}
	if m+1 < len(toks) {
		switch operand := toks[m+1]; operand.Kind {
		case String, Word, Number:
			sim.Reference = strings.TrimSpace(Unquote(operand))
		}
	}

	and := indexWord(toks, m+1, "and")
	if and < 0 || and == len(toks)-1 {
		return "", sim
	}
	return span(src, toks[and+1:]), sim
}

// clause cuts toks at a LIMIT keyword and drops trailing semicolons.
func clause(toks []Token) []Token {
	if l := indexWord(toks, 0, "limit"); l >= 0 {
		toks = toks[:l]
	}
	for len(toks) > 0 && toks[len(toks)-1].Kind == Semicolon {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// lines groups toks by source line, dropping empty lines.
func lines(toks []Token) [][]Token {
	var (
		out [][]Token
		cur []Token
	)
	for _, t := range toks {
		if t.Kind == Newline {
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// splitTopLevel splits toks at commas outside parentheses.
func splitTopLevel(toks []Token) [][]Token {
	if len(toks) == 0 {
		return nil
	}
	var (
		out   [][]Token
		cur   []Token
		depth int
	)
	for _, t := range toks {
		switch t.Kind {
		case LParen:
			depth++
		case RParen:
			if depth > 0 {
				depth--
			}
		case Comma:
			if depth == 0 {
				out = append(out, cur)
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
	return append(out, cur)
}

func withoutNewlines(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind != Newline {
			out = append(out, t)
		}
	}
	return out
}

func indexWord(toks []Token, from int, keyword string) int {
	for i := from; i < len(toks); i++ {
		if toks[i].Is(keyword) {
			return i
		}
	}
	return -1
}

func indexMarker(toks []Token) int {
	for i, t := range toks {
		if t.IsMarker() {
			return i
		}
	}
	return -1
}

// span returns the source text covered by toks.
func span(src string, toks []Token) string {
	if len(toks) == 0 {
		return ""
	}
	return strings.TrimSpace(src[toks[0].Start:toks[len(toks)-1].End])
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i]
}
