// Package shell runs statements typed at the interactive prompt or passed on
// the command line against a search session.
package shell

import (
	"strings"

	"fmasearch/internal/query"
)

// Action is what a complete statement asks for.
type Action int

const (
	// RunQuery sends the statement to the metadata SQL endpoint.
	RunQuery Action = iota
	AudioSearch
	TextSearch
	TrackLookup
	Help
	Quit
)

// Command is a classified statement. Arg carries the operand of a
// backslash command.
type Command struct {
	Action    Action
	Statement string
	Arg       string
}

// Classify decides how statement runs. Backslash commands are matched by
// name; other statements by their similarity operator, if any.
func Classify(statement string) Command {
	s := strings.TrimSpace(statement)
	if strings.HasPrefix(s, `\`) {
		name, arg, _ := strings.Cut(strings.TrimSuffix(s[1:], ";"), " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(name) {
		case "q", "quit", "exit":
			return Command{Action: Quit}
		case "meta", "m":
			return Command{Action: TrackLookup, Arg: arg}
		case "audio", "a":
			return Command{Action: AudioSearch, Arg: arg}
		case "text", "t":
			return Command{Action: TextSearch, Arg: arg}
		default:
			return Command{Action: Help}
		}
	}

	spec := query.Translate(s, query.FallbackLimit)
	if spec.Similarity != nil {
		switch spec.Similarity.Operator {
		case "<->":
			return Command{Action: AudioSearch, Statement: s}
		case "@@":
			return Command{Action: TextSearch, Statement: s}
		}
	}
	return Command{Action: RunQuery, Statement: s}
}

// Buffer accumulates prompt lines into statements. A statement ends with a
// semicolon outside any string literal; backslash commands end at the line.
type Buffer struct {
	lines []string
}

// Add appends line and reports the finished statement, if any.
func (b *Buffer) Add(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(b.lines) == 0 {
		if trimmed == "" {
			return "", false
		}
		if strings.HasPrefix(trimmed, `\`) {
			return trimmed, true
		}
	}

	b.lines = append(b.lines, line)
	stmt := strings.Join(b.lines, "\n")
	if !terminated(stmt) {
		return "", false
	}
	b.lines = nil
	return strings.TrimSpace(stmt), true
}

// Pending reports whether a statement has been started but not finished.
func (b *Buffer) Pending() bool { return len(b.lines) > 0 }

// Reset drops the unfinished statement.
func (b *Buffer) Reset() { b.lines = nil }

// terminated reports whether the last token is a semicolon. An unterminated
// literal lexes as one String token, so a semicolon inside it never counts.
func terminated(stmt string) bool {
	toks := query.Lex(stmt)
	for i := len(toks) - 1; i >= 0; i-- {
		if toks[i].Kind == query.Newline {
			continue
		}
		return toks[i].Kind == query.Semicolon
	}
	return false
}
