package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"

	"fmasearch/internal/logger"
	"fmasearch/internal/progress"
	"fmasearch/internal/query"
	"fmasearch/internal/session"
)

// Runner is the part of session.Service the shell drives.
type Runner interface {
	Audio(ctx context.Context, req session.AudioRequest) (session.Result, error)
	Text(ctx context.Context, req session.TextRequest) (session.Result, error)
	Metadata(ctx context.Context, rawID string) (session.Result, error)
	Query(ctx context.Context, statement string) (session.Result, error)
}

// Shell executes statements and prints their results.
type Shell struct {
	runner      Runner
	out         io.Writer
	historyPath string
	logger      *logger.Logger
	// Spinner shows a spinner while an action runs.
	Spinner bool
	// ShowSQL prints the SQL the backend ran for metadata queries.
	ShowSQL bool
}

func New(r Runner, out io.Writer, historyPath string, log *logger.Logger) *Shell {
	return &Shell{runner: r, out: out, historyPath: historyPath, logger: log}
}

// Execute runs one classified command.
func (s *Shell) Execute(ctx context.Context, cmd Command) (session.Result, error) {
	switch cmd.Action {
	case AudioSearch:
		return s.audio(ctx, cmd)
	case TextSearch:
		return s.runner.Text(ctx, session.TextRequest{Query: cmd.Arg, Statement: cmd.Statement})
	case TrackLookup:
		return s.runner.Metadata(ctx, cmd.Arg)
	case RunQuery:
		return s.runner.Query(ctx, cmd.Statement)
	}
	return session.Result{}, fmt.Errorf("command cannot be executed: %d", cmd.Action)
}

func (s *Shell) audio(ctx context.Context, cmd Command) (session.Result, error) {
	operand := cmd.Arg
	if cmd.Statement != "" {
		operand = query.Translate(cmd.Statement, query.FallbackLimit).Reference()
		if operand == query.ReferencePlaceholder {
			operand = ""
		}
	}

	ref, err := OpenReference(operand)
	if err != nil {
		return session.Result{Kind: session.AudioSearch, Status: session.Describe(err)}, err
	}
	defer ref.Close()

	return s.runner.Audio(ctx, session.AudioRequest{
		Input:      ref.Input,
		UploadPath: ref.Path,
		Statement:  cmd.Statement,
	})
}

// Run executes cmd and prints the outcome. The error is returned after it
// has been printed.
func (s *Shell) Run(ctx context.Context, cmd Command) error {
	if cmd.Action == Help {
		s.printHelp()
		return nil
	}
	return s.Do(ctx, spinnerText(cmd.Action), func(ctx context.Context) (session.Result, error) {
		return s.Execute(ctx, cmd)
	})
}

// Do runs action behind a spinner and prints its result or its failure.
func (s *Shell) Do(ctx context.Context, text string, action func(context.Context) (session.Result, error)) error {
	spin := progress.Start(s.out, text, s.Spinner)
	res, err := action(ctx)
	spin.Stop()

	if err != nil {
		PrintError(s.out, res, err)
		return err
	}
	return Print(s.out, res, s.ShowSQL)
}

func spinnerText(a Action) string {
	switch a {
	case AudioSearch:
		return "Searching similar tracks..."
	case TextSearch:
		return "Searching lyrics..."
	case TrackLookup:
		return "Loading metadata..."
	}
	return "Running query..."
}

// Interactive reads statements from the terminal until \q or EOF.
func (s *Shell) Interactive(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)
	line.SetCompleter(completer)

	if f, err := os.Open(s.historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer s.saveHistory(line)

	fmt.Fprintln(s.out, "fmasearch shell. End statements with ';'. Type \\help for commands.")

	var buf Buffer
	for {
		prompt := "fma> "
		if buf.Pending() {
			prompt = "  -> "
		}

		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				if buf.Pending() {
					buf.Reset()
					continue
				}
				fmt.Fprintln(s.out, "Bye!")
				return nil
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out, "Bye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		stmt, done := buf.Add(input)
		if !done {
			continue
		}
		line.AppendHistory(strings.ReplaceAll(stmt, "\n", " "))

		cmd := Classify(stmt)
		if cmd.Action == Quit {
			fmt.Fprintln(s.out, "Bye!")
			return nil
		}
		if err := s.Run(ctx, cmd); err != nil {
			s.logger.Debug("statement failed: %v", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// saveHistory persists prompt history, replacing the file atomically.
func (s *Shell) saveHistory(line *liner.State) {
	if s.historyPath == "" {
		return
	}
	var buf bytes.Buffer
	if _, err := line.WriteHistory(&buf); err != nil {
		s.logger.Warn("Failed to collect history: %v", err)
		return
	}
	if err := atomic.WriteFile(s.historyPath, &buf); err != nil {
		s.logger.Warn("Failed to save history: %v", err)
	}
}

var commands = []string{`\audio `, `\text `, `\meta `, `\help`, `\q`, "SELECT ", "FROM Audio", "WHERE ", "LIMIT "}

func completer(line string) []string {
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(strings.ToLower(c), strings.ToLower(line)) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.out, `Statements end with ';' and may span lines:
  SELECT title, artist FROM Audio WHERE audio_sim <-> '034996' AND genre = 'Rock' LIMIT 5;
  SELECT * FROM Lyrics WHERE lyric @@ 'love me tender';
  SELECT title FROM Audio WHERE year = 2008;      (metadata query)

The <-> operand is a track id or the path of a local audio file.

Commands:
  \audio <id|path>   similarity search with the default statement
  \text <words>      lyric search
  \meta <id>         show one track's metadata
  \help              this help
  \q                 quit
`)
}
