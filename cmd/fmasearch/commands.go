package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fmasearch/internal/config"
	"fmasearch/internal/query"
	"fmasearch/internal/session"
	"fmasearch/internal/shell"
)

// statementFlags are shared by the search commands. A full --statement wins
// over the piecewise flags.
type statementFlags struct {
	statement string
	columns   string
	where     string
	limit     int
}

func (f *statementFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.statement, "statement", "s", "", "Full pseudo-SQL statement to run")
	cmd.Flags().StringVar(&f.columns, "select", "*", "Columns to show, comma separated or *")
	cmd.Flags().StringVarP(&f.where, "where", "w", "", "Metadata predicate, e.g. \"genre = 'Rock'\"")
	cmd.Flags().IntVarP(&f.limit, "limit", "k", 0, "Number of results (default from config)")
}

// build returns the statement to run. field and op form the similarity
// sub-expression; operand may be empty when the statement supplies it.
func (f *statementFlags) build(from, field, op, operand string, limit int) string {
	if f.statement != "" {
		if f.limit > 0 {
			return query.WithLimit(f.statement, f.limit)
		}
		return f.statement
	}
	if f.limit > 0 {
		limit = f.limit
	}

	columns := strings.TrimSpace(f.columns)
	if columns == "" {
		columns = "*"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s\nFROM %s\nWHERE %s %s %s\n", columns, from, field, op, query.Quote(operand))
	if w := strings.TrimSpace(f.where); w != "" {
		fmt.Fprintf(&b, "AND %s\n", w)
	}
	fmt.Fprintf(&b, "LIMIT %d;", limit)
	return b.String()
}

func newAudioCmd(a *app) *cobra.Command {
	var f statementFlags
	cmd := &cobra.Command{
		Use:   "audio [track-id | audio-file]",
		Short: "Find tracks that sound like a catalog track or a local file",
		Long: `Find tracks that sound like a catalog track or a local audio file.

A 1-6 digit reference, typed or as a file name stem, searches the catalog
and forwards --where to the backend. Any other file is uploaded; uploads
ignore --where unless upload_predicates is enabled in the config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operand := ""
			if len(args) == 1 {
				operand = args[0]
			}
			statement := f.build("Audio", "audio_sim", "<->", operand, a.svc.AudioLimit())
			if operand == "" {
				operand = query.Translate(statement, a.svc.AudioLimit()).Reference()
			}
			if operand == query.ReferencePlaceholder {
				operand = ""
			}

			ref, err := shell.OpenReference(operand)
			if err != nil {
				shell.PrintError(os.Stdout, session.Result{}, err)
				return err
			}
			defer ref.Close()

			return a.shell.Do(a.sh.Context(), "Searching similar tracks...", func(ctx context.Context) (session.Result, error) {
				return a.svc.Audio(ctx, session.AudioRequest{
					Input:      ref.Input,
					UploadPath: ref.Path,
					Statement:  statement,
				})
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newTextCmd(a *app) *cobra.Command {
	var f statementFlags
	cmd := &cobra.Command{
		Use:   "text [lyrics...]",
		Short: "Search tracks by lyrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			statement := f.build("Audio", "lyric", "@@", q, a.svc.TextLimit())
			return a.shell.Do(a.sh.Context(), "Searching lyrics...", func(ctx context.Context) (session.Result, error) {
				return a.svc.Text(ctx, session.TextRequest{Query: q, Statement: statement})
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newMetaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "meta <track-id>",
		Short: "Show the metadata of one catalog track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.shell.Run(a.sh.Context(), shell.Command{Action: shell.TrackLookup, Arg: args[0]})
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <statement | ->",
		Short: "Run a metadata query; '-' reads the statement from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement := args[0]
			if statement == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read statement: %w", err)
				}
				statement = string(data)
			}
			return a.shell.Run(a.sh.Context(), shell.Command{Action: shell.RunQuery, Statement: strings.TrimSpace(statement)})
		},
	}
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive pseudo-SQL prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The prompt owns the terminal; keep log lines in the file.
			a.log.SetQuiet(true)
			defer a.log.SetQuiet(false)
			return a.shell.Interactive(a.sh.Context())
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Create a config file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetDefaultConfigPath()
			if len(args) == 1 {
				path = config.ExpandHome(args[0])
			}

			out := cmd.OutOrStdout()
			if _, err := os.Stat(path); err == nil && !force {
				fmt.Fprintf(out, "Config file already exists at: %s\n", path)
				fmt.Fprintln(out, "Use --force to overwrite it.")
				return nil
			}

			if err := config.SaveConfigFile(config.DefaultConfig(), path); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}

			fmt.Fprintf(out, "Created default config file at: %s\n", path)
			fmt.Fprintln(out, "\nAvailable options:")
			fmt.Fprintln(out, "  backend_url: base URL of the similarity/metadata backend")
			fmt.Fprintln(out, "  text_backend_url: lyric search backend (defaults to backend_url)")
			fmt.Fprintln(out, "  audio_limit, text_limit: default result counts")
			fmt.Fprintln(out, "  fusion_alpha: 0.0-1.0 weight of audio vs metadata similarity")
			fmt.Fprintln(out, "  upload_predicates: forward WHERE predicates for uploaded files")
			fmt.Fprintln(out, "  library_dir: local FMA audio tree used when the backend has no metadata")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}
