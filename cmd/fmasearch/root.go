package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fmasearch/internal/backend"
	"fmasearch/internal/config"
	"fmasearch/internal/logger"
	"fmasearch/internal/session"
	"fmasearch/internal/shell"
	"fmasearch/internal/shutdown"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	backendURL string
	textURL    string
	verbose    bool
	showSQL    bool

	cfg   config.Config
	log   *logger.Logger
	sh    *shutdown.Handler
	svc   *session.Service
	shell *shell.Shell
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fmasearch",
		Short: "Search the FMA catalog by audio similarity, lyrics and metadata",
		Long: `fmasearch sends pseudo-SQL statements to the FMA search backend.

  fmasearch audio 034996
  fmasearch audio ./clip.mp3 --where "genre = 'Rock'"
  fmasearch text "love me tender"
  fmasearch query "SELECT title, artist FROM Audio WHERE year = 2008 LIMIT 5;"
  fmasearch shell`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "init-config" {
				return nil
			}
			return a.setup(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to config file")
	flags.StringVar(&a.backendURL, "backend", "", "Search backend base URL (overrides config)")
	flags.StringVar(&a.textURL, "text-backend", "", "Lyric search backend base URL (overrides config)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Show detailed output")
	flags.BoolVar(&a.showSQL, "show-sql", false, "Print the SQL the backend ran for metadata queries")

	root.AddCommand(
		newAudioCmd(a),
		newTextCmd(a),
		newMetaCmd(a),
		newQueryCmd(a),
		newShellCmd(a),
		newInitConfigCmd(),
	)
	return root
}

// setup loads configuration and wires the search session.
// Priority: CLI flags > config file > defaults
func (a *app) setup(parent context.Context) error {
	cfg, err := config.LoadConfigFile(a.configPath)
	if err != nil {
		return err
	}
	if a.backendURL != "" {
		cfg.BackendURL = a.backendURL
	}
	if a.textURL != "" {
		cfg.TextBackendURL = a.textURL
	}
	if a.verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	a.cfg = cfg

	a.log = logger.New(cfg.Verbose)
	if !cfg.Verbose {
		a.setupFileLog()
	}
	path := a.configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	if path != "" {
		a.log.Debug("Loaded configuration from: %s", path)
	}

	if parent == nil {
		parent = context.Background()
	}
	a.sh = shutdown.New(parent)
	a.sh.Listen()

	client := backend.New(cfg.BackendURL, cfg.TextURL(), cfg.RequestTimeout)
	a.svc, err = session.New(cfg, client, a.log.Named("session"))
	if err != nil {
		return err
	}
	a.sh.AddCleanup(a.svc.Close)

	a.shell = shell.New(a.svc, os.Stdout, cfg.HistoryFile, a.log.Named("shell"))
	a.shell.Spinner = !cfg.Verbose && term.IsTerminal(int(os.Stdout.Fd()))
	a.shell.ShowSQL = a.showSQL
	return nil
}

func (a *app) setupFileLog() {
	logDir := config.GetDefaultLogPath()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to create log directory: %v\n", err)
		return
	}
	logFile := filepath.Join(logDir, fmt.Sprintf("fmasearch_%s.log", time.Now().Format("2006-01-02_15-04-05")))
	if err := a.log.SetFileLog(logFile); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to setup file logging: %v\n", err)
		return
	}
	a.log.Debug("Logging to file: %s", logFile)
}

// teardown runs after every command, including failed ones.
func (a *app) teardown() {
	if a.sh != nil {
		a.sh.Shutdown()
	}
	if a.log != nil {
		a.log.Close()
	}
}
