package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"fmasearch/internal/backend"
	"fmasearch/internal/config"
	"fmasearch/internal/logger"
	"fmasearch/internal/session"
	"fmasearch/internal/shutdown"
	"fmasearch/internal/web"
)

func main() {
	var (
		addr       string
		configPath string
		backendURL string
		verbose    bool
	)

	flags := pflag.NewFlagSet("fmasearch-web", pflag.ExitOnError)
	flags.StringVarP(&addr, "addr", "a", "", "HTTP listen address (default from config, :8080)")
	flags.StringVarP(&configPath, "config", "c", "", "Config file path")
	flags.StringVar(&backendURL, "backend", "", "Search backend base URL")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	flags.Parse(os.Args[1:])

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Setup logger with file logging
	l := logger.New(cfg.Verbose)
	logDir := config.GetDefaultLogPath()
	if err := os.MkdirAll(logDir, 0755); err == nil {
		logPath := filepath.Join(logDir, fmt.Sprintf("fmasearch-web-%d.log", time.Now().Unix()))
		if err := l.SetFileLog(logPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to setup file logging: %v\n", err)
		}
	}
	defer l.Close()

	sh := shutdown.New(context.Background())
	sh.Listen()

	client := backend.New(cfg.BackendURL, cfg.TextURL(), cfg.RequestTimeout)
	svc, err := session.New(cfg, client, l.Named("session"))
	if err != nil {
		l.Error("Failed to start search service: %v", err)
		os.Exit(1)
	}
	sh.AddCleanup(svc.Close)

	tracker := web.NewTracker()
	tracker.StartCleanup(sh.Context())
	server := web.NewServer(sh.Context(), tracker, svc, cfg, l.Named("web"))

	// HTTP server. No write timeout: websocket streams are long-lived.
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sh.AddCleanup(func() {
		l.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			l.Error("Server shutdown error: %v", err)
		}
	})

	l.Info("Starting web server on %s (backend %s)", cfg.ListenAddr, cfg.BackendURL)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("Server error: %v", err)
		sh.Shutdown()
		os.Exit(1)
	}

	// ListenAndServe returns as soon as Shutdown starts; wait for cleanups.
	<-sh.Context().Done()
	sh.Shutdown()
	l.Info("Server stopped")
}
