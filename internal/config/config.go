package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// Config contains the program configuration
type Config struct {
	BackendURL       string        `yaml:"backend_url"`
	TextBackendURL   string        `yaml:"text_backend_url"`
	AudioLimit       int           `yaml:"audio_limit"`
	TextLimit        int           `yaml:"text_limit"`
	FusionAlpha      float64       `yaml:"fusion_alpha"`
	UploadPredicates bool          `yaml:"upload_predicates"`
	LookupWorkers    int           `yaml:"lookup_workers"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	LibraryDir       string        `yaml:"library_dir"`
	ListenAddr       string        `yaml:"listen_addr"`
	Verbose          bool          `yaml:"verbose"`
	HistoryFile      string        `yaml:"history_file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BackendURL:     "http://127.0.0.1:8000",
		AudioLimit:     8,
		TextLimit:      10,
		FusionAlpha:    0.7,
		LookupWorkers:  4,
		RequestTimeout: 30 * time.Second,
		ListenAddr:     ":8080",
		HistoryFile:    filepath.Join(homeDir(), ".fmasearch_history"),
	}
}

// TextURL returns the base URL of the lyric search backend, which defaults
// to the main backend.
func (c Config) TextURL() string {
	if c.TextBackendURL != "" {
		return c.TextBackendURL
	}
	return c.BackendURL
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.LibraryDir = ExpandHome(cfg.LibraryDir)
	cfg.HistoryFile = ExpandHome(cfg.HistoryFile)

	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./fmasearch.yaml",
		"./fmasearch.yml",
		filepath.Join(home, ".config", "fmasearch", "config.yaml"),
		filepath.Join(home, ".config", "fmasearch", "config.yml"),
		filepath.Join(home, ".fmasearch.yaml"),
		filepath.Join(home, ".fmasearch.yml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the configuration to a YAML file. The file is
// replaced atomically so a crash never leaves a truncated config behind.
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "fmasearch", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(homeDir(), ".local", "share", "fmasearch", "logs")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validateURL("backend_url", c.BackendURL); err != nil {
		return err
	}
	if c.TextBackendURL != "" {
		if err := validateURL("text_backend_url", c.TextBackendURL); err != nil {
			return err
		}
	}

	if c.AudioLimit < 1 {
		return fmt.Errorf("audio_limit must be at least 1, got %d", c.AudioLimit)
	}
	if c.TextLimit < 1 {
		return fmt.Errorf("text_limit must be at least 1, got %d", c.TextLimit)
	}

	if c.FusionAlpha < 0 || c.FusionAlpha > 1 {
		return fmt.Errorf("fusion_alpha must be between 0.0 and 1.0, got %.2f", c.FusionAlpha)
	}

	if c.LookupWorkers < 1 {
		return fmt.Errorf("lookup_workers must be at least 1, got %d", c.LookupWorkers)
	}
	if c.LookupWorkers > 32 {
		return fmt.Errorf("lookup_workers cannot exceed 32, got %d", c.LookupWorkers)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}

	if c.LibraryDir != "" {
		info, err := os.Stat(c.LibraryDir)
		if err != nil {
			return fmt.Errorf("library_dir %s: %w", c.LibraryDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("library_dir %s is not a directory", c.LibraryDir)
		}
	}

	return nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", key)
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("%s must start with http:// or https://", key)
	}
	if _, err := url.Parse(raw); err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	return nil
}
