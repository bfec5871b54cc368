package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Supported audio file extensions
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".opus": true,
	".wav":  true,
	".aac":  true,
	".ogg":  true,
}

// IsAudioFile reports whether name has a supported audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// CreateTempDir creates a temporary folder for uploads
func CreateTempDir() (string, error) {
	dir, err := os.MkdirTemp("", "fmasearch-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}
	return dir, nil
}

// Cleanup removes the temporary folder.
// Safety check: only deletes directories in /tmp
func Cleanup(dir string) error {
	if dir == "" {
		return nil
	}

	if !strings.HasPrefix(filepath.Clean(dir), filepath.Clean(os.TempDir())) {
		return fmt.Errorf("refusing to delete directory outside temp folder: %s", dir)
	}

	return os.RemoveAll(dir)
}

// SaveTemp copies r into a new temp directory under the base name of name
// and returns the file path. The caller removes it with Cleanup(filepath.Dir(path)).
func SaveTemp(r io.Reader, name string) (string, error) {
	dir, err := CreateTempDir()
	if err != nil {
		return "", err
	}

	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	path := filepath.Join(dir, base)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		Cleanup(dir)
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		Cleanup(dir)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		Cleanup(dir)
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}
