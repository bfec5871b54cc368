package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fmasearch/internal/config"
	"fmasearch/internal/search"
	"fmasearch/pkg/utils"
)

// Reference is a similarity operand resolved to a search input.
type Reference struct {
	Input search.Input
	// Path is the local audio file, when the operand named one.
	Path string
	file *os.File
}

// Close releases the opened audio file, if any.
func (r *Reference) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// OpenReference turns an operand into a search input. An existing file is
// opened for upload; anything else is passed on as a typed track id.
func OpenReference(ref string) (*Reference, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return &Reference{}, nil
	}

	path := config.ExpandHome(ref)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &Reference{Input: search.Input{TrackID: ref}}, nil
	}

	name := filepath.Base(path)
	if !utils.IsAudioFile(name) {
		return nil, search.New(search.InvalidReference, fmt.Sprintf("%s is not a supported audio file", name))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, search.Wrap(search.InvalidReference, "open "+name, err)
	}
	return &Reference{
		Input: search.Input{File: &search.File{Name: name, Body: f}},
		Path:  path,
		file:  f,
	}, nil
}
