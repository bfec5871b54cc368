// Package trackid canonicalizes catalog track identifiers.
//
// The backend stores FMA tracks under fixed-width, zero-padded numeric ids
// ("034996"). User input and uploaded filenames rarely carry the padding, so
// everything that reaches the backend goes through Normalize first.
package trackid

import (
	"path/filepath"
	"strings"
)

// Width is the fixed width of a numeric catalog identifier.
const Width = 6

// ID is a normalized track identifier.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Shard returns the directory bucket the backend uses for id
// (AUDIO_DIR/<shard>/<id>.mp3). Short ids return themselves.
func (id ID) Shard() string {
	if len(id) < 3 {
		return string(id)
	}
	return string(id[:3])
}

// Normalize trims raw and, if it is made only of decimal digits, left-pads it
// with '0' to Width. Longer digit strings are left as they are and anything
// else passes through trimmed.
func Normalize(raw string) ID {
	s := strings.TrimSpace(raw)
	if !allDigits(s) {
		return ID(s)
	}
	if len(s) >= Width {
		return ID(s)
	}
	return ID(strings.Repeat("0", Width-len(s)) + s)
}

// LooksLikeCatalogStem reports whether stem is a 1-6 digit catalog id.
// A 7+ digit stem normalizes fine but is not a catalog reference.
func LooksLikeCatalogStem(stem string) bool {
	return len(stem) >= 1 && len(stem) <= Width && allDigits(stem)
}

// Stem returns the base name of filename without its last extension.
// Dotfiles such as ".hidden" keep their name.
func Stem(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
