package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.senan.xyz/taglib"

	"fmasearch/internal/trackid"
)

// Extensions tried, in order, when locating a track in the local library.
var libraryExtensions = []string{".mp3", ".wav"}

const lyricsTag = "LYRICS"

// LocalLibrary reads tags from a local copy of the audio collection laid
// out the way the backend stores it: <dir>/<first 3 digits>/<id>.mp3.
type LocalLibrary struct {
	dir string
}

// NewLocalLibrary returns a lookup over dir, or nil when dir is empty.
func NewLocalLibrary(dir string) *LocalLibrary {
	if dir == "" {
		return nil
	}
	return &LocalLibrary{dir: dir}
}

func (l *LocalLibrary) Name() string { return "library" }

// Path returns the location of id's audio file, or an error wrapping
// os.ErrNotExist when no file is present.
func (l *LocalLibrary) Path(id trackid.ID) (string, error) {
	if id == "" {
		return "", fmt.Errorf("empty track id: %w", os.ErrNotExist)
	}
	base := filepath.Join(l.dir, id.Shard(), id.String())
	for _, ext := range libraryExtensions {
		p := base + ext
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no audio file for %s under %s: %w", id, l.dir, os.ErrNotExist)
}

func (l *LocalLibrary) Track(ctx context.Context, id trackid.ID) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	path, err := l.Path(id)
	if err != nil {
		return Record{}, err
	}
	rec, err := ReadFileTags(path)
	if err != nil {
		return Record{}, err
	}
	if !rec.HasDescription() {
		return Record{}, fmt.Errorf("%s has no title or artist tags", path)
	}
	rec.TrackID = id
	rec.Source = l.Name()
	return rec, nil
}

// ErrNoTags is returned by ReadFileTags when taglib cannot parse the file.
var ErrNoTags = errors.New("unreadable audio tags")

// ReadFileTags reads the descriptive tags of an audio file into a record.
func ReadFileTags(path string) (Record, error) {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read tags from %s: %w: %v", path, ErrNoTags, err)
	}

	artist := joinTag(tags, taglib.Artist)
	if artist == "" {
		artist = firstTag(tags, taglib.AlbumArtist)
	}

	return Record{
		Domain:        Audio,
		Title:         firstTag(tags, taglib.Title),
		Artist:        artist,
		Genre:         joinTag(tags, taglib.Genre),
		Year:          yearOf(firstTag(tags, taglib.Date)),
		Album:         firstTag(tags, taglib.Album),
		LyricsExcerpt: firstTag(tags, lyricsTag),
	}, nil
}
