package library

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a discovered file.
type Kind int

const (
	KindAudio Kind = iota
	KindArt
	KindCompanion
	KindPlaylist
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindArt:
		return "art"
	case KindCompanion:
		return "companion"
	case KindPlaylist:
		return "playlist"
	case KindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var audioExtensions = map[string]struct{}{
	"mp3":  {},
	"m4a":  {},
	"ogg":  {},
	"oga":  {},
	"opus": {},
	"flac": {},
	"wav":  {},
}

var artExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

var companionExtensions = map[string]struct{}{
	"cue":     {},
	"nfo":     {},
	"log":     {},
	"accurip": {},
	"lrc":     {},
	"lyrics":  {},
	"sfv":     {},
	"txt":     {},
}

var playlistExtensions = map[string]struct{}{
	"m3u":  {},
	"m3u8": {},
	"pls":  {},
}

// ClassifyPath buckets a file by its extension.
func ClassifyPath(path string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch {
	case ext == "":
		return KindUnknown
	case hasKey(audioExtensions, ext):
		return KindAudio
	case hasKey(artExtensions, ext):
		return KindArt
	case hasKey(companionExtensions, ext):
		return KindCompanion
	case hasKey(playlistExtensions, ext):
		return KindPlaylist
	default:
		return KindUnknown
	}
}

func hasKey(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// Probe is the metadata extracted from one audio file.
type Probe struct {
	Codec          string
	BitrateKbps    int
	Title          string
	HasEmbeddedArt bool
}

// Entry is one file discovered during a library walk. Entries are transient;
// they are rebuilt on every run and never persisted.
type Entry struct {
	// RelPath is the slash-separated path below the library root.
	RelPath string
	AbsPath string
	Kind    Kind

	SizeBytes int64
	ModTime   time.Time

	// Audio metadata, populated for KindAudio entries that probed cleanly.
	Codec          string
	BitrateKbps    int
	Title          string
	HasEmbeddedArt bool

	// ExternalArt is the absolute path of the dedicated album art chosen
	// for this entry's directory, empty when the album has none.
	ExternalArt string

	// Err records a read or probe failure. The entry still participates in
	// the plan as a failed item.
	Err error
}

// AlbumDir returns the slash-separated directory portion of RelPath, with "."
// for files directly under the root.
func (e Entry) AlbumDir() string {
	dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(e.RelPath)))
	return dir
}
