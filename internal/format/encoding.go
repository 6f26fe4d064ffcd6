package format

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnsupported indicates a format or parameter combination the policy
// cannot reconcile. Items failing with it are reported individually; the run
// continues.
var ErrUnsupported = errors.New("unsupported format")

// Encoding is one concrete output encoding with its resolved parameters.
// Implementations are value types so they can be carried inside sync
// decisions and serialized into records.
type Encoding interface {
	// Name returns the stable identifier used on the CLI and in records,
	// e.g. "mp3-vbr".
	Name() string
	// Extension returns the target file extension without the dot.
	Extension() string
	// EquivalentKbps estimates the bitrate this encoding produces, for
	// comparison against measured source bitrates.
	EquivalentKbps() int
	// Describe returns the human-readable parameter summary stored in
	// records, e.g. "mp3-vbr q3".
	Describe() string
}

// Mp3CBR is constant-bitrate MP3.
type Mp3CBR struct {
	BitrateKbps int
}

func (e Mp3CBR) Name() string        { return "mp3-cbr" }
func (e Mp3CBR) Extension() string   { return "mp3" }
func (e Mp3CBR) EquivalentKbps() int { return e.BitrateKbps }
func (e Mp3CBR) Describe() string    { return fmt.Sprintf("mp3-cbr %dk", e.BitrateKbps) }

// Mp3VBR is variable-bitrate MP3 driven by a LAME quality factor (0 best, 9
// smallest).
type Mp3VBR struct {
	Quality int
}

// mp3VBRKbps maps LAME -V levels to the average bitrates documented on the
// ffmpeg MP3 encoding guide.
var mp3VBRKbps = [...]int{245, 225, 190, 175, 165, 130, 115, 100, 85, 65}

func (e Mp3VBR) Name() string      { return "mp3-vbr" }
func (e Mp3VBR) Extension() string { return "mp3" }

func (e Mp3VBR) EquivalentKbps() int {
	if e.Quality < 0 || e.Quality >= len(mp3VBRKbps) {
		return 0
	}
	return mp3VBRKbps[e.Quality]
}

func (e Mp3VBR) Describe() string { return fmt.Sprintf("mp3-vbr q%d", e.Quality) }

// Opus encodes with libopus at a nominal bitrate. Complexity trades encode
// time for quality without affecting size.
type Opus struct {
	BitrateKbps int
	Complexity  int
}

func (e Opus) Name() string        { return "opus" }
func (e Opus) Extension() string   { return "opus" }
func (e Opus) EquivalentKbps() int { return e.BitrateKbps }
func (e Opus) Describe() string {
	return fmt.Sprintf("opus %dk c%d", e.BitrateKbps, e.Complexity)
}

// Vorbis encodes with libvorbis at a quality factor from -1.0 to 10.0.
type Vorbis struct {
	Quality float64
}

func (e Vorbis) Name() string      { return "vorbis" }
func (e Vorbis) Extension() string { return "ogg" }

// EquivalentKbps follows the piecewise-linear mapping from the ffmpeg
// Theora/Vorbis encoding guide.
func (e Vorbis) EquivalentKbps() int {
	q := e.Quality
	var kbps float64
	switch {
	case q < 4:
		kbps = 16 * (q + 4)
	case q < 8:
		kbps = 32 * q
	default:
		kbps = 64 * (q - 4)
	}
	return int(math.Round(kbps))
}

func (e Vorbis) Describe() string { return fmt.Sprintf("vorbis q%.1f", e.Quality) }

// Flac re-compresses losslessly. Level trades encode time for size (0-12).
type Flac struct {
	Level int
}

// flacEquivalentKbps pegs lossless output well above any sane lossy target so
// already-lossy sources are copied rather than inflated.
const flacEquivalentKbps = 800

func (e Flac) Name() string        { return "flac" }
func (e Flac) Extension() string   { return "flac" }
func (e Flac) EquivalentKbps() int { return flacEquivalentKbps }
func (e Flac) Describe() string    { return fmt.Sprintf("flac l%d", e.Level) }

// Params carries optional CLI parameter overrides for Parse. Zero values fall
// back to per-format defaults.
type Params struct {
	BitrateKbps int
	Quality     float64
	QualitySet  bool
	Complexity  int
}

// Parse resolves a format name plus parameter overrides into a concrete
// encoding. Unknown names and out-of-range parameters fail with
// ErrUnsupported.
func Parse(name string, params Params) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mp3-cbr":
		bitrate := params.BitrateKbps
		if bitrate == 0 {
			bitrate = 180
		}
		if bitrate < 8 || bitrate > 320 {
			return nil, fmt.Errorf("%w: mp3-cbr bitrate %dk out of range", ErrUnsupported, bitrate)
		}
		return Mp3CBR{BitrateKbps: bitrate}, nil
	case "mp3-vbr":
		quality := 3
		if params.QualitySet {
			quality = int(params.Quality)
		}
		if quality < 0 || quality > 9 {
			return nil, fmt.Errorf("%w: mp3-vbr quality %d out of range", ErrUnsupported, quality)
		}
		return Mp3VBR{Quality: quality}, nil
	case "opus":
		bitrate := params.BitrateKbps
		if bitrate == 0 {
			bitrate = 180
		}
		complexity := params.Complexity
		if complexity == 0 {
			complexity = 3
		}
		if complexity < 0 || complexity > 10 {
			return nil, fmt.Errorf("%w: opus complexity %d out of range", ErrUnsupported, complexity)
		}
		return Opus{BitrateKbps: bitrate, Complexity: complexity}, nil
	case "vorbis":
		quality := 10.0
		if params.QualitySet {
			quality = params.Quality
		}
		if quality < -1 || quality > 10 {
			return nil, fmt.Errorf("%w: vorbis quality %.1f out of range", ErrUnsupported, quality)
		}
		return Vorbis{Quality: quality}, nil
	case "flac":
		level := 10
		if params.QualitySet {
			level = int(params.Quality)
		}
		if level < 0 || level > 12 {
			return nil, fmt.Errorf("%w: flac level %d out of range", ErrUnsupported, level)
		}
		return Flac{Level: level}, nil
	default:
		return nil, fmt.Errorf("%w: unknown output format %q", ErrUnsupported, name)
	}
}

// Names lists the format identifiers Parse accepts, for CLI help.
func Names() []string {
	return []string{"mp3-cbr", "mp3-vbr", "opus", "vorbis", "flac"}
}
