package format

import (
	"fmt"
	"strings"
)

// Verdict is the policy outcome for one source file.
type Verdict int

const (
	// VerdictCopy means the source is already at or below the requested
	// quality, so it is copied verbatim.
	VerdictCopy Verdict = iota
	// VerdictTranscode means the source exceeds the requested quality and
	// should be re-encoded.
	VerdictTranscode
)

func (v Verdict) String() string {
	switch v {
	case VerdictCopy:
		return "copy"
	case VerdictTranscode:
		return "transcode"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// sourceCodecs are the decodable input codecs, keyed by the codec name the
// prober reports. Lossless sources always transcode regardless of measured
// bitrate unless the target is judged higher.
var sourceCodecs = map[string]struct{}{
	"mp3":    {},
	"aac":    {},
	"alac":   {},
	"vorbis": {},
	"opus":   {},
	"flac":   {},
	"wav":    {},
	"pcm":    {},
}

// SupportedSource reports whether the detected source codec can be decoded.
func SupportedSource(codec string) bool {
	_, ok := sourceCodecs[strings.ToLower(strings.TrimSpace(codec))]
	return ok
}

// Decide compares the measured source quality against the requested target
// encoding. Quality comparison is total and deterministic: measured source
// kbps against the target's estimated-equivalent kbps. Equal quality resolves
// to VerdictCopy, preferring no re-encode.
func Decide(sourceCodec string, sourceKbps int, target Encoding) (Verdict, error) {
	if target == nil {
		return 0, fmt.Errorf("%w: no target encoding", ErrUnsupported)
	}
	if !SupportedSource(sourceCodec) {
		return 0, fmt.Errorf("%w: source codec %q", ErrUnsupported, sourceCodec)
	}
	if sourceKbps <= 0 {
		return 0, fmt.Errorf("%w: source bitrate unknown", ErrUnsupported)
	}
	if sourceKbps <= target.EquivalentKbps() {
		return VerdictCopy, nil
	}
	return VerdictTranscode, nil
}
