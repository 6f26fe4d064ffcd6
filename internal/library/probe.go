package library

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"pocketsync/internal/media/ffprobe"
)

// Prober extracts audio metadata from one file.
type Prober interface {
	Probe(ctx context.Context, absPath string) (Probe, error)
}

// MediaProber combines an in-process tag read with an ffprobe inspection.
// Tag parsing is cheap and covers title plus embedded pictures for the common
// containers; ffprobe supplies the codec and measured bitrate the format
// policy needs.
type MediaProber struct {
	FFprobeBinary string
}

func (p *MediaProber) Probe(ctx context.Context, absPath string) (Probe, error) {
	probe := Probe{}

	if f, err := os.Open(absPath); err == nil {
		if meta, err := tag.ReadFrom(f); err == nil {
			probe.Title = strings.TrimSpace(meta.Title())
			probe.HasEmbeddedArt = meta.Picture() != nil
		}
		f.Close()
	}

	result, err := ffprobe.Inspect(ctx, p.FFprobeBinary, absPath)
	if err != nil {
		return Probe{}, fmt.Errorf("probe %s: %w", absPath, err)
	}

	probe.Codec = normalizeCodec(result.AudioCodec())
	probe.BitrateKbps = result.AudioBitrateKbps()
	if probe.Title == "" {
		probe.Title = result.Title()
	}
	if !probe.HasEmbeddedArt {
		probe.HasEmbeddedArt = result.HasEmbeddedArt()
	}

	return probe, nil
}

// normalizeCodec folds ffprobe's per-variant names (pcm_s16le and friends)
// into the policy's codec vocabulary.
func normalizeCodec(codec string) string {
	if strings.HasPrefix(codec, "pcm") {
		return "pcm"
	}
	return codec
}
