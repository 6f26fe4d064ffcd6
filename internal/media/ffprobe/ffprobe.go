package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	BitRate     string            `json:"bit_rate"`
	SampleRate  string            `json:"sample_rate"`
	Channels    int               `json:"channels"`
	Disposition map[string]int    `json:"disposition"`
	Tags        map[string]string `json:"tags"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string            `json:"filename"`
	NBStreams  int               `json:"nb_streams"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON
// response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	return Parse(output)
}

// Parse decodes raw ffprobe JSON output.
func Parse(output []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// AudioStream returns the first audio stream, if any.
func (r Result) AudioStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			return stream, true
		}
	}
	return Stream{}, false
}

// AudioCodec returns the codec name of the first audio stream, or "".
func (r Result) AudioCodec() string {
	stream, ok := r.AudioStream()
	if !ok {
		return ""
	}
	return strings.ToLower(stream.CodecName)
}

// AudioBitrateKbps returns the measured audio bitrate in kbps. When the audio
// stream does not report one (common for FLAC and Vorbis) the container
// bitrate is used instead; it includes any picture stream and therefore reads
// slightly high, which can tip a borderline file from copy to transcode but
// never the other way.
func (r Result) AudioBitrateKbps() int {
	if stream, ok := r.AudioStream(); ok {
		if bps := parseInt(stream.BitRate); bps > 0 {
			return bps / 1000
		}
	}
	if bps := parseInt(r.Format.BitRate); bps > 0 {
		return bps / 1000
	}
	return 0
}

// HasEmbeddedArt reports whether the container carries a picture stream.
func (r Result) HasEmbeddedArt() bool {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		// Either an attached picture disposition or any video stream in an
		// audio container counts as embedded art.
		return true
	}
	return false
}

// Title returns the title tag, preferring container tags over stream tags.
// Tag case varies by container (FLAC often upper-cases keys).
func (r Result) Title() string {
	if title := lookupTag(r.Format.Tags, "title"); title != "" {
		return title
	}
	if stream, ok := r.AudioStream(); ok {
		return lookupTag(stream.Tags, "title")
	}
	return ""
}

func lookupTag(tags map[string]string, key string) string {
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parseInt(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
