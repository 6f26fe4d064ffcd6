package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"pocketsync/internal/art"
	"pocketsync/internal/format"
)

var commandContext = exec.CommandContext

// Job describes one ffmpeg invocation: either a transcode into Encoding or,
// when Encoding is nil, a stream-copy remux that only rewrites art.
type Job struct {
	Input  string
	Output string
	// Encoding selects the audio codec arguments. Nil means -c:a copy.
	Encoding format.Encoding
	// Embed selects what art ends up inside Output.
	Embed art.EmbedSource
	// ArtFile is the image embedded when Embed is art.EmbedFromFile.
	ArtFile string
}

// Client runs ffmpeg jobs.
type Client interface {
	Run(ctx context.Context, job Job) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the ffmpeg command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Run executes one job. ffmpeg writes directly to job.Output, which callers
// point at a staging path so a killed process never leaves a partial file at
// the final location.
func (c *CLI) Run(ctx context.Context, job Job) error {
	args, err := BuildArgs(job)
	if err != nil {
		return err
	}

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String(), 4))
	}
	return nil
}

// BuildArgs translates a job into the ffmpeg argument list.
func BuildArgs(job Job) ([]string, error) {
	if job.Input == "" {
		return nil, errors.New("input path required")
	}
	if job.Output == "" {
		return nil, errors.New("output path required")
	}
	if job.Embed == art.EmbedFromFile && job.ArtFile == "" {
		return nil, errors.New("art file required for file embedding")
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", job.Input}

	embed := job.Embed
	if embed == art.EmbedFromFile && !supportsAttachedPic(job) {
		// Ogg containers take no attached-picture stream; the art file
		// travels alongside instead.
		embed = art.EmbedNone
	}

	switch embed {
	case art.EmbedFromFile:
		args = append(args, "-i", job.ArtFile,
			"-map", "0:a", "-map", "1:0",
			"-c:v", "copy",
			"-disposition:v", "attached_pic")
	case art.EmbedExisting:
		args = append(args, "-map", "0:a", "-map", "0:v?", "-c:v", "copy")
	case art.EmbedNone:
		args = append(args, "-map", "0:a", "-vn")
	default:
		return nil, fmt.Errorf("unknown embed source %v", job.Embed)
	}

	args = append(args, "-map_metadata", "0")

	codecArgs, err := audioArgs(job.Encoding)
	if err != nil {
		return nil, err
	}
	args = append(args, codecArgs...)

	if outputIsMP3(job) {
		args = append(args, "-id3v2_version", "3")
	}

	return append(args, job.Output), nil
}

func audioArgs(enc format.Encoding) ([]string, error) {
	switch e := enc.(type) {
	case nil:
		return []string{"-c:a", "copy"}, nil
	case format.Mp3CBR:
		return []string{"-c:a", "libmp3lame", "-b:a", strconv.Itoa(e.BitrateKbps) + "k"}, nil
	case format.Mp3VBR:
		return []string{"-c:a", "libmp3lame", "-q:a", strconv.Itoa(e.Quality)}, nil
	case format.Opus:
		return []string{"-c:a", "libopus",
			"-b:a", strconv.Itoa(e.BitrateKbps) + "k",
			"-compression_level", strconv.Itoa(e.Complexity)}, nil
	case format.Vorbis:
		return []string{"-c:a", "libvorbis", "-qscale:a", strconv.FormatFloat(e.Quality, 'f', -1, 64)}, nil
	case format.Flac:
		return []string{"-c:a", "flac", "-compression_level", strconv.Itoa(e.Level)}, nil
	default:
		return nil, fmt.Errorf("%w: no encoder arguments for %s", format.ErrUnsupported, enc.Name())
	}
}

func supportsAttachedPic(job Job) bool {
	switch extensionOf(job) {
	case "ogg", "oga", "opus":
		return false
	default:
		return true
	}
}

func outputIsMP3(job Job) bool {
	return extensionOf(job) == "mp3"
}

// extensionOf prefers the encoding's declared extension; a remux keeps the
// output path's own extension.
func extensionOf(job Job) string {
	if job.Encoding != nil {
		return job.Encoding.Extension()
	}
	ext := strings.ToLower(job.Output)
	if i := strings.LastIndex(ext, "."); i >= 0 {
		return ext[i+1:]
	}
	return ""
}

func tail(s string, lines int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "no diagnostic output"
	}
	parts := strings.Split(s, "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, "; ")
}

var _ Client = (*CLI)(nil)
