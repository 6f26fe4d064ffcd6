// Package ffprobe shells out to ffprobe and decodes the JSON it reports for
// audio files: codec, measured bitrate, embedded cover art, and the title tag.
package ffprobe
