// Package ffmpeg wraps the ffmpeg command line for transcoding and
// stream-copy remuxing, including embedding and stripping album art.
//
// Argument construction is separated from process execution so the exact
// command for every encoding and art combination is unit-testable without
// ffmpeg installed.
package ffmpeg
