// Package format describes the output encodings pocketsync can produce and
// decides, per source file, whether transcoding is worthwhile.
//
// Every encoding maps to an estimated-equivalent bitrate so constant-bitrate,
// quality-factor, and lossless sources can be compared on one axis. The
// equivalence constants come from the ffmpeg encoding guides and are fixed;
// the comparison is deliberately coarse rather than perceptual. Ties resolve
// to copying, never to re-encoding.
package format
