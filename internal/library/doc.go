// Package library walks a music library root, classifies what it finds, and
// probes audio files for the metadata the sync planner needs.
//
// Classification is extension-driven: audio, art, companion metadata (cue
// sheets, rip logs), and playlists. Dedicated album art is resolved per
// directory with a parent-directory fallback for multi-disc layouts. Probing
// runs on a bounded worker pool because reading tags is I/O bound; a file
// that cannot be probed becomes an entry carrying its error rather than
// aborting the walk.
package library
