// Package plan diffs a scanned source library against the target's sync
// records and produces one decision per discovered file.
//
// Planning is pure: it reads the filesystem and the record store but writes
// nothing, so a dry run and a real run build identical plans. Every source
// path gets exactly one decision, and decisions for tracks in the same album
// directory always share one art outcome.
package plan
