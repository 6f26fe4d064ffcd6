// Package syncer executes a sync plan against the target library.
//
// Work runs on a bounded worker pool. Every write lands in a hidden staging
// file next to its destination and is renamed into place only when complete,
// so an interrupted run never leaves a partial file where the next run would
// trust it. A record update is staged only after the rename succeeds, and the
// record file is flushed once at the end of the run.
//
// Failures are isolated per item: one bad file is reported and the rest of
// the run proceeds.
package syncer
