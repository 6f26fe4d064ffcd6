// Package records persists per-file sync fingerprints inside the target
// library so later runs can skip unchanged files without re-reading them.
//
// The store is the single owner of the on-disk record file. Workers stage
// updates concurrently during execution; nothing touches disk until Flush,
// which replaces the file atomically via a temp file and rename. A corrupt or
// version-incompatible file surfaces ErrCorrupt and an empty store, so the
// caller can warn and fall back to full fingerprinting.
package records
