// Package preflight validates the environment before a sync run touches
// anything: both roots, external binaries, free space, and the guardrail
// against accidentally swapped source and target roots.
package preflight
