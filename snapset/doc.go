// Package snapset implements a persistent ordered set with explicit
// whole-snapshot checkpointing.
//
// All mutation happens on the in-memory structure; persistence is a
// deliberate call to Save, which serializes the full set in ascending
// order and atomically replaces the backing file (temp write, fsync,
// rename). Load reads a snapshot file back into a fresh set and never
// touches the caller's existing state on failure.
//
// The package is single-threaded by design: Save and Load block, no
// background flushing happens, and callers sharing a set or a path
// across goroutines must serialize access themselves.
package snapset
