// Package snapshot manages a directory of rotated set snapshots.
//
// Where a snapset.Set owns exactly one backing file, a Manager keeps a
// history: every checkpoint becomes a new timestamped file with a
// header, optional zstd compression, optional authenticated
// encryption, and a SHA-256 trailer. Loading walks from the newest
// snapshot backwards, skipping files that fail verification, so one
// corrupted checkpoint never loses the whole history. A retention
// policy prunes old files by count and age.
//
// The manager stores opaque snapshot images; callers typically pass
// the output of snapset's Encode and decode the loaded bytes the same
// way.
package snapshot
