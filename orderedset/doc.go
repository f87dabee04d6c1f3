// Package orderedset provides a generic in-memory ordered set.
//
// Elements are unique under a caller-supplied total order, and
// iteration always follows that order rather than insertion order.
// The set is backed by a B-tree and is not safe for concurrent use;
// callers needing shared access must serialize externally.
package orderedset
