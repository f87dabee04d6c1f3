package snapset

import (
	"bytes"
	"strings"

	"github.com/yndnr/snapset-go/codec"
	"github.com/yndnr/snapset-go/orderedset"
)

// Set is an ordered set of unique elements that can be checkpointed to
// and restored from a snapshot file.
//
// Multiple independent sets may coexist in one process, each owning a
// distinct backing path.
type Set[T any] struct {
	elems *orderedset.Set[T]
	less  orderedset.Less[T]
	codec codec.Codec[T]
}

// New creates an empty set with no backing storage yet.
//
// less defines the total order used for uniqueness and serialization
// order; c encodes elements in the snapshot.
func New[T any](less orderedset.Less[T], c codec.Codec[T]) *Set[T] {
	return &Set[T]{
		elems: orderedset.New(less),
		less:  less,
		codec: c,
	}
}

// NewStrings creates an empty string set in lexicographic order.
func NewStrings() *Set[string] {
	return New(func(a, b string) bool { return strings.Compare(a, b) < 0 }, codec.String())
}

// NewBytes creates an empty byte-slice set in lexicographic order.
func NewBytes() *Set[[]byte] {
	return New(func(a, b []byte) bool { return bytes.Compare(a, b) < 0 }, codec.Bytes())
}

// Insert adds v if absent and returns whether the set changed.
// It has no side effect on storage.
func (s *Set[T]) Insert(v T) bool {
	return s.elems.Insert(v)
}

// Contains reports whether v is a member of the set.
func (s *Set[T]) Contains(v T) bool {
	return s.elems.Contains(v)
}

// Remove deletes v if present and returns whether the set changed.
func (s *Set[T]) Remove(v T) bool {
	return s.elems.Remove(v)
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	return s.elems.Len()
}

// Elements returns the members in ascending order.
func (s *Set[T]) Elements() []T {
	return s.elems.Elements()
}

// Ascend calls fn for each member in ascending order until fn returns
// false.
func (s *Set[T]) Ascend(fn func(v T) bool) {
	s.elems.Ascend(fn)
}

// Clone returns an independent copy of the set sharing the same order
// and codec.
func (s *Set[T]) Clone() *Set[T] {
	return &Set[T]{
		elems: s.elems.Clone(),
		less:  s.less,
		codec: s.codec,
	}
}
