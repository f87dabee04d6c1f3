package orderedset

import "github.com/google/btree"

// btreeDegree is the branching factor of the backing B-tree.
const btreeDegree = 16

// Less reports whether a sorts strictly before b.
//
// It must define a total order: antisymmetric, transitive, and total.
// Two elements a and b are considered equal when neither Less(a, b)
// nor Less(b, a) holds.
type Less[T any] func(a, b T) bool

// Set is an ordered set of unique elements.
type Set[T any] struct {
	tree *btree.BTreeG[T]
	less Less[T]
}

// New creates an empty set ordered by less.
func New[T any](less Less[T]) *Set[T] {
	return &Set[T]{
		tree: btree.NewG(btreeDegree, btree.LessFunc[T](less)),
		less: less,
	}
}

// Insert adds v to the set. It returns true if the set changed,
// false if an equal element was already present.
func (s *Set[T]) Insert(v T) bool {
	_, present := s.tree.ReplaceOrInsert(v)
	return !present
}

// Contains reports whether an element equal to v is in the set.
func (s *Set[T]) Contains(v T) bool {
	return s.tree.Has(v)
}

// Remove deletes the element equal to v. It returns true if the set
// changed, false if no such element was present.
func (s *Set[T]) Remove(v T) bool {
	_, present := s.tree.Delete(v)
	return present
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	return s.tree.Len()
}

// Ascend calls fn for every element in ascending order until fn
// returns false.
func (s *Set[T]) Ascend(fn func(v T) bool) {
	s.tree.Ascend(btree.ItemIteratorG[T](fn))
}

// Elements returns all elements in ascending order.
func (s *Set[T]) Elements() []T {
	out := make([]T, 0, s.tree.Len())
	s.tree.Ascend(func(v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Min returns the smallest element, if any.
func (s *Set[T]) Min() (T, bool) {
	return s.tree.Min()
}

// Max returns the largest element, if any.
func (s *Set[T]) Max() (T, bool) {
	return s.tree.Max()
}

// Less returns the total order the set was built with.
func (s *Set[T]) Less() Less[T] {
	return s.less
}

// Clone returns an independent copy of the set.
//
// The copy shares tree nodes with the original until either side
// mutates, so cloning is cheap even for large sets.
func (s *Set[T]) Clone() *Set[T] {
	return &Set[T]{tree: s.tree.Clone(), less: s.less}
}
