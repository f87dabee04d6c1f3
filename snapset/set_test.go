package snapset

import (
	"testing"

	"github.com/yndnr/snapset-go/codec"
)

func TestSet_InsertDedup(t *testing.T) {
	s := NewStrings()

	if !s.Insert("value") {
		t.Fatal("first Insert = false, want true")
	}
	if s.Insert("value") {
		t.Fatal("duplicate Insert = true, want false")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	if got := s.Elements(); len(got) != 1 || got[0] != "value" {
		t.Fatalf("Elements = %v, want [value]", got)
	}
}

func TestSet_ContainsRemove(t *testing.T) {
	s := NewStrings()
	s.Insert("value")

	if !s.Contains("value") {
		t.Fatal(`Contains("value") = false, want true`)
	}
	if s.Contains("other") {
		t.Fatal(`Contains("other") = true, want false`)
	}

	if !s.Remove("value") {
		t.Fatal("Remove = false, want true")
	}
	if s.Remove("value") {
		t.Fatal("second Remove = true, want false")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
}

func TestSet_IterationFollowsOrder(t *testing.T) {
	s := NewStrings()
	for _, v := range []string{"pear", "apple", "mango", "apple"} {
		s.Insert(v)
	}

	want := []string{"apple", "mango", "pear"}
	got := s.Elements()
	if len(got) != len(want) {
		t.Fatalf("Elements = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Elements = %v, want %v", got, want)
		}
	}
}

func TestSet_GenericElementType(t *testing.T) {
	s := New(func(a, b uint64) bool { return a < b }, codec.Uint64())
	for _, v := range []uint64{42, 7, 42, 100} {
		s.Insert(v)
	}

	want := []uint64{7, 42, 100}
	got := s.Elements()
	if len(got) != len(want) {
		t.Fatalf("Elements = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Elements = %v, want %v", got, want)
		}
	}
}

func TestSet_CloneIsIndependent(t *testing.T) {
	s := NewStrings()
	s.Insert("a")

	c := s.Clone()
	c.Insert("b")

	if s.Len() != 1 {
		t.Fatalf("original Len = %d, want 1", s.Len())
	}
	if c.Len() != 2 {
		t.Fatalf("clone Len = %d, want 2", c.Len())
	}
}
