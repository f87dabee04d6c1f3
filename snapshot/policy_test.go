package snapshot

import (
	"testing"
	"time"
)

func TestNeverAndAlwaysPolicy(t *testing.T) {
	var never Policy = NeverPolicy{}
	var always Policy = AlwaysPolicy{}

	for _, changes := range []int{0, 1, 1000} {
		if never.ShouldCreate(changes) {
			t.Fatalf("NeverPolicy.ShouldCreate(%d) = true", changes)
		}
		if !always.ShouldCreate(changes) {
			t.Fatalf("AlwaysPolicy.ShouldCreate(%d) = false", changes)
		}
	}
}

func TestEveryNChangesPolicy(t *testing.T) {
	p := EveryNChangesPolicy(10)

	if p.ShouldCreate(9) {
		t.Fatal("ShouldCreate(9) = true, want false")
	}
	if !p.ShouldCreate(10) {
		t.Fatal("ShouldCreate(10) = false, want true")
	}
	if !p.ShouldCreate(25) {
		t.Fatal("ShouldCreate(25) = false, want true")
	}
}

func TestMinIntervalPolicy(t *testing.T) {
	p := NewMinIntervalPolicy(time.Hour)

	if p.ShouldCreate(0) {
		t.Fatal("ShouldCreate with no pending changes = true")
	}
	if !p.ShouldCreate(1) {
		t.Fatal("first ShouldCreate = false, want true")
	}

	p.Created()

	if p.ShouldCreate(1) {
		t.Fatal("ShouldCreate immediately after Created = true")
	}
}

func TestMinIntervalPolicy_RecoversAfterInterval(t *testing.T) {
	p := NewMinIntervalPolicy(10 * time.Millisecond)

	if !p.ShouldCreate(1) {
		t.Fatal("first ShouldCreate = false, want true")
	}
	p.Created()

	time.Sleep(20 * time.Millisecond)

	if !p.ShouldCreate(1) {
		t.Fatal("ShouldCreate after interval elapsed = false, want true")
	}
}
