package snapset

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.db")

	s := NewStrings()
	for _, v := range []string{"value", "other", "zeta", "alpha"} {
		s.Insert(v)
	}

	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadStrings(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"alpha", "other", "value", "zeta"}
	elems := got.Elements()
	if len(elems) != len(want) {
		t.Fatalf("Elements = %v, want %v", elems, want)
	}
	for i := range want {
		if elems[i] != want[i] {
			t.Fatalf("Elements = %v, want %v", elems, want)
		}
	}
	if !got.Contains("value") {
		t.Fatal(`Contains("value") = false after load`)
	}
	if got.Contains("missing") {
		t.Fatal(`Contains("missing") = true after load`)
	}
}

func TestSaveLoad_EmptySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")

	if err := NewStrings().Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadStrings(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("Len = %d, want 0", got.Len())
	}
}

func TestSave_Idempotent(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.db")
	p2 := filepath.Join(dir, "b.db")

	s := NewStrings()
	s.Insert("one")
	s.Insert("two")

	if err := s.Save(p1); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(p2); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b1, err := os.ReadFile(p1)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	b2, err := os.ReadFile(p2)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("snapshots differ:\n%x\n%x", b1, b2)
	}
}

func TestSave_InsertOrderDoesNotChangeBytes(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.db")
	p2 := filepath.Join(dir, "b.db")

	s1 := NewStrings()
	for _, v := range []string{"x", "y", "z"} {
		s1.Insert(v)
	}
	s2 := NewStrings()
	for _, v := range []string{"z", "x", "y"} {
		s2.Insert(v)
	}

	if err := s1.Save(p1); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s2.Save(p2); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b1, _ := os.ReadFile(p1)
	b2, _ := os.ReadFile(p2)
	if !bytes.Equal(b1, b2) {
		t.Fatal("same set contents produced different snapshot bytes")
	}
}

func TestLoad_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.db")

	s := NewStrings()
	s.Insert("value")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)-1], 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = LoadStrings(path)
	if err == nil {
		t.Fatal("Load of truncated file succeeded")
	}
	if !IsCorrupt(err) {
		t.Fatalf("err = %v, want corrupt data", err)
	}
}

func TestLoad_BadMagicAndVersion(t *testing.T) {
	dir := t.TempDir()

	s := NewStrings()
	s.Insert("value")

	cases := []struct {
		name   string
		mutate func(b []byte)
	}{
		{"magic", func(b []byte) { b[0] = 'X' }},
		{"version", func(b []byte) { b[4] = 0xFF }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".db")
			if err := s.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			tc.mutate(data)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			_, err = LoadStrings(path)
			if !IsCorrupt(err) {
				t.Fatalf("err = %v, want corrupt data", err)
			}
		})
	}
}

func TestLoad_FlippedPayloadByte(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.db")

	s := NewStrings()
	s.Insert("value")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, _ := os.ReadFile(path)
	data[len(data)/2] ^= 0x01
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadStrings(path); !IsCorrupt(err) {
		t.Fatalf("err = %v, want corrupt data", err)
	}
}

func TestLoad_MissingFileIsIOError(t *testing.T) {
	_, err := LoadStrings(filepath.Join(t.TempDir(), "absent.db"))
	if err == nil {
		t.Fatal("Load of missing file succeeded")
	}
	if IsCorrupt(err) {
		t.Fatalf("err = %v, want plain I/O error", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want wrapped fs.ErrNotExist", err)
	}
}

func TestSave_InterruptedBeforeRename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.db")

	old := NewStrings()
	old.Insert("stable")
	if err := old.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Simulate a save that died between temp write and rename: the
	// temp file exists next to the target, but the rename never ran.
	next := NewStrings()
	next.Insert("halfway")
	if err := os.WriteFile(path+".tmp", next.Encode(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := LoadStrings(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Contains("stable") || got.Contains("halfway") {
		t.Fatalf("target was disturbed, elements = %v", got.Elements())
	}
}

func TestSave_FailureLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "set.db")

	s := NewStrings()
	s.Insert("value")

	err := s.Save(path)
	if err == nil {
		t.Fatal("Save into missing directory succeeded")
	}
	if IsCorrupt(err) {
		t.Fatalf("err = %v, want plain I/O error", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("Stat after failed save = %v, want not-exist", statErr)
	}
}

func TestEncodeDecode_RoundTripWithoutFiles(t *testing.T) {
	s := NewBytes()
	for _, v := range [][]byte{{3}, {1, 2}, {}, {0xFF, 0x00}} {
		s.Insert(v)
	}

	got, err := Decode(s.Encode(), s.less, s.codec)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Len() != s.Len() {
		t.Fatalf("Len = %d, want %d", got.Len(), s.Len())
	}
	for i, e := range s.Elements() {
		if !bytes.Equal(got.Elements()[i], e) {
			t.Fatalf("element %d = %v, want %v", i, got.Elements()[i], e)
		}
	}
}
