package snapset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yndnr/snapset-go/codec"
	"github.com/yndnr/snapset-go/orderedset"
)

// Snapshot wire format:
//
//	[magic:4]["SSET"] [version:1] [count:varint] [elements...] [crc32c:4]
//
// Elements appear in ascending order, each self-delimiting via its
// codec. The CRC-32C trailer covers everything before it.
var magic = []byte("SSET")

const (
	formatVersion = 1
	crcSize       = 4
	headerSize    = 5 // magic + version
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Encode serializes the set deterministically into a buffer sized to
// the content. Two calls on an unchanged set yield identical bytes.
func (s *Set[T]) Encode() []byte {
	buf := make([]byte, 0, headerSize+crcSize+s.elems.Len()*8)
	buf = append(buf, magic...)
	buf = append(buf, formatVersion)
	buf = protowire.AppendVarint(buf, uint64(s.elems.Len()))
	s.elems.Ascend(func(v T) bool {
		buf = s.codec.Append(buf, v)
		return true
	})

	var crc [crcSize]byte
	binary.BigEndian.PutUint32(crc[:], crc32.Checksum(buf, castagnoli))
	return append(buf, crc[:]...)
}

// Decode rebuilds a set from snapshot bytes.
//
// It fails with a corrupt-data error (see ErrCorruptData) if the
// magic or version is unknown, the checksum does not match, the
// declared element count does not match the bytes actually present,
// or any element fails to decode.
func Decode[T any](data []byte, less orderedset.Less[T], c codec.Codec[T]) (*Set[T], error) {
	if len(data) < headerSize+crcSize {
		return nil, corruptf("truncated snapshot: %d bytes", len(data))
	}
	if !bytes.Equal(data[:len(magic)], magic) {
		return nil, corruptf("invalid magic %q", data[:len(magic)])
	}
	if data[len(magic)] != formatVersion {
		return nil, corruptf("unsupported format version %d", data[len(magic)])
	}

	want := binary.BigEndian.Uint32(data[len(data)-crcSize:])
	if got := crc32.Checksum(data[:len(data)-crcSize], castagnoli); got != want {
		return nil, corruptf("checksum mismatch: computed %08x, stored %08x", got, want)
	}

	body := data[headerSize : len(data)-crcSize]
	count, n := protowire.ConsumeVarint(body)
	if n < 0 {
		return nil, corruptf("invalid element count")
	}
	off := n

	set := New(less, c)
	var prev T
	for i := uint64(0); i < count; i++ {
		v, n, err := c.Decode(body[off:])
		if err != nil {
			return nil, corruptf("element %d: %v", i, err)
		}
		if i > 0 && !less(prev, v) {
			return nil, corruptf("element %d out of order", i)
		}
		set.elems.Insert(v)
		prev = v
		off += n
	}
	if off != len(body) {
		return nil, corruptf("%d trailing bytes after %d elements", len(body)-off, count)
	}
	return set, nil
}

// Save serializes the set and atomically replaces the file at path.
//
// The snapshot is written to a temporary file in the same directory,
// synced, and renamed over path, so a crash mid-write leaves any
// previously valid file untouched. Save never mutates the in-memory
// set.
func (s *Set[T]) Save(path string) error {
	data := s.Encode()

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("snapset: create temp file: %w", err)
	}
	defer os.Remove(tmpPath)

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("snapset: write snapshot: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("snapset: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("snapset: close: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("snapset: rename: %w", err)
	}
	return nil
}

// Load reads the snapshot at path and rebuilds the set.
//
// On failure nothing visible to the caller changes: a set value is
// returned only when the whole file decodes cleanly. I/O failures
// wrap the underlying OS error; decode failures match ErrCorruptData.
func Load[T any](path string, less orderedset.Less[T], c codec.Codec[T]) (*Set[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapset: read snapshot: %w", err)
	}
	return Decode(data, less, c)
}

// LoadStrings loads a snapshot produced by a NewStrings set.
func LoadStrings(path string) (*Set[string], error) {
	s := NewStrings()
	return Load(path, s.less, s.codec)
}
