package snapset

import (
	"errors"
	"fmt"
)

// ErrCorruptData reports a snapshot that cannot be decoded: bad magic,
// unknown version, checksum mismatch, truncated or trailing bytes, or
// an element that fails to decode.
//
// Storage errors fall into exactly two kinds: decode failures match
// ErrCorruptData via errors.Is, and everything else wraps the
// underlying OS error from the failed file operation. No operation
// panics on malformed input.
var ErrCorruptData = errors.New("snapset: corrupt data")

// IsCorrupt reports whether err is a data corruption error rather than
// an I/O error.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptData)
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptData, fmt.Sprintf(format, args...))
}
