package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Codec encodes and decodes values of type T.
//
// Append and Decode must round-trip: Decode(Append(nil, v)) yields a
// value equal to v and consumes exactly the appended bytes.
type Codec[T any] interface {
	// Append appends the encoding of v to dst and returns the
	// extended buffer.
	Append(dst []byte, v T) []byte

	// Decode decodes one value from the front of b, returning the
	// value and the number of bytes consumed.
	Decode(b []byte) (v T, n int, err error)
}

// String returns a codec for strings, encoded as length-prefixed UTF-8
// bytes.
func String() Codec[string] { return stringCodec{} }

// Bytes returns a codec for byte slices, encoded as length-prefixed
// bytes. Decoded slices are copies and do not alias the input buffer.
func Bytes() Codec[[]byte] { return bytesCodec{} }

// Uint64 returns a codec for unsigned integers, encoded as varints.
func Uint64() Codec[uint64] { return uint64Codec{} }

// Int64 returns a codec for signed integers, encoded as zig-zag
// varints.
func Int64() Codec[int64] { return int64Codec{} }

type stringCodec struct{}

func (stringCodec) Append(dst []byte, v string) []byte {
	return protowire.AppendString(dst, v)
}

func (stringCodec) Decode(b []byte) (string, int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", 0, fmt.Errorf("codec: decode string: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

type bytesCodec struct{}

func (bytesCodec) Append(dst []byte, v []byte) []byte {
	return protowire.AppendBytes(dst, v)
}

func (bytesCodec) Decode(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("codec: decode bytes: %w", protowire.ParseError(n))
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}

type uint64Codec struct{}

func (uint64Codec) Append(dst []byte, v uint64) []byte {
	return protowire.AppendVarint(dst, v)
}

func (uint64Codec) Decode(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("codec: decode uint64: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

type int64Codec struct{}

func (int64Codec) Append(dst []byte, v int64) []byte {
	return protowire.AppendVarint(dst, protowire.EncodeZigZag(v))
}

func (int64Codec) Decode(b []byte) (int64, int, error) {
	u, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("codec: decode int64: %w", protowire.ParseError(n))
	}
	return protowire.DecodeZigZag(u), n, nil
}
