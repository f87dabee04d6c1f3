// Package codec defines stable, self-delimiting binary encodings for
// set elements.
//
// Encodings use the protobuf wire primitives (varints and
// length-prefixed byte strings), so every encoded element carries its
// own length and concatenated elements can be decoded back without a
// separate framing layer. An encoding must be deterministic: encoding
// the same value always yields the same bytes.
package codec
