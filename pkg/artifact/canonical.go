// Copyright 2025 TGP Authors
//
// Package artifact implements the proof-stapling epistemic ladder: the
// nested, signed structures C, D, T, Q (plus the V3 confirmation levels QC
// and QCF) that the ladder and BFT cores build on. Canonical encoding here
// is total, injective per variant, and byte-deterministic across hosts —
// it is what gets hashed and signed, so it must never change shape for a
// released tag.
package artifact

import (
	"encoding/binary"
	"fmt"
)

// Tag values identify the artifact variant, shared with the wire codec.
type Tag byte

const (
	TagCommitment    Tag = 0x01
	TagDouble        Tag = 0x02
	TagTriple        Tag = 0x03
	TagQuad          Tag = 0x04
	TagQuadConf      Tag = 0x05
	TagQuadConfFinal Tag = 0x06
)

// appendField appends a length-prefixed (4-byte big-endian) field so that
// concatenation of canonical encodings can never be ambiguous, regardless
// of what the field bytes happen to contain.
func appendField(buf []byte, field []byte) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(field)))
	buf = append(buf, length[:]...)
	return append(buf, field...)
}

// readField is the inverse of appendField: it reads one length-prefixed
// field from the front of buf and returns it along with the remainder.
func readField(buf []byte) (field []byte, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("artifact: truncated field length")
	}
	length := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint64(length) > uint64(len(buf)) {
		return nil, nil, fmt.Errorf("artifact: truncated field body")
	}
	return buf[:length], buf[length:], nil
}

// expectTag reads the 1-byte tag and 1-byte party octet common to every
// artifact encoding and checks the tag matches want.
func expectTag(buf []byte, want Tag) (p byte, rest []byte, err error) {
	if len(buf) < 2 {
		return 0, nil, fmt.Errorf("artifact: truncated header")
	}
	if Tag(buf[0]) != want {
		return 0, nil, fmt.Errorf("artifact: tag mismatch: got 0x%02x, want 0x%02x", buf[0], want)
	}
	return buf[1], buf[2:], nil
}
