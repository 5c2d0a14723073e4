// Copyright 2025 TGP Authors
//
// Package codec implements the wire framing used to carry artifact.Tag
// values (and the out-of-band DH/encrypted envelope tags) over an unreliable
// transport: a 1-byte tag, a 4-byte big-endian length, and the payload.
// Encoding is total; decoding rejects anything malformed or oversized before
// it reaches the artifact layer.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/tgp-labs/tgp/pkg/tgperrors"
)

// FrameTag identifies the contents of a frame. The first six values mirror
// artifact.Tag; the next two are transport-level envelope tags and the last
// three carry BFT messages, none of which reach the artifact package.
type FrameTag byte

const (
	FrameCommitment      FrameTag = 0x01
	FrameDouble          FrameTag = 0x02
	FrameTriple          FrameTag = 0x03
	FrameQuad            FrameTag = 0x04
	FrameQuadConf        FrameTag = 0x05
	FrameQuadConfFinal   FrameTag = 0x06
	FrameDHContribution  FrameTag = 0x10
	FrameEncryptedPacket FrameTag = 0x20
	FrameBftProposal     FrameTag = 0x30
	FrameBftShare        FrameTag = 0x31
	FrameBftCommit       FrameTag = 0x32
)

// MaxFrameBytes bounds a single frame's payload, guarding against a
// malicious or corrupted length field forcing an unbounded allocation.
const MaxFrameBytes = 1 << 20

const headerSize = 1 + 4 // tag + big-endian length

// Frame is a decoded wire unit: a tag plus its raw payload. Higher layers
// are responsible for interpreting Payload as the artifact type Tag names.
type Frame struct {
	Tag     FrameTag
	Payload []byte
}

// Encode serializes a frame as tag(1) || len(4, BE) || payload. It never
// fails and does not check payload length; Decode enforces MaxFrameBytes.
func Encode(tag FrameTag, payload []byte) []byte {
	buf := make([]byte, 0, headerSize+len(payload))
	buf = append(buf, byte(tag))
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	buf = append(buf, length[:]...)
	return append(buf, payload...)
}

// Decode parses exactly one frame from the front of b and returns it along
// with the number of bytes consumed. It returns a CodecError for a short
// header, a length field exceeding MaxFrameBytes, or a payload shorter than
// the declared length.
func Decode(b []byte) (Frame, int, error) {
	if len(b) < headerSize {
		return Frame{}, 0, tgperrors.New(tgperrors.KindCodec, "frame shorter than header")
	}
	tag := FrameTag(b[0])
	length := binary.BigEndian.Uint32(b[1:headerSize])
	if length > MaxFrameBytes {
		return Frame{}, 0, tgperrors.New(tgperrors.KindCodec, fmt.Sprintf("frame length %d exceeds max %d", length, MaxFrameBytes))
	}
	total := headerSize + int(length)
	if len(b) < total {
		return Frame{}, 0, tgperrors.New(tgperrors.KindCodec, "frame payload truncated")
	}
	payload := make([]byte, length)
	copy(payload, b[headerSize:total])
	return Frame{Tag: tag, Payload: payload}, total, nil
}

// DecodeAll decodes every complete frame present in b, returning them in
// order along with any bytes left over (a partial trailing frame, for a
// stream transport to buffer and retry once more data arrives). It stops
// and returns an error on the first malformed frame rather than skipping it,
// since a corrupted length field desynchronizes all subsequent framing.
func DecodeAll(b []byte) ([]Frame, []byte, error) {
	var frames []Frame
	for len(b) > 0 {
		if len(b) < headerSize {
			break
		}
		length := binary.BigEndian.Uint32(b[1:headerSize])
		if length <= MaxFrameBytes && int(length) > len(b)-headerSize {
			break // partial frame, wait for more bytes
		}
		frame, n, err := Decode(b)
		if err != nil {
			return frames, b, err
		}
		frames = append(frames, frame)
		b = b[n:]
	}
	return frames, b, nil
}

func (t FrameTag) String() string {
	switch t {
	case FrameCommitment:
		return "COMMITMENT"
	case FrameDouble:
		return "DOUBLE"
	case FrameTriple:
		return "TRIPLE"
	case FrameQuad:
		return "QUAD"
	case FrameQuadConf:
		return "QUAD_CONFIRMATION"
	case FrameQuadConfFinal:
		return "QUAD_CONFIRMATION_FINAL"
	case FrameDHContribution:
		return "DH_CONTRIBUTION"
	case FrameEncryptedPacket:
		return "ENCRYPTED_PACKET"
	case FrameBftProposal:
		return "BFT_PROPOSAL"
	case FrameBftShare:
		return "BFT_SHARE"
	case FrameBftCommit:
		return "BFT_COMMIT"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", byte(t))
	}
}
