// Copyright 2025 TGP Authors

package flood

import (
	"fmt"

	"github.com/tgp-labs/tgp/pkg/artifact"
	"github.com/tgp-labs/tgp/pkg/codec"
)

// encodeOutbound wraps whichever artifact type ladder.Outbound returned in
// its tagged wire frame.
func encodeOutbound(a any) ([]byte, error) {
	switch v := a.(type) {
	case artifact.Commitment:
		return codec.Encode(codec.FrameCommitment, v.CanonicalBytes()), nil
	case artifact.Double:
		return codec.Encode(codec.FrameDouble, v.CanonicalBytes()), nil
	case artifact.Triple:
		return codec.Encode(codec.FrameTriple, v.CanonicalBytes()), nil
	case artifact.Quad:
		return codec.Encode(codec.FrameQuad, v.CanonicalBytes()), nil
	case artifact.QuadConfirmation:
		return codec.Encode(codec.FrameQuadConf, v.CanonicalBytes()), nil
	case artifact.QuadConfirmationFinal:
		return codec.Encode(codec.FrameQuadConfFinal, v.CanonicalBytes()), nil
	default:
		return nil, fmt.Errorf("flood: unrecognized outbound artifact type %T", a)
	}
}

// decodeFrame parses a frame's payload into the artifact type its tag
// names, ready for ladder.Receive.
func decodeFrame(frame codec.Frame) (any, error) {
	switch frame.Tag {
	case codec.FrameCommitment:
		return artifact.ParseCommitment(frame.Payload)
	case codec.FrameDouble:
		return artifact.ParseDouble(frame.Payload)
	case codec.FrameTriple:
		return artifact.ParseTriple(frame.Payload)
	case codec.FrameQuad:
		return artifact.ParseQuad(frame.Payload)
	case codec.FrameQuadConf:
		return artifact.ParseQuadConfirmation(frame.Payload)
	case codec.FrameQuadConfFinal:
		return artifact.ParseQuadConfirmationFinal(frame.Payload)
	default:
		return nil, fmt.Errorf("flood: unrecognized frame tag %v", frame.Tag)
	}
}
