// Copyright 2025 TGP Authors

package codec

import (
	"github.com/tgp-labs/tgp/pkg/artifact"
)

// EncodeArtifact wraps any of the six artifact CanonicalBytes()-producing
// types in a tagged frame ready for transport.
func EncodeArtifact(tag FrameTag, canonicalBytes []byte) []byte {
	return Encode(tag, canonicalBytes)
}

// TagForArtifact maps an artifact.Tag to its wire FrameTag. The two enums
// are numerically identical today; the mapping function exists so a future
// divergence between the artifact and wire tag spaces doesn't require
// touching every call site.
func TagForArtifact(t artifact.Tag) FrameTag {
	return FrameTag(t)
}
