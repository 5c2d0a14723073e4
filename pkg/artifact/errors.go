// Copyright 2025 TGP Authors

package artifact

import "github.com/tgp-labs/tgp/pkg/tgperrors"

// Verification failures, in order of increasing severity per the design:
// a wrong party tag is the cheapest structural check, embedding
// inconsistency requires comparing nested artifacts, and a bad signature
// is the most expensive (and most severe) check, run last.

// ErrWrongParty reports a party tag that does not match what the artifact
// variant requires (e.g. D_X.party == Y).
func ErrWrongParty(detail string) error {
	return tgperrors.New(tgperrors.KindStructuralInvalid, "wrong party: "+detail)
}

// ErrInconsistentEmbedding reports a nested artifact that does not match
// another copy of the same artifact: one embedded elsewhere in the same
// structure, a recomputed hash, or one the receiver already holds.
func ErrInconsistentEmbedding(detail string) error {
	return tgperrors.New(tgperrors.KindStructuralInvalid, "inconsistent embedding: "+detail)
}

// ErrBadSignature reports a signature that fails verification.
func ErrBadSignature(detail string) error {
	return tgperrors.New(tgperrors.KindSignatureInvalid, "bad signature: "+detail)
}
