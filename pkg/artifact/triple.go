// Copyright 2025 TGP Authors

package artifact

import (
	"github.com/tgp-labs/tgp/pkg/party"
	"github.com/tgp-labs/tgp/pkg/signer"
)

var bothHaveDoubleLabel = []byte("BOTH_HAVE_DOUBLE")

// Triple is level 3 of the ladder: T_X embeds D_X and D_Y, proving "I know
// that you know I've committed." Receiving T_Y gives D_Y (and so C_Y) for
// free — this is the embedding that drives the cascade.
type Triple struct {
	Party     party.Party
	Own       Double // D_X
	Other     Double // D_Y
	Signature signer.Signature
	PublicKey signer.PublicKey
}

func tripleSignedPayload(own, other Double) []byte {
	buf := append([]byte(nil), own.CanonicalBytes()...)
	buf = append(buf, other.CanonicalBytes()...)
	return append(buf, bothHaveDoubleLabel...)
}

// NewTriple creates and signs a triple proof. own must be this party's
// double and other the counterparty's.
func NewTriple(p party.Party, s *signer.Signer, own, other Double) Triple {
	payload := tripleSignedPayload(own, other)
	return Triple{
		Party:     p,
		Own:       own,
		Other:     other,
		Signature: s.Sign(payload),
		PublicKey: s.PublicKey(),
	}
}

func (t Triple) CanonicalBytes() []byte {
	buf := []byte{byte(TagTriple), byte(t.Party)}
	buf = appendField(buf, t.Own.CanonicalBytes())
	buf = appendField(buf, t.Other.CanonicalBytes())
	buf = appendField(buf, t.Signature[:])
	buf = appendField(buf, t.PublicKey[:])
	return buf
}

func (t Triple) Hash() [32]byte {
	return signer.Hash(t.CanonicalBytes())
}

// Verify checks party tags, recursively verifies both embedded doubles,
// cross-checks that they agree on the same pair of commitments, and
// finally the triple's own signature.
func (t Triple) Verify() error {
	if t.Own.Party != t.Party {
		return ErrWrongParty("triple.own")
	}
	if t.Other.Party != t.Party.Other() {
		return ErrWrongParty("triple.other")
	}
	if err := t.Own.Verify(); err != nil {
		return err
	}
	if err := t.Other.Verify(); err != nil {
		return err
	}
	// D_X and D_Y must embed the same C_X and the same C_Y: D_X.Own ==
	// D_Y.Other (both C_X) and D_X.Other == D_Y.Own (both C_Y). Without
	// this, two internally-valid but mutually-inconsistent doubles could
	// be stapled into a single, structurally-passing Triple.
	if !t.Own.Own.Equal(t.Other.Other) {
		return ErrInconsistentEmbedding("triple.embedded_commitment_own")
	}
	if !t.Own.Other.Equal(t.Other.Own) {
		return ErrInconsistentEmbedding("triple.embedded_commitment_other")
	}
	payload := tripleSignedPayload(t.Own, t.Other)
	if !signer.Verify(t.PublicKey, payload, t.Signature) {
		return ErrBadSignature("triple")
	}
	return nil
}

func (t Triple) Equal(o Triple) bool {
	return string(t.CanonicalBytes()) == string(o.CanonicalBytes())
}
