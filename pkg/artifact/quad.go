// Copyright 2025 TGP Authors

package artifact

import (
	"github.com/tgp-labs/tgp/pkg/party"
	"github.com/tgp-labs/tgp/pkg/signer"
)

var fixpointLabel = []byte("FIXPOINT_ACHIEVED")

// Quad is level 4 of the ladder, the epistemic fixpoint: Q_X embeds T_X and
// T_Y. The bilateral construction property holds because T_Y (embedded in
// Q_X) itself embeds D_X — so whoever holds a valid Q_X can prove the
// counterparty received D_X and is able to construct Q_Y.
type Quad struct {
	Party     party.Party
	Own       Triple // T_X
	Other     Triple // T_Y
	Signature signer.Signature
	PublicKey signer.PublicKey
}

func quadSignedPayload(own, other Triple) []byte {
	buf := append([]byte(nil), own.CanonicalBytes()...)
	buf = append(buf, other.CanonicalBytes()...)
	return append(buf, fixpointLabel...)
}

// NewQuad creates and signs a quad proof. own must be this party's triple
// and other the counterparty's.
func NewQuad(p party.Party, s *signer.Signer, own, other Triple) Quad {
	payload := quadSignedPayload(own, other)
	return Quad{
		Party:     p,
		Own:       own,
		Other:     other,
		Signature: s.Sign(payload),
		PublicKey: s.PublicKey(),
	}
}

func (q Quad) CanonicalBytes() []byte {
	buf := []byte{byte(TagQuad), byte(q.Party)}
	buf = appendField(buf, q.Own.CanonicalBytes())
	buf = appendField(buf, q.Other.CanonicalBytes())
	buf = appendField(buf, q.Signature[:])
	buf = appendField(buf, q.PublicKey[:])
	return buf
}

func (q Quad) Hash() [32]byte {
	return signer.Hash(q.CanonicalBytes())
}

// Verify checks party tags, recursively verifies both embedded triples,
// cross-checks that they agree on the same pair of doubles, and finally
// the quad's own signature.
func (q Quad) Verify() error {
	if q.Own.Party != q.Party {
		return ErrWrongParty("quad.own")
	}
	if q.Other.Party != q.Party.Other() {
		return ErrWrongParty("quad.other")
	}
	if err := q.Own.Verify(); err != nil {
		return err
	}
	if err := q.Other.Verify(); err != nil {
		return err
	}
	// T_X and T_Y must embed the same D_X and the same D_Y: T_X.Own ==
	// T_Y.Other (both D_X) and T_X.Other == T_Y.Own (both D_Y). Without
	// this, two internally-valid but mutually-inconsistent triples could
	// be stapled into a single, structurally-passing Quad.
	if !q.Own.Own.Equal(q.Other.Other) {
		return ErrInconsistentEmbedding("quad.embedded_double_own")
	}
	if !q.Own.Other.Equal(q.Other.Own) {
		return ErrInconsistentEmbedding("quad.embedded_double_other")
	}
	payload := quadSignedPayload(q.Own, q.Other)
	if !signer.Verify(q.PublicKey, payload, q.Signature) {
		return ErrBadSignature("quad")
	}
	return nil
}

func (q Quad) Equal(o Quad) bool {
	return string(q.CanonicalBytes()) == string(o.CanonicalBytes())
}

// VerifiesBilateralConstruction checks that Q_X's embedded T_Y in turn
// embeds this party's own double — the structural witness that Q_Y is
// constructible by the counterparty.
func (q Quad) VerifiesBilateralConstruction() bool {
	return q.Other.Other.Party == q.Party && q.Other.Other.Equal(q.Own.Own)
}

// ExtractChain returns the full six-artifact chain embedded in a Quad:
// C_X, C_Y, D_X, D_Y, T_X, T_Y, in that order.
func (q Quad) ExtractChain() (cOwn, cOther Commitment, dOwn, dOther Double, tOwn, tOther Triple) {
	tOwn = q.Own
	tOther = q.Other
	dOwn = tOwn.Own
	dOther = tOwn.Other
	cOwn = dOwn.Own
	cOther = dOwn.Other
	return
}
