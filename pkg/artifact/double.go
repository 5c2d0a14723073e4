// Copyright 2025 TGP Authors

package artifact

import (
	"github.com/tgp-labs/tgp/pkg/party"
	"github.com/tgp-labs/tgp/pkg/signer"
)

var bothCommittedLabel = []byte("BOTH_COMMITTED")

// Double is level 2 of the ladder: D_X embeds C_X and C_Y, proving "I know
// you've committed."
type Double struct {
	Party     party.Party
	Own       Commitment // C_X
	Other     Commitment // C_Y
	Signature signer.Signature
	PublicKey signer.PublicKey
}

// doubleSignedPayload is the payload signed to produce D_X:
// canonical(C_X) || canonical(C_Y) || "BOTH_COMMITTED".
func doubleSignedPayload(own, other Commitment) []byte {
	buf := append([]byte(nil), own.CanonicalBytes()...)
	buf = append(buf, other.CanonicalBytes()...)
	return append(buf, bothCommittedLabel...)
}

// NewDouble creates and signs a double proof. own must be this party's
// commitment and other the counterparty's.
func NewDouble(p party.Party, s *signer.Signer, own, other Commitment) Double {
	payload := doubleSignedPayload(own, other)
	return Double{
		Party:     p,
		Own:       own,
		Other:     other,
		Signature: s.Sign(payload),
		PublicKey: s.PublicKey(),
	}
}

func (d Double) CanonicalBytes() []byte {
	buf := []byte{byte(TagDouble), byte(d.Party)}
	buf = appendField(buf, d.Own.CanonicalBytes())
	buf = appendField(buf, d.Other.CanonicalBytes())
	buf = appendField(buf, d.Signature[:])
	buf = appendField(buf, d.PublicKey[:])
	return buf
}

func (d Double) Hash() [32]byte {
	return signer.Hash(d.CanonicalBytes())
}

// Verify checks the structural invariants (Own.Party == d.Party,
// Other.Party == ¬d.Party), the two embedded commitments, and the double's
// own signature, in that order — cheapest and most structural checks
// first, signature last.
func (d Double) Verify() error {
	if d.Own.Party != d.Party {
		return ErrWrongParty("double.own")
	}
	if d.Other.Party != d.Party.Other() {
		return ErrWrongParty("double.other")
	}
	if err := d.Own.Verify(); err != nil {
		return err
	}
	if err := d.Other.Verify(); err != nil {
		return err
	}
	payload := doubleSignedPayload(d.Own, d.Other)
	if !signer.Verify(d.PublicKey, payload, d.Signature) {
		return ErrBadSignature("double")
	}
	return nil
}

func (d Double) Equal(o Double) bool {
	return string(d.CanonicalBytes()) == string(o.CanonicalBytes())
}
