// Copyright 2025 TGP Authors

package artifact

import (
	"github.com/tgp-labs/tgp/pkg/party"
	"github.com/tgp-labs/tgp/pkg/signer"
)

// Commitment is level 1 of the ladder: C_X = Sign_X(message).
type Commitment struct {
	Party     party.Party
	Message   []byte
	Signature signer.Signature
	PublicKey signer.PublicKey
}

// NewCommitment creates and signs a commitment over message octets.
func NewCommitment(p party.Party, s *signer.Signer, message []byte) Commitment {
	return Commitment{
		Party:     p,
		Message:   append([]byte(nil), message...),
		Signature: s.Sign(message),
		PublicKey: s.PublicKey(),
	}
}

// CanonicalBytes is the total, injective encoding used for hashing and for
// embedding inside higher-level artifacts.
func (c Commitment) CanonicalBytes() []byte {
	buf := []byte{byte(TagCommitment), byte(c.Party)}
	buf = appendField(buf, c.Message)
	buf = appendField(buf, c.Signature[:])
	buf = appendField(buf, c.PublicKey[:])
	return buf
}

// Hash is the 32-octet digest of the canonical encoding.
func (c Commitment) Hash() [32]byte {
	return signer.Hash(c.CanonicalBytes())
}

// Verify checks the embedded signature over the message octets. It does
// not check the party tag against an expected value; callers embedding a
// Commitment inside a higher artifact are responsible for that (it varies
// by embedding position — own vs. other).
func (c Commitment) Verify() error {
	if !signer.Verify(c.PublicKey, c.Message, c.Signature) {
		return ErrBadSignature("commitment")
	}
	return nil
}

// Equal reports whether two commitments are byte-identical.
func (c Commitment) Equal(o Commitment) bool {
	return string(c.CanonicalBytes()) == string(o.CanonicalBytes())
}
