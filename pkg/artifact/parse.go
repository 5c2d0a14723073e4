// Copyright 2025 TGP Authors
//
// Parse functions are the exact inverse of each artifact's CanonicalBytes:
// together they let the wire codec round-trip an artifact through a
// transport without the receiver ever trusting unverified structure —
// ParseX never calls Verify itself, since a caller may want to inspect an
// artifact (e.g. to cascade-extract nested commitments) before committing
// to the cost of full signature verification.
package artifact

import (
	"fmt"

	"github.com/tgp-labs/tgp/pkg/party"
	"github.com/tgp-labs/tgp/pkg/signer"
)

func parsePartyAndFields(buf []byte, tag Tag, nFields int) (p party.Party, fields [][]byte, err error) {
	rawParty, rest, err := expectTag(buf, tag)
	if err != nil {
		return 0, nil, err
	}
	p = party.Party(rawParty)
	fields = make([][]byte, 0, nFields)
	for i := 0; i < nFields; i++ {
		var f []byte
		f, rest, err = readField(rest)
		if err != nil {
			return 0, nil, fmt.Errorf("artifact: field %d: %w", i, err)
		}
		fields = append(fields, f)
	}
	return p, fields, nil
}

func parseSigAndKey(sigField, keyField []byte) (signer.Signature, signer.PublicKey, error) {
	sig, err := signer.SignatureFromBytes(sigField)
	if err != nil {
		return signer.Signature{}, signer.PublicKey{}, err
	}
	pub, err := signer.PublicKeyFromBytes(keyField)
	if err != nil {
		return signer.Signature{}, signer.PublicKey{}, err
	}
	return sig, pub, nil
}

// ParseCommitment decodes a Commitment from its canonical encoding.
func ParseCommitment(buf []byte) (Commitment, error) {
	p, fields, err := parsePartyAndFields(buf, TagCommitment, 3)
	if err != nil {
		return Commitment{}, err
	}
	sig, pub, err := parseSigAndKey(fields[1], fields[2])
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{
		Party:     p,
		Message:   append([]byte(nil), fields[0]...),
		Signature: sig,
		PublicKey: pub,
	}, nil
}

// ParseDouble decodes a Double from its canonical encoding.
func ParseDouble(buf []byte) (Double, error) {
	p, fields, err := parsePartyAndFields(buf, TagDouble, 4)
	if err != nil {
		return Double{}, err
	}
	own, err := ParseCommitment(fields[0])
	if err != nil {
		return Double{}, fmt.Errorf("artifact: double.own: %w", err)
	}
	other, err := ParseCommitment(fields[1])
	if err != nil {
		return Double{}, fmt.Errorf("artifact: double.other: %w", err)
	}
	sig, pub, err := parseSigAndKey(fields[2], fields[3])
	if err != nil {
		return Double{}, err
	}
	return Double{Party: p, Own: own, Other: other, Signature: sig, PublicKey: pub}, nil
}

// ParseTriple decodes a Triple from its canonical encoding.
func ParseTriple(buf []byte) (Triple, error) {
	p, fields, err := parsePartyAndFields(buf, TagTriple, 4)
	if err != nil {
		return Triple{}, err
	}
	own, err := ParseDouble(fields[0])
	if err != nil {
		return Triple{}, fmt.Errorf("artifact: triple.own: %w", err)
	}
	other, err := ParseDouble(fields[1])
	if err != nil {
		return Triple{}, fmt.Errorf("artifact: triple.other: %w", err)
	}
	sig, pub, err := parseSigAndKey(fields[2], fields[3])
	if err != nil {
		return Triple{}, err
	}
	return Triple{Party: p, Own: own, Other: other, Signature: sig, PublicKey: pub}, nil
}

// ParseQuad decodes a Quad from its canonical encoding.
func ParseQuad(buf []byte) (Quad, error) {
	p, fields, err := parsePartyAndFields(buf, TagQuad, 4)
	if err != nil {
		return Quad{}, err
	}
	own, err := ParseTriple(fields[0])
	if err != nil {
		return Quad{}, fmt.Errorf("artifact: quad.own: %w", err)
	}
	other, err := ParseTriple(fields[1])
	if err != nil {
		return Quad{}, fmt.Errorf("artifact: quad.other: %w", err)
	}
	sig, pub, err := parseSigAndKey(fields[2], fields[3])
	if err != nil {
		return Quad{}, err
	}
	return Quad{Party: p, Own: own, Other: other, Signature: sig, PublicKey: pub}, nil
}

// ParseQuadConfirmation decodes a QuadConfirmation from its canonical encoding.
func ParseQuadConfirmation(buf []byte) (QuadConfirmation, error) {
	p, fields, err := parsePartyAndFields(buf, TagQuadConf, 4)
	if err != nil {
		return QuadConfirmation{}, err
	}
	q, err := ParseQuad(fields[0])
	if err != nil {
		return QuadConfirmation{}, fmt.Errorf("artifact: quadconfirmation.quad: %w", err)
	}
	if len(fields[1]) != 32 {
		return QuadConfirmation{}, fmt.Errorf("artifact: quadconfirmation.confhash: expected 32 bytes, got %d", len(fields[1]))
	}
	var confHash [32]byte
	copy(confHash[:], fields[1])
	sig, pub, err := parseSigAndKey(fields[2], fields[3])
	if err != nil {
		return QuadConfirmation{}, err
	}
	return QuadConfirmation{Party: p, Quad: q, ConfHash: confHash, Signature: sig, PublicKey: pub}, nil
}

// ParseQuadConfirmationFinal decodes a QuadConfirmationFinal from its
// canonical encoding.
func ParseQuadConfirmationFinal(buf []byte) (QuadConfirmationFinal, error) {
	rawParty, rest, err := expectTag(buf, TagQuadConfFinal)
	if err != nil {
		return QuadConfirmationFinal{}, err
	}
	ownField, rest, err := readField(rest)
	if err != nil {
		return QuadConfirmationFinal{}, fmt.Errorf("artifact: qcf.own: %w", err)
	}
	otherField, rest, err := readField(rest)
	if err != nil {
		return QuadConfirmationFinal{}, fmt.Errorf("artifact: qcf.other: %w", err)
	}
	if len(rest) < 1 {
		return QuadConfirmationFinal{}, fmt.Errorf("artifact: qcf: missing ready flag")
	}
	ready := rest[0] != 0
	rest = rest[1:]
	sigField, rest, err := readField(rest)
	if err != nil {
		return QuadConfirmationFinal{}, fmt.Errorf("artifact: qcf.signature: %w", err)
	}
	keyField, _, err := readField(rest)
	if err != nil {
		return QuadConfirmationFinal{}, fmt.Errorf("artifact: qcf.publickey: %w", err)
	}

	own, err := ParseQuadConfirmation(ownField)
	if err != nil {
		return QuadConfirmationFinal{}, fmt.Errorf("artifact: qcf.own: %w", err)
	}
	other, err := ParseQuadConfirmation(otherField)
	if err != nil {
		return QuadConfirmationFinal{}, fmt.Errorf("artifact: qcf.other: %w", err)
	}
	sig, pub, err := parseSigAndKey(sigField, keyField)
	if err != nil {
		return QuadConfirmationFinal{}, err
	}
	return QuadConfirmationFinal{
		Party: party.Party(rawParty), Own: own, Other: other, Ready: ready,
		Signature: sig, PublicKey: pub,
	}, nil
}
