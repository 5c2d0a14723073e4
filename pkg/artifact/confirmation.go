// Copyright 2025 TGP Authors

package artifact

import (
	"bytes"

	"github.com/tgp-labs/tgp/pkg/party"
	"github.com/tgp-labs/tgp/pkg/signer"
)

var (
	qConfLabel        = []byte("Q_CONFIRMATION")
	qConfHashLabel    = []byte("Q_CONF")
	mutuallyLockedIn  = []byte("MUTUALLY_LOCKED_IN")
	finalReceiptLabel = []byte("FINAL_RECEIPT")
	sep               = []byte("|")
)

// QuadConfirmation (QC) is V3 level 5: an observation phase acknowledging a
// constructed Quad before either side commits to MUTUALLY_LOCKED_IN.
type QuadConfirmation struct {
	Party     party.Party
	Quad      Quad
	ConfHash  [32]byte
	Signature signer.Signature
	PublicKey signer.PublicKey
}

// confHash = hash(canonical(Q_X) || "|Q_CONF|" || party).
func computeConfHash(q Quad, p party.Party) [32]byte {
	buf := append([]byte(nil), q.CanonicalBytes()...)
	buf = append(buf, sep...)
	buf = append(buf, qConfHashLabel...)
	buf = append(buf, sep...)
	buf = append(buf, byte(p))
	return signer.Hash(buf)
}

func qcSignedPayload(q Quad, confHash [32]byte) []byte {
	buf := append([]byte(nil), q.CanonicalBytes()...)
	buf = append(buf, sep...)
	buf = append(buf, confHash[:]...)
	buf = append(buf, sep...)
	return append(buf, qConfLabel...)
}

// NewQuadConfirmation creates and signs a QC upon constructing Q_own.
func NewQuadConfirmation(p party.Party, s *signer.Signer, q Quad) QuadConfirmation {
	confHash := computeConfHash(q, p)
	payload := qcSignedPayload(q, confHash)
	return QuadConfirmation{
		Party:     p,
		Quad:      q,
		ConfHash:  confHash,
		Signature: s.Sign(payload),
		PublicKey: s.PublicKey(),
	}
}

func (qc QuadConfirmation) CanonicalBytes() []byte {
	buf := []byte{byte(TagQuadConf), byte(qc.Party)}
	buf = appendField(buf, qc.Quad.CanonicalBytes())
	buf = appendField(buf, qc.ConfHash[:])
	buf = appendField(buf, qc.Signature[:])
	buf = appendField(buf, qc.PublicKey[:])
	return buf
}

func (qc QuadConfirmation) Hash() [32]byte {
	return signer.Hash(qc.CanonicalBytes())
}

func (qc QuadConfirmation) Verify() error {
	if qc.Quad.Party != qc.Party {
		return ErrWrongParty("quadconfirmation.quad")
	}
	if err := qc.Quad.Verify(); err != nil {
		return err
	}
	if want := computeConfHash(qc.Quad, qc.Party); !bytes.Equal(want[:], qc.ConfHash[:]) {
		return ErrInconsistentEmbedding("quadconfirmation.confhash")
	}
	payload := qcSignedPayload(qc.Quad, qc.ConfHash)
	if !signer.Verify(qc.PublicKey, payload, qc.Signature) {
		return ErrBadSignature("quadconfirmation")
	}
	return nil
}

func (qc QuadConfirmation) Equal(o QuadConfirmation) bool {
	return string(qc.CanonicalBytes()) == string(o.CanonicalBytes())
}

// QuadConfirmationFinal (QCF) is V3 level 6: constructed once both parties'
// QCs are observed, so each side knows the other also observed the Quad.
type QuadConfirmationFinal struct {
	Party     party.Party
	Own       QuadConfirmation // QC_X
	Other     QuadConfirmation // QC_Y
	Ready     bool
	Signature signer.Signature
	PublicKey signer.PublicKey
}

func qcfSignedPayload(own, other QuadConfirmation) []byte {
	buf := append([]byte(nil), own.CanonicalBytes()...)
	buf = append(buf, sep...)
	buf = append(buf, other.CanonicalBytes()...)
	return append(buf, mutuallyLockedIn...)
}

// NewQuadConfirmationFinal creates and signs a QCF upon receiving the
// counterparty's QC.
func NewQuadConfirmationFinal(p party.Party, s *signer.Signer, own, other QuadConfirmation) QuadConfirmationFinal {
	payload := qcfSignedPayload(own, other)
	return QuadConfirmationFinal{
		Party:     p,
		Own:       own,
		Other:     other,
		Ready:     true,
		Signature: s.Sign(payload),
		PublicKey: s.PublicKey(),
	}
}

func (qcf QuadConfirmationFinal) CanonicalBytes() []byte {
	buf := []byte{byte(TagQuadConfFinal), byte(qcf.Party)}
	buf = appendField(buf, qcf.Own.CanonicalBytes())
	buf = appendField(buf, qcf.Other.CanonicalBytes())
	ready := byte(0)
	if qcf.Ready {
		ready = 1
	}
	buf = append(buf, ready)
	buf = appendField(buf, qcf.Signature[:])
	buf = appendField(buf, qcf.PublicKey[:])
	return buf
}

func (qcf QuadConfirmationFinal) Hash() [32]byte {
	return signer.Hash(qcf.CanonicalBytes())
}

func (qcf QuadConfirmationFinal) Verify() error {
	if qcf.Own.Party != qcf.Party {
		return ErrWrongParty("quadconfirmationfinal.own")
	}
	if qcf.Other.Party != qcf.Party.Other() {
		return ErrWrongParty("quadconfirmationfinal.other")
	}
	if err := qcf.Own.Verify(); err != nil {
		return err
	}
	if err := qcf.Other.Verify(); err != nil {
		return err
	}
	payload := qcfSignedPayload(qcf.Own, qcf.Other)
	if !signer.Verify(qcf.PublicKey, payload, qcf.Signature) {
		return ErrBadSignature("quadconfirmationfinal")
	}
	return nil
}

func (qcf QuadConfirmationFinal) Equal(o QuadConfirmationFinal) bool {
	return string(qcf.CanonicalBytes()) == string(o.CanonicalBytes())
}

// FinalReceipt is the terminal V3 output: both Qs, both QCs, both QCFs, and
// a 32-octet receipt hash deterministic under sorting, so both participants
// compute an identical value regardless of which is "A" or "B".
type FinalReceipt struct {
	QuadA, QuadB                   Quad
	QuadConfA, QuadConfB           QuadConfirmation
	QuadConfFinalA, QuadConfFinalB QuadConfirmationFinal
	ReceiptHash                    [32]byte
}

// BuildFinalReceipt computes the receipt hash from the two QCFs (and stores
// the full six-artifact bundle) as a pure function of its inputs — no
// signing, no suspension, callable identically by both participants.
func BuildFinalReceipt(qA, qB Quad, qcA, qcB QuadConfirmation, qcfA, qcfB QuadConfirmationFinal) FinalReceipt {
	return FinalReceipt{
		QuadA: qA, QuadB: qB,
		QuadConfA: qcA, QuadConfB: qcB,
		QuadConfFinalA: qcfA, QuadConfFinalB: qcfB,
		ReceiptHash: ReceiptHash(qcfA, qcfB),
	}
}

// ReceiptHash computes SHA-256(sorted(hash(QCF_A), hash(QCF_B)) || "FINAL_RECEIPT").
// Sorting the two hashes before concatenation is what makes the result
// order-independent: ReceiptHash(a, b) == ReceiptHash(b, a).
func ReceiptHash(qcfA, qcfB QuadConfirmationFinal) [32]byte {
	ha := qcfA.Hash()
	hb := qcfB.Hash()
	first, second := ha, hb
	if bytes.Compare(ha[:], hb[:]) > 0 {
		first, second = hb, ha
	}
	buf := append([]byte(nil), first[:]...)
	buf = append(buf, second[:]...)
	buf = append(buf, finalReceiptLabel...)
	return signer.Hash(buf)
}
