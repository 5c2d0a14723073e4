// Copyright 2025 TGP Authors

package artifact

import (
	"testing"

	"github.com/tgp-labs/tgp/pkg/party"
	"github.com/tgp-labs/tgp/pkg/signer"
)

// buildChain runs both sides of the ladder up through Quad, mirroring the
// message flow a real session would produce, and returns every artifact so
// individual tests can mutate and re-verify them.
type chain struct {
	sA, sB     *signer.Signer
	cA, cB     Commitment
	dA, dB     Double
	tA, tB     Triple
	qA, qB     Quad
}

func buildChain(t *testing.T) chain {
	t.Helper()
	sA, err := signer.Generate()
	if err != nil {
		t.Fatalf("generate A: %v", err)
	}
	sB, err := signer.Generate()
	if err != nil {
		t.Fatalf("generate B: %v", err)
	}

	cA := NewCommitment(party.A, sA, []byte("attack at dawn"))
	cB := NewCommitment(party.B, sB, []byte("attack at dawn"))

	dA := NewDouble(party.A, sA, cA, cB)
	dB := NewDouble(party.B, sB, cB, cA)

	tA := NewTriple(party.A, sA, dA, dB)
	tB := NewTriple(party.B, sB, dB, dA)

	qA := NewQuad(party.A, sA, tA, tB)
	qB := NewQuad(party.B, sB, tB, tA)

	return chain{sA, sB, cA, cB, dA, dB, tA, tB, qA, qB}
}

func TestChainVerifiesEndToEnd(t *testing.T) {
	c := buildChain(t)
	if err := c.cA.Verify(); err != nil {
		t.Fatalf("cA: %v", err)
	}
	if err := c.dA.Verify(); err != nil {
		t.Fatalf("dA: %v", err)
	}
	if err := c.tA.Verify(); err != nil {
		t.Fatalf("tA: %v", err)
	}
	if err := c.qA.Verify(); err != nil {
		t.Fatalf("qA: %v", err)
	}
	if err := c.qB.Verify(); err != nil {
		t.Fatalf("qB: %v", err)
	}
}

func TestCanonicalBytesDeterministic(t *testing.T) {
	c := buildChain(t)
	if string(c.qA.CanonicalBytes()) != string(c.qA.CanonicalBytes()) {
		t.Fatal("canonical bytes not stable across calls")
	}
	h1 := c.qA.Hash()
	h2 := c.qA.Hash()
	if h1 != h2 {
		t.Fatal("hash not stable across calls")
	}
}

func TestCanonicalBytesDistinctAcrossLevels(t *testing.T) {
	c := buildChain(t)
	hashes := map[[32]byte]string{}
	add := func(h [32]byte, label string) {
		if other, ok := hashes[h]; ok {
			t.Fatalf("hash collision between %s and %s", label, other)
		}
		hashes[h] = label
	}
	add(c.cA.Hash(), "cA")
	add(c.dA.Hash(), "dA")
	add(c.tA.Hash(), "tA")
	add(c.qA.Hash(), "qA")
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	c := buildChain(t)
	tampered := c.cA
	tampered.Message = []byte("retreat at dawn")
	if err := tampered.Verify(); err == nil {
		t.Fatal("expected verify failure on tampered commitment message")
	}
}

func TestVerifyRejectsWrongPartyOnDouble(t *testing.T) {
	c := buildChain(t)
	bad := c.dA
	bad.Party = party.B // own.Party should equal d.Party
	if err := bad.Verify(); err == nil {
		t.Fatal("expected ErrWrongParty on mismatched double party")
	}
}

func TestVerifyRejectsSwappedOwnOther(t *testing.T) {
	c := buildChain(t)
	bad := c.tA
	bad.Own, bad.Other = bad.Other, bad.Own
	if err := bad.Verify(); err == nil {
		t.Fatal("expected verify failure on swapped own/other")
	}
}

func TestVerifyRejectsMismatchedEmbeddedDoublesInTriple(t *testing.T) {
	c1 := buildChain(t)
	c2 := buildChain(t) // an entirely independent, self-consistent run

	// Staple A's genuinely-own double from run 1 to B's genuinely-own
	// double from run 2 (individually valid, fully self-consistent
	// Doubles) into a single Triple. Each embedded Double verifies on its
	// own; only comparing them against each other reveals they silently
	// disagree about which C_X and C_Y actually exist.
	bad := NewTriple(party.A, c1.sA, c1.dA, c2.dB)
	if err := bad.Verify(); err == nil {
		t.Fatal("expected verify failure when the two doubles disagree on their embedded commitments")
	}
}

func TestVerifyRejectsMismatchedEmbeddedTriplesInQuad(t *testing.T) {
	c1 := buildChain(t)
	c2 := buildChain(t) // an entirely independent, self-consistent run

	// Staple A's genuinely-own triple from run 1 to B's genuinely-own
	// triple from run 2 (each individually valid) into a single Quad. Both
	// embedded Triples verify independently; only the cross-check catches
	// that they were never part of the same bilateral exchange.
	bad := NewQuad(party.A, c1.sA, c1.tA, c2.tB)
	if err := bad.Verify(); err == nil {
		t.Fatal("expected verify failure when the two triples disagree on an embedded double")
	}
}

func TestEqualDistinguishesArtifacts(t *testing.T) {
	c := buildChain(t)
	if c.qA.Equal(c.qB) {
		t.Fatal("distinct quads from different parties must not be equal")
	}
	if !c.qA.Equal(c.qA) {
		t.Fatal("a quad must equal itself")
	}
}

func TestVerifiesBilateralConstruction(t *testing.T) {
	c := buildChain(t)
	if !c.qA.VerifiesBilateralConstruction() {
		t.Fatal("qA should witness that B can construct qB")
	}
	if !c.qB.VerifiesBilateralConstruction() {
		t.Fatal("qB should witness that A can construct qA")
	}
}

func TestExtractChainRoundTrips(t *testing.T) {
	c := buildChain(t)
	cOwn, cOther, dOwn, dOther, tOwn, tOther := c.qA.ExtractChain()
	if !cOwn.Equal(c.cA) || !cOther.Equal(c.cB) {
		t.Fatal("extracted commitments do not match originals")
	}
	if !dOwn.Equal(c.dA) || !dOther.Equal(c.dB) {
		t.Fatal("extracted doubles do not match originals")
	}
	if !tOwn.Equal(c.tA) || !tOther.Equal(c.tB) {
		t.Fatal("extracted triples do not match originals")
	}
}

func TestQuadConfirmationAndFinalReceipt(t *testing.T) {
	c := buildChain(t)

	qcA := NewQuadConfirmation(party.A, c.sA, c.qA)
	qcB := NewQuadConfirmation(party.B, c.sB, c.qB)
	if err := qcA.Verify(); err != nil {
		t.Fatalf("qcA: %v", err)
	}
	if err := qcB.Verify(); err != nil {
		t.Fatalf("qcB: %v", err)
	}

	qcfA := NewQuadConfirmationFinal(party.A, c.sA, qcA, qcB)
	qcfB := NewQuadConfirmationFinal(party.B, c.sB, qcB, qcA)
	if err := qcfA.Verify(); err != nil {
		t.Fatalf("qcfA: %v", err)
	}
	if err := qcfB.Verify(); err != nil {
		t.Fatalf("qcfB: %v", err)
	}

	receiptA := BuildFinalReceipt(c.qA, c.qB, qcA, qcB, qcfA, qcfB)
	receiptB := BuildFinalReceipt(c.qA, c.qB, qcA, qcB, qcfB, qcfA)
	if receiptA.ReceiptHash != receiptB.ReceiptHash {
		t.Fatal("receipt hash must be order-independent in its QCF arguments")
	}

	direct := ReceiptHash(qcfA, qcfB)
	reversed := ReceiptHash(qcfB, qcfA)
	if direct != reversed {
		t.Fatal("ReceiptHash(a, b) must equal ReceiptHash(b, a)")
	}
}

func TestParseRoundTripsEveryLevel(t *testing.T) {
	c := buildChain(t)

	parsedC, err := ParseCommitment(c.cA.CanonicalBytes())
	if err != nil || !parsedC.Equal(c.cA) {
		t.Fatalf("commitment round-trip: %v", err)
	}
	parsedD, err := ParseDouble(c.dA.CanonicalBytes())
	if err != nil || !parsedD.Equal(c.dA) {
		t.Fatalf("double round-trip: %v", err)
	}
	parsedT, err := ParseTriple(c.tA.CanonicalBytes())
	if err != nil || !parsedT.Equal(c.tA) {
		t.Fatalf("triple round-trip: %v", err)
	}
	parsedQ, err := ParseQuad(c.qA.CanonicalBytes())
	if err != nil || !parsedQ.Equal(c.qA) {
		t.Fatalf("quad round-trip: %v", err)
	}
	if err := parsedQ.Verify(); err != nil {
		t.Fatalf("parsed quad should still verify: %v", err)
	}

	qcA := NewQuadConfirmation(party.A, c.sA, c.qA)
	parsedQC, err := ParseQuadConfirmation(qcA.CanonicalBytes())
	if err != nil || !parsedQC.Equal(qcA) {
		t.Fatalf("quadconfirmation round-trip: %v", err)
	}

	qcB := NewQuadConfirmation(party.B, c.sB, c.qB)
	qcfA := NewQuadConfirmationFinal(party.A, c.sA, qcA, qcB)
	parsedQCF, err := ParseQuadConfirmationFinal(qcfA.CanonicalBytes())
	if err != nil || !parsedQCF.Equal(qcfA) {
		t.Fatalf("quadconfirmationfinal round-trip: %v", err)
	}
	if err := parsedQCF.Verify(); err != nil {
		t.Fatalf("parsed qcf should still verify: %v", err)
	}
}

func TestParseRejectsWrongTag(t *testing.T) {
	c := buildChain(t)
	_, err := ParseDouble(c.cA.CanonicalBytes())
	if err == nil {
		t.Fatal("expected tag-mismatch error parsing a commitment as a double")
	}
}

func TestParseRejectsTruncatedInput(t *testing.T) {
	c := buildChain(t)
	buf := c.qA.CanonicalBytes()
	_, err := ParseQuad(buf[:len(buf)-10])
	if err == nil {
		t.Fatal("expected error parsing truncated quad bytes")
	}
}

func TestQuadConfirmationRejectsWrongQuad(t *testing.T) {
	c := buildChain(t)
	qcA := NewQuadConfirmation(party.A, c.sA, c.qA)
	qcA.Quad = c.qB // swap in a quad from the wrong party
	if err := qcA.Verify(); err == nil {
		t.Fatal("expected verify failure when QC.Quad.Party mismatches QC.Party")
	}
}

func TestQuadConfirmationFinalRejectsMismatchedOtherParty(t *testing.T) {
	c := buildChain(t)
	qcA := NewQuadConfirmation(party.A, c.sA, c.qA)
	qcA2 := NewQuadConfirmation(party.A, c.sA, c.qA) // wrong party for "other" slot
	qcfA := NewQuadConfirmationFinal(party.A, c.sA, qcA, qcA2)
	if err := qcfA.Verify(); err == nil {
		t.Fatal("expected verify failure when Other.Party does not equal Party.Other()")
	}
}
