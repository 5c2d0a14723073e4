// Copyright 2025 TGP Authors
//
// Package ladder implements the two-party proof-stapling state machine: it
// drives a Ladder through INIT -> COMMITMENT -> DOUBLE -> TRIPLE -> QUAD
// (and, for the V3 extension, -> QUAD_CONF -> QUAD_CONF_FINAL), extracting
// and verifying every artifact embedded in whatever is received so that a
// single inbound Quad is enough to reconstruct the whole chain.
package ladder

import (
	"github.com/tgp-labs/tgp/pkg/artifact"
	"github.com/tgp-labs/tgp/pkg/party"
	"github.com/tgp-labs/tgp/pkg/signer"
	"github.com/tgp-labs/tgp/pkg/tgperrors"
)

// State names the highest own-artifact level reached so far.
type State int

const (
	StateInit State = iota
	StateCommitment
	StateDouble
	StateTriple
	StateQuad
	StateQuadConfirmation
	StateQuadConfirmationFinal
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateCommitment:
		return "COMMITMENT"
	case StateDouble:
		return "DOUBLE"
	case StateTriple:
		return "TRIPLE"
	case StateQuad:
		return "QUAD"
	case StateQuadConfirmation:
		return "QUAD_CONFIRMATION"
	case StateQuadConfirmationFinal:
		return "QUAD_CONFIRMATION_FINAL"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Ladder holds one participant's view of a single two-party session. It is
// not safe for concurrent use; callers serialize access (the flooding
// driver owns a single goroutine per session).
type Ladder struct {
	self   party.Party
	signer *signer.Signer
	state  State

	ownC, otherC     *artifact.Commitment
	ownD, otherD     *artifact.Double
	ownT, otherT     *artifact.Triple
	ownQ, otherQ     *artifact.Quad
	ownQC, otherQC   *artifact.QuadConfirmation
	ownQCF, otherQCF *artifact.QuadConfirmationFinal
}

// New creates a ladder for self, not yet committed to a message.
func New(self party.Party, s *signer.Signer) *Ladder {
	return &Ladder{self: self, signer: s, state: StateInit}
}

// Create commits this participant to message, producing the initial
// Commitment and advancing to StateCommitment. It is a no-op error if
// already committed.
func (l *Ladder) Create(message []byte) (artifact.Commitment, error) {
	if l.state != StateInit {
		return artifact.Commitment{}, tgperrors.New(tgperrors.KindStructuralInvalid, "ladder: already committed")
	}
	c := artifact.NewCommitment(l.self, l.signer, message)
	l.ownC = &c
	l.state = StateCommitment
	l.tryAdvance()
	return c, nil
}

// State returns the current ladder state.
func (l *Ladder) State() State { return l.state }

// CanAttack reports the base-protocol decision rule: ATTACK iff this
// participant's own Quad has been constructed, independent of whether the
// counterparty's Quad has been observed.
func (l *Ladder) CanAttack() bool {
	return l.ownQ != nil
}

// IsComplete reports whether both participants' Quads are mutually known,
// the symmetric fixpoint of the base protocol.
func (l *Ladder) IsComplete() bool {
	return l.ownQ != nil && l.otherQ != nil
}

// IsCompleteV3 reports whether the V3 confirmation extension has reached
// its terminal state: both QuadConfirmationFinals are mutually known.
func (l *Ladder) IsCompleteV3() bool {
	return l.ownQCF != nil && l.otherQCF != nil
}

// Aborted reports whether this ladder has been locally aborted.
func (l *Ladder) Aborted() bool { return l.state == StateAborted }

// Abort marks the ladder aborted. It is terminal: once aborted, Receive
// always returns an error and no further artifacts are produced. Aborting
// after the own Quad exists is a no-op: the base decision is already
// ATTACK and regressing it would break outcome symmetry.
func (l *Ladder) Abort() {
	if l.ownQ != nil {
		return
	}
	l.state = StateAborted
}

// Outbound returns the single highest-level own-artifact that should be
// (re-)transmitted. Per the flooding driver's contract, only this one
// artifact is ever sent: it embeds everything below it, so re-sending it
// after a restart or reorder costs nothing extra.
func (l *Ladder) Outbound() (any, bool) {
	if l.state == StateAborted {
		return nil, false
	}
	switch {
	case l.ownQCF != nil:
		return *l.ownQCF, true
	case l.ownQC != nil:
		return *l.ownQC, true
	case l.ownQ != nil:
		return *l.ownQ, true
	case l.ownT != nil:
		return *l.ownT, true
	case l.ownD != nil:
		return *l.ownD, true
	case l.ownC != nil:
		return *l.ownC, true
	default:
		return nil, false
	}
}

// Receive processes one inbound artifact (any of artifact.Commitment,
// artifact.Double, artifact.Triple, artifact.Quad,
// artifact.QuadConfirmation, or artifact.QuadConfirmationFinal), verifying
// it and cascading every artifact it embeds into the counterparty's known
// state, then attempting to advance this participant's own chain as far as
// newly available material allows.
func (l *Ladder) Receive(msg any) error {
	if l.state == StateAborted {
		return tgperrors.New(tgperrors.KindStructuralInvalid, "ladder: aborted")
	}
	switch m := msg.(type) {
	case artifact.Commitment:
		return l.receiveCommitment(m)
	case artifact.Double:
		return l.receiveDouble(m)
	case artifact.Triple:
		return l.receiveTriple(m)
	case artifact.Quad:
		return l.receiveQuad(m)
	case artifact.QuadConfirmation:
		return l.receiveQuadConfirmation(m)
	case artifact.QuadConfirmationFinal:
		return l.receiveQuadConfirmationFinal(m)
	default:
		return tgperrors.New(tgperrors.KindStructuralInvalid, "ladder: unrecognized artifact type")
	}
}

func (l *Ladder) receiveCommitment(c artifact.Commitment) error {
	if c.Party != l.self.Other() {
		return artifact.ErrWrongParty("ladder.receive.commitment")
	}
	if err := c.Verify(); err != nil {
		return err
	}
	if err := l.storeOtherC(c); err != nil {
		return err
	}
	l.tryAdvance()
	return nil
}

func (l *Ladder) receiveDouble(d artifact.Double) error {
	if d.Party != l.self.Other() {
		return artifact.ErrWrongParty("ladder.receive.double")
	}
	if err := d.Verify(); err != nil {
		return err
	}
	// d.Own is the sender's commitment (the counterparty); d.Other is ours.
	if err := l.storeOtherC(d.Own); err != nil {
		return err
	}
	if l.ownC != nil && !d.Other.Equal(*l.ownC) {
		return artifact.ErrInconsistentEmbedding("ladder.double.embedded_own_commitment")
	}
	if err := l.storeOtherD(d); err != nil {
		return err
	}
	l.tryAdvance()
	return nil
}

func (l *Ladder) receiveTriple(tr artifact.Triple) error {
	if tr.Party != l.self.Other() {
		return artifact.ErrWrongParty("ladder.receive.triple")
	}
	if err := tr.Verify(); err != nil {
		return err
	}
	if err := l.storeOtherD(tr.Own); err != nil {
		return err
	}
	if err := l.storeOtherC(tr.Own.Own); err != nil {
		return err
	}
	if l.ownD != nil && !tr.Other.Equal(*l.ownD) {
		return artifact.ErrInconsistentEmbedding("ladder.triple.embedded_own_double")
	}
	if err := l.storeOtherT(tr); err != nil {
		return err
	}
	l.tryAdvance()
	return nil
}

func (l *Ladder) receiveQuad(q artifact.Quad) error {
	if q.Party != l.self.Other() {
		return artifact.ErrWrongParty("ladder.receive.quad")
	}
	if err := q.Verify(); err != nil {
		return err
	}
	if err := l.absorbQuad(q); err != nil {
		return err
	}
	l.tryAdvance()
	return nil
}

// absorbQuad extracts and stores the full C/D/T/Q chain embedded in a
// counterparty Quad, checking every embedded artifact against whatever of
// our own side we already hold. Called whenever a Quad becomes available,
// whether delivered directly or embedded inside a QC/QCF, so that a bare
// Quad is never required to have been observed on the wire for otherQ (and
// the V3 receipt, which is gated on it) to be populated.
func (l *Ladder) absorbQuad(q artifact.Quad) error {
	cOwn, cOther, dOwn, dOther, tOwn, tOther := q.ExtractChain()
	if err := l.storeOtherC(cOwn); err != nil {
		return err
	}
	if err := l.storeOtherD(dOwn); err != nil {
		return err
	}
	if err := l.storeOtherT(tOwn); err != nil {
		return err
	}
	if l.ownC != nil && !cOther.Equal(*l.ownC) {
		return artifact.ErrInconsistentEmbedding("ladder.quad.embedded_own_commitment")
	}
	if l.ownD != nil && !dOther.Equal(*l.ownD) {
		return artifact.ErrInconsistentEmbedding("ladder.quad.embedded_own_double")
	}
	if l.ownT != nil && !tOther.Equal(*l.ownT) {
		return artifact.ErrInconsistentEmbedding("ladder.quad.embedded_own_triple")
	}
	return l.storeOtherQ(q)
}

func (l *Ladder) receiveQuadConfirmation(qc artifact.QuadConfirmation) error {
	if qc.Party != l.self.Other() {
		return artifact.ErrWrongParty("ladder.receive.quadconfirmation")
	}
	if err := qc.Verify(); err != nil {
		return err
	}
	if err := l.absorbQuad(qc.Quad); err != nil {
		return err
	}
	if err := l.storeOtherQC(qc); err != nil {
		return err
	}
	l.tryAdvance()
	return nil
}

func (l *Ladder) receiveQuadConfirmationFinal(qcf artifact.QuadConfirmationFinal) error {
	if qcf.Party != l.self.Other() {
		return artifact.ErrWrongParty("ladder.receive.quadconfirmationfinal")
	}
	if err := qcf.Verify(); err != nil {
		return err
	}
	if l.ownQC != nil && !qcf.Other.Equal(*l.ownQC) {
		return artifact.ErrInconsistentEmbedding("ladder.quadconfirmationfinal.embedded_own_qc")
	}
	if l.ownQ != nil && !qcf.Other.Quad.Equal(*l.ownQ) {
		return artifact.ErrInconsistentEmbedding("ladder.quadconfirmationfinal.embedded_own_quad")
	}
	if err := l.absorbQuad(qcf.Own.Quad); err != nil {
		return err
	}
	if err := l.storeOtherQC(qcf.Own); err != nil {
		return err
	}
	l.otherQCF = &qcf
	l.tryAdvance()
	return nil
}

func (l *Ladder) storeOtherC(c artifact.Commitment) error {
	if l.otherC != nil {
		if !l.otherC.Equal(c) {
			return artifact.ErrInconsistentEmbedding("ladder.other_commitment")
		}
		return nil
	}
	l.otherC = &c
	return nil
}

func (l *Ladder) storeOtherD(d artifact.Double) error {
	if l.otherD != nil {
		if !l.otherD.Equal(d) {
			return artifact.ErrInconsistentEmbedding("ladder.other_double")
		}
		return nil
	}
	l.otherD = &d
	return nil
}

func (l *Ladder) storeOtherT(tr artifact.Triple) error {
	if l.otherT != nil {
		if !l.otherT.Equal(tr) {
			return artifact.ErrInconsistentEmbedding("ladder.other_triple")
		}
		return nil
	}
	l.otherT = &tr
	return nil
}

func (l *Ladder) storeOtherQ(q artifact.Quad) error {
	if l.otherQ != nil {
		if !l.otherQ.Equal(q) {
			return artifact.ErrInconsistentEmbedding("ladder.other_quad")
		}
		return nil
	}
	l.otherQ = &q
	return nil
}

func (l *Ladder) storeOtherQC(qc artifact.QuadConfirmation) error {
	if l.otherQC != nil {
		if !l.otherQC.Equal(qc) {
			return artifact.ErrInconsistentEmbedding("ladder.other_quadconfirmation")
		}
		return nil
	}
	l.otherQC = &qc
	return nil
}

// tryAdvance builds every own artifact that newly-available material makes
// constructible, idempotently. It is called after every state mutation so
// that arrival order never matters: receiving a Quad before a Commitment
// still cascades all the way up once both sides' material is present.
func (l *Ladder) tryAdvance() {
	if l.state == StateAborted {
		return
	}
	if l.ownC != nil && l.otherC != nil && l.ownD == nil {
		d := artifact.NewDouble(l.self, l.signer, *l.ownC, *l.otherC)
		l.ownD = &d
		l.state = StateDouble
	}
	if l.ownD != nil && l.otherD != nil && l.ownT == nil {
		tr := artifact.NewTriple(l.self, l.signer, *l.ownD, *l.otherD)
		l.ownT = &tr
		l.state = StateTriple
	}
	if l.ownT != nil && l.otherT != nil && l.ownQ == nil {
		q := artifact.NewQuad(l.self, l.signer, *l.ownT, *l.otherT)
		l.ownQ = &q
		l.state = StateQuad
	}
	if l.ownQ != nil && l.ownQC == nil {
		qc := artifact.NewQuadConfirmation(l.self, l.signer, *l.ownQ)
		l.ownQC = &qc
		l.state = StateQuadConfirmation
	}
	if l.ownQC != nil && l.otherQC != nil && l.ownQCF == nil {
		qcf := artifact.NewQuadConfirmationFinal(l.self, l.signer, *l.ownQC, *l.otherQC)
		l.ownQCF = &qcf
		l.state = StateQuadConfirmationFinal
	}
}

// FinalReceipt returns the V3 terminal receipt once both QuadConfirmationFinals
// are known, or false if the ladder has not reached that point yet.
func (l *Ladder) FinalReceipt() (artifact.FinalReceipt, bool) {
	if l.ownQCF == nil || l.otherQCF == nil || l.ownQ == nil || l.otherQ == nil || l.ownQC == nil || l.otherQC == nil {
		return artifact.FinalReceipt{}, false
	}
	var qA, qB artifact.Quad
	var qcA, qcB artifact.QuadConfirmation
	var qcfA, qcfB artifact.QuadConfirmationFinal
	if l.self == party.A {
		qA, qB = *l.ownQ, *l.otherQ
		qcA, qcB = *l.ownQC, *l.otherQC
		qcfA, qcfB = *l.ownQCF, *l.otherQCF
	} else {
		qA, qB = *l.otherQ, *l.ownQ
		qcA, qcB = *l.otherQC, *l.ownQC
		qcfA, qcfB = *l.otherQCF, *l.ownQCF
	}
	return artifact.BuildFinalReceipt(qA, qB, qcA, qcB, qcfA, qcfB), true
}
