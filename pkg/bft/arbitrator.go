// Copyright 2025 TGP Authors
//
// Arbitrator is the per-node BFT state machine: IDLE on startup, SIGNING
// once a proposal is seen and this node has contributed its own share,
// AGGREGATING once a peer's share has been accepted, and COMMITTED once a valid threshold signature (t = 2f+1 shares)
// is known, either self-assembled or received ready-made from a peer.
// ABORTED is absorbing: once reached, no further transition is possible.
package bft

import (
	"fmt"

	"github.com/tgp-labs/tgp/pkg/tgperrors"
)

// ArbitratorPhase names a node's position in the per-round state machine.
type ArbitratorPhase int

const (
	PhaseIdle ArbitratorPhase = iota
	PhaseSigning
	PhaseAggregating
	PhaseCommitted
	PhaseAborted
)

func (p ArbitratorPhase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseSigning:
		return "SIGNING"
	case PhaseAggregating:
		return "AGGREGATING"
	case PhaseCommitted:
		return "COMMITTED"
	case PhaseAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Arbitrator drives one node's participation in a single BFT round.
// Not safe for concurrent use; callers serialize access per round.
type Arbitrator struct {
	nodeIndex int
	priv      BlsPrivateKey
	scheme    *ThresholdScheme
	cfg       BftConfig

	phase        ArbitratorPhase
	currentRound int
	proposal     *BftProposal
	shares       map[int]BftShare
	commit       *BftCommit
}

// NewArbitrator creates an idle arbitrator for one committee node.
func NewArbitrator(nodeIndex int, priv BlsPrivateKey, scheme *ThresholdScheme, cfg BftConfig) *Arbitrator {
	return &Arbitrator{
		nodeIndex: nodeIndex,
		priv:      priv,
		scheme:    scheme,
		cfg:       cfg,
		phase:     PhaseIdle,
		shares:    make(map[int]BftShare),
	}
}

// Phase returns the current state.
func (a *Arbitrator) Phase() ArbitratorPhase { return a.phase }

// Commit returns the round's BftCommit once reached, or false otherwise.
func (a *Arbitrator) Commit() (BftCommit, bool) {
	if a.commit == nil {
		return BftCommit{}, false
	}
	return *a.commit, true
}

// ReceiveProposal accepts a round's proposal, producing and recording this
// node's own share. IDLE -> SIGNING. Valid only if p.Round is exactly one
// past the round this node last accepted a proposal for, and only if the
// proposer's signature verifies — an unsigned or out-of-sequence proposal
// is rejected outright rather than silently signed. Calling it again with
// the same in-flight proposal is a no-op; calling it with a conflicting
// proposal for the same round is rejected (a node signs at most one value
// per round, the safety property that prevents equivocation).
func (a *Arbitrator) ReceiveProposal(p BftProposal) (BftShare, error) {
	if a.phase == PhaseAborted {
		return BftShare{}, a.abortedErr()
	}
	if a.proposal != nil {
		if p.Round != a.currentRound {
			return BftShare{}, tgperrors.New(tgperrors.KindStructuralInvalid, fmt.Sprintf("bft: proposal round %d does not match in-flight round %d", p.Round, a.currentRound))
		}
		if a.proposal.RoundID != p.RoundID || string(a.proposal.Payload) != string(p.Payload) {
			a.phase = PhaseAborted
			return BftShare{}, tgperrors.New(tgperrors.KindStructuralInvalid, "bft: conflicting proposal for round, aborting")
		}
		own := a.shares[a.nodeIndex]
		return own, nil
	}
	if p.Round != a.currentRound+1 {
		return BftShare{}, tgperrors.New(tgperrors.KindStructuralInvalid, fmt.Sprintf("bft: proposal round %d is not current_round+1 (%d)", p.Round, a.currentRound+1))
	}
	if err := p.VerifySignature(); err != nil {
		return BftShare{}, err
	}
	a.currentRound = p.Round
	a.proposal = &p
	share := CreateShare(a.nodeIndex, a.priv, p)
	a.shares[a.nodeIndex] = share
	if a.phase == PhaseIdle {
		a.phase = PhaseSigning
	}
	return share, nil
}

// CurrentRound returns the highest round number this node has accepted a
// proposal for (0 if none yet).
func (a *Arbitrator) CurrentRound() int { return a.currentRound }

// ReceiveShare records a peer's share, verifying it against the
// committee's known public key, and attempts aggregation once enough
// distinct shares are on hand.
func (a *Arbitrator) ReceiveShare(share BftShare) error {
	if a.phase == PhaseAborted {
		return a.abortedErr()
	}
	if a.phase == PhaseCommitted {
		return nil // already done; redundant shares are harmless
	}
	if a.proposal == nil {
		return tgperrors.New(tgperrors.KindStructuralInvalid, "bft: received share before a proposal")
	}
	if share.Proposal.Round != a.proposal.Round || share.Proposal.RoundID != a.proposal.RoundID || string(share.Proposal.Payload) != string(a.proposal.Payload) {
		return tgperrors.New(tgperrors.KindBftShareMismatch, fmt.Sprintf("bft: share from node %d references a different proposal", share.NodeIndex))
	}
	pub, ok := a.scheme.publicKeys[share.NodeIndex]
	if !ok {
		return tgperrors.New(tgperrors.KindStructuralInvalid, fmt.Sprintf("bft: unknown node index %d", share.NodeIndex))
	}
	if err := VerifyShare(pub, share); err != nil {
		return err
	}
	if _, exists := a.shares[share.NodeIndex]; !exists {
		a.shares[share.NodeIndex] = share
	}
	if a.phase == PhaseSigning {
		a.phase = PhaseAggregating
	}
	return a.tryCommit()
}

// ReceiveCommit fast-forwards this node to COMMITTED on receiving a
// ready-made, independently verifiable BftCommit — useful for a node that
// joined late or missed enough shares to aggregate on its own. A commit
// for a different round value than one already committed is a safety
// violation and is rejected rather than silently overwritten.
func (a *Arbitrator) ReceiveCommit(commit BftCommit) error {
	if a.phase == PhaseAborted {
		return a.abortedErr()
	}
	if err := a.scheme.VerifyThreshold(commit.Threshold); err != nil {
		return err
	}
	if a.commit != nil {
		if a.commit.Proposal.Round == commit.Proposal.Round &&
			a.commit.Proposal.RoundID == commit.Proposal.RoundID &&
			string(a.commit.Proposal.Payload) == string(commit.Proposal.Payload) {
			return nil
		}
		return tgperrors.New(tgperrors.KindStructuralInvalid, "bft: conflicting commit for round, refusing to overwrite")
	}
	a.proposal = &commit.Proposal
	a.currentRound = commit.Proposal.Round
	a.commit = &commit
	a.phase = PhaseCommitted
	return nil
}

// Abort marks the round aborted. No further transition is possible.
func (a *Arbitrator) Abort() {
	a.phase = PhaseAborted
}

func (a *Arbitrator) tryCommit() error {
	if a.proposal == nil {
		return nil
	}
	if len(a.shares) < a.cfg.Threshold() {
		return nil
	}
	all := make([]BftShare, 0, len(a.shares))
	for _, sh := range a.shares {
		all = append(all, sh)
	}
	ts, err := a.scheme.Aggregate(*a.proposal, all)
	if err != nil {
		return nil // not enough *valid* shares yet; stay in AGGREGATING
	}
	a.commit = &BftCommit{Proposal: *a.proposal, Threshold: ts}
	a.phase = PhaseCommitted
	return nil
}

func (a *Arbitrator) abortedErr() error {
	return tgperrors.New(tgperrors.KindStructuralInvalid, "bft: arbitrator is aborted")
}
