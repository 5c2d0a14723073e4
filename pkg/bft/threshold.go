// Copyright 2025 TGP Authors

package bft

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/tgp-labs/tgp/pkg/signer"
	"github.com/tgp-labs/tgp/pkg/tgperrors"
)

// BftConfig describes one BFT committee: n nodes tolerating up to f
// Byzantine faults, with n = 3f+1 and a signing threshold t = 2f+1.
type BftConfig struct {
	N int
	F int
}

// NewBftConfig validates n == 3f+1 before returning a config, the
// invariant that makes "any t of n honest signers agree" safe against up
// to f faulty nodes.
func NewBftConfig(n, f int) (BftConfig, error) {
	if f < 0 {
		return BftConfig{}, tgperrors.New(tgperrors.KindStructuralInvalid, "bft: f must be non-negative")
	}
	if n != 3*f+1 {
		return BftConfig{}, tgperrors.New(tgperrors.KindStructuralInvalid, fmt.Sprintf("bft: n=%d is not 3f+1 for f=%d (want n=%d)", n, f, 3*f+1))
	}
	return BftConfig{N: n, F: f}, nil
}

// Threshold returns t = 2f+1, the minimum number of shares required to
// aggregate a valid ThresholdSignature.
func (c BftConfig) Threshold() int {
	return 2*c.F + 1
}

// BftProposal is the value a round is being asked to sign: a round number,
// an opaque round label, the payload nodes are attesting to (for TGP, the
// canonical bytes of a bilateral FinalReceipt; it is opaque to this
// package), and the proposer's identity and signature over the whole. The
// proposer signs with an ordinary Ed25519 key via pkg/signer, the same
// adapter the ladder uses — distinct from the per-node BLS share keys,
// which only ever sign a value hash, never a full proposal.
type BftProposal struct {
	Round      int
	RoundID    string
	ProposerID int
	Payload    []byte
	Signature  signer.Signature
	PublicKey  signer.PublicKey
}

var bftProposalLabel = []byte("BFT_PROPOSAL")

// proposalSignedPayload is the canonical byte sequence a proposer signs:
// the round number, round label, proposer id, and payload, each
// length-prefixed so concatenation is unambiguous.
func proposalSignedPayload(round int, roundID string, proposerID int, payload []byte) []byte {
	var roundBuf, proposerBuf [8]byte
	binary.BigEndian.PutUint64(roundBuf[:], uint64(round))
	binary.BigEndian.PutUint64(proposerBuf[:], uint64(proposerID))
	buf := append([]byte(nil), roundBuf[:]...)
	buf = appendField(buf, []byte(roundID))
	buf = append(buf, proposerBuf[:]...)
	buf = appendField(buf, payload)
	return append(buf, bftProposalLabel...)
}

// NewBftProposal builds and signs a proposal on behalf of proposerID.
func NewBftProposal(round int, roundID string, proposerID int, payload []byte, s *signer.Signer) BftProposal {
	payload = append([]byte(nil), payload...)
	sig := s.Sign(proposalSignedPayload(round, roundID, proposerID, payload))
	return BftProposal{
		Round:      round,
		RoundID:    roundID,
		ProposerID: proposerID,
		Payload:    payload,
		Signature:  sig,
		PublicKey:  s.PublicKey(),
	}
}

// VerifySignature checks the proposer's signature over the proposal's
// round, label, proposer id, and payload.
func (p BftProposal) VerifySignature() error {
	payload := proposalSignedPayload(p.Round, p.RoundID, p.ProposerID, p.Payload)
	if !signer.Verify(p.PublicKey, payload, p.Signature) {
		return tgperrors.New(tgperrors.KindSignatureInvalid, fmt.Sprintf("bft: proposal from proposer %d failed signature verification", p.ProposerID))
	}
	return nil
}

// ValueHash returns the 32 octets every BftShare for this proposal signs.
func (p BftProposal) ValueHash() [32]byte {
	return hashRoundValue(p.RoundID, p.Payload)
}

// BftShare is one node's signature over a proposal's value hash.
type BftShare struct {
	NodeIndex int
	Proposal  BftProposal
	Signature BlsSignature
}

// CreateShare signs a proposal's value hash with a node's private key.
func CreateShare(nodeIndex int, priv BlsPrivateKey, p BftProposal) BftShare {
	vh := p.ValueHash()
	return BftShare{NodeIndex: nodeIndex, Proposal: p, Signature: priv.Sign(vh[:])}
}

// VerifyShare checks a share's signature against the node's known public
// key and that it signs the expected proposal's value hash.
func VerifyShare(pub BlsPublicKey, share BftShare) error {
	vh := share.Proposal.ValueHash()
	if !verify(pub, vh[:], share.Signature) {
		return tgperrors.New(tgperrors.KindBftShareMismatch, fmt.Sprintf("bft: share from node %d failed verification", share.NodeIndex))
	}
	return nil
}

// ThresholdSignature is an aggregate over exactly the shares of Signers,
// valid only against the aggregate public key of those same nodes.
type ThresholdSignature struct {
	Proposal  BftProposal
	Signers   []int
	Aggregate BlsSignature
}

// ThresholdScheme aggregates and verifies threshold signatures for one
// committee, keyed by each node's known public key.
type ThresholdScheme struct {
	cfg        BftConfig
	publicKeys map[int]BlsPublicKey
}

// NewThresholdScheme builds a scheme for cfg given every node's public key.
func NewThresholdScheme(cfg BftConfig, publicKeys map[int]BlsPublicKey) (*ThresholdScheme, error) {
	if len(publicKeys) != cfg.N {
		return nil, tgperrors.New(tgperrors.KindStructuralInvalid, fmt.Sprintf("bft: expected %d public keys, got %d", cfg.N, len(publicKeys)))
	}
	return &ThresholdScheme{cfg: cfg, publicKeys: publicKeys}, nil
}

// Aggregate combines shares into a ThresholdSignature. Shares are first
// verified individually and deduplicated by node index (the first share
// seen for a given node wins); if more than t valid shares are available,
// only the first t in ascending node-index order are used, making
// aggregation deterministic regardless of arrival order. Returns
// BftThresholdUnmet if fewer than t valid, distinct shares are available.
func (s *ThresholdScheme) Aggregate(p BftProposal, shares []BftShare) (ThresholdSignature, error) {
	byNode := make(map[int]BftShare, len(shares))
	for _, sh := range shares {
		if sh.Proposal.Round != p.Round || sh.Proposal.RoundID != p.RoundID || string(sh.Proposal.Payload) != string(p.Payload) {
			continue
		}
		if _, exists := byNode[sh.NodeIndex]; exists {
			continue
		}
		pub, ok := s.publicKeys[sh.NodeIndex]
		if !ok {
			continue
		}
		if err := VerifyShare(pub, sh); err != nil {
			continue
		}
		byNode[sh.NodeIndex] = sh
	}

	t := s.cfg.Threshold()
	if len(byNode) < t {
		return ThresholdSignature{}, tgperrors.New(tgperrors.KindBftThresholdUnmet, fmt.Sprintf("bft: have %d valid shares, need %d", len(byNode), t))
	}

	indices := make([]int, 0, len(byNode))
	for idx := range byNode {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	indices = indices[:t]

	sigs := make([]BlsSignature, t)
	for i, idx := range indices {
		sigs[i] = byNode[idx].Signature
	}
	agg, err := aggregateSignatures(sigs)
	if err != nil {
		return ThresholdSignature{}, tgperrors.Wrap(tgperrors.KindBftThresholdUnmet, "bft: aggregate signatures", err)
	}
	return ThresholdSignature{Proposal: p, Signers: indices, Aggregate: agg}, nil
}

// VerifyThreshold checks a ThresholdSignature: it must name at least t
// distinct signers, each a known committee member, and the aggregate
// signature must verify against the aggregate of exactly those members'
// public keys over the proposal's value hash.
func (s *ThresholdScheme) VerifyThreshold(ts ThresholdSignature) error {
	t := s.cfg.Threshold()
	if len(ts.Signers) < t {
		return tgperrors.New(tgperrors.KindBftThresholdUnmet, fmt.Sprintf("bft: threshold signature names %d signers, need %d", len(ts.Signers), t))
	}
	seen := make(map[int]bool, len(ts.Signers))
	pubs := make([]BlsPublicKey, 0, len(ts.Signers))
	for _, idx := range ts.Signers {
		if seen[idx] {
			return tgperrors.New(tgperrors.KindStructuralInvalid, fmt.Sprintf("bft: duplicate signer index %d", idx))
		}
		seen[idx] = true
		pub, ok := s.publicKeys[idx]
		if !ok {
			return tgperrors.New(tgperrors.KindStructuralInvalid, fmt.Sprintf("bft: unknown signer index %d", idx))
		}
		pubs = append(pubs, pub)
	}
	aggPub, err := aggregatePublicKeys(pubs)
	if err != nil {
		return tgperrors.Wrap(tgperrors.KindStructuralInvalid, "bft: aggregate public keys", err)
	}
	vh := ts.Proposal.ValueHash()
	if !verify(aggPub, vh[:], ts.Aggregate) {
		return tgperrors.New(tgperrors.KindSignatureInvalid, "bft: threshold signature failed verification")
	}
	return nil
}

// BftCommit is the final artifact a node emits once it holds a verified
// ThresholdSignature: a binding, t-of-n-verifiable attestation that the
// committee agreed on Proposal.
type BftCommit struct {
	Proposal  BftProposal
	Threshold ThresholdSignature
}
