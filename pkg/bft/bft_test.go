// Copyright 2025 TGP Authors

package bft

import (
	"testing"

	"github.com/tgp-labs/tgp/pkg/signer"
)

func mustKeyPair(t *testing.T) BlsKeyPair {
	t.Helper()
	kp, err := GenerateBlsKeyPair()
	if err != nil {
		t.Fatalf("generate bls key pair: %v", err)
	}
	return kp
}

func mustProposerSigner(t *testing.T) *signer.Signer {
	t.Helper()
	s, err := signer.Generate()
	if err != nil {
		t.Fatalf("generate proposer signer: %v", err)
	}
	return s
}

func TestNewBftConfigValidatesNEquals3FPlus1(t *testing.T) {
	if _, err := NewBftConfig(4, 1); err != nil {
		t.Fatalf("n=4,f=1 should be valid: %v", err)
	}
	if _, err := NewBftConfig(7, 2); err != nil {
		t.Fatalf("n=7,f=2 should be valid: %v", err)
	}
	if _, err := NewBftConfig(5, 1); err == nil {
		t.Fatal("n=5,f=1 should be rejected (want n=4)")
	}
}

func TestThresholdIs2FPlus1(t *testing.T) {
	cfg, err := NewBftConfig(10, 3)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Threshold() != 7 {
		t.Fatalf("threshold = %d, want 7", cfg.Threshold())
	}
}

func TestShareSignAndVerify(t *testing.T) {
	kp := mustKeyPair(t)
	p := BftProposal{RoundID: "round-1", Payload: []byte("attack")}
	share := CreateShare(0, kp.Private, p)
	if err := VerifyShare(kp.Public, share); err != nil {
		t.Fatalf("verify share: %v", err)
	}
}

func TestShareRejectsWrongKey(t *testing.T) {
	kp := mustKeyPair(t)
	wrong := mustKeyPair(t)
	p := BftProposal{RoundID: "round-1", Payload: []byte("attack")}
	share := CreateShare(0, kp.Private, p)
	if err := VerifyShare(wrong.Public, share); err == nil {
		t.Fatal("expected verify failure against the wrong public key")
	}
}

func buildCommittee(t *testing.T, n, f int) (BftConfig, []BlsKeyPair, *ThresholdScheme) {
	t.Helper()
	cfg, err := NewBftConfig(n, f)
	if err != nil {
		t.Fatal(err)
	}
	keys := make([]BlsKeyPair, n)
	pubs := make(map[int]BlsPublicKey, n)
	for i := range keys {
		keys[i] = mustKeyPair(t)
		pubs[i] = keys[i].Public
	}
	scheme, err := NewThresholdScheme(cfg, pubs)
	if err != nil {
		t.Fatal(err)
	}
	return cfg, keys, scheme
}

func TestAggregateAndVerifyThreshold(t *testing.T) {
	cfg, keys, scheme := buildCommittee(t, 7, 2) // t=5
	p := BftProposal{RoundID: "r1", Payload: []byte("value")}

	var shares []BftShare
	for i := 0; i < cfg.N; i++ {
		shares = append(shares, CreateShare(i, keys[i].Private, p))
	}

	ts, err := scheme.Aggregate(p, shares[:5])
	if err != nil {
		t.Fatalf("aggregate with exactly t shares: %v", err)
	}
	if err := scheme.VerifyThreshold(ts); err != nil {
		t.Fatalf("verify threshold: %v", err)
	}
}

func TestAggregateFailsBelowThreshold(t *testing.T) {
	cfg, keys, scheme := buildCommittee(t, 7, 2) // t=5
	p := BftProposal{RoundID: "r1", Payload: []byte("value")}
	var shares []BftShare
	for i := 0; i < 4; i++ {
		shares = append(shares, CreateShare(i, keys[i].Private, p))
	}
	_ = cfg
	if _, err := scheme.Aggregate(p, shares); err == nil {
		t.Fatal("expected BftThresholdUnmet aggregating below t")
	}
}

func TestAggregateDeterministicUnderExtraShares(t *testing.T) {
	_, keys, scheme := buildCommittee(t, 7, 2) // t=5
	p := BftProposal{RoundID: "r1", Payload: []byte("value")}
	var shares []BftShare
	for i := 0; i < 7; i++ {
		shares = append(shares, CreateShare(i, keys[i].Private, p))
	}
	ts1, err := scheme.Aggregate(p, shares)
	if err != nil {
		t.Fatal(err)
	}
	// Reverse order should select the same ascending first-t subset.
	reversed := make([]BftShare, len(shares))
	for i, s := range shares {
		reversed[len(shares)-1-i] = s
	}
	ts2, err := scheme.Aggregate(p, reversed)
	if err != nil {
		t.Fatal(err)
	}
	if len(ts1.Signers) != len(ts2.Signers) {
		t.Fatal("signer counts should match")
	}
	for i := range ts1.Signers {
		if ts1.Signers[i] != ts2.Signers[i] {
			t.Fatalf("aggregation is not deterministic under reordering: %v vs %v", ts1.Signers, ts2.Signers)
		}
	}
}

func TestAggregateIgnoresBadAndDuplicateShares(t *testing.T) {
	_, keys, scheme := buildCommittee(t, 7, 2)
	p := BftProposal{RoundID: "r1", Payload: []byte("value")}
	var shares []BftShare
	for i := 0; i < 5; i++ {
		shares = append(shares, CreateShare(i, keys[i].Private, p))
	}
	// duplicate node 0's share, and add a forged share claiming node 5's
	// identity but signed with the wrong key.
	shares = append(shares, shares[0])
	forged := CreateShare(5, keys[6].Private, p) // wrong key for index 5
	shares = append(shares, forged)

	ts, err := scheme.Aggregate(p, shares)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if err := scheme.VerifyThreshold(ts); err != nil {
		t.Fatalf("verify threshold: %v", err)
	}
}

func TestArbitratorHappyPathReachesCommitted(t *testing.T) {
	cfg, keys, scheme := buildCommittee(t, 4, 1) // t=3
	p := NewBftProposal(1, "r1", 0, []byte("attack at dawn"), mustProposerSigner(t))

	arbitrators := make([]*Arbitrator, cfg.N)
	for i := range arbitrators {
		arbitrators[i] = NewArbitrator(i, keys[i].Private, scheme, cfg)
	}
	var shares []BftShare
	for i, a := range arbitrators {
		share, err := a.ReceiveProposal(p)
		if err != nil {
			t.Fatalf("node %d receive proposal: %v", i, err)
		}
		shares = append(shares, share)
	}
	for i, a := range arbitrators {
		for _, s := range shares {
			if s.NodeIndex == i {
				continue
			}
			if err := a.ReceiveShare(s); err != nil {
				t.Fatalf("node %d receive share from %d: %v", i, s.NodeIndex, err)
			}
		}
	}
	for i, a := range arbitrators {
		if a.Phase() != PhaseCommitted {
			t.Fatalf("node %d phase = %v, want COMMITTED", i, a.Phase())
		}
	}

	// Safety: every node's commit must name the same proposal.
	first, _ := arbitrators[0].Commit()
	for i, a := range arbitrators {
		c, ok := a.Commit()
		if !ok {
			t.Fatalf("node %d has no commit", i)
		}
		if c.Proposal.RoundID != first.Proposal.RoundID || string(c.Proposal.Payload) != string(first.Proposal.Payload) {
			t.Fatalf("node %d committed a different value: no safety", i)
		}
	}
}

func TestArbitratorToleratesFMinorityFaults(t *testing.T) {
	cfg, keys, _ := buildCommittee(t, 4, 1) // t=3, tolerates 1 fault
	p := NewBftProposal(1, "r1", 0, []byte("value"), mustProposerSigner(t))
	c, err := NewBftConsensus(cfg, keys)
	if err != nil {
		t.Fatal(err)
	}
	faulty := map[int]bool{3: true} // node 3 never participates
	committed := c.Propose(p, faulty)
	if committed != 3 {
		t.Fatalf("expected 3 honest nodes to commit, got %d", committed)
	}
}

func TestArbitratorConflictingProposalAborts(t *testing.T) {
	_, keys, scheme := buildCommittee(t, 4, 1)
	a := NewArbitrator(0, keys[0].Private, scheme, BftConfig{N: 4, F: 1})
	p1 := NewBftProposal(1, "r1", 0, []byte("attack"), mustProposerSigner(t))
	p2 := NewBftProposal(1, "r1", 0, []byte("retreat"), mustProposerSigner(t))
	if _, err := a.ReceiveProposal(p1); err != nil {
		t.Fatal(err)
	}
	if _, err := a.ReceiveProposal(p2); err == nil {
		t.Fatal("expected error on conflicting proposal for the same round")
	}
	if a.Phase() != PhaseAborted {
		t.Fatalf("phase = %v, want ABORTED", a.Phase())
	}
}

func TestArbitratorReceiveCommitFastForwards(t *testing.T) {
	cfg, keys, scheme := buildCommittee(t, 4, 1)
	p := BftProposal{RoundID: "r1", Payload: []byte("value")}
	var shares []BftShare
	for i := 0; i < 3; i++ {
		shares = append(shares, CreateShare(i, keys[i].Private, p))
	}
	ts, err := scheme.Aggregate(p, shares)
	if err != nil {
		t.Fatal(err)
	}
	commit := BftCommit{Proposal: p, Threshold: ts}

	latecomer := NewArbitrator(3, keys[3].Private, scheme, cfg)
	if err := latecomer.ReceiveCommit(commit); err != nil {
		t.Fatalf("receive commit: %v", err)
	}
	if latecomer.Phase() != PhaseCommitted {
		t.Fatalf("phase = %v, want COMMITTED", latecomer.Phase())
	}
}

func TestArbitratorRejectsConflictingCommit(t *testing.T) {
	cfg, keys, scheme := buildCommittee(t, 4, 1)
	p1 := BftProposal{RoundID: "r1", Payload: []byte("value-a")}
	p2 := BftProposal{RoundID: "r1", Payload: []byte("value-b")}
	var shares1, shares2 []BftShare
	for i := 0; i < 3; i++ {
		shares1 = append(shares1, CreateShare(i, keys[i].Private, p1))
		shares2 = append(shares2, CreateShare(i, keys[i].Private, p2))
	}
	ts1, err := scheme.Aggregate(p1, shares1)
	if err != nil {
		t.Fatal(err)
	}
	ts2, err := scheme.Aggregate(p2, shares2)
	if err != nil {
		t.Fatal(err)
	}

	node := NewArbitrator(3, keys[3].Private, scheme, cfg)
	if err := node.ReceiveCommit(BftCommit{Proposal: p1, Threshold: ts1}); err != nil {
		t.Fatal(err)
	}
	if err := node.ReceiveCommit(BftCommit{Proposal: p2, Threshold: ts2}); err == nil {
		t.Fatal("expected rejection of a conflicting commit once already committed")
	}
}

func TestProposalWireRoundTrip(t *testing.T) {
	p := NewBftProposal(1, "r1", 0, []byte("attack at dawn"), mustProposerSigner(t))
	parsed, err := ParseProposal(EncodeProposal(p))
	if err != nil {
		t.Fatalf("parse proposal: %v", err)
	}
	if parsed.Round != p.Round || parsed.RoundID != p.RoundID || parsed.ProposerID != p.ProposerID || string(parsed.Payload) != string(p.Payload) {
		t.Fatal("proposal fields did not round-trip")
	}
	if err := parsed.VerifySignature(); err != nil {
		t.Fatalf("parsed proposal should still verify: %v", err)
	}
}

func TestShareWireRoundTrip(t *testing.T) {
	kp := mustKeyPair(t)
	p := NewBftProposal(1, "r1", 0, []byte("value"), mustProposerSigner(t))
	share := CreateShare(2, kp.Private, p)
	parsed, err := ParseShare(EncodeShare(share))
	if err != nil {
		t.Fatalf("parse share: %v", err)
	}
	if parsed.NodeIndex != share.NodeIndex {
		t.Fatalf("node index = %d, want %d", parsed.NodeIndex, share.NodeIndex)
	}
	if err := VerifyShare(kp.Public, parsed); err != nil {
		t.Fatalf("parsed share should still verify: %v", err)
	}
}

func TestCommitWireRoundTrip(t *testing.T) {
	_, keys, scheme := buildCommittee(t, 4, 1) // t=3
	p := NewBftProposal(1, "r1", 0, []byte("value"), mustProposerSigner(t))
	var shares []BftShare
	for i := 0; i < 3; i++ {
		shares = append(shares, CreateShare(i, keys[i].Private, p))
	}
	ts, err := scheme.Aggregate(p, shares)
	if err != nil {
		t.Fatal(err)
	}
	commit := BftCommit{Proposal: p, Threshold: ts}

	parsed, err := ParseCommit(EncodeCommit(commit))
	if err != nil {
		t.Fatalf("parse commit: %v", err)
	}
	if len(parsed.Threshold.Signers) != len(ts.Signers) {
		t.Fatal("signer list did not round-trip")
	}
	for i := range ts.Signers {
		if parsed.Threshold.Signers[i] != ts.Signers[i] {
			t.Fatal("signer order did not round-trip")
		}
	}
	if err := scheme.VerifyThreshold(parsed.Threshold); err != nil {
		t.Fatalf("parsed commit should still verify: %v", err)
	}
}

func TestParseRejectsWrongWireTag(t *testing.T) {
	p := NewBftProposal(1, "r1", 0, []byte("value"), mustProposerSigner(t))
	if _, err := ParseShare(EncodeProposal(p)); err == nil {
		t.Fatal("expected tag-mismatch error parsing a proposal as a share")
	}
}

func TestParseRejectsTruncatedProposal(t *testing.T) {
	p := NewBftProposal(1, "r1", 0, []byte("value"), mustProposerSigner(t))
	buf := EncodeProposal(p)
	if _, err := ParseProposal(buf[:len(buf)-5]); err == nil {
		t.Fatal("expected error parsing truncated proposal bytes")
	}
}

func TestQuorumIntersection(t *testing.T) {
	// Any two threshold-sized signer sets must overlap in at least f+1
	// nodes, which is what forces an equivocating value to need an honest
	// double-sign. The worst case is 2t - n, so check the identity across
	// several committee sizes, then exhaustively for the smallest one.
	for f := 1; f <= 4; f++ {
		cfg, err := NewBftConfig(3*f+1, f)
		if err != nil {
			t.Fatal(err)
		}
		if worst := 2*cfg.Threshold() - cfg.N; worst != f+1 {
			t.Fatalf("f=%d: worst-case quorum overlap = %d, want %d", f, worst, f+1)
		}
	}

	// n=4, t=3: enumerate every pair of 3-subsets of {0,1,2,3}.
	subsets := [][]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	for _, s1 := range subsets {
		for _, s2 := range subsets {
			members := map[int]bool{}
			for _, v := range s1 {
				members[v] = true
			}
			overlap := 0
			for _, v := range s2 {
				if members[v] {
					overlap++
				}
			}
			if overlap < 2 {
				t.Fatalf("subsets %v and %v overlap in %d nodes, want >= 2", s1, s2, overlap)
			}
		}
	}
}
