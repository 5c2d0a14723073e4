// Copyright 2025 TGP Authors
//
// Package simulate drives the ladder and BFT cores over fault-injecting
// in-memory transports to exercise the testable properties the protocol
// promises: symmetric termination under message loss, the "Theseus"
// property that the transport implementation never matters to the
// outcome, and BFT safety/liveness under a minority of faulty nodes. It
// has no production caller; it exists for tests (and for a future
// `tgp-node simulate` subcommand) to assert on real end-to-end runs rather
// than unit-level mocks.
package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tgp-labs/tgp/pkg/bft"
	"github.com/tgp-labs/tgp/pkg/flood"
	"github.com/tgp-labs/tgp/pkg/ladder"
	"github.com/tgp-labs/tgp/pkg/party"
	"github.com/tgp-labs/tgp/pkg/signer"
	"github.com/tgp-labs/tgp/pkg/transport"
)

// TwoPartyScenario configures one run of the base (and V3) protocol
// between two simulated participants.
type TwoPartyScenario struct {
	Message       []byte
	LossAToB      float64
	LossBToA      float64
	FloodInterval time.Duration
	Deadline      time.Duration
	Seed          int64

	// SignerA and SignerB, when non-nil, fix each participant's signing key
	// across runs. Ed25519 signing is deterministic per key, so two runs of
	// the same scenario with the same signers converge to byte-identical
	// receipts no matter which frames the transport dropped. Nil generates a
	// fresh ephemeral key.
	SignerA, SignerB *signer.Signer
}

// TwoPartyResult reports what each participant observed.
type TwoPartyResult struct {
	OutcomeA, OutcomeB flood.Outcome
	ErrA, ErrB         error
}

// RunTwoParty drives one full session end to end and returns both
// participants' terminal outcomes, never blocking longer than
// scenario.Deadline.
func RunTwoParty(scenario TwoPartyScenario) (TwoPartyResult, error) {
	sA := scenario.SignerA
	if sA == nil {
		var err error
		if sA, err = signer.Generate(); err != nil {
			return TwoPartyResult{}, fmt.Errorf("simulate: generate signer a: %w", err)
		}
	}
	sB := scenario.SignerB
	if sB == nil {
		var err error
		if sB, err = signer.Generate(); err != nil {
			return TwoPartyResult{}, fmt.Errorf("simulate: generate signer b: %w", err)
		}
	}

	cfgAToB := transport.MemoryConfig{LossProbability: scenario.LossAToB, Rand: rand.New(rand.NewSource(scenario.Seed))}
	cfgBToA := transport.MemoryConfig{LossProbability: scenario.LossBToA, Rand: rand.New(rand.NewSource(scenario.Seed + 1))}
	pair := transport.NewMemoryPair(cfgAToB, cfgBToA)

	lA := ladder.New(party.A, sA)
	lB := ladder.New(party.B, sB)
	if _, err := lA.Create(scenario.Message); err != nil {
		return TwoPartyResult{}, err
	}
	if _, err := lB.Create(scenario.Message); err != nil {
		return TwoPartyResult{}, err
	}

	floodCfg := flood.Config{Interval: scenario.FloodInterval, Deadline: scenario.Deadline}
	if floodCfg.Interval <= 0 {
		floodCfg.Interval = 2 * time.Millisecond
	}
	if floodCfg.Deadline <= 0 {
		floodCfg.Deadline = 2 * time.Second
	}
	dA := flood.New(lA, pair.A(), floodCfg, nil)
	dB := flood.New(lB, pair.B(), floodCfg, nil)

	var result TwoPartyResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); result.OutcomeA, result.ErrA = dA.Run(context.Background()) }()
	go func() { defer wg.Done(); result.OutcomeB, result.ErrB = dB.Run(context.Background()) }()
	wg.Wait()
	return result, nil
}

// BftScenario configures one run of a BFT committee round.
type BftScenario struct {
	N, F        int
	FaultyNodes []int // node indices that never participate
	RoundID     string
	Payload     []byte
}

// BftResult reports how many honest nodes reached COMMITTED and whether
// every committed value agreed (the safety check).
type BftResult struct {
	CommitteeSize int
	Threshold     int
	Committed     int
	AllAgree      bool
}

// RunBft builds a committee per scenario, proposes one round, and reports
// liveness (how many honest nodes committed) and safety (whether every
// commit names the same value).
func RunBft(scenario BftScenario) (BftResult, error) {
	cfg, err := bft.NewBftConfig(scenario.N, scenario.F)
	if err != nil {
		return BftResult{}, err
	}
	keys := make([]bft.BlsKeyPair, cfg.N)
	for i := range keys {
		kp, err := bft.GenerateBlsKeyPair()
		if err != nil {
			return BftResult{}, err
		}
		keys[i] = kp
	}
	consensus, err := bft.NewBftConsensus(cfg, keys)
	if err != nil {
		return BftResult{}, err
	}
	faulty := make(map[int]bool, len(scenario.FaultyNodes))
	for _, idx := range scenario.FaultyNodes {
		faulty[idx] = true
	}
	proposerSigner, err := signer.Generate()
	if err != nil {
		return BftResult{}, fmt.Errorf("simulate: generate proposer signer: %w", err)
	}
	p := bft.NewBftProposal(1, scenario.RoundID, 0, scenario.Payload, proposerSigner)
	committed := consensus.Propose(p, faulty)

	allAgree := true
	var first *bft.BftCommit
	for i := 0; i < cfg.N; i++ {
		if faulty[i] {
			continue
		}
		c, ok := consensus.Member(i).Commit()
		if !ok {
			continue
		}
		if first == nil {
			first = &c
			continue
		}
		if first.Proposal.RoundID != c.Proposal.RoundID || string(first.Proposal.Payload) != string(c.Proposal.Payload) {
			allAgree = false
		}
	}
	return BftResult{
		CommitteeSize: cfg.N,
		Threshold:     cfg.Threshold(),
		Committed:     committed,
		AllAgree:      allAgree,
	}, nil
}
