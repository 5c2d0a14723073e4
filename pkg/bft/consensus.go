// Copyright 2025 TGP Authors

package bft

import "github.com/tgp-labs/tgp/pkg/tgperrors"

// BftConsensus wires together a full committee's Arbitrators in-process,
// for simulation and testing: it is the harness pkg/simulate drives the
// BFT liveness and safety scenarios over, standing in for n separate
// nodes exchanging shares over a real transport.
type BftConsensus struct {
	cfg     BftConfig
	scheme  *ThresholdScheme
	members []*Arbitrator
}

// NewBftConsensus builds a committee of cfg.N nodes from their key pairs,
// in node-index order (keys[i] is node i).
func NewBftConsensus(cfg BftConfig, keys []BlsKeyPair) (*BftConsensus, error) {
	if len(keys) != cfg.N {
		return nil, tgperrors.New(tgperrors.KindStructuralInvalid, "bft: key count must equal n")
	}
	pubs := make(map[int]BlsPublicKey, cfg.N)
	for i, k := range keys {
		pubs[i] = k.Public
	}
	scheme, err := NewThresholdScheme(cfg, pubs)
	if err != nil {
		return nil, err
	}
	members := make([]*Arbitrator, cfg.N)
	for i, k := range keys {
		members[i] = NewArbitrator(i, k.Private, scheme, cfg)
	}
	return &BftConsensus{cfg: cfg, scheme: scheme, members: members}, nil
}

// Member returns the arbitrator for node i.
func (c *BftConsensus) Member(i int) *Arbitrator { return c.members[i] }

// Scheme returns the committee's threshold scheme, for tests that want to
// verify a BftCommit independently of any one node.
func (c *BftConsensus) Scheme() *ThresholdScheme { return c.scheme }

// Propose delivers p to every live (non-aborted) node, collects each
// node's own share, and cross-delivers every share to every other live
// node — a synchronous, in-process stand-in for one round of gossip over
// a real transport. It returns the number of nodes that reached COMMITTED.
func (c *BftConsensus) Propose(p BftProposal, faulty map[int]bool) int {
	var shares []BftShare
	for i, m := range c.members {
		if faulty[i] || m.Phase() == PhaseAborted {
			continue
		}
		share, err := m.ReceiveProposal(p)
		if err != nil {
			continue
		}
		shares = append(shares, share)
	}
	for i, m := range c.members {
		if faulty[i] || m.Phase() == PhaseAborted {
			continue
		}
		for _, s := range shares {
			if s.NodeIndex == i {
				continue
			}
			_ = m.ReceiveShare(s)
		}
	}
	committed := 0
	for i, m := range c.members {
		if faulty[i] {
			continue
		}
		if m.Phase() == PhaseCommitted {
			committed++
		}
	}
	return committed
}
