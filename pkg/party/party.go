// Copyright 2025 TGP Authors
//
// Package party defines the two-valued participant tag used throughout the
// Two Generals ladder. The BFT core (pkg/bft) identifies nodes by a plain
// committee index instead.
package party

// Party identifies one of the two participants in the two-party protocol.
type Party uint8

const (
	A Party = iota
	B
)

// Other returns the counterparty tag.
func (p Party) Other() Party {
	if p == A {
		return B
	}
	return A
}

func (p Party) String() string {
	if p == A {
		return "A"
	}
	return "B"
}
