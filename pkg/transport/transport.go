// Copyright 2025 TGP Authors
//
// Package transport defines the fair-lossy channel abstraction the
// flooding driver runs over, plus two implementations: an in-memory
// queue-pair for tests and simulation (with configurable loss, reorder, and
// duplication), and a real UDP datagram transport for production use. The
// continuous-flooding driver built on top never depends on message
// ordering or delivery guarantees beyond fairness: eventually-healthy
// channels eventually deliver.
package transport

import (
	"context"

	"github.com/tgp-labs/tgp/pkg/tgperrors"
)

// Datagram is a single framed unit of wire bytes in flight. Transports
// never interpret payload contents; codec.Decode does that above this
// layer.
type Datagram struct {
	Payload []byte
}

// Transport is the minimal channel contract the flooding driver needs:
// non-blocking-enough Send, and a blocking-until-deadline Receive. A
// Transport may silently drop, reorder, or duplicate datagrams; it must
// never corrupt one that it does deliver.
type Transport interface {
	// Send enqueues payload for delivery. It may return before the peer
	// has received it, or even if the datagram is ultimately dropped.
	Send(ctx context.Context, payload []byte) error
	// Receive blocks until a datagram arrives or ctx is done, returning
	// TransportClosed once the transport has been closed and drained.
	Receive(ctx context.Context) (Datagram, error)
	// Close releases the transport's resources. Receive calls already
	// blocked return TransportClosed.
	Close() error
}

// errClosed builds the error returned by Receive once a transport is closed and its
// buffered datagrams (if any) have been drained.
func errClosed() error {
	return tgperrors.New(tgperrors.KindTransportClosed, "transport: closed")
}
