// Copyright 2025 TGP Authors

package transport

import (
	"context"
	"math/rand"
	"sync"
)

// MemoryConfig controls the fault injection a MemoryPair applies to every
// datagram, independently in each direction.
type MemoryConfig struct {
	// LossProbability is the chance, in [0, 1], that a sent datagram is
	// silently dropped before the peer ever sees it; 1 drops everything.
	LossProbability float64
	// DuplicateProbability is the chance a delivered datagram is enqueued
	// a second time, simulating a retransmit arriving twice.
	DuplicateProbability float64
	// ReorderWindow is the maximum number of already-queued datagrams a
	// new arrival may jump ahead of. Zero disables reordering.
	ReorderWindow int
	// Rand, if non-nil, is used for all fault-injection decisions, making
	// tests reproducible. Defaults to the shared global source.
	Rand *rand.Rand
}

func (c MemoryConfig) float64() float64 {
	if c.Rand != nil {
		return c.Rand.Float64()
	}
	return rand.Float64()
}

func (c MemoryConfig) intn(n int) int {
	if c.Rand != nil {
		return c.Rand.Intn(n)
	}
	return rand.Intn(n)
}

// memoryEnd is one direction of an in-memory, possibly-faulty channel.
type memoryEnd struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
	cfg    MemoryConfig
}

func newMemoryEnd(cfg MemoryConfig) *memoryEnd {
	e := &memoryEnd{cfg: cfg}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *memoryEnd) push(payload []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.cfg.LossProbability > 0 && e.cfg.float64() < e.cfg.LossProbability {
		return
	}
	cp := append([]byte(nil), payload...)
	if e.cfg.ReorderWindow > 0 && len(e.queue) > 0 {
		window := e.cfg.ReorderWindow
		if window > len(e.queue) {
			window = len(e.queue)
		}
		idx := len(e.queue) - e.cfg.intn(window+1)
		e.queue = append(e.queue, nil)
		copy(e.queue[idx+1:], e.queue[idx:])
		e.queue[idx] = cp
	} else {
		e.queue = append(e.queue, cp)
	}
	if e.cfg.DuplicateProbability > 0 && e.cfg.float64() < e.cfg.DuplicateProbability {
		e.queue = append(e.queue, append([]byte(nil), cp...))
	}
	e.cond.Signal()
}

func (e *memoryEnd) pop(ctx context.Context) (Datagram, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.cond.Broadcast()
			e.mu.Unlock()
		case <-done:
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.queue) == 0 && !e.closed {
		if ctx.Err() != nil {
			return Datagram{}, ctx.Err()
		}
		e.cond.Wait()
		if ctx.Err() != nil {
			return Datagram{}, ctx.Err()
		}
	}
	if len(e.queue) == 0 && e.closed {
		return Datagram{}, errClosed()
	}
	payload := e.queue[0]
	e.queue = e.queue[1:]
	return Datagram{Payload: payload}, nil
}

func (e *memoryEnd) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.cond.Broadcast()
}

// MemoryPair is a pair of connected, independently fault-injecting
// in-memory Transports: A.Send feeds B.Receive and vice versa. It is the
// harness pkg/simulate drives the testable properties over.
type MemoryPair struct {
	a *memoryTransport
	b *memoryTransport
}

// NewMemoryPair creates a connected pair of transports, each configured
// with its own independent fault injection.
func NewMemoryPair(cfgAToB, cfgBToA MemoryConfig) *MemoryPair {
	aToB := newMemoryEnd(cfgAToB)
	bToA := newMemoryEnd(cfgBToA)
	return &MemoryPair{
		a: &memoryTransport{outbound: aToB, inbound: bToA},
		b: &memoryTransport{outbound: bToA, inbound: aToB},
	}
}

// A returns the transport for the first participant.
func (p *MemoryPair) A() Transport { return p.a }

// B returns the transport for the second participant.
func (p *MemoryPair) B() Transport { return p.b }

type memoryTransport struct {
	outbound *memoryEnd
	inbound  *memoryEnd
}

func (t *memoryTransport) Send(ctx context.Context, payload []byte) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	t.outbound.push(payload)
	return nil
}

func (t *memoryTransport) Receive(ctx context.Context) (Datagram, error) {
	return t.inbound.pop(ctx)
}

func (t *memoryTransport) Close() error {
	t.outbound.close()
	t.inbound.close()
	return nil
}
