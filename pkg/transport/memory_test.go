// Copyright 2025 TGP Authors

package transport

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func TestMemoryPairDeliversInOrderByDefault(t *testing.T) {
	pair := NewMemoryPair(MemoryConfig{}, MemoryConfig{})
	a, b := pair.A(), pair.B()
	ctx := context.Background()

	msgs := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, m := range msgs {
		if err := a.Send(ctx, m); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	for _, want := range msgs {
		got, err := b.Receive(ctx)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if string(got.Payload) != string(want) {
			t.Fatalf("got %q, want %q", got.Payload, want)
		}
	}
}

func TestMemoryPairBidirectional(t *testing.T) {
	pair := NewMemoryPair(MemoryConfig{}, MemoryConfig{})
	a, b := pair.A(), pair.B()
	ctx := context.Background()

	if err := a.Send(ctx, []byte("from a")); err != nil {
		t.Fatal(err)
	}
	if err := b.Send(ctx, []byte("from b")); err != nil {
		t.Fatal(err)
	}
	gotB, err := b.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(gotB.Payload) != "from a" {
		t.Fatalf("b got %q", gotB.Payload)
	}
	gotA, err := a.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(gotA.Payload) != "from b" {
		t.Fatalf("a got %q", gotA.Payload)
	}
}

func TestMemoryPairTotalLossDropsEverything(t *testing.T) {
	cfg := MemoryConfig{LossProbability: 1.0, Rand: rand.New(rand.NewSource(42))}
	pair := NewMemoryPair(cfg, MemoryConfig{})
	a, b := pair.A(), pair.B()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := a.Send(context.Background(), []byte("lost")); err != nil {
		t.Fatal(err)
	}
	_, err := b.Receive(ctx)
	if err == nil {
		t.Fatal("expected receive to time out since every datagram is dropped")
	}
}

func TestMemoryPairDuplication(t *testing.T) {
	cfg := MemoryConfig{DuplicateProbability: 1.0, Rand: rand.New(rand.NewSource(7))}
	pair := NewMemoryPair(cfg, MemoryConfig{})
	a, b := pair.A(), pair.B()
	ctx := context.Background()

	if err := a.Send(ctx, []byte("dup me")); err != nil {
		t.Fatal(err)
	}
	first, err := b.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(first.Payload) != "dup me" || string(second.Payload) != "dup me" {
		t.Fatal("expected duplicated delivery of the same payload")
	}
}

func TestMemoryPairReceiveHonorsContextCancellation(t *testing.T) {
	pair := NewMemoryPair(MemoryConfig{}, MemoryConfig{})
	_, b := pair.A(), pair.B()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := b.Receive(ctx)
	if err == nil {
		t.Fatal("expected receive to return an error when context deadline elapses with nothing queued")
	}
}

func TestMemoryPairCloseUnblocksReceive(t *testing.T) {
	pair := NewMemoryPair(MemoryConfig{}, MemoryConfig{})
	a, b := pair.A(), pair.B()

	done := make(chan error, 1)
	go func() {
		_, err := b.Receive(context.Background())
		done <- err
	}()
	time.Sleep(5 * time.Millisecond)
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected closed-transport error")
		}
	case <-time.After(time.Second):
		t.Fatal("receive did not unblock after close")
	}
}
