// Copyright 2025 TGP Authors
//
// Package dh derives a post-agreement session key from a completed
// bilateral exchange. Deriving and using an authenticated channel for
// whatever the two parties coordinate after the attack decision is made is
// out of scope for the protocol itself; this package is the typed seam a
// caller hooks a real session layer into, built on x25519 key agreement,
// HKDF-SHA256 expansion, and ChaCha20-Poly1305 AEAD framing.
package dh

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Contribution is one party's ephemeral X25519 public key, wired over the
// same flooding transport as the ladder artifacts via codec.FrameDHContribution.
type Contribution struct {
	PublicKey [32]byte
}

// KeyPair is an ephemeral X25519 key pair generated fresh per session; it
// is never reused across rounds.
type KeyPair struct {
	private [32]byte
	public  [32]byte
}

// GenerateKeyPair creates a fresh ephemeral X25519 key pair.
func GenerateKeyPair() (KeyPair, error) {
	var priv [32]byte
	if _, err := io.ReadFull(rand.Reader, priv[:]); err != nil {
		return KeyPair{}, fmt.Errorf("dh: read random scalar: %w", err)
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("dh: derive public key: %w", err)
	}
	var kp KeyPair
	kp.private = priv
	copy(kp.public[:], pub)
	return kp, nil
}

// Contribution returns this key pair's public contribution to send to the
// counterparty.
func (kp KeyPair) Contribution() Contribution {
	return Contribution{PublicKey: kp.public}
}

// SessionSalt is the 32-octet key material derived from a completed
// exchange, to be fed into whatever AEAD session layer a caller builds on
// top. It is a pure function of the two parties' ephemeral contributions
// and the bilateral receipt hash, so both sides derive the same salt
// without any further communication.
type SessionSalt [32]byte

// DeriveSessionSalt computes the X25519 shared secret between own and
// peer, binds it to receiptHash (the completed protocol's FinalReceipt
// hash) via HKDF-SHA256, and returns 32 octets of derived key material.
func DeriveSessionSalt(own KeyPair, peer Contribution, receiptHash [32]byte) (SessionSalt, error) {
	shared, err := curve25519.X25519(own.private[:], peer.PublicKey[:])
	if err != nil {
		return SessionSalt{}, fmt.Errorf("dh: compute shared secret: %w", err)
	}
	hk := hkdf.New(sha256.New, shared, receiptHash[:], []byte("TGP_SESSION_SALT_V1"))
	var salt SessionSalt
	if _, err := io.ReadFull(hk, salt[:]); err != nil {
		return SessionSalt{}, fmt.Errorf("dh: expand session salt: %w", err)
	}
	return salt, nil
}

// NewAEAD constructs a ChaCha20-Poly1305 AEAD from a session salt, for a
// caller that wants to wrap an authenticated channel around the completed
// exchange. TGP itself never calls this: artifact exchange is signed, not
// encrypted, and confidentiality of the post-agreement channel is the
// caller's concern.
func NewAEAD(salt SessionSalt) (cipher.AEAD, error) {
	return chacha20poly1305.New(salt[:])
}
