// Copyright 2025 TGP Authors
//
// Package signer is the thin signing/verification adapter the ladder and
// BFT cores depend on. Apart from Generate, which creates a fresh random
// key, it never constructs or parses key material beyond the raw octets it
// is handed at startup; key distribution is left to callers.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

const (
	// PublicKeySize is the size in bytes of an Ed25519 public key.
	PublicKeySize = ed25519.PublicKeySize
	// SignatureSize is the size in bytes of an Ed25519 signature.
	SignatureSize = ed25519.SignatureSize
	// HashSize is the digest size produced by Hash.
	HashSize = sha256.Size
)

// PublicKey is an opaque 32-octet verification key.
type PublicKey [PublicKeySize]byte

// Signature is an opaque 64-octet signature.
type Signature [SignatureSize]byte

// Signer produces signatures over arbitrary octet sequences. A Signer wraps
// an Ed25519 private key; it is safe for concurrent use because Ed25519
// signing is a pure function of the key and message.
type Signer struct {
	priv ed25519.PrivateKey
	pub  PublicKey
}

// Generate creates a fresh signing key pair.
func Generate() (*Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("signer: generate key: %w", err)
	}
	return FromPrivateKey(priv)
}

// FromPrivateKey builds a Signer from an existing 64-byte Ed25519 private key.
func FromPrivateKey(priv ed25519.PrivateKey) (*Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signer: private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	var pub PublicKey
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return &Signer{priv: priv, pub: pub}, nil
}

// PublicKey returns this signer's public key.
func (s *Signer) PublicKey() PublicKey {
	return s.pub
}

// Sign signs octets and returns the signature.
func (s *Signer) Sign(octets []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(s.priv, octets))
	return sig
}

// Verify checks a signature over octets against a public key. It never
// panics on malformed input; any failure, including a zero or malformed
// key, returns false.
func Verify(pub PublicKey, octets []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), octets, sig[:])
}

// Hash returns the 32-octet SHA-256 digest of octets. It is the hash
// primitive used for artifact content-addressing and receipt hashes.
func Hash(octets []byte) [HashSize]byte {
	return sha256.Sum256(octets)
}

// PublicKeyFromBytes parses a raw 32-byte public key.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("signer: public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// SignatureFromBytes parses a raw 64-byte signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureSize {
		return sig, fmt.Errorf("signer: signature must be %d bytes, got %d", SignatureSize, len(b))
	}
	copy(sig[:], b)
	return sig, nil
}
