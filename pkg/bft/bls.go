// Copyright 2025 TGP Authors
//
// BLS12-381 signing and threshold aggregation for the BFT multiparty
// extension, built on gnark-crypto's pure-Go curve implementation. Every
// node signs the same round value; a valid ThresholdSignature is an
// aggregate over any t of the n nodes' individual shares.
package bft

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

const (
	// BlsPrivateKeySize is the size in bytes of a serialized scalar.
	BlsPrivateKeySize = fr.Bytes
	// BlsPublicKeySize is the size in bytes of a compressed G2 point.
	BlsPublicKeySize = 96
	// BlsSignatureSize is the size in bytes of a compressed G1 point.
	BlsSignatureSize = 48
)

// ShareDomain domain-separates round-value signing from any other use of
// the same node keys.
const ShareDomain = "TGP_BFT_SHARE_V1"

var (
	g1Gen    bls12381.G1Affine
	g2Gen    bls12381.G2Affine
	initOnce sync.Once
)

func ensureInit() {
	initOnce.Do(func() {
		_, _, g1Gen, g2Gen = bls12381.Generators()
	})
}

// BlsPrivateKey is a node's BLS signing key, a scalar in Fr.
type BlsPrivateKey struct {
	scalar fr.Element
}

// BlsPublicKey is a node's BLS verification key, a point on G2.
type BlsPublicKey struct {
	point bls12381.G2Affine
}

// BlsSignature is a single node's signature over a round value, a point on G1.
type BlsSignature struct {
	point bls12381.G1Affine
}

// BlsKeyPair bundles a node's private and public key.
type BlsKeyPair struct {
	Private BlsPrivateKey
	Public  BlsPublicKey
}

// GenerateBlsKeyPair creates a fresh random key pair for one BFT node.
func GenerateBlsKeyPair() (BlsKeyPair, error) {
	ensureInit()
	var sk fr.Element
	if _, err := sk.SetRandom(); err != nil {
		return BlsKeyPair{}, fmt.Errorf("bft: generate bls scalar: %w", err)
	}
	priv := BlsPrivateKey{scalar: sk}
	return BlsKeyPair{Private: priv, Public: priv.PublicKey()}, nil
}

// PublicKey derives the public key for a private key: pk = sk * G2.
func (sk BlsPrivateKey) PublicKey() BlsPublicKey {
	ensureInit()
	var pk bls12381.G2Affine
	var skBig big.Int
	sk.scalar.BigInt(&skBig)
	pk.ScalarMultiplication(&g2Gen, &skBig)
	return BlsPublicKey{point: pk}
}

// Sign signs a round value's octets: sig = sk * H(value).
func (sk BlsPrivateKey) Sign(value []byte) BlsSignature {
	ensureInit()
	h := hashToG1(value)
	var sig bls12381.G1Affine
	var skBig big.Int
	sk.scalar.BigInt(&skBig)
	sig.ScalarMultiplication(&h, &skBig)
	return BlsSignature{point: sig}
}

// Bytes serializes the public key as a compressed G2 point.
func (pk BlsPublicKey) Bytes() []byte {
	b := pk.point.Bytes()
	return b[:]
}

// BlsPublicKeyFromBytes parses a compressed G2 point.
func BlsPublicKeyFromBytes(data []byte) (BlsPublicKey, error) {
	ensureInit()
	var pk bls12381.G2Affine
	if _, err := pk.SetBytes(data); err != nil {
		return BlsPublicKey{}, fmt.Errorf("bft: parse bls public key: %w", err)
	}
	return BlsPublicKey{point: pk}, nil
}

// Equal reports whether two public keys represent the same point.
func (pk BlsPublicKey) Equal(other BlsPublicKey) bool {
	return pk.point.Equal(&other.point)
}

// Bytes serializes the signature as a compressed G1 point.
func (sig BlsSignature) Bytes() []byte {
	b := sig.point.Bytes()
	return b[:]
}

// BlsSignatureFromBytes parses a compressed G1 point.
func BlsSignatureFromBytes(data []byte) (BlsSignature, error) {
	ensureInit()
	var sig bls12381.G1Affine
	if _, err := sig.SetBytes(data); err != nil {
		return BlsSignature{}, fmt.Errorf("bft: parse bls signature: %w", err)
	}
	return BlsSignature{point: sig}, nil
}

// verify checks a single signature against a single public key via the
// pairing equation e(sig, G2) == e(H(value), pk).
func verify(pk BlsPublicKey, value []byte, sig BlsSignature) bool {
	ensureInit()
	h := hashToG1(value)
	var negPk bls12381.G2Affine
	negPk.Neg(&pk.point)
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{sig.point, h},
		[]bls12381.G2Affine{g2Gen, negPk},
	)
	return err == nil && ok
}

// aggregateSignatures sums signature points on G1.
func aggregateSignatures(sigs []BlsSignature) (BlsSignature, error) {
	ensureInit()
	if len(sigs) == 0 {
		return BlsSignature{}, errors.New("bft: no signatures to aggregate")
	}
	var acc bls12381.G1Jac
	acc.FromAffine(&sigs[0].point)
	for i := 1; i < len(sigs); i++ {
		var jac bls12381.G1Jac
		jac.FromAffine(&sigs[i].point)
		acc.AddAssign(&jac)
	}
	var result bls12381.G1Affine
	result.FromJacobian(&acc)
	return BlsSignature{point: result}, nil
}

// aggregatePublicKeys sums public key points on G2, used to check a
// threshold signature against the subset of nodes that actually signed.
func aggregatePublicKeys(pks []BlsPublicKey) (BlsPublicKey, error) {
	ensureInit()
	if len(pks) == 0 {
		return BlsPublicKey{}, errors.New("bft: no public keys to aggregate")
	}
	var acc bls12381.G2Jac
	acc.FromAffine(&pks[0].point)
	for i := 1; i < len(pks); i++ {
		var jac bls12381.G2Jac
		jac.FromAffine(&pks[i].point)
		acc.AddAssign(&jac)
	}
	var result bls12381.G2Affine
	result.FromJacobian(&acc)
	return BlsPublicKey{point: result}, nil
}

// hashToG1 maps arbitrary octets onto a point on G1 using a simple
// hash-and-increment approach; adequate for a round-value binding scheme
// that does not need full hash-to-curve standardization.
func hashToG1(value []byte) bls12381.G1Affine {
	h := sha256.New()
	h.Write([]byte(ShareDomain))
	h.Write(value)
	base := h.Sum(nil)

	for counter := uint64(0); counter < 1000; counter++ {
		h2 := sha256.New()
		h2.Write(base)
		_ = binary.Write(h2, binary.BigEndian, counter)
		candidate := h2.Sum(nil)

		var point bls12381.G1Affine
		if _, err := point.SetBytes(candidate); err == nil && !point.IsInfinity() {
			return point
		}

		var scalar fr.Element
		scalar.SetBytes(candidate)
		var scalarBig big.Int
		scalar.BigInt(&scalarBig)
		var result bls12381.G1Affine
		result.ScalarMultiplication(&g1Gen, &scalarBig)
		if !result.IsInfinity() {
			return result
		}
	}
	return g1Gen
}

// hashRoundValue hashes an arbitrary round payload to the 32 octets that
// every node's share actually signs, so nodes proposing the same logical
// value always sign identical bytes regardless of how the value was built.
func hashRoundValue(roundID string, payload []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte("TGP_BFT_ROUND_VALUE"))
	h.Write([]byte(roundID))
	h.Write(payload)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
