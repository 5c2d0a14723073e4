// Copyright 2025 TGP Authors
//
// Canonical byte encodings for the three BFT message types, so a committee
// can run over the same datagram transport the two-party ladder uses. The
// scheme matches the artifact package's: every variable-length field is
// 4-byte big-endian length-prefixed, fixed-width integers are 8-byte
// big-endian, and each encoding opens with its wire tag octet so a decoded
// frame's payload is self-describing.

package bft

import (
	"encoding/binary"
	"fmt"

	"github.com/tgp-labs/tgp/pkg/signer"
	"github.com/tgp-labs/tgp/pkg/tgperrors"
)

const (
	wireTagProposal byte = 0x30
	wireTagShare    byte = 0x31
	wireTagCommit   byte = 0x32
)

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendField(buf, field []byte) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(field)))
	buf = append(buf, length[:]...)
	return append(buf, field...)
}

func readUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, tgperrors.New(tgperrors.KindCodec, "bft: truncated integer")
	}
	return binary.BigEndian.Uint64(buf[:8]), buf[8:], nil
}

func readField(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, tgperrors.New(tgperrors.KindCodec, "bft: truncated field length")
	}
	length := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint64(length) > uint64(len(buf)) {
		return nil, nil, tgperrors.New(tgperrors.KindCodec, "bft: truncated field body")
	}
	return buf[:length], buf[length:], nil
}

func expectWireTag(buf []byte, want byte) ([]byte, error) {
	if len(buf) < 1 {
		return nil, tgperrors.New(tgperrors.KindCodec, "bft: empty message")
	}
	if buf[0] != want {
		return nil, tgperrors.New(tgperrors.KindCodec, fmt.Sprintf("bft: tag mismatch: got 0x%02x, want 0x%02x", buf[0], want))
	}
	return buf[1:], nil
}

// EncodeProposal serializes a proposal for transmission.
func EncodeProposal(p BftProposal) []byte {
	buf := []byte{wireTagProposal}
	buf = appendUint64(buf, uint64(p.Round))
	buf = appendField(buf, []byte(p.RoundID))
	buf = appendUint64(buf, uint64(p.ProposerID))
	buf = appendField(buf, p.Payload)
	buf = appendField(buf, p.Signature[:])
	buf = appendField(buf, p.PublicKey[:])
	return buf
}

// ParseProposal is the inverse of EncodeProposal. Like the artifact
// parsers it never verifies; callers verify before trusting.
func ParseProposal(buf []byte) (BftProposal, error) {
	rest, err := expectWireTag(buf, wireTagProposal)
	if err != nil {
		return BftProposal{}, err
	}
	round, rest, err := readUint64(rest)
	if err != nil {
		return BftProposal{}, err
	}
	roundID, rest, err := readField(rest)
	if err != nil {
		return BftProposal{}, err
	}
	proposer, rest, err := readUint64(rest)
	if err != nil {
		return BftProposal{}, err
	}
	payload, rest, err := readField(rest)
	if err != nil {
		return BftProposal{}, err
	}
	sigField, rest, err := readField(rest)
	if err != nil {
		return BftProposal{}, err
	}
	keyField, _, err := readField(rest)
	if err != nil {
		return BftProposal{}, err
	}
	sig, err := signer.SignatureFromBytes(sigField)
	if err != nil {
		return BftProposal{}, tgperrors.Wrap(tgperrors.KindCodec, "bft: proposal signature", err)
	}
	pub, err := signer.PublicKeyFromBytes(keyField)
	if err != nil {
		return BftProposal{}, tgperrors.Wrap(tgperrors.KindCodec, "bft: proposal public key", err)
	}
	return BftProposal{
		Round:      int(round),
		RoundID:    string(roundID),
		ProposerID: int(proposer),
		Payload:    append([]byte(nil), payload...),
		Signature:  sig,
		PublicKey:  pub,
	}, nil
}

// EncodeShare serializes one node's share, embedding the proposal it signs
// so a receiver can validate the share against the right value hash even
// if it never saw the proposal arrive on its own.
func EncodeShare(s BftShare) []byte {
	buf := []byte{wireTagShare}
	buf = appendUint64(buf, uint64(s.NodeIndex))
	buf = appendField(buf, EncodeProposal(s.Proposal))
	buf = appendField(buf, s.Signature.Bytes())
	return buf
}

// ParseShare is the inverse of EncodeShare.
func ParseShare(buf []byte) (BftShare, error) {
	rest, err := expectWireTag(buf, wireTagShare)
	if err != nil {
		return BftShare{}, err
	}
	nodeIndex, rest, err := readUint64(rest)
	if err != nil {
		return BftShare{}, err
	}
	proposalField, rest, err := readField(rest)
	if err != nil {
		return BftShare{}, err
	}
	sigField, _, err := readField(rest)
	if err != nil {
		return BftShare{}, err
	}
	p, err := ParseProposal(proposalField)
	if err != nil {
		return BftShare{}, err
	}
	sig, err := BlsSignatureFromBytes(sigField)
	if err != nil {
		return BftShare{}, tgperrors.Wrap(tgperrors.KindCodec, "bft: share signature", err)
	}
	return BftShare{NodeIndex: int(nodeIndex), Proposal: p, Signature: sig}, nil
}

// EncodeCommit serializes a commit: the proposal, the ascending signer
// index list, and the aggregate signature. The embedded threshold
// signature's own proposal copy is not re-encoded; it is reconstructed on
// parse, which also guarantees the two can never disagree on the wire.
func EncodeCommit(c BftCommit) []byte {
	buf := []byte{wireTagCommit}
	buf = appendField(buf, EncodeProposal(c.Proposal))
	buf = appendUint64(buf, uint64(len(c.Threshold.Signers)))
	for _, idx := range c.Threshold.Signers {
		buf = appendUint64(buf, uint64(idx))
	}
	buf = appendField(buf, c.Threshold.Aggregate.Bytes())
	return buf
}

// ParseCommit is the inverse of EncodeCommit.
func ParseCommit(buf []byte) (BftCommit, error) {
	rest, err := expectWireTag(buf, wireTagCommit)
	if err != nil {
		return BftCommit{}, err
	}
	proposalField, rest, err := readField(rest)
	if err != nil {
		return BftCommit{}, err
	}
	p, err := ParseProposal(proposalField)
	if err != nil {
		return BftCommit{}, err
	}
	count, rest, err := readUint64(rest)
	if err != nil {
		return BftCommit{}, err
	}
	if count > uint64(len(rest))/8 {
		return BftCommit{}, tgperrors.New(tgperrors.KindCodec, "bft: signer count exceeds remaining bytes")
	}
	signers := make([]int, 0, count)
	for i := uint64(0); i < count; i++ {
		var idx uint64
		idx, rest, err = readUint64(rest)
		if err != nil {
			return BftCommit{}, err
		}
		signers = append(signers, int(idx))
	}
	sigField, _, err := readField(rest)
	if err != nil {
		return BftCommit{}, err
	}
	agg, err := BlsSignatureFromBytes(sigField)
	if err != nil {
		return BftCommit{}, tgperrors.Wrap(tgperrors.KindCodec, "bft: aggregate signature", err)
	}
	return BftCommit{
		Proposal:  p,
		Threshold: ThresholdSignature{Proposal: p, Signers: signers, Aggregate: agg},
	}, nil
}
