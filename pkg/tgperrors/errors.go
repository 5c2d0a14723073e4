// Copyright 2025 TGP Authors
//
// Package tgperrors defines the error taxonomy described in the design's
// error handling section: a small, closed set of kinds, each either locally
// recoverable (drop and continue) or escalated to an ABORT outcome.
package tgperrors

import (
	"errors"
	"fmt"
)

// Kind identifies one of the seven error categories the core can produce.
type Kind string

const (
	// KindCodec covers malformed frames, unknown tags, and length overflow.
	KindCodec Kind = "CODEC_ERROR"
	// KindSignatureInvalid covers any embedded signature failing verification.
	KindSignatureInvalid Kind = "SIGNATURE_INVALID"
	// KindStructuralInvalid covers party-tag or embedding inconsistencies.
	KindStructuralInvalid Kind = "STRUCTURAL_INVALID"
	// KindTransportClosed means the underlying channel is unusable.
	KindTransportClosed Kind = "TRANSPORT_CLOSED"
	// KindDeadlineExpired is not a failure; it surfaces as a normal ABORT.
	KindDeadlineExpired Kind = "DEADLINE_EXPIRED"
	// KindBftShareMismatch means a share referenced a different value hash.
	KindBftShareMismatch Kind = "BFT_SHARE_MISMATCH"
	// KindBftThresholdUnmet means aggregation was attempted with too few shares.
	KindBftThresholdUnmet Kind = "BFT_THRESHOLD_UNMET"
)

// Error is the structured error value carried through the core. Unlike the
// business-error catalogue this is grounded on, it has exactly the seven
// kinds the design calls for.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, tgperrors.KindX) style checks by comparing kinds
// through a sentinel wrapper; see KindError below for the idiomatic use.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindError is a zero-value sentinel usable with errors.Is to test kind
// membership without constructing a full Error: errors.Is(err, KindError(tgperrors.KindCodec)).
func KindError(kind Kind) *Error {
	return &Error{Kind: kind}
}

// IsRecoverable reports whether the error kind is locally recoverable
// (drop and continue) as opposed to one that must escalate to ABORT.
func IsRecoverable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindCodec, KindSignatureInvalid, KindStructuralInvalid, KindBftShareMismatch, KindBftThresholdUnmet:
		return true
	default:
		return false
	}
}
