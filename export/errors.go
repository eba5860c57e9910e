package export

import "errors"

// Kind is a stable failure category for programmatic error handling.
//
// These categories are intended to remain stable across versions.
// Callers should branch on Kind/RuleID rather than matching error strings.
//
// NOTE: Error() strings are intentionally kept human-readable and may evolve.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindMalformedHeader        Kind = "MalformedHeader"
	KindTruncatedMessage       Kind = "TruncatedMessage"
	KindFieldRange             Kind = "FieldRange"
	KindInvalidKeyRecord       Kind = "InvalidKeyRecord"
	KindUnsupportedAlgorithm   Kind = "UnsupportedAlgorithm"
	KindMalformedSignature     Kind = "MalformedSignature"
	KindKeyNotFound            Kind = "KeyNotFound"
	KindIncompleteBatchSet     Kind = "IncompleteBatchSet"
	KindInconsistentWindow     Kind = "InconsistentWindow"
	KindBatchSignatureMismatch Kind = "BatchSignatureMismatch"
)

// Error is the module's structured error type, shared by the codec,
// verifier, and assembler packages.
//
// RuleID is a stable identifier (e.g., TEK-HDR-001, TEK-RANGE-003) that
// names the violated invariant.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError builds a structured error with the given category and rule.
func NewError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// WrapError builds a structured error preserving an underlying cause.
func WrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
