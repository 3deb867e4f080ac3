// Package errors defines the error taxonomy exposed to callers of the
// transaction state machine (core/txn). It mirrors the teacher's
// core/errors package shape (package-scoped sentinels built on the
// standard errors package) but generalizes it to the fixed six-way
// taxonomy the exchange protocol uses to decide rollback behaviour.
package errors

import (
	"errors"
	"fmt"
)

// Code is one of the six outcomes a transaction step can produce. The state
// machine uses Code, not the wrapped error's text, to decide whether a
// RetroPak rollback is required (see core/txn).
type Code string

const (
	CodeInvalidState        Code = "INVALID_STATE"
	CodeTimeout              Code = "TIMEOUT"
	CodeValidationFailed     Code = "VALIDATION_FAILED"
	CodeInsufficientTokens   Code = "INSUFFICIENT_TOKENS"
	CodePeerRejected         Code = "PEER_REJECTED"
	CodeInternalError        Code = "INTERNAL_ERROR"
)

// TxError is the error type every exported core/txn operation returns on
// failure. Reason carries an optional sub-classification, e.g.
// "TIME" for a PEER_REJECTED caused by the time-integrity gate.
type TxError struct {
	Code   Code
	Reason string
	Err    error
}

func (e *TxError) Error() string {
	if e.Reason != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s/%s: %v", e.Code, e.Reason, e.Err)
		}
		return fmt.Sprintf("%s/%s", e.Code, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *TxError) Unwrap() error { return e.Err }

// New builds a TxError with no sub-reason.
func New(code Code, err error) *TxError {
	return &TxError{Code: code, Err: err}
}

// Newf builds a TxError wrapping a formatted message.
func Newf(code Code, format string, args ...any) *TxError {
	return &TxError{Code: code, Err: fmt.Errorf(format, args...)}
}

// WithReason builds a TxError carrying a sub-classification, e.g.
// errors.WithReason(CodePeerRejected, "TIME", errTimeInadequate).
func WithReason(code Code, reason string, err error) *TxError {
	return &TxError{Code: code, Reason: reason, Err: err}
}

// CodeOf extracts the Code from err if it (or something it wraps) is a
// *TxError, and ok=false otherwise.
func CodeOf(err error) (Code, bool) {
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr.Code, true
	}
	return "", false
}

// Sentinel errors for conditions that do not need a dynamic message.
var (
	ErrTokenLocked          = errors.New("errors: token locked by another pending transaction")
	ErrChainOfCustodyFailed = errors.New("errors: chain of custody verification failed")
	ErrDuplicateInitiation  = errors.New("errors: transaction id already initiated by this sender/receiver pair")
)
