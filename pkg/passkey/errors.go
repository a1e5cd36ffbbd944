// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package passkey

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication operations.
var (
	// ErrChallengeNotFound is returned when a challenge cannot be consumed.
	// It covers never-issued, already-consumed, and expired challenges alike;
	// callers must not be able to distinguish these cases.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrCredentialNotFound is returned when a credential cannot be found.
	// Deactivated credentials are reported identically to missing ones.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialAlreadyExists is returned when registering a duplicate credential ID.
	ErrCredentialAlreadyExists = errors.New("credential already exists")

	// ErrUserUnknown is returned when a target hint resolves to no user.
	ErrUserUnknown = errors.New("unknown user")

	// ErrVerificationFailed is returned when assertion verification fails for
	// any cryptographic reason (signature, origin, RP ID, authenticator flags).
	ErrVerificationFailed = errors.New("assertion verification failed")

	// ErrClonedAuthenticator is returned on a signature counter regression,
	// indicating a potentially cloned authenticator. This is a hard failure
	// distinct from ErrVerificationFailed and is routed to security monitoring.
	ErrClonedAuthenticator = errors.New("cloned authenticator detected")

	// ErrMalformedAssertion is returned when a submitted assertion payload is
	// structurally invalid and is rejected at the boundary.
	ErrMalformedAssertion = errors.New("malformed assertion")

	// ErrStoreUnavailable wraps backing-store failures so they never leak
	// implementation detail past the transport boundary.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotConfigured is returned when the coordinator is used before being
	// constructed through NewCoordinator.
	ErrNotConfigured = errors.New("passkey coordinator not configured")
)

// Reason is the normalized failure reason exposed at the transport boundary.
// Every internal error maps to exactly one of these before leaving the core.
type Reason string

const (
	// ReasonInvalidOrExpiredChallenge covers never-issued, consumed, and
	// expired challenges. The client recovers by requesting a new challenge.
	ReasonInvalidOrExpiredChallenge Reason = "invalid_or_expired_challenge"

	// ReasonUnknownCredential means no active credential matched the assertion.
	ReasonUnknownCredential Reason = "unknown_credential"

	// ReasonVerificationFailed is the generic cryptographic mismatch.
	ReasonVerificationFailed Reason = "verification_failed"

	// ReasonCloneDetected is a counter regression; surfaced to the end user as
	// a generic failure but routed to the audit path.
	ReasonCloneDetected Reason = "clone_detected"

	// ReasonServiceUnavailable is a backing-store outage. The only reason
	// eligible for client-side retry with backoff.
	ReasonServiceUnavailable Reason = "service_unavailable"
)

// ReasonFromError normalizes an error from the coordinator to a Reason.
func ReasonFromError(err error) Reason {
	switch {
	case errors.Is(err, ErrChallengeNotFound):
		return ReasonInvalidOrExpiredChallenge
	case errors.Is(err, ErrCredentialNotFound):
		return ReasonUnknownCredential
	case errors.Is(err, ErrClonedAuthenticator):
		return ReasonCloneDetected
	case errors.Is(err, ErrStoreUnavailable):
		return ReasonServiceUnavailable
	default:
		return ReasonVerificationFailed
	}
}

// Error wraps an error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with the given operation and error.
func NewError(op string, err error) error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// IsChallengeNotFound returns true if the error indicates a challenge could not be consumed.
func IsChallengeNotFound(err error) bool {
	return errors.Is(err, ErrChallengeNotFound)
}

// IsCredentialNotFound returns true if the error indicates a credential was not found.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}

// IsUserUnknown returns true if the error indicates a hint resolved to no user.
func IsUserUnknown(err error) bool {
	return errors.Is(err, ErrUserUnknown)
}

// IsCloneDetected returns true if the error indicates a cloned authenticator.
func IsCloneDetected(err error) bool {
	return errors.Is(err, ErrClonedAuthenticator)
}

// IsVerificationFailed returns true if the error indicates verification failed.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}
