package core

import "fmt"

// FailureKind classifies why an authentication attempt failed
type FailureKind int

const (
	// KindNone marks a successful result
	KindNone FailureKind = iota

	// KindChallengeMismatch means the submitted challenge answer was wrong,
	// missing or already used
	KindChallengeMismatch

	// KindUnknownIdentity means no principal exists for the identifier
	KindUnknownIdentity

	// KindInvalidSecret means the principal exists but the secret is wrong
	KindInvalidSecret

	// KindStoreUnavailable means a backing store failed. It is an operational
	// fault, not an authentication decision.
	KindStoreUnavailable
)

var kindInfo = map[FailureKind]struct {
	code    int
	name    string
	message string
	err     error
}{
	KindChallengeMismatch: {1001, "challenge_mismatch", "The verification code is incorrect or has expired", ErrChallengeMismatch},
	KindUnknownIdentity:   {1002, "unknown_identity", "Invalid username or password", ErrUnknownIdentity},
	KindInvalidSecret:     {1003, "invalid_secret", "Invalid username or password", ErrInvalidSecret},
	KindStoreUnavailable:  {1004, "store_unavailable", "Authentication is temporarily unavailable", ErrStoreUnavailable},
}

// Code returns the stable numeric code of the kind
func (k FailureKind) Code() int {
	return kindInfo[k].code
}

// String returns the stable snake_case name of the kind
func (k FailureKind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	if k == KindNone {
		return "none"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Message returns the human readable message shown to callers
func (k FailureKind) Message() string {
	return kindInfo[k].message
}

// Err returns the sentinel error matching the kind
func (k FailureKind) Err() error {
	return kindInfo[k].err
}

// FailurePayload is the externally visible shape of a failed attempt
type FailurePayload struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Payload builds the failure payload for the kind
func (k FailureKind) Payload() FailurePayload {
	return FailurePayload{
		Code:    k.Code(),
		Kind:    k.String(),
		Message: k.Message(),
	}
}

// Result is the outcome of one authentication attempt. Exactly one of
// Principal (success) or Kind != KindNone (failure) is set.
type Result struct {
	Principal *Principal
	Kind      FailureKind
	// Cause is the internal error behind a failure. It is logged, never
	// returned to the caller.
	Cause error
}

// Success creates a successful result for p
func Success(p Principal) Result {
	return Result{Principal: &p}
}

// Failure creates a failed result of kind, optionally carrying its cause
func Failure(kind FailureKind, cause error) Result {
	if cause == nil {
		cause = kind.Err()
	}
	return Result{Kind: kind, Cause: cause}
}

// OK reports whether the result is a success
func (r Result) OK() bool {
	return r.Kind == KindNone && r.Principal != nil
}

// Roles returns the roles granted on success
func (r Result) Roles() []string {
	if r.Principal == nil {
		return nil
	}
	return r.Principal.Roles
}

// Outcome returns a label for logs and metrics
func (r Result) Outcome() string {
	if r.OK() {
		return "success"
	}
	return r.Kind.String()
}
