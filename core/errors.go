package core

import "errors"

var (
	ErrChallengeMismatch = errors.New("challenge mismatch")
	ErrUnknownIdentity   = errors.New("unknown identity")
	ErrInvalidSecret     = errors.New("invalid secret")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalidated  = errors.New("token has been invalidated")
	ErrInvalidToken      = errors.New("invalid token")
	ErrForbidden         = errors.New("access denied")
)

// ErrMissingSession is returned when a challenge is requested without a session key
var ErrMissingSession = errors.New("session key is required")
