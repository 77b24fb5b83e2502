package ports

import (
	"context"

	"github.com/layer-3/captchauth/core"
)

// ChallengeStore holds single-use challenges keyed by session
type ChallengeStore interface {
	// Save stores the challenge, replacing any earlier one for the session
	Save(ctx context.Context, challenge core.Challenge) error

	// Consume removes the challenge for sessionKey and reports whether
	// submitted equals its value. The challenge is removed even on mismatch.
	// A missing or expired challenge yields false with a nil error.
	Consume(ctx context.Context, sessionKey, submitted string) (bool, error)
}

// CodeGenerator produces challenge values
type CodeGenerator interface {
	Generate() (string, error)
}
