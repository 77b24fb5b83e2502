package service

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/observability"
	"github.com/layer-3/captchauth/ports"
)

// DefaultChallengeTTL bounds how long an issued challenge can be answered
const DefaultChallengeTTL = 5 * time.Minute

// ChallengeIssuer creates challenges and hands them to a ChallengeStore
type ChallengeIssuer struct {
	store ports.ChallengeStore
	codes ports.CodeGenerator
	ttl   time.Duration
	now   func() time.Time
}

// NewChallengeIssuer creates an issuer; a zero ttl selects DefaultChallengeTTL
func NewChallengeIssuer(store ports.ChallengeStore, codes ports.CodeGenerator, ttl time.Duration) *ChallengeIssuer {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeIssuer{
		store: store,
		codes: codes,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Issue generates a challenge for sessionKey, replacing any outstanding one
func (i *ChallengeIssuer) Issue(ctx context.Context, sessionKey string) (core.Challenge, error) {
	if sessionKey == "" {
		return core.Challenge{}, core.ErrMissingSession
	}

	value, err := i.codes.Generate()
	if err != nil {
		return core.Challenge{}, fmt.Errorf("failed to generate challenge: %w", err)
	}

	now := i.now()
	challenge := core.Challenge{
		SessionKey: sessionKey,
		Value:      value,
		IssuedAt:   now,
		ExpiresAt:  now.Add(i.ttl),
	}
	if err := i.store.Save(ctx, challenge); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to save challenge: %w", err)
	}

	observability.ChallengesIssuedTotal.Inc()
	return challenge, nil
}
