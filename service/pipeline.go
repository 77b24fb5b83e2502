package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/observability"
	"github.com/layer-3/captchauth/ports"
)

// Pipeline authenticates one login attempt:
// challenge check, identity resolution, secret verification.
// It holds no per-call state.
type Pipeline struct {
	challenges  ports.ChallengeStore
	credentials ports.CredentialStore
	verifier    ports.SecretVerifier
	decoy       string
	logger      *slog.Logger
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithDecoy makes unknown identities verify the secret against stored, so
// they cost as much as a wrong secret
func WithDecoy(stored string) PipelineOption {
	return func(p *Pipeline) { p.decoy = stored }
}

// WithLogger sets the pipeline logger
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a pipeline over the given collaborators
func NewPipeline(
	challenges ports.ChallengeStore,
	credentials ports.CredentialStore,
	verifier ports.SecretVerifier,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		challenges:  challenges,
		credentials: credentials,
		verifier:    verifier,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authenticate runs the attempt and normalizes every outcome, including
// collaborator panics, into a core.Result
func (p *Pipeline) Authenticate(ctx context.Context, ac core.AuthContext) (result core.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = core.Failure(core.KindStoreUnavailable, fmt.Errorf("%w: recovered panic: %v", core.ErrStoreUnavailable, r))
		}
		p.observe(ctx, ac, result, time.Since(start))
	}()

	// The challenge is consumed before anything else so it is spent exactly
	// once per attempt, whatever happens next.
	matched, err := p.challenges.Consume(ctx, ac.SessionKey, ac.ChallengeAnswer)
	if err != nil {
		observability.ChallengeConsumeTotal.WithLabelValues("error").Inc()
		return core.Failure(core.KindStoreUnavailable, err)
	}
	if !matched {
		observability.ChallengeConsumeTotal.WithLabelValues("mismatch").Inc()
		return core.Failure(core.KindChallengeMismatch, nil)
	}
	observability.ChallengeConsumeTotal.WithLabelValues("match").Inc()

	principal, err := p.credentials.Lookup(ctx, ac.Identifier)
	if errors.Is(err, core.ErrPrincipalNotFound) {
		if p.decoy != "" {
			p.verifier.Matches(ac.Secret, p.decoy)
		}
		return core.Failure(core.KindUnknownIdentity, nil)
	}
	if err != nil {
		return core.Failure(core.KindStoreUnavailable, err)
	}

	if !p.verifier.Matches(ac.Secret, principal.SecretHash) {
		return core.Failure(core.KindInvalidSecret, nil)
	}

	return core.Success(principal)
}

func (p *Pipeline) observe(ctx context.Context, ac core.AuthContext, result core.Result, elapsed time.Duration) {
	observability.LoginAttemptsTotal.WithLabelValues(result.Outcome()).Inc()
	observability.LoginDuration.Observe(elapsed.Seconds())

	attrs := []any{
		slog.String("identifier", ac.Identifier),
		slog.String("origin", ac.OriginAddress),
		slog.String("outcome", result.Outcome()),
		slog.Duration("elapsed", elapsed),
	}
	switch {
	case result.OK():
		p.logger.InfoContext(ctx, "login succeeded", attrs...)
	case result.Kind == core.KindStoreUnavailable:
		p.logger.ErrorContext(ctx, "login aborted by store failure", append(attrs, slog.Any("error", result.Cause))...)
	default:
		p.logger.WarnContext(ctx, "login failed", attrs...)
	}
}
