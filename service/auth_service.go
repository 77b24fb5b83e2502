package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
)

// Config holds the tunables of the authentication service
type Config struct {
	ChallengeTTL time.Duration
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	// FailureFloor is the minimum time between receiving a login attempt
	// and answering it with a failure
	FailureFloor time.Duration
	// Decoy is a stored secret representation verified for unknown identities
	Decoy  string
	Fields FieldNames
}

// Dependencies are the collaborators of the authentication service
type Dependencies struct {
	Challenges  ports.ChallengeStore
	Codes       ports.CodeGenerator
	Credentials ports.CredentialStore
	Verifier    ports.SecretVerifier
	Tokenizer   ports.Tokenizer
	Store       ports.Store
	Events      ports.EventPublisher // optional
	Logger      *slog.Logger         // optional
}

// AuthService handles authentication business logic
type AuthService struct {
	issuer   *ChallengeIssuer
	builder  ContextBuilder
	pipeline *Pipeline
	handler  *ResultHandler

	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(deps Dependencies, cfg Config) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []PipelineOption{WithLogger(logger)}
	if cfg.Decoy != "" {
		opts = append(opts, WithDecoy(cfg.Decoy))
	}

	return &AuthService{
		issuer:    NewChallengeIssuer(deps.Challenges, deps.Codes, cfg.ChallengeTTL),
		builder:   NewContextBuilder(cfg.Fields),
		pipeline:  NewPipeline(deps.Challenges, deps.Credentials, deps.Verifier, opts...),
		handler:   NewResultHandler(deps.Tokenizer, cfg.AccessTTL, cfg.RefreshTTL, cfg.FailureFloor, logger),
		tokenizer: deps.Tokenizer,
		store:     deps.Store,
		eventPub:  deps.Events,
		logger:    logger,
	}
}

// Fields returns the form field names a login reads
func (s *AuthService) Fields() FieldNames {
	return s.builder.Fields()
}

// IssueChallenge creates a new challenge for the session
func (s *AuthService) IssueChallenge(ctx context.Context, sessionKey string) (core.Challenge, error) {
	return s.issuer.Issue(ctx, sessionKey)
}

// Login runs one authentication attempt and returns its response
func (s *AuthService) Login(ctx context.Context, raw core.RawRequest) Response {
	ac := s.builder.Build(raw)
	result := s.pipeline.Authenticate(ctx, ac)

	if s.eventPub != nil {
		event := ports.LoginEvent{
			Identifier: ac.Identifier,
			SessionKey: ac.SessionKey,
			Origin:     ac.OriginAddress,
			Outcome:    result.Outcome(),
			Code:       result.Kind.Code(),
		}
		if err := s.eventPub.PublishLogin(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish login event", slog.Any("error", err))
		}
	}

	return s.handler.Handle(ctx, ac, result)
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (TokenPair, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return TokenPair{}, err
	}

	// Claiming the old refresh token invalidates it for the rest of its
	// lifetime; only one concurrent refresh can win the claim.
	claimed, err := s.store.InvalidateToken(ctx, session.RefreshID, remaining(session))
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to invalidate old token: %w", err)
	}
	if !claimed {
		return TokenPair{}, core.ErrTokenInvalidated
	}

	_, tokens, err := s.handler.Establish(session.Subject, session.Roles)
	if err != nil {
		return TokenPair{}, err
	}
	return tokens, nil
}

// Logout invalidates a refresh token and every access token derived from it
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return err
	}

	// A token that was already invalidated stays logged out.
	if _, err := s.store.InvalidateToken(ctx, session.RefreshID, remaining(session)); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	// The token is already invalidated, which is the critical part.
	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, session.Subject, session.RefreshID); err != nil {
			s.logger.WarnContext(ctx, "failed to publish logout event", slog.Any("error", err))
		}
	}

	return nil
}

// ValidateAccessToken returns the session of a valid, unrevoked access token
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, err
	}

	if session.RefreshID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

// minRevocationTTL keeps records of nearly expired tokens long enough to
// outlive any in-flight request carrying them
const minRevocationTTL = time.Minute

func remaining(session *core.Session) time.Duration {
	return max(time.Until(session.RefreshExpiry), minRevocationTTL)
}
