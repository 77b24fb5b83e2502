package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
)

const (
	// DefaultAccessTTL is the lifetime of access tokens
	DefaultAccessTTL = 5 * time.Minute

	// DefaultRefreshTTL is the lifetime of refresh tokens
	DefaultRefreshTTL = 5 * 24 * time.Hour // 5 days
)

// TokenPair is the credential material handed out for a session
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Response is the externally visible outcome of a login attempt.
// Exactly one of Tokens and Failure is set.
type Response struct {
	Session *core.Session        `json:"-"`
	Tokens  *TokenPair           `json:"tokens,omitempty"`
	Kind    core.FailureKind     `json:"-"`
	Failure *core.FailurePayload `json:"error,omitempty"`
}

// ResultHandler turns pipeline results into responses, establishing a
// session on success
type ResultHandler struct {
	tokenizer    ports.Tokenizer
	accessTTL    time.Duration
	refreshTTL   time.Duration
	failureFloor time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewResultHandler creates a handler. Zero TTLs select the defaults; a zero
// failureFloor disables failure padding.
func NewResultHandler(tokenizer ports.Tokenizer, accessTTL, refreshTTL, failureFloor time.Duration, logger *slog.Logger) *ResultHandler {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultHandler{
		tokenizer:    tokenizer,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		failureFloor: failureFloor,
		logger:       logger,
		now:          time.Now,
	}
}

// Handle converts result into a response for the attempt described by ac
func (h *ResultHandler) Handle(ctx context.Context, ac core.AuthContext, result core.Result) Response {
	if !result.OK() {
		return h.fail(ctx, ac, result.Kind)
	}

	session, tokens, err := h.Establish(result.Principal.ID, result.Roles())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to establish session",
			slog.String("identifier", result.Principal.ID),
			slog.Any("error", err),
		)
		return h.fail(ctx, ac, core.KindStoreUnavailable)
	}

	return Response{Session: session, Tokens: &tokens}
}

// Establish creates a new session for subject and signs its tokens
func (h *ResultHandler) Establish(subject string, roles []string) (*core.Session, TokenPair, error) {
	now := h.now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Subject:       subject,
		Roles:         roles,
		IssuedAt:      now,
		RefreshExpiry: now.Add(h.refreshTTL),
		AccessExpiry:  now.Add(h.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := h.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := h.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return session, TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.accessTTL.Seconds()),
	}, nil
}

// fail builds the failure response, holding it back until the failure floor
// measured from the attempt's arrival has passed
func (h *ResultHandler) fail(ctx context.Context, ac core.AuthContext, kind core.FailureKind) Response {
	if h.failureFloor > 0 && !ac.ReceivedAt.IsZero() {
		if wait := ac.ReceivedAt.Add(h.failureFloor).Sub(h.now()); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
			timer.Stop()
		}
	}

	payload := kind.Payload()
	return Response{Kind: kind, Failure: &payload}
}
