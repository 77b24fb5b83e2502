package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
)

func loginRequest(session, user, pass, code string) core.RawRequest {
	return core.RawRequest{
		Fields:        map[string]string{"username": user, "password": pass, "captcha": code},
		SessionKey:    session,
		OriginAddress: "192.0.2.10",
		ReceivedAt:    time.Now(),
	}
}

func TestAuthService_LoginFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(Config{})

	c, err := svc.IssueChallenge(t.Context(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "4821", c.Value)

	resp := svc.Login(t.Context(), loginRequest("session-1", "alice", "correct", "4821"))
	require.NotNil(t, resp.Tokens)

	session, err := svc.ValidateAccessToken(t.Context(), resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Subject)
	assert.True(t, session.HasRole("user"))

	require.Len(t, f.events.logins, 1)
	assert.Equal(t, "success", f.events.logins[0].Outcome)
	assert.Equal(t, "alice", f.events.logins[0].Identifier)
}

func TestAuthService_LoginFailurePublishesKind(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(Config{})

	_, err := svc.IssueChallenge(t.Context(), "session-1")
	require.NoError(t, err)

	resp := svc.Login(t.Context(), loginRequest("session-1", "alice", "correct", "0000"))
	require.NotNil(t, resp.Failure)
	assert.Equal(t, 1001, resp.Failure.Code)
	assert.Equal(t, "challenge_mismatch", resp.Failure.Kind)

	require.Len(t, f.events.logins, 1)
	assert.Equal(t, "challenge_mismatch", f.events.logins[0].Outcome)
	assert.Equal(t, 1001, f.events.logins[0].Code)
}

func TestAuthService_PublishFailureDoesNotFailLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.events.err = errors.New("broker down")
	svc := f.service(Config{})

	_, err := svc.IssueChallenge(t.Context(), "session-1")
	require.NoError(t, err)
	resp := svc.Login(t.Context(), loginRequest("session-1", "alice", "correct", "4821"))
	assert.NotNil(t, resp.Tokens)
}

func TestAuthService_Refresh(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(Config{})
	_, err := svc.IssueChallenge(t.Context(), "session-1")
	require.NoError(t, err)
	resp := svc.Login(t.Context(), loginRequest("session-1", "alice", "correct", "4821"))
	require.NotNil(t, resp.Tokens)

	rotated, err := svc.Refresh(t.Context(), resp.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.Tokens.RefreshToken, rotated.RefreshToken)

	// The old refresh token cannot be replayed, and access tokens derived
	// from it are revoked with it.
	_, err = svc.Refresh(t.Context(), resp.Tokens.RefreshToken)
	require.ErrorIs(t, err, core.ErrTokenInvalidated)
	_, err = svc.ValidateAccessToken(t.Context(), resp.Tokens.AccessToken)
	require.ErrorIs(t, err, core.ErrTokenInvalidated)

	session, err := svc.ValidateAccessToken(t.Context(), rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, session.Roles)
}

// laggingStore adds a network round trip to every revocation call.
type laggingStore struct {
	ports.Store
	delay time.Duration
}

func (s laggingStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error) {
	time.Sleep(s.delay)
	return s.Store.InvalidateToken(ctx, tokenID, expiry)
}

func (s laggingStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	time.Sleep(s.delay)
	return s.Store.IsTokenInvalidated(ctx, tokenID)
}

func TestAuthService_ConcurrentRefreshRedeemsOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := NewAuthService(Dependencies{
		Challenges:  f.challenges,
		Codes:       fixedCode("4821"),
		Credentials: f.credentials,
		Verifier:    f.verifier,
		Tokenizer:   f.tokenizer,
		Store:       laggingStore{Store: f.revocations, delay: 5 * time.Millisecond},
	}, Config{})

	_, err := svc.IssueChallenge(t.Context(), "session-1")
	require.NoError(t, err)
	resp := svc.Login(t.Context(), loginRequest("session-1", "alice", "correct", "4821"))
	require.NotNil(t, resp.Tokens)

	const workers = 16
	var (
		wg          sync.WaitGroup
		redeemed    atomic.Int32
		invalidated atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(t.Context(), resp.Tokens.RefreshToken)
			switch {
			case err == nil:
				redeemed.Add(1)
			case errors.Is(err, core.ErrTokenInvalidated):
				invalidated.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), redeemed.Load())
	assert.Equal(t, int32(workers-1), invalidated.Load())
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.service(Config{})
	_, err := svc.IssueChallenge(t.Context(), "session-1")
	require.NoError(t, err)
	resp := svc.Login(t.Context(), loginRequest("session-1", "alice", "correct", "4821"))
	require.NotNil(t, resp.Tokens)

	require.NoError(t, svc.Logout(t.Context(), resp.Tokens.RefreshToken))
	require.Len(t, f.events.logouts, 1)
	assert.Equal(t, "alice:"+resp.Session.RefreshID, f.events.logouts[0])

	_, err = svc.ValidateAccessToken(t.Context(), resp.Tokens.AccessToken)
	require.ErrorIs(t, err, core.ErrTokenInvalidated)
	_, err = svc.Refresh(t.Context(), resp.Tokens.RefreshToken)
	require.ErrorIs(t, err, core.ErrTokenInvalidated)
}

func TestAuthService_InvalidTokens(t *testing.T) {
	t.Parallel()

	svc := newFixture(t).service(Config{})

	_, err := svc.ValidateAccessToken(t.Context(), "garbage")
	require.ErrorIs(t, err, core.ErrInvalidToken)
	_, err = svc.Refresh(t.Context(), "garbage")
	require.ErrorIs(t, err, core.ErrInvalidToken)
	require.ErrorIs(t, svc.Logout(t.Context(), "garbage"), core.ErrInvalidToken)
}
