package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/layer-3/captchauth/adapters/challenge"
	"github.com/layer-3/captchauth/adapters/credentials"
	"github.com/layer-3/captchauth/adapters/secret"
	"github.com/layer-3/captchauth/adapters/store"
	"github.com/layer-3/captchauth/adapters/tokenizer"
	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
)

var errBackend = errors.New("connection refused")

// countingCredentials records how often Lookup is called.
type countingCredentials struct {
	ports.CredentialStore
	calls atomic.Int32
}

func (c *countingCredentials) Lookup(ctx context.Context, id string) (core.Principal, error) {
	c.calls.Add(1)
	return c.CredentialStore.Lookup(ctx, id)
}

// countingVerifier records how often Matches is called.
type countingVerifier struct {
	ports.SecretVerifier
	calls atomic.Int32
}

func (v *countingVerifier) Matches(submitted, stored string) bool {
	v.calls.Add(1)
	return v.SecretVerifier.Matches(submitted, stored)
}

type failingChallenges struct{}

func (failingChallenges) Save(context.Context, core.Challenge) error { return errBackend }
func (failingChallenges) Consume(context.Context, string, string) (bool, error) {
	return false, errBackend
}

type failingCredentials struct{}

func (failingCredentials) Lookup(context.Context, string) (core.Principal, error) {
	return core.Principal{}, errBackend
}

type panickingCredentials struct{}

func (panickingCredentials) Lookup(context.Context, string) (core.Principal, error) {
	panic("nil map")
}

type fixedCode string

func (c fixedCode) Generate() (string, error) { return string(c), nil }

// recordingEvents keeps published events in memory.
type recordingEvents struct {
	mu      sync.Mutex
	logins  []ports.LoginEvent
	logouts []string
	err     error
}

func (r *recordingEvents) PublishLogin(_ context.Context, e ports.LoginEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, e)
	return r.err
}

func (r *recordingEvents) PublishLogout(_ context.Context, subject, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logouts = append(r.logouts, subject+":"+tokenID)
	return r.err
}

type fixture struct {
	challenges  *challenge.MemoryStore
	credentials *countingCredentials
	verifier    *countingVerifier
	tokenizer   *tokenizer.JWTTokenizer
	revocations *store.MemoryStore
	events      *recordingEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hasher := secret.Bcrypt{Cost: 4}
	hash, err := hasher.Hash("correct")
	require.NoError(t, err)

	key, err := tokenizer.GenerateSigningKey()
	require.NoError(t, err)

	return &fixture{
		challenges: challenge.NewMemoryStore(),
		credentials: &countingCredentials{CredentialStore: credentials.NewMemoryStore(core.Principal{
			ID:         "alice",
			SecretHash: hash,
			Roles:      []string{"user"},
		})},
		verifier:    &countingVerifier{SecretVerifier: hasher},
		tokenizer:   tokenizer.NewJWTTokenizer(key, "captchauth-test"),
		revocations: store.NewMemoryStore(),
		events:      &recordingEvents{},
	}
}

func (f *fixture) issue(t *testing.T, session, value string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.challenges.Save(t.Context(), core.Challenge{
		SessionKey: session,
		Value:      value,
		IssuedAt:   now,
		ExpiresAt:  now.Add(time.Minute),
	}))
}

func (f *fixture) pipeline(opts ...PipelineOption) *Pipeline {
	return NewPipeline(f.challenges, f.credentials, f.verifier, opts...)
}

func (f *fixture) service(cfg Config) *AuthService {
	return NewAuthService(Dependencies{
		Challenges:  f.challenges,
		Codes:       fixedCode("4821"),
		Credentials: f.credentials,
		Verifier:    f.verifier,
		Tokenizer:   f.tokenizer,
		Store:       f.revocations,
		Events:      f.events,
	}, cfg)
}

func attempt(identifier, secret, answer string) core.AuthContext {
	return core.AuthContext{
		Identifier:      identifier,
		Secret:          secret,
		ChallengeAnswer: answer,
		SessionKey:      "session-1",
		OriginAddress:   "192.0.2.10",
		ReceivedAt:      time.Now(),
	}
}
