package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/captchauth/adapters/challenge"
	"github.com/layer-3/captchauth/adapters/secret"
	"github.com/layer-3/captchauth/core"
)

func TestPipeline_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		identifier  string
		secret      string
		answer      string
		wantKind    core.FailureKind
		wantLookups int32
	}{
		{"A correct credentials and challenge", "alice", "correct", "4821", core.KindNone, 1},
		{"B wrong challenge", "alice", "correct", "0000", core.KindChallengeMismatch, 0},
		{"C unknown identity", "ghost", "anything", "4821", core.KindUnknownIdentity, 1},
		{"D wrong secret", "alice", "wrong", "4821", core.KindInvalidSecret, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.issue(t, "session-1", "4821")

			result := f.pipeline().Authenticate(t.Context(), attempt(tt.identifier, tt.secret, tt.answer))

			assert.Equal(t, tt.wantKind, result.Kind)
			assert.Equal(t, tt.wantLookups, f.credentials.calls.Load())
			if tt.wantKind == core.KindNone {
				require.True(t, result.OK())
				assert.Equal(t, "alice", result.Principal.ID)
				assert.Equal(t, []string{"user"}, result.Roles())
			} else {
				assert.False(t, result.OK())
			}

			// Whatever the outcome, the challenge is spent.
			assert.Zero(t, f.challenges.Len())
		})
	}
}

func TestPipeline_ChallengeIsSingleUse(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline()
	f.issue(t, "session-1", "4821")

	first := p.Authenticate(t.Context(), attempt("alice", "correct", "4821"))
	require.True(t, first.OK())

	replay := p.Authenticate(t.Context(), attempt("alice", "correct", "4821"))
	assert.Equal(t, core.KindChallengeMismatch, replay.Kind)
	assert.Equal(t, int32(1), f.credentials.calls.Load())
}

func TestPipeline_NoChallengeIssued(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.pipeline().Authenticate(t.Context(), attempt("alice", "correct", ""))
	assert.Equal(t, core.KindChallengeMismatch, result.Kind)
	assert.Zero(t, f.credentials.calls.Load())
}

func TestPipeline_FailedSecretStillSpendsChallenge(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline()
	f.issue(t, "session-1", "4821")

	result := p.Authenticate(t.Context(), attempt("alice", "wrong", "4821"))
	require.Equal(t, core.KindInvalidSecret, result.Kind)

	retry := p.Authenticate(t.Context(), attempt("alice", "correct", "4821"))
	assert.Equal(t, core.KindChallengeMismatch, retry.Kind)
}

func TestPipeline_ChallengeStoreUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := NewPipeline(failingChallenges{}, f.credentials, f.verifier)

	result := p.Authenticate(t.Context(), attempt("alice", "correct", "4821"))
	assert.Equal(t, core.KindStoreUnavailable, result.Kind)
	assert.ErrorIs(t, result.Cause, errBackend)
	assert.Zero(t, f.credentials.calls.Load())
}

func TestPipeline_CredentialStoreUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.issue(t, "session-1", "4821")
	p := NewPipeline(f.challenges, failingCredentials{}, f.verifier)

	result := p.Authenticate(t.Context(), attempt("alice", "correct", "4821"))
	assert.Equal(t, core.KindStoreUnavailable, result.Kind)
	assert.ErrorIs(t, result.Cause, errBackend)
	assert.Zero(t, f.verifier.calls.Load())
}

func TestPipeline_RecoversFromPanics(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.issue(t, "session-1", "4821")
	p := NewPipeline(f.challenges, panickingCredentials{}, f.verifier)

	var result core.Result
	require.NotPanics(t, func() {
		result = p.Authenticate(t.Context(), attempt("alice", "correct", "4821"))
	})
	assert.Equal(t, core.KindStoreUnavailable, result.Kind)
	assert.ErrorIs(t, result.Cause, core.ErrStoreUnavailable)
}

func TestPipeline_Decoy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	decoy, err := secret.Bcrypt{Cost: 4}.Hash("decoy")
	require.NoError(t, err)

	f.issue(t, "session-1", "4821")
	result := f.pipeline(WithDecoy(decoy)).Authenticate(t.Context(), attempt("ghost", "anything", "4821"))
	assert.Equal(t, core.KindUnknownIdentity, result.Kind)
	assert.Equal(t, int32(1), f.verifier.calls.Load())

	// Without a decoy the verifier is never reached for unknown identities.
	f.issue(t, "session-1", "4821")
	f.verifier.calls.Store(0)
	result = f.pipeline().Authenticate(t.Context(), attempt("ghost", "anything", "4821"))
	assert.Equal(t, core.KindUnknownIdentity, result.Kind)
	assert.Zero(t, f.verifier.calls.Load())
}

func TestIssueThenConsumeSucceedsOnce(t *testing.T) {
	t.Parallel()

	store := challenge.NewMemoryStore()
	issuer := NewChallengeIssuer(store, challenge.NewCodeGenerator(6, ""), 0)

	for range 20 {
		c, err := issuer.Issue(t.Context(), "session-1")
		require.NoError(t, err)
		assert.Len(t, c.Value, 6)
		assert.Equal(t, DefaultChallengeTTL, c.ExpiresAt.Sub(c.IssuedAt))

		ok, err := store.Consume(t.Context(), "session-1", c.Value)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Consume(t.Context(), "session-1", c.Value)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestIssueRequiresSession(t *testing.T) {
	t.Parallel()

	issuer := NewChallengeIssuer(challenge.NewMemoryStore(), fixedCode("1"), 0)
	_, err := issuer.Issue(t.Context(), "")
	assert.ErrorIs(t, err, core.ErrMissingSession)

	issuer = NewChallengeIssuer(failingChallenges{}, fixedCode("1"), 0)
	_, err = issuer.Issue(t.Context(), "s1")
	assert.ErrorIs(t, err, errBackend)
}
