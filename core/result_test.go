package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureKindPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind FailureKind
		code int
		name string
	}{
		{KindChallengeMismatch, 1001, "challenge_mismatch"},
		{KindUnknownIdentity, 1002, "unknown_identity"},
		{KindInvalidSecret, 1003, "invalid_secret"},
		{KindStoreUnavailable, 1004, "store_unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := tt.kind.Payload()
			assert.Equal(t, tt.code, p.Code)
			assert.Equal(t, tt.name, p.Kind)
			assert.NotEmpty(t, p.Message)
		})
	}
}

func TestResult(t *testing.T) {
	t.Parallel()

	ok := Success(Principal{ID: "alice", Roles: []string{"user"}})
	assert.True(t, ok.OK())
	assert.Equal(t, []string{"user"}, ok.Roles())
	assert.Equal(t, "success", ok.Outcome())

	fail := Failure(KindInvalidSecret, nil)
	assert.False(t, fail.OK())
	assert.Nil(t, fail.Roles())
	assert.ErrorIs(t, fail.Cause, ErrInvalidSecret)
	assert.Equal(t, "invalid_secret", fail.Outcome())

	cause := errors.New("connection refused")
	down := Failure(KindStoreUnavailable, cause)
	assert.Equal(t, cause, down.Cause)
}

func TestUnknownAndNoneKinds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", KindNone.String())
	assert.Equal(t, "kind(42)", FailureKind(42).String())
	assert.Zero(t, FailureKind(42).Code())
}
