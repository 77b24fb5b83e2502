package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChallengeExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := Challenge{IssuedAt: now, ExpiresAt: now.Add(time.Minute)}
	assert.False(t, c.Expired(now))
	assert.True(t, c.Expired(now.Add(time.Minute)))

	// No expiry set never expires.
	assert.False(t, Challenge{}.Expired(now))
}

func TestHasRole(t *testing.T) {
	t.Parallel()

	p := Principal{ID: "alice", Roles: []string{"user", "admin"}}
	assert.True(t, p.HasRole("admin"))
	assert.False(t, p.HasRole("auditor"))

	s := &Session{Roles: p.Roles}
	assert.True(t, s.HasRole("user"))
	assert.False(t, s.HasRole(""))
}
