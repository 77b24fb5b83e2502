package core

import "time"

// Principal is an identity resolved from a credential store
type Principal struct {
	ID         string   // Unique identifier submitted at login
	SecretHash string   // Stored secret representation
	Roles      []string // Granted roles
}

// HasRole reports whether the principal was granted role
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Challenge represents a single-use login challenge bound to a session
type Challenge struct {
	SessionKey string    // Session the challenge was issued to
	Value      string    // Expected answer
	IssuedAt   time.Time // When the challenge was created
	ExpiresAt  time.Time // When the challenge expires
}

// Expired reports whether the challenge is past its expiry at now
func (c Challenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// RawRequest is the request data supplied by the hosting transport
type RawRequest struct {
	Fields        map[string]string // Submitted form fields
	SessionKey    string            // Session the request belongs to
	OriginAddress string            // Remote address of the caller
	ReceivedAt    time.Time         // When the request arrived
}

// AuthContext is the immutable bundle of data for one login attempt
type AuthContext struct {
	Identifier      string
	Secret          string
	ChallengeAnswer string
	SessionKey      string
	OriginAddress   string
	ReceivedAt      time.Time
}

// Session represents an authenticated user session
type Session struct {
	ID            string    // Unique session identifier
	Subject       string    // Principal the session is bound to
	Roles         []string  // Roles granted at login
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}

// HasRole reports whether the session carries role
func (s *Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}
