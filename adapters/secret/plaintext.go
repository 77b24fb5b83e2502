package secret

import "crypto/subtle"

// Plaintext compares secrets stored as-is. Only suitable for development.
type Plaintext struct{}

// Matches compares in constant time
func (Plaintext) Matches(submitted, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}

// Hash returns the secret unchanged
func (Plaintext) Hash(secret string) (string, error) {
	return secret, nil
}
