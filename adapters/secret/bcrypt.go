package secret

import "golang.org/x/crypto/bcrypt"

// Bcrypt verifies secrets against bcrypt hashes
type Bcrypt struct {
	// Cost used by Hash; zero selects bcrypt.DefaultCost
	Cost int
}

// Matches reports whether submitted resolves to the stored hash
func (Bcrypt) Matches(submitted, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted)) == nil
}

// Hash generates the bcrypt hash for secret. It errors if the secret is
// longer than 72 bytes.
func (b Bcrypt) Hash(secret string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
