package ports

// SecretVerifier compares a submitted secret with its stored representation.
// Implementations hold no per-call state and are safe for concurrent use.
type SecretVerifier interface {
	Matches(submitted, stored string) bool
}
