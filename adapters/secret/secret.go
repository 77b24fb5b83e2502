// Package secret provides interchangeable secret verification schemes.
package secret

import (
	"errors"
	"fmt"

	"github.com/layer-3/captchauth/ports"
)

// Scheme names accepted by New
const (
	SchemePlaintext = "plaintext"
	SchemeBcrypt    = "bcrypt"
	SchemeArgon2id  = "argon2id"
)

// ErrUnknownScheme is returned by New for unsupported scheme names
var ErrUnknownScheme = errors.New("unknown secret scheme")

// Hasher produces stored representations for a scheme
type Hasher interface {
	ports.SecretVerifier
	Hash(secret string) (string, error)
}

// New returns the shared verifier for scheme
func New(scheme string) (Hasher, error) {
	switch scheme {
	case SchemePlaintext:
		return Plaintext{}, nil
	case SchemeBcrypt, "":
		return Bcrypt{}, nil
	case SchemeArgon2id:
		return DefaultArgon2id, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}
