package challenge

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/layer-3/captchauth/ports"
)

const (
	// DefaultCodeLength is the number of characters in a generated code
	DefaultCodeLength = 4

	// DefaultAlphabet is the set of characters codes are drawn from
	DefaultAlphabet = "0123456789"
)

// ErrInvalidAlphabet is returned for generators without usable characters
var ErrInvalidAlphabet = errors.New("challenge alphabet must not be empty")

// CodeGenerator draws random codes from an alphabet
type CodeGenerator struct {
	length   int
	alphabet []rune
}

var _ ports.CodeGenerator = (*CodeGenerator)(nil)

// NewCodeGenerator creates a generator. Zero values select the defaults.
func NewCodeGenerator(length int, alphabet string) *CodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	return &CodeGenerator{length: length, alphabet: []rune(alphabet)}
}

// Generate returns a new random code
func (g *CodeGenerator) Generate() (string, error) {
	if len(g.alphabet) == 0 {
		return "", ErrInvalidAlphabet
	}

	max := big.NewInt(int64(len(g.alphabet)))
	code := make([]rune, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = g.alphabet[n.Int64()]
	}
	return string(code), nil
}
