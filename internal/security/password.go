package security

import (
	"fmt"

	"github.com/geocoder89/coursehub/internal/apperr"
	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor for every stored credential. Raising it
// only affects hashes produced afterwards; old hashes carry their own cost.
const Cost = 10

var ErrEmptyInput = fmt.Errorf("%w: password must not be empty", apperr.ErrValidation)

// Hasher hashes and verifies credentials with bcrypt.
type Hasher struct {
	cost int
}

func NewHasher() *Hasher {
	return &Hasher{cost: Cost}
}

// Hash returns a self-contained bcrypt hash (algorithm, cost and salt are
// embedded in the output).
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify compares plain against hash in constant time. A mismatch, an empty
// password or a malformed hash all report false.
func (h *Hasher) Verify(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
