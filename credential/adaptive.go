package credential

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const maxBcryptCost = bcrypt.MaxCost

func sealAdaptive(secret string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	// bcrypt output is already self-describing ($2a$cost$salt+digest);
	// no extra tag needed, and the embedded salt makes every seal unique.
	return string(hash), nil
}

func verifyAdaptive(presented, stored string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		// Truncated or mangled hash: a decision error, not a mismatch.
		return false, ErrSealedInvalid
	}
}
