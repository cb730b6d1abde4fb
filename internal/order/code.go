package order

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const codeDigits = 6

var (
	codeSpace    = big.NewInt(1_000_000)
	codeHashCost = bcrypt.DefaultCost
)

// NewVerificationCode returns a uniformly random 6-digit code.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func HashCode(code string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(code), codeHashCost)
	if err != nil {
		return "", fmt.Errorf("hash verification code: %w", err)
	}
	return string(h), nil
}

// CheckCode compares in constant time. A mismatch is ErrInvalidCode; a
// malformed hash is reported as is.
func CheckCode(hash, code string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidCode
	default:
		return fmt.Errorf("compare verification code: %w", err)
	}
}
