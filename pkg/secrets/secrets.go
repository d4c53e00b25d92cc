// Package secrets generates operator tokens and stores only their bcrypt
// hashes, so a leaked config file never reveals a usable admin credential.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "abuseguard/pkg/domain-errors"
)

// TokenBytes is the entropy of a generated token before encoding.
const TokenBytes = 32

// GenerateToken returns a URL-safe random token.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the bcrypt hash of token.
func Hash(token string) (string, error) {
	if token == "" {
		return "", dErrors.New(dErrors.CodeValidation, "token cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "token is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash token")
	}
	return string(hashed), nil
}

// Verify returns nil when token matches hash and an unauthorized domain
// error when it does not. A malformed hash is an internal error.
func Verify(token, hash string) error {
	if token == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "token required")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify token")
	}
}
