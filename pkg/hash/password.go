// Package hash wraps bcrypt for one-way password hashing at rest.
package hash

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Adaptive cost factor; bump when hardware catches up.
const bcryptCost = 12

const minPasswordLength = 8

// Hash derives a salted one-way hash from a plaintext password.
// The plaintext is never stored or logged.
func Hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedBytes), nil
}

// Compare checks a plaintext candidate against a stored hash.
// Returns nil on match.
func Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
