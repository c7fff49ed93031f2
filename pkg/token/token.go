// Package token mints and verifies the two JWT classes used by the
// service: short-lived access tokens carrying the full identity claim and
// long-lived refresh tokens carrying only the account id. Each class has
// its own signing secret and expiration.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for every verification failure: malformed
// input, bad signature, wrong class, or expiry. Collapsing them avoids
// telling a caller which part of a token was wrong.
var ErrInvalidToken = errors.New("invalid or expired token")

// Config carries the independent secret and expiration for each token
// class. It is passed in at construction; the package reads no environment.
type Config struct {
	AccessSecret      string
	AccessExpiration  time.Duration
	RefreshSecret     string
	RefreshExpiration time.Duration
}

// AccessClaims is the decoded payload of an access token.
type AccessClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// RefreshClaims is the decoded payload of a refresh token. It carries the
// account id only, so a leaked refresh token exposes nothing else.
type RefreshClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens for both classes.
type Manager struct {
	cfg Config
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// AccessExpiration reports the configured access-token lifetime, used by
// callers to fill expires_in fields.
func (m *Manager) AccessExpiration() time.Duration {
	return m.cfg.AccessExpiration
}

func registeredClaims(expiration time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		// The jti makes every minted token distinct even within the same
		// second; rotation depends on each generation being unequal.
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

// MintAccess signs an access token for the given identity.
func (m *Manager) MintAccess(userID, username, email, fullName string) (string, error) {
	claims := AccessClaims{
		UserID:           userID,
		Username:         username,
		Email:            email,
		FullName:         fullName,
		RegisteredClaims: registeredClaims(m.cfg.AccessExpiration),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.cfg.AccessSecret))
}

// MintRefresh signs a refresh token for the given account id.
func (m *Manager) MintRefresh(userID string) (string, error) {
	claims := RefreshClaims{
		UserID:           userID,
		RegisteredClaims: registeredClaims(m.cfg.RefreshExpiration),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.cfg.RefreshSecret))
}

// VerifyAccess validates signature and expiry of an access token and
// returns its claims, or ErrInvalidToken.
func (m *Manager) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.verify(tokenString, claims, m.cfg.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh validates signature and expiry of a refresh token and
// returns its claims, or ErrInvalidToken.
func (m *Manager) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.verify(tokenString, claims, m.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) verify(tokenString string, claims jwt.Claims, secret string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
