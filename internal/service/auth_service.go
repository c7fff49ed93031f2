package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"vidstream-server/internal/domain"
	"vidstream-server/internal/repository"
	"vidstream-server/pkg/hash"
	"vidstream-server/pkg/token"
)

// AuthService owns the session lifecycle: login, refresh-token rotation,
// logout, and password changes. One refresh token is valid per account at
// a time; every rotation overwrites the stored value and invalidates all
// previously issued refresh tokens.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *token.Manager
}

func NewAuthService(userRepo repository.UserRepository, tokens *token.Manager) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// issueTokenPair mints a fresh access/refresh pair and persists the new
// refresh token on the account. This is the rotation point.
func (s *AuthService) issueTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPairResponse, error) {
	accessToken, err := s.tokens.MintAccess(user.ID, user.Username, user.Email, user.FullName)
	if err != nil {
		return nil, internal(err, "token generation failed")
	}

	refreshToken, err := s.tokens.MintRefresh(user.ID)
	if err != nil {
		return nil, internal(err, "token generation failed")
	}

	user.RefreshToken = refreshToken
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return &domain.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessExpiration().Seconds()),
	}, nil
}

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	username := normalize(req.Username)
	email := normalize(req.Email)

	if username == "" && email == "" {
		return nil, invalidInput("email or username is required")
	}
	if req.Password == "" {
		return nil, invalidInput("password is required")
	}

	user, err := s.userRepo.FindByIdentifier(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user not found")
		}
		return nil, internal(err, "failed to look up user")
	}

	if err := hash.Compare(user.Password, req.Password); err != nil {
		return nil, unauthorized("invalid password")
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		if se, ok := err.(*Error); ok {
			return nil, se
		}
		return nil, internal(err, "failed to persist session")
	}

	return &domain.LoginResponse{
		User:         user.Sanitized(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Refresh exchanges a presented refresh token for a new pair. The presented
// string must equal the account's stored value exactly: a structurally valid
// token that was already rotated away is rejected, which is what makes each
// refresh token single-use.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*domain.TokenPairResponse, error) {
	if presented == "" {
		return nil, unauthorized("refresh token is required")
	}

	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		return nil, unauthorized("invalid refresh token")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized("invalid refresh token")
		}
		return nil, internal(err, "failed to look up user")
	}

	if user.RefreshToken == "" || presented != user.RefreshToken {
		return nil, unauthorized("invalid refresh token")
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		// A concurrent refresh rotated the stored value first; this
		// attempt's token is superseded.
		if errors.Is(err, repository.ErrConflict) {
			return nil, unauthorized("invalid refresh token")
		}
		if se, ok := err.(*Error); ok {
			return nil, se
		}
		return nil, internal(err, "failed to persist session")
	}

	return pair, nil
}

// Logout clears the stored refresh token; refresh attempts fail until the
// next login.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	// A revision race here means a concurrent refresh won; reload and
	// clear again so logout sticks.
	for attempt := 0; attempt < 3; attempt++ {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user not found")
			}
			return internal(err, "failed to look up user")
		}

		user.RefreshToken = ""
		user.UpdatedAt = time.Now()

		err = s.userRepo.Update(ctx, user)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return internal(err, "failed to log out")
		}
	}
	return internal(repository.ErrConflict, "failed to log out")
}

// ChangePassword verifies the current password before accepting a new one.
// The new password is hashed exactly once.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return invalidInput("current and new passwords are required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("user not found")
		}
		return internal(err, "failed to look up user")
	}

	if err := hash.Compare(user.Password, currentPassword); err != nil {
		return unauthorized("current password is incorrect")
	}

	hashed, err := hash.Hash(newPassword)
	if err != nil {
		return invalidInput("%s", err.Error())
	}

	user.Password = hashed
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return internal(err, "failed to change password")
	}

	return nil
}
