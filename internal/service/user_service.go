package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"vidstream-server/internal/blob"
	"vidstream-server/internal/domain"
	"vidstream-server/internal/repository"
)

// UserService covers profile reads and updates outside the session
// lifecycle: account fields, avatar and cover images, watch history.
type UserService struct {
	userRepo repository.UserRepository
	blobs    blob.Store
}

func NewUserService(userRepo repository.UserRepository, blobs blob.Store) *UserService {
	return &UserService{
		userRepo: userRepo,
		blobs:    blobs,
	}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user not found")
		}
		return nil, internal(err, "failed to look up user")
	}

	return user.Sanitized(), nil
}

func (s *UserService) UpdateAccount(ctx context.Context, userID string, req *domain.UpdateAccountRequest) (*domain.User, error) {
	username := normalize(req.Username)
	email := normalize(req.Email)
	fullName := strings.TrimSpace(req.FullName)

	if username == "" || email == "" || fullName == "" {
		return nil, invalidInput("username, email and full name are required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user not found")
		}
		return nil, internal(err, "failed to look up user")
	}

	// Each changed identifier is checked on its own. A combined lookup
	// could match the caller through the unchanged field and wave a taken
	// value through.
	if username != user.Username {
		taken, err := s.userRepo.UsernameExists(ctx, username)
		if err != nil {
			return nil, internal(err, "failed to check username")
		}
		if taken {
			return nil, conflict("username already taken")
		}
	}
	if email != user.Email {
		taken, err := s.userRepo.EmailExists(ctx, email)
		if err != nil {
			return nil, internal(err, "failed to check email")
		}
		if taken {
			return nil, conflict("email already registered")
		}
	}

	user.Username = username
	user.Email = email
	user.FullName = fullName
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		// The store's own reservation can still lose a race the checks
		// above did not see.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("username or email already exists")
		}
		return nil, internal(err, "failed to update user")
	}

	return user.Sanitized(), nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID string, file *blob.File) (*domain.User, error) {
	return s.updateImage(ctx, userID, file, "avatar", func(u *domain.User, url string) {
		u.Avatar = url
	})
}

func (s *UserService) UpdateCoverImage(ctx context.Context, userID string, file *blob.File) (*domain.User, error) {
	return s.updateImage(ctx, userID, file, "cover image", func(u *domain.User, url string) {
		u.CoverImage = url
	})
}

func (s *UserService) updateImage(ctx context.Context, userID string, file *blob.File, kind string, set func(*domain.User, string)) (*domain.User, error) {
	if file == nil || file.Content == nil {
		return nil, invalidInput("%s is required", kind)
	}

	// Resolve the account before uploading so a bad id costs nothing.
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user not found")
		}
		return nil, internal(err, "failed to look up user")
	}

	uploaded, err := s.blobs.Upload(ctx, file)
	if err != nil || uploaded == nil {
		return nil, uploadFailed(err, "%s upload failed", kind)
	}

	set(user, uploaded.URL)
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		// The locator was never persisted; delete the fresh blob so it
		// is not orphaned. Best effort, the update failure still wins.
		if derr := s.blobs.Delete(ctx, uploaded.Key); derr != nil {
			log.Printf("%s update: failed to delete blob %s: %v", kind, uploaded.Key, derr)
		}
		return nil, internal(err, "failed to update user")
	}

	return user.Sanitized(), nil
}

// AddToWatchHistory appends a media reference to the account's ordered
// watch history.
func (s *UserService) AddToWatchHistory(ctx context.Context, userID, videoID string) error {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return invalidInput("video id is required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("user not found")
		}
		return internal(err, "failed to look up user")
	}

	user.WatchHistory = append(user.WatchHistory, videoID)
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return internal(err, "failed to update watch history")
	}

	return nil
}

func (s *UserService) GetWatchHistory(ctx context.Context, userID string) ([]string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user not found")
		}
		return nil, internal(err, "failed to look up user")
	}

	if user.WatchHistory == nil {
		return []string{}, nil
	}
	return user.WatchHistory, nil
}
