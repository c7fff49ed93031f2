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
	"vidstream-server/pkg/hash"

	"github.com/google/uuid"
)

// RegistrationService creates accounts. Blob uploads happen before the
// account is persisted; if persistence then fails, every blob uploaded in
// the attempt is deleted again so nothing is left orphaned.
type RegistrationService struct {
	userRepo repository.UserRepository
	blobs    blob.Store
}

func NewRegistrationService(userRepo repository.UserRepository, blobs blob.Store) *RegistrationService {
	return &RegistrationService{
		userRepo: userRepo,
		blobs:    blobs,
	}
}

func (s *RegistrationService) Register(ctx context.Context, req *domain.RegisterRequest, avatar, cover *blob.File) (*domain.User, error) {
	username := normalize(req.Username)
	email := normalize(req.Email)
	fullName := strings.TrimSpace(req.FullName)

	if username == "" || email == "" || fullName == "" || strings.TrimSpace(req.Password) == "" {
		return nil, invalidInput("all fields are required")
	}
	if avatar == nil || avatar.Content == nil {
		return nil, invalidInput("avatar is required")
	}

	_, err := s.userRepo.FindByIdentifier(ctx, username, email)
	if err == nil {
		return nil, conflict("username or email already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, internal(err, "failed to check existing user")
	}

	// Nothing is persisted yet, so an upload failure simply aborts.
	avatarBlob, err := s.blobs.Upload(ctx, avatar)
	if err != nil {
		return nil, uploadFailed(err, "avatar upload failed")
	}

	var coverBlob *blob.UploadResult
	if cover != nil {
		coverBlob, err = s.blobs.Upload(ctx, cover)
		if err != nil {
			return nil, uploadFailed(err, "cover image upload failed")
		}
	}

	hashed, err := hash.Hash(req.Password)
	if err != nil {
		s.rollbackUploads(ctx, avatarBlob, coverBlob)
		return nil, invalidInput("%s", err.Error())
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		FullName:  fullName,
		Password:  hashed,
		Avatar:    avatarBlob.URL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if coverBlob != nil {
		user.CoverImage = coverBlob.URL
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.rollbackUploads(ctx, avatarBlob, coverBlob)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("username or email already exists")
		}
		return nil, internal(err, "user creation failed")
	}

	return user.Sanitized(), nil
}

// rollbackUploads deletes the blobs uploaded in this attempt. Best effort:
// a delete failure is logged and never masks the original error.
func (s *RegistrationService) rollbackUploads(ctx context.Context, uploads ...*blob.UploadResult) {
	for _, u := range uploads {
		if u == nil {
			continue
		}
		if err := s.blobs.Delete(ctx, u.Key); err != nil {
			log.Printf("registration rollback: failed to delete blob %s: %v", u.Key, err)
		}
	}
}
