package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"vidstream-server/internal/blob"
	"vidstream-server/internal/domain"
	"vidstream-server/internal/middleware"
	"vidstream-server/internal/service"
	"vidstream-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

const maxUploadMemory = 32 << 20 // 32 MiB before multipart spills to disk

type AuthHandler struct {
	registration *service.RegistrationService
	auth         *service.AuthService
	validator    *validator.Validate
}

func NewAuthHandler(registration *service.RegistrationService, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{
		registration: registration,
		auth:         auth,
		validator:    validator.New(),
	}
}

// fileFromForm lifts a multipart file field into a blob.File. A missing
// field is not an error; it maps to a nil file (no-op upload).
func fileFromForm(r *http.Request, field string) (*blob.File, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}

	return &blob.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     f,
	}, nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	req := domain.RegisterRequest{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		FullName: r.FormValue("fullName"),
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	avatar, err := fileFromForm(r, "avatar")
	if err != nil {
		response.BadRequest(w, "invalid avatar upload")
		return
	}
	cover, err := fileFromForm(r, "coverImage")
	if err != nil {
		response.BadRequest(w, "invalid cover image upload")
		return
	}

	user, err := h.registration.Register(r.Context(), &req, avatar, cover)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, "user created successfully", user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	loginResp, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, "login successful", loginResp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, "access token refreshed successfully", pair)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.auth.Logout(r.Context(), userID); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, "logged out successfully", nil)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, "password changed successfully", nil)
}
