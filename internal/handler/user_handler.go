package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"vidstream-server/internal/blob"
	"vidstream-server/internal/domain"
	"vidstream-server/internal/middleware"
	"vidstream-server/internal/service"
	"vidstream-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

type UserHandler struct {
	userService *service.UserService
	validator   *validator.Validate
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   validator.New(),
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	response.Success(w, "current user fetched successfully", user)
}

func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	user, err := h.userService.UpdateAccount(r.Context(), userID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, "account updated successfully", user)
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.userService.UpdateAvatar, "avatar updated successfully")
}

func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.userService.UpdateCoverImage, "cover image updated successfully")
}

func (h *UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field string,
	update func(ctx context.Context, userID string, file *blob.File) (*domain.User, error),
	message string) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, err := fileFromForm(r, field)
	if err != nil {
		response.BadRequest(w, "invalid file upload")
		return
	}

	user, err := update(r.Context(), userID, file)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, message, user)
}

func (h *UserHandler) GetWatchHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	history, err := h.userService.GetWatchHistory(r.Context(), userID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	if len(history) == 0 {
		response.Success(w, "no watch history found", []string{})
		return
	}
	response.Success(w, "watch history fetched successfully", history)
}

func (h *UserHandler) AddWatchHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.WatchHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.userService.AddToWatchHistory(r.Context(), userID, req.VideoID); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, "watch history updated successfully", nil)
}
