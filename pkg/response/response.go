// Package response renders the uniform JSON envelope every endpoint
// returns: {statusCode, success, message, data}.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
)

type Response struct {
	StatusCode int         `json:"statusCode"`
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		StatusCode: statusCode,
		Success:    statusCode < 400,
		Message:    message,
		Data:       data,
	})
}

func Success(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusOK, message, data)
}

func Created(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusCreated, message, data)
}

func Error(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, message, nil)
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, message)
}

func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}

// StatusCoder lets the service layer's tagged errors pick their own HTTP
// status without this package importing the service package.
type StatusCoder interface {
	StatusCode() int
}

// FromError maps a service error to the envelope. Tagged errors carry
// their status; anything else renders as a 500.
func FromError(w http.ResponseWriter, err error) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		Error(w, sc.StatusCode(), err.Error())
		return
	}
	InternalError(w, "internal server error")
}
