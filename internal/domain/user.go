package domain

import "time"

// User is the account document persisted in CouchDB. Username and email
// are stored lowercased and trimmed; Password holds the bcrypt hash, never
// the plaintext. RefreshToken is the single currently valid refresh token
// for the account, empty when no session is active.
type User struct {
	ID           string    `json:"id"`
	Rev          string    `json:"_rev,omitempty"`
	Username     string    `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email        string    `json:"email" validate:"required,email"`
	FullName     string    `json:"fullName"`
	Password     string    `json:"password,omitempty"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	WatchHistory []string  `json:"watchHistory,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sanitized returns a copy safe to hand to callers: no password hash, no
// refresh token, no storage revision.
func (u *User) Sanitized() *User {
	clone := *u
	clone.Password = ""
	clone.RefreshToken = ""
	clone.Rev = ""
	return &clone
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required"`
}

// LoginRequest requires a password and at least one of username or email;
// the either-or rule is checked in the service, not by tags.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

type UpdateAccountRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required"`
}

type WatchHistoryRequest struct {
	VideoID string `json:"video_id" validate:"required"`
}
