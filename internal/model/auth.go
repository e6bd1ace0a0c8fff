package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Verified     bool      `json:"verified"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetRequest struct {
	Email string `json:"email"`
}

type ResetConfirmRequest struct {
	NewPassword string `json:"newPassword"`
}

// SignInResponse keeps the lowercase accesstoken key existing clients
// depend on; the refresh endpoint uses accessToken.
type SignInResponse struct {
	AccessToken string `json:"accesstoken"`
	Message     string `json:"message"`
	Type        string `json:"type"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	Message     string `json:"message"`
	Type        string `json:"type"`
}

type ProtectedResponse struct {
	User    *User  `json:"user"`
	Message string `json:"message"`
	Type    string `json:"type"`
}
