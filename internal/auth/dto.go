package auth

import (
	"github.com/mercavia/tienda-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest contains the payload required to open a customer account.
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

// SessionResponse carries the token pair plus the authenticated user. After a
// guest logs in, MergedCartLines reports how many cart lines moved over.
type SessionResponse struct {
	AccessToken     string         `json:"access_token"`
	RefreshToken    string         `json:"refresh_token"`
	User            *users.UserDTO `json:"user"`
	MergedCartLines int            `json:"merged_cart_lines"`
}

// RefreshRequest rotates a refresh token bound to an expired access token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPairResponse is the result of a refresh rotation.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UpdateProfileRequest carries the shipping defaults a customer can edit.
type UpdateProfileRequest struct {
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	Address    string `json:"address" validate:"omitempty,max=255"`
	City       string `json:"city" validate:"omitempty,max=128"`
	PostalCode string `json:"postal_code" validate:"omitempty,max=16"`
	Country    string `json:"country" validate:"omitempty,iso3166_1_alpha2"`
}

// ProfileResponse joins the account with its stored shipping defaults.
type ProfileResponse struct {
	User    *users.UserDTO    `json:"user"`
	Profile *users.ProfileDTO `json:"profile,omitempty"`
}
