package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// RegisterAdminRequest creates an account in the staff family.
type RegisterAdminRequest struct {
	Name     string   `json:"name" validate:"required,min=3"`
	Username string   `json:"username" validate:"required,min=3,username"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role" validate:"required,oneof=Admin Pimpinan Staf"`
	Email    string   `json:"email" validate:"isdefault"`
	NIK      string   `json:"nik" validate:"isdefault"`
	Phone    string   `json:"phone" validate:"isdefault"`
	IP       string   `json:"-"`
}

// RegisterUserRequest creates a Nasabah account.
type RegisterUserRequest struct {
	NIK      string   `json:"nik" validate:"required,nik"`
	Name     string   `json:"name" validate:"required,min=3"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Phone    string   `json:"phone" validate:"required,min=10,idphone"`
	Role     UserRole `json:"role" validate:"omitempty,eq=Nasabah"`
	Username string   `json:"username" validate:"isdefault"`
	IP       string   `json:"-"`
}

// AdminLoginRequest authenticates staff by username.
type AdminLoginRequest struct {
	Username  string `json:"username" validate:"required,min=3"`
	Password  string `json:"password" validate:"required,min=6"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// UserLoginRequest authenticates a Nasabah by email.
type UserLoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and the sanitised user.
type LoginResponse struct {
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshTokenResponse carries the newly minted pair. Only the access token is
// serialised; the refresh token travels in the cookie.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"-"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,min=6"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// UpdateProfileRequest updates self-service profile fields.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=3"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// TokenClaims is the payload shared by access and refresh tokens.
type TokenClaims struct {
	UserID string   `json:"id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
