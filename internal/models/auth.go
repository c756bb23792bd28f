package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns either an issued token or an OTP challenge marker.
// When OTPRequired is true the portal moves to the verification screen and no
// token has been issued yet.
type LoginResponse struct {
	OTPRequired bool      `json:"otpRequired"`
	AccessToken string    `json:"accessToken,omitempty"`
	ExpiresIn   int64     `json:"expiresIn,omitempty"`
	IssuedAt    time.Time `json:"issuedAt,omitempty"`
	User        UserInfo  `json:"user"`
}

// VerifyOTPRequest completes a two-factor login challenge.
type VerifyOTPRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Code      string `json:"code" validate:"required,len=6,numeric"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// ResendOTPRequest asks for a fresh verification code.
type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ChangePasswordRequest payload for updating the password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// TwoFactorRequest toggles two-factor login for the current user.
type TwoFactorRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName,omitempty"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
