package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims are the claims embedded in issued access tokens.
type JWTClaims struct {
	UserID     string   `json:"uid"`
	Username   string   `json:"username"`
	Role       UserRole `json:"role"`
	RollNumber string   `json:"roll_number,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest is the authentication payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token and basic identity data.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo is the public projection of a user account.
type UserInfo struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role"`
	RollNumber *string  `json:"roll_number,omitempty"`
	ClassLabel *string  `json:"class_label,omitempty"`
}

// RegisterRequest creates a user account. Roll number and class label are
// only meaningful for student-role accounts.
type RegisterRequest struct {
	Username   string `json:"username" validate:"required,min=3"`
	Password   string `json:"password" validate:"required,min=6"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Role       string `json:"role" validate:"required,user_role"`
	RollNumber string `json:"roll_number"`
	ClassLabel string `json:"class_label"`
}
