package auth

import (
	domain "github.com/example/realtime-chat/domain/user"
)

// Service names registered in the service container.
const (
	ServiceRegister       = "register"
	ServiceLogin          = "login"
	ServiceForgotPassword = "forgot-password"
	ServiceResetPassword  = "reset-password"
	ServiceVerifyToken    = "verify-token"
)

// RegisterRequest is the request for user registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the request for user login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries a bearer token and the account's public profile.
type AuthResponse struct {
	Token string               `json:"token"`
	User  domain.PublicProfile `json:"user"`
}

// ForgotPasswordRequest is the request for generating a reset token.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse carries the generated reset token.
type ForgotPasswordResponse struct {
	ResetToken string `json:"resetToken"`
}

// ResetPasswordRequest is the request for consuming a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPasswordResponse acknowledges a completed reset.
type ResetPasswordResponse struct {
	Success bool `json:"success"`
}

// VerifyTokenRequest is the request for verifying a bearer credential.
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

// VerifyTokenResponse carries the verification result. Valid=false is a
// response, not an error; the caller decides how to refuse.
type VerifyTokenResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}
