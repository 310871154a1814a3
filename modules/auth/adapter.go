package auth

import (
	"context"
	"encoding/json"
	"fmt"

	chatdomain "github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface other modules use to access auth
// functionality.
type AuthPort interface {
	Register(ctx context.Context, req RegisterRequest) (AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	// VerifyToken validates a bearer credential and returns the identity
	// it carries, or an error refusing the credential (fail-closed).
	VerifyToken(ctx context.Context, token string) (chatdomain.Identity, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	if container == nil {
		panic("auth: ServiceContainer is nil")
	}
	return &AuthAdapter{container: container}
}

// Register creates an account.
func (a *AuthAdapter) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	var resp AuthResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceRegister,
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return AuthResponse{}, err
	}
	return resp, nil
}

// Login authenticates an account.
func (a *AuthAdapter) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	var resp AuthResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceLogin,
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return AuthResponse{}, err
	}
	return resp, nil
}

// ForgotPassword generates a reset token.
func (a *AuthAdapter) ForgotPassword(ctx context.Context, email string) (string, error) {
	req := ForgotPasswordRequest{Email: email}
	var resp ForgotPasswordResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceForgotPassword,
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return "", err
	}
	return resp.ResetToken, nil
}

// ResetPassword consumes a reset token.
func (a *AuthAdapter) ResetPassword(ctx context.Context, token, newPassword string) error {
	req := ResetPasswordRequest{Token: token, NewPassword: newPassword}
	var resp ResetPasswordResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceResetPassword,
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return err
	}
	if !resp.Success {
		return ErrInvalidResetToken
	}
	return nil
}

// VerifyToken validates a bearer credential.
func (a *AuthAdapter) VerifyToken(ctx context.Context, token string) (chatdomain.Identity, error) {
	req := VerifyTokenRequest{Token: token}
	var resp VerifyTokenResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceVerifyToken,
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return chatdomain.Identity{}, fmt.Errorf("verify-token request failed: %w", err)
	}
	if !resp.Valid {
		return chatdomain.Identity{}, fmt.Errorf("credential refused: %s", resp.Error)
	}
	return chatdomain.Identity{ID: resp.UserID, Username: resp.Username}, nil
}
