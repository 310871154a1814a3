package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	domain "github.com/example/realtime-chat/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AuthModule provides credential verification and account lifecycle.
type AuthModule struct {
	db      *gorm.DB
	service *AuthService
	dbPath  string
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule() *AuthModule {
	dbPath := os.Getenv("AUTH_DB_PATH")
	if dbPath == "" {
		dbPath = "chat_users.db"
	}
	return &AuthModule{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start initializes the auth module.
func (m *AuthModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	repo := NewUserRepository(db)
	hasher := NewPasswordHasher()
	jwtManager := NewJWTManager(loadJWTConfig())

	m.service = NewAuthService(repo, hasher, jwtManager)

	log.Printf("[auth] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	services := []struct {
		name     string
		register func() error
	}{
		{ServiceRegister, func() error {
			return helper.RegisterTypedRequestReplyService(
				container, ServiceRegister, json.Unmarshal, json.Marshal, m.handleRegister)
		}},
		{ServiceLogin, func() error {
			return helper.RegisterTypedRequestReplyService(
				container, ServiceLogin, json.Unmarshal, json.Marshal, m.handleLogin)
		}},
		{ServiceForgotPassword, func() error {
			return helper.RegisterTypedRequestReplyService(
				container, ServiceForgotPassword, json.Unmarshal, json.Marshal, m.handleForgotPassword)
		}},
		{ServiceResetPassword, func() error {
			return helper.RegisterTypedRequestReplyService(
				container, ServiceResetPassword, json.Unmarshal, json.Marshal, m.handleResetPassword)
		}},
		{ServiceVerifyToken, func() error {
			return helper.RegisterTypedRequestReplyService(
				container, ServiceVerifyToken, json.Unmarshal, json.Marshal, m.handleVerifyToken)
		}},
	}

	for _, svc := range services {
		if err := svc.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", svc.name, err)
		}
	}

	log.Printf("[auth] Registered services: register, login, forgot-password, reset-password, verify-token")
	return nil
}

// handleRegister handles user registration.
func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (AuthResponse, error) {
	user, token, err := m.service.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{Token: token, User: user.Profile()}, nil
}

// handleLogin handles user login.
func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (AuthResponse, error) {
	user, token, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{Token: token, User: user.Profile()}, nil
}

// handleForgotPassword generates a reset token.
func (m *AuthModule) handleForgotPassword(ctx context.Context, req ForgotPasswordRequest, _ *mono.Msg) (ForgotPasswordResponse, error) {
	token, err := m.service.ForgotPassword(ctx, req.Email)
	if err != nil {
		return ForgotPasswordResponse{}, err
	}
	return ForgotPasswordResponse{ResetToken: token}, nil
}

// handleResetPassword consumes a reset token.
func (m *AuthModule) handleResetPassword(ctx context.Context, req ResetPasswordRequest, _ *mono.Msg) (ResetPasswordResponse, error) {
	if err := m.service.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return ResetPasswordResponse{}, err
	}
	return ResetPasswordResponse{Success: true}, nil
}

// handleVerifyToken validates a bearer credential.
func (m *AuthModule) handleVerifyToken(ctx context.Context, req VerifyTokenRequest, _ *mono.Msg) (VerifyTokenResponse, error) {
	identity, err := m.service.VerifyToken(ctx, req.Token)
	if err != nil {
		errMsg := "invalid token"
		if errors.Is(err, ErrExpiredToken) {
			errMsg = "token expired"
		}
		// Return response, not error, for verification failures.
		return VerifyTokenResponse{
			Valid: false,
			Error: errMsg,
		}, nil
	}

	return VerifyTokenResponse{
		Valid:    true,
		UserID:   identity.ID,
		Username: identity.Username,
	}, nil
}

// loadJWTConfig loads JWT configuration from environment variables.
func loadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()

	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.SecretKey = secret
	}
	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}
	return config
}
