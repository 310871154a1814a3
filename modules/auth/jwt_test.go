package auth

import (
	"errors"
	"testing"
	"time"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:     "test-secret-key",
		TokenDuration: time.Hour,
		Issuer:        "test",
	}
}

func TestJWTManager_GenerateAndVerify(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	token, err := manager.Generate("user-123", "alice")
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	identity, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if identity.ID != "user-123" {
		t.Errorf("identity.ID = %q, want %q", identity.ID, "user-123")
	}
	if identity.Username != "alice" {
		t.Errorf("identity.Username = %q, want %q", identity.Username, "alice")
	}
}

func TestJWTManager_VerifyInvalidTokens(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	tests := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"garbage", "not-a-jwt"},
		{"structurally broken", "aaa.bbb.ccc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify(%q) = %v, want ErrInvalidToken", tt.token, err)
			}
		})
	}
}

func TestJWTManager_VerifyWrongSecret(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())
	token, err := manager.Generate("user-123", "alice")
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	other := NewJWTManager(JWTConfig{
		SecretKey:     "a-different-secret",
		TokenDuration: time.Hour,
		Issuer:        "test",
	})
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestJWTManager_VerifyExpiredToken(t *testing.T) {
	manager := NewJWTManager(JWTConfig{
		SecretKey:     "test-secret-key",
		TokenDuration: -time.Minute,
		Issuer:        "test",
	})

	token, err := manager.Generate("user-123", "alice")
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() expired token = %v, want ErrExpiredToken", err)
	}
}

func TestDefaultJWTConfig(t *testing.T) {
	config := DefaultJWTConfig()
	if config.TokenDuration != 7*24*time.Hour {
		t.Errorf("TokenDuration = %v, want 7 days", config.TokenDuration)
	}
	if config.SecretKey == "" || config.Issuer == "" {
		t.Error("default config missing secret or issuer")
	}
}
