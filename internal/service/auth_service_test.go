package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/pemetaan-keswa/internal/config"
)

func newTestAuthService() *AuthService {
	return NewAuthService(&config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4,
	}, nil)
}

func TestAuthService_SignAndValidate(t *testing.T) {
	s := newTestAuthService()
	claims := s.newClaims(7, 2, []string{"surveys:write"}, time.Now())

	token, err := s.sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.UserID != 7 || got.RoleID != 2 || got.Subject != "7" {
		t.Errorf("claims = %+v", got)
	}
	if got.ID != claims.ID {
		t.Errorf("jti = %q, want %q", got.ID, claims.ID)
	}
	if !got.HasPermission("surveys:write") || got.HasPermission("templates:write") {
		t.Errorf("permissions = %v", got.Permissions)
	}
}

func TestAuthService_ValidateTokenRejects(t *testing.T) {
	s := newTestAuthService()

	expired, err := s.sign(s.newClaims(1, 1, nil, time.Now().Add(-2*time.Hour)))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := NewAuthService(&config.Config{JWTSecret: "other-secret", JWTExpiry: time.Hour}, nil)
	foreign, err := other.sign(other.newClaims(1, 1, nil, time.Now()))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, s.newClaims(1, 1, nil, time.Now())).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", foreign},
		{"alg none", none},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.ValidateToken(tt.token); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestAuthService_Passwords(t *testing.T) {
	s := newTestAuthService()

	hash, err := s.HashPassword("rahasia123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("unexpected hash format %q", hash)
	}
	if err := s.CheckPassword(hash, "rahasia123"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := s.CheckPassword(hash, "salah"); err != ErrInvalidCredentials {
		t.Errorf("wrong password: err = %v", err)
	}
}
