package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/mocks"
)

const testSecret = "test-secret-key"

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func signToken(t *testing.T, secret, subject, jti string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func TestIdentityForSession_Valid(t *testing.T) {
	ctx := context.Background()
	service := NewService(testSecret, mocks.NewMockCache(), newTestLogger())

	token := signToken(t, testSecret, "42", "jti-1", time.Hour)

	accountID, err := service.IdentityForSession(ctx, token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if accountID != 42 {
		t.Errorf("expected account 42, got %d", accountID)
	}
}

func TestIdentityForSession_WrongSecret(t *testing.T) {
	ctx := context.Background()
	service := NewService(testSecret, mocks.NewMockCache(), newTestLogger())

	token := signToken(t, "other-secret", "42", "jti-1", time.Hour)

	if _, err := service.IdentityForSession(ctx, token); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}

func TestIdentityForSession_Expired(t *testing.T) {
	ctx := context.Background()
	service := NewService(testSecret, mocks.NewMockCache(), newTestLogger())

	token := signToken(t, testSecret, "42", "jti-1", -time.Minute)

	if _, err := service.IdentityForSession(ctx, token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestIdentityForSession_NonNumericSubject(t *testing.T) {
	ctx := context.Background()
	service := NewService(testSecret, mocks.NewMockCache(), newTestLogger())

	token := signToken(t, testSecret, "not-a-number", "jti-1", time.Hour)

	if _, err := service.IdentityForSession(ctx, token); err == nil {
		t.Fatal("expected error for non-numeric subject")
	}
}

func TestRevokeSession_BlocksSubsequentUse(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMockCache()
	service := NewService(testSecret, cache, newTestLogger())

	token := signToken(t, testSecret, "42", "jti-revoke", time.Hour)

	if _, err := service.IdentityForSession(ctx, token); err != nil {
		t.Fatalf("expected token to validate before revocation, got %v", err)
	}

	if err := service.RevokeSession(ctx, token); err != nil {
		t.Fatalf("expected revocation to succeed, got %v", err)
	}

	if _, err := service.IdentityForSession(ctx, token); err == nil {
		t.Fatal("expected error for revoked session")
	}
}
