package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/ports"
)

// Claims are the session claims carried by a homewatt token. The subject
// holds the account id as a decimal string.
type Claims struct {
	jwt.RegisteredClaims
}

// Service validates session tokens issued by the account platform and
// maps them to account ids. Revoked tokens are tracked in the cache
// until they would have expired on their own.
type Service struct {
	secret []byte
	cache  ports.Cache
	log    *zap.Logger
}

func NewService(secret string, cache ports.Cache, log *zap.Logger) ports.AuthService {
	return &Service{
		secret: []byte(secret),
		cache:  cache,
		log:    log,
	}
}

func revocationKey(jti string) string {
	return fmt.Sprintf("revoked_session:%s", jti)
}

// IdentityForSession parses and validates the token and returns the
// account id from its subject claim.
func (s *Service) IdentityForSession(ctx context.Context, token string) (int64, error) {
	claims, err := s.validate(token)
	if err != nil {
		return 0, err
	}

	if claims.ID != "" {
		if val, cerr := s.cache.Get(ctx, revocationKey(claims.ID)); cerr == nil && val == "revoked" {
			return 0, fmt.Errorf("session revoked")
		}
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim: %w", err)
	}
	return accountID, nil
}

// RevokeSession blacklists the token's jti for the remainder of its
// lifetime. Tokens without a jti cannot be revoked individually.
func (s *Service) RevokeSession(ctx context.Context, token string) error {
	claims, err := s.validate(token)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return nil
	}

	ttl := time.Hour
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}

	if err := s.cache.Set(ctx, revocationKey(claims.ID), "revoked", ttl); err != nil {
		s.log.Error("failed to revoke session", zap.String("jti", claims.ID), zap.Error(err))
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.log.Info("session revoked", zap.String("jti", claims.ID))
	return nil
}

func (s *Service) validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		s.log.Debug("token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
