package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"vibe-be/internal/domain"
	"vibe-be/pkg/errors"
	"vibe-be/pkg/logger"
)

// Service verifies HS256 JWTs issued by the external identity provider. The
// provider itself is a collaborator; this service only checks signatures and
// extracts claims.
type Service struct {
	jwtSecret string
	logger    *logger.Logger
}

// NewService creates a new auth service
func NewService(jwtSecret string, logger *logger.Logger) *Service {
	return &Service{
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// ValidateToken verifies the token signature and expiry and returns its claims
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*domain.AuthClaims, error) {
	if s.jwtSecret == "" {
		return nil, errors.NewInternalError("JWT secret is not configured", nil)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		s.logger.WithError(err).Debug("JWT validation failed")
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}
	if !token.Valid {
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.NewAuthenticationError("Invalid token claims")
	}

	claims := &domain.AuthClaims{
		Sub:           getStringValue(mapClaims, "sub"),
		Email:         getStringValue(mapClaims, "email"),
		Name:          getStringValue(mapClaims, "name"),
		EmailVerified: getBoolValue(mapClaims, "email_verified"),
		Aud:           getStringValue(mapClaims, "aud"),
		Iss:           getStringValue(mapClaims, "iss"),
		Iat:           getInt64Value(mapClaims, "iat"),
		Exp:           getInt64Value(mapClaims, "exp"),
	}

	if claims.Sub == "" {
		return nil, errors.NewAuthenticationError("Token is missing the subject claim")
	}

	s.logger.WithField("user_id", claims.Sub).Debug("JWT token validated successfully")
	return claims, nil
}

// getStringValue safely extracts a string value from claims
func getStringValue(claims jwt.MapClaims, key string) string {
	if value, ok := claims[key].(string); ok {
		return value
	}
	return ""
}

// getBoolValue safely extracts a bool value from claims
func getBoolValue(claims jwt.MapClaims, key string) bool {
	if value, ok := claims[key].(bool); ok {
		return value
	}
	return false
}

// getInt64Value safely extracts an int64 value from claims
func getInt64Value(claims jwt.MapClaims, key string) int64 {
	if value, ok := claims[key].(float64); ok {
		return int64(value)
	}
	return 0
}
