package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe-be/pkg/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestService_ValidateToken(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testSecret, logger.NewNop())

	claims := jwt.MapClaims{
		"sub":            "user-1",
		"email":          "user@example.com",
		"email_verified": true,
		"iss":            "https://auth.example.com",
		"exp":            float64(time.Now().Add(time.Hour).Unix()),
	}

	got, err := svc.ValidateToken(ctx, signToken(t, testSecret, claims))
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.Sub)
	assert.Equal(t, "user@example.com", got.Email)
	assert.True(t, got.EmailVerified)
	assert.Equal(t, "https://auth.example.com", got.Iss)
}

func TestService_ValidateToken_Failures(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testSecret, logger.NewNop())

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "garbage token",
			token: "not-a-jwt",
		},
		{
			name: "wrong secret",
			token: signToken(t, "other-secret", jwt.MapClaims{
				"sub": "user-1",
				"exp": float64(time.Now().Add(time.Hour).Unix()),
			}),
		},
		{
			name: "expired token",
			token: signToken(t, testSecret, jwt.MapClaims{
				"sub": "user-1",
				"exp": float64(time.Now().Add(-time.Hour).Unix()),
			}),
		},
		{
			name: "missing subject",
			token: signToken(t, testSecret, jwt.MapClaims{
				"exp": float64(time.Now().Add(time.Hour).Unix()),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(ctx, tt.token)
			assert.Error(t, err)
		})
	}
}

func TestService_ValidateToken_MissingSecret(t *testing.T) {
	svc := NewService("", logger.NewNop())
	_, err := svc.ValidateToken(context.Background(), "anything")
	assert.Error(t, err)
}
