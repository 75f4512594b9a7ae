package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueVerify(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("user-42", time.Hour)
	require.NoError(t, err)

	userID, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestTokenService_ZeroTTLFallback(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	// ttl=0 falls back to a short default rather than issuing a dead token
	token, err := svc.Issue("user-42", 0)
	require.NoError(t, err)

	userID, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestTokenService_VerifyFailsClosed(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	sign := func(secret string, claims jwt.Claims, method jwt.SigningMethod) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "garbage",
			token: "not-a-token",
		},
		{
			name:  "empty",
			token: "",
		},
		{
			name: "expired",
			token: sign("test-secret", jwt.RegisteredClaims{
				Subject:   "user-42",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			}, jwt.SigningMethodHS256),
		},
		{
			name: "wrong secret",
			token: sign("other-secret", jwt.RegisteredClaims{
				Subject:   "user-42",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}, jwt.SigningMethodHS256),
		},
		{
			name: "disallowed algorithm",
			token: sign("test-secret", jwt.RegisteredClaims{
				Subject:   "user-42",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}, jwt.SigningMethodHS512),
		},
		{
			name: "missing subject",
			token: sign("test-secret", jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}, jwt.SigningMethodHS256),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := svc.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Empty(t, userID)
		})
	}
}

func TestTokenService_TamperedSignature(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("user-42", time.Hour)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = svc.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
