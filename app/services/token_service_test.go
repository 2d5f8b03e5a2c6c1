package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   "operator@example.com",
		Issuer:    "test-issuer",
		Audience:  jwt.ClaimStrings{"test-audience"},
		ID:        "tok-1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short", "test-issuer", "test-audience")
	assert.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	svc, err := NewTokenService(testSecret, "test-issuer", "test-audience")
	require.NoError(t, err)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"someone-else"}

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid", token: signToken(t, testSecret, validClaims())},
		{name: "expired", token: signToken(t, testSecret, expired), wantErr: ErrTokenExpired},
		{name: "wrong audience", token: signToken(t, testSecret, wrongAudience), wantErr: ErrTokenInvalid},
		{name: "wrong secret", token: signToken(t, "another-secret-key-for-jwt-signing-1234", validClaims()), wantErr: ErrTokenInvalid},
		{name: "no subject", token: signToken(t, testSecret, noSubject), wantErr: ErrTokenInvalid},
		{name: "garbage", token: "not-a-token", wantErr: ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "operator@example.com", claims.Operator)
			assert.Equal(t, "tok-1", claims.TokenID)
		})
	}
}
