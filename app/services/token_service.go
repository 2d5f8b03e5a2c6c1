package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token service errors
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// TokenService verifies operator access tokens. Issuance happens elsewhere.
type TokenService interface {
	ValidateToken(token string) (*OperatorClaims, error)
}

// OperatorClaims identifies the operator behind a request
type OperatorClaims struct {
	Operator  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenServiceImpl implements TokenService with HS256 tokens
type TokenServiceImpl struct {
	secretKey []byte
	issuer    string
	audience  string
}

// NewTokenService creates a verifier for tokens signed with secretKey
func NewTokenService(secretKey, issuer, audience string) (TokenService, error) {
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 characters long")
	}
	return &TokenServiceImpl{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
	}, nil
}

// ValidateToken parses and verifies an access token
func (s *TokenServiceImpl) ValidateToken(token string) (*OperatorClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	out := &OperatorClaims{
		Operator: claims.Subject,
		TokenID:  claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
