package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type dispatcherTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 dispatcher tokens.
type TokenSigner struct {
	secretKey []byte
	issuer    string
}

func NewTokenSigner(secretKey []byte) *TokenSigner {
	return &TokenSigner{
		secretKey: secretKey,
		issuer:    "dispatchboard",
	}
}

// Sign creates a token for dispatcherID valid for ttl.
func (s *TokenSigner) Sign(dispatcherID, role string, ttl time.Duration) (string, error) {
	if len(s.secretKey) == 0 {
		return "", errors.New("token signer has no secret")
	}
	if dispatcherID == "" {
		return "", errors.New("dispatcher id is required")
	}
	if role == "" {
		role = RoleDispatcher
	}

	now := time.Now()
	claims := dispatcherTokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   dispatcherID,
			Issuer:    s.issuer,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate parses tokenString and returns its claims. Expired, foreign or
// tampered tokens fail with ErrInvalidToken.
func (s *TokenSigner) Validate(tokenString string) (*DispatcherClaims, error) {
	if len(s.secretKey) == 0 {
		return nil, fmt.Errorf("%w: signer has no secret", ErrInvalidToken)
	}

	claims := &dispatcherTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &DispatcherClaims{
		Subject:   claims.Subject,
		RoleValue: claims.Role,
		TokenID:   claims.ID,
	}, nil
}
