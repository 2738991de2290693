package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenDuration is the validity window of guest access tokens.
const AccessTokenDuration = 24 * time.Hour

// JWTClaims carries the authenticated guest identity.
type JWTClaims struct {
	OwnerID string `json:"owner_id"` // UUID of the guest
	Name    string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies guest access tokens.
type JWTManager struct {
	secretKey []byte
	issuer    string
}

// NewJWTManager creates a JWT manager
func NewJWTManager(secretKey, issuer string) *JWTManager {
	if issuer == "" {
		issuer = "festa-backend"
	}
	return &JWTManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
	}
}

// GenerateAccessToken issues a signed access token for a guest
func (m *JWTManager) GenerateAccessToken(ownerID, name string) (string, error) {
	claims := &JWTClaims{
		OwnerID: ownerID,
		Name:    name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    m.issuer,
			Subject:   ownerID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyAccessToken parses and validates an access token
func (m *JWTManager) VerifyAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.OwnerID == "" {
		return nil, fmt.Errorf("token has no owner id")
	}

	return claims, nil
}

// ExtractTokenFromHeader extracts the bearer token from an Authorization header
func ExtractTokenFromHeader(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return header[len(prefix):], nil
}
