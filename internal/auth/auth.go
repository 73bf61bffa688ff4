package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims represents the JWT claims. TokenType separates access tokens from
// refresh tokens so one cannot stand in for the other.
type Claims struct {
	jwt.RegisteredClaims
	Roles     []string `json:"roles"`
	TokenType string   `json:"type"`
}

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenPair bundles the short-lived access token with its refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GenerateTokenPair issues an access and a refresh token for the user.
func GenerateTokenPair(userID string, roles []string, secret string) (TokenPair, error) {
	access, err := GenerateAccessToken(userID, roles, secret)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := GenerateRefreshToken(userID, secret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// GenerateAccessToken creates a signed JWT with user ID and role ids.
func GenerateAccessToken(userID string, roles []string, secret string) (string, error) {
	return generateToken(userID, roles, tokenTypeAccess, AccessTokenTTL, secret)
}

// GenerateRefreshToken creates a long-lived token carrying only the user id.
// Roles are resolved afresh at refresh time so revocations take effect.
func GenerateRefreshToken(userID string, secret string) (string, error) {
	return generateToken(userID, nil, tokenTypeRefresh, RefreshTokenTTL, secret)
}

func generateToken(userID string, roles []string, tokenType string, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles:     roles,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// ParseAccessToken validates an access JWT and returns its claims. Refresh
// tokens are rejected; they only buy a new pair, never direct access.
func ParseAccessToken(tokenStr string, secret string) (*Claims, error) {
	return parseToken(tokenStr, tokenTypeAccess, secret)
}

// ParseRefreshToken validates a refresh JWT and returns its claims.
func ParseRefreshToken(tokenStr string, secret string) (*Claims, error) {
	return parseToken(tokenStr, tokenTypeRefresh, secret)
}

func parseToken(tokenStr, wantType, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("not an %s token", wantType)
	}
	return claims, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
