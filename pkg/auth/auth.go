// Package auth provides JWT generation and validation for the HTTP API.
// This is a leaf package with no domain dependencies. Used by
// internal/api/middleware and the token subcommand.
//
// FloatChat has no user database: API tokens are minted offline from the
// shared FLOATCHAT_JWT_SECRET and handed to clients, so the package only
// deals with HS256 signing and parsing.
package auth

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenExpiry is the default token lifetime in hours if not set via env.
const DefaultTokenExpiry = 24

const (
	envJWTSecret = "FLOATCHAT_JWT_SECRET"
	envJWTExpiry = "FLOATCHAT_JWT_EXPIRY"
)

// Enabled reports whether API authentication is configured.
// An empty secret means the API runs open (local development).
func Enabled() bool {
	return os.Getenv(envJWTSecret) != ""
}

// getJWTSecret reads the signing secret from the environment. Panics if not
// set — callers must check Enabled() before issuing or parsing tokens.
func getJWTSecret() []byte {
	secret := os.Getenv(envJWTSecret)
	if secret == "" {
		panic(envJWTSecret + " environment variable not set — cannot initialize auth")
	}
	return []byte(secret)
}

// parseTokenExpiry parses an expiry string (hours) into a Duration.
// Returns DefaultTokenExpiry for empty or invalid input (graceful degradation).
func parseTokenExpiry(expiryStr string) time.Duration {
	if expiryStr == "" {
		return time.Duration(DefaultTokenExpiry) * time.Hour
	}

	hours, err := strconv.Atoi(expiryStr)
	if err != nil {
		return time.Duration(DefaultTokenExpiry) * time.Hour
	}

	return time.Duration(hours) * time.Hour
}

func getTokenExpiry() time.Duration {
	return parseTokenExpiry(os.Getenv(envJWTExpiry))
}

// Claims are the JWT claims carried by FloatChat API tokens.
// ClientID identifies the calling application for per-client usage tallies.
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed API token for the given client id.
func GenerateToken(clientID string) (string, error) {
	now := time.Now()

	claims := &Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(getTokenExpiry())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(getJWTSecret())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// ParseToken validates and parses an API token, extracting claims.
// Returns an error if the token is invalid, expired, or malformed.
func ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method is HMAC-SHA256 (prevent algorithm substitution attacks)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getJWTSecret(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims or signature")
	}

	return claims, nil
}
