// ABOUTME: Opaque API token generation and bearer header extraction.
// ABOUTME: Tokens are fixed-length alphanumeric strings from crypto/rand.

package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// TokenLength is the length of generated API tokens.
const TokenLength = 32

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateToken returns a new random alphanumeric API token.
func GenerateToken() (string, error) {
	var b strings.Builder
	b.Grow(TokenLength)

	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < TokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating token: %w", err)
		}
		b.WriteByte(tokenAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// ExtractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func ExtractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}
