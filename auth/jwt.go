// Package auth verifies session tokens against the identity provider's
// JWKS endpoint and extracts the player identity from their claims.
package auth

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
	"sync"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified player behind a connection.
type Identity struct {
	UserID   string
	Nickname string
	Color    string
}

// Authenticator turns a bearer token into a verified identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// palette backs the color fallback when the token carries no color claim.
// Indexed by a hash of the user id so a player keeps the same color across
// sessions.
var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
}

// JWKSAuthenticator validates JWTs issued by the auth service whose JWKS is
// published under baseURL/.well-known/jwks.json.
type JWKSAuthenticator struct {
	baseURL string

	mu   sync.Mutex
	jwks keyfunc.Keyfunc
}

func NewJWKSAuthenticator(baseURL string) *JWKSAuthenticator {
	return &JWKSAuthenticator{baseURL: baseURL}
}

// Authenticate validates tokenString and returns the identity from its
// claims.
func (a *JWKSAuthenticator) Authenticate(ctx context.Context, tokenString string) (Identity, error) {
	if a.baseURL == "" {
		return Identity{}, fmt.Errorf("AUTH_BASE_URL is not set")
	}

	u, err := url.Parse(a.baseURL)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid auth base URL: %w", err)
	}
	expectedIssuer := u.Scheme + "://" + u.Host

	jwks, err := a.keyfunc()
	if err != nil {
		return Identity{}, err
	}

	token, err := jwt.Parse(tokenString, jwks.Keyfunc,
		jwt.WithIssuer(expectedIssuer),
		jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		return Identity{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token claims")
	}

	identity := IdentityFromClaims(claims)
	if identity.UserID == "" {
		return Identity{}, fmt.Errorf("token has no subject")
	}
	return identity, nil
}

// keyfunc returns the cached JWKS client, fetching it on first use. The
// client refreshes keys in the background for the life of the process.
func (a *JWKSAuthenticator) keyfunc() (keyfunc.Keyfunc, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.jwks != nil {
		return a.jwks, nil
	}
	jwks, err := keyfunc.NewDefault([]string{a.baseURL + "/.well-known/jwks.json"})
	if err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}
	a.jwks = jwks
	return a.jwks, nil
}

// IdentityFromClaims builds an Identity from validated claims. The user id
// comes from "sub" (or "id"), the nickname is the first word of "name".
func IdentityFromClaims(claims jwt.MapClaims) Identity {
	id := userIDFromClaims(claims)
	return Identity{
		UserID:   id,
		Nickname: nicknameFromClaims(claims),
		Color:    colorFromClaims(claims, id),
	}
}

func userIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}

func nicknameFromClaims(claims jwt.MapClaims) string {
	name, _ := claims["name"].(string)
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return "Jugador"
	}
	return parts[0]
}

func colorFromClaims(claims jwt.MapClaims, userID string) string {
	if color, ok := claims["color"].(string); ok && color != "" {
		return color
	}
	h := fnv.New32a()
	h.Write([]byte(userID))
	return palette[int(h.Sum32())%len(palette)]
}
