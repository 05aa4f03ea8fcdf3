package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestIdentityFromClaims(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":   "user-1",
		"name":  "Ana María López",
		"color": "#112233",
	}

	id := IdentityFromClaims(claims)
	if id.UserID != "user-1" {
		t.Errorf("expected UserID=user-1, got %q", id.UserID)
	}
	if id.Nickname != "Ana" {
		t.Errorf("expected first name Ana, got %q", id.Nickname)
	}
	if id.Color != "#112233" {
		t.Errorf("expected color claim respected, got %q", id.Color)
	}
}

func TestIdentityFromClaimsFallbacks(t *testing.T) {
	claims := jwt.MapClaims{"id": "user-2"}

	id := IdentityFromClaims(claims)
	if id.UserID != "user-2" {
		t.Errorf("expected id claim fallback, got %q", id.UserID)
	}
	if id.Nickname != "Jugador" {
		t.Errorf("expected nickname fallback Jugador, got %q", id.Nickname)
	}
	if id.Color == "" {
		t.Error("expected a palette color, got empty string")
	}
}

func TestColorFallbackIsStable(t *testing.T) {
	a := IdentityFromClaims(jwt.MapClaims{"sub": "user-3"})
	b := IdentityFromClaims(jwt.MapClaims{"sub": "user-3"})
	if a.Color != b.Color {
		t.Errorf("expected same color for same user, got %q and %q", a.Color, b.Color)
	}

	found := false
	for _, c := range palette {
		if c == a.Color {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("color %q is not from the palette", a.Color)
	}
}

func TestEmptyNameUsesFallback(t *testing.T) {
	id := IdentityFromClaims(jwt.MapClaims{"sub": "user-4", "name": "   "})
	if id.Nickname != "Jugador" {
		t.Errorf("expected Jugador for blank name, got %q", id.Nickname)
	}
}

func TestMissingSubject(t *testing.T) {
	id := IdentityFromClaims(jwt.MapClaims{"name": "Sin Id"})
	if id.UserID != "" {
		t.Errorf("expected empty UserID, got %q", id.UserID)
	}
}
