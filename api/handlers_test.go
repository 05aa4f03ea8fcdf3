package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"naval-battle-server/auth"
	"naval-battle-server/config"
	"naval-battle-server/game"
	"naval-battle-server/storage"
)

// stubAuth resolves fixed tokens to identities.
type stubAuth struct {
	tokens map[string]auth.Identity
}

func (s *stubAuth) Authenticate(_ context.Context, token string) (auth.Identity, error) {
	id, ok := s.tokens[token]
	if !ok {
		return auth.Identity{}, errors.New("unknown token")
	}
	return id, nil
}

func newTestHandler(t *testing.T) (*Handler, storage.Repository) {
	t.Helper()
	repo := storage.NewMemory()
	authenticator := &stubAuth{tokens: map[string]auth.Identity{
		"token-ana": {UserID: "ana", Nickname: "Ana", Color: "#e6194b"},
	}}
	return NewHandler(config.Defaults(), repo, authenticator), repo
}

func seedStats(t *testing.T, repo storage.Repository) {
	t.Helper()
	ctx := context.Background()

	m := &storage.Match{ID: "m1", CreatedByID: "ana", Mode: game.ModeIndividual, Difficulty: game.DifficultyEasy}
	if err := repo.CreateWithCreator(ctx, m); err != nil {
		t.Fatalf("CreateWithCreator: %v", err)
	}
	stats := []game.PlayerStats{
		{UserID: "ana", TotalShots: 10, SuccessfulShots: 7, Accuracy: 0.7, ShipsSunk: 3, WasWinner: true},
		{UserID: "beto", TotalShots: 9, SuccessfulShots: 2, Accuracy: 0.22, WasEliminated: true},
	}
	if err := repo.SaveManyStats(ctx, "m1", stats); err != nil {
		t.Fatalf("SaveManyStats: %v", err)
	}
	for _, s := range stats {
		if err := repo.UpsertFromMatchStats(ctx, s); err != nil {
			t.Fatalf("UpsertFromMatchStats: %v", err)
		}
	}
}

func TestMatchStatsRequiresAuth(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/matches/m1/stats", nil)
	rec := httptest.NewRecorder()
	h.MatchStats(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/matches/m1/stats", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	h.MatchStats(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestMatchStats(t *testing.T) {
	h, repo := newTestHandler(t)
	seedStats(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/matches/m1/stats", nil)
	req.Header.Set("Authorization", "Bearer token-ana")
	rec := httptest.NewRecorder()
	h.MatchStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got []storage.MatchPlayerStats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 stat rows, got %d", len(got))
	}
	byUser := map[string]storage.MatchPlayerStats{}
	for _, s := range got {
		byUser[s.UserID] = s
	}
	if !byUser["ana"].WasWinner {
		t.Error("expected ana flagged as winner")
	}
	if !byUser["beto"].WasEliminated {
		t.Error("expected beto flagged as eliminated")
	}
}

func TestMatchStatsUnknownMatchIsEmpty(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/matches/nope/stats", nil)
	req.Header.Set("Authorization", "Bearer token-ana")
	rec := httptest.NewRecorder()
	h.MatchStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestMatchStatsBadPath(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/matches/m1/shots", nil)
	req.Header.Set("Authorization", "Bearer token-ana")
	rec := httptest.NewRecorder()
	h.MatchStats(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for wrong subresource, got %d", rec.Code)
	}
}

func TestMyStats(t *testing.T) {
	h, repo := newTestHandler(t)
	seedStats(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/me", nil)
	req.Header.Set("Authorization", "Bearer token-ana")
	rec := httptest.NewRecorder()
	h.MyStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got MyStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Matches) != 1 {
		t.Fatalf("expected 1 match entry, got %d", len(got.Matches))
	}
	if got.Matches[0].MatchID != "m1" {
		t.Errorf("expected match m1, got %q", got.Matches[0].MatchID)
	}
	if got.Global == nil {
		t.Fatal("expected global aggregate")
	}
	if got.Global.GamesPlayed != 1 || got.Global.GamesWon != 1 {
		t.Errorf("expected 1 played / 1 won, got %d/%d", got.Global.GamesPlayed, got.Global.GamesWon)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/stats/me", nil)
	rec := httptest.NewRecorder()
	h.MyStats(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS origin header")
	}
}
