// Package api serves the read-only stats endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"naval-battle-server/auth"
	"naval-battle-server/config"
	"naval-battle-server/storage"
)

const bearerPrefix = "Bearer "

// Handler holds dependencies for API handlers.
type Handler struct {
	Config *config.Config
	Repo   storage.Repository
	Auth   auth.Authenticator
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(cfg *config.Config, repo storage.Repository, authenticator auth.Authenticator) *Handler {
	return &Handler{
		Config: cfg,
		Repo:   repo,
		Auth:   authenticator,
	}
}

// Register mounts the stats routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/matches/", h.MatchStats)
	mux.HandleFunc("/api/stats/me", h.MyStats)
}

// CORS sets CORS headers on the response. Call before writing body.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// extractUserID validates the Authorization header and returns the user ID, or empty string on failure.
func (h *Handler) extractUserID(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if h.Auth == nil {
		return ""
	}
	identity, err := h.Auth.Authenticate(r.Context(), token)
	if err != nil {
		return ""
	}
	return identity.UserID
}

// MatchStats returns the per-player stats of one match.
// Route shape: /api/matches/{id}/stats.
func (h *Handler) MatchStats(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := h.extractUserID(r)
	if userID == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/matches/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "stats" {
		http.NotFound(w, r)
		return
	}
	matchID := parts[0]

	stats, err := h.Repo.FindStatsByMatchID(r.Context(), matchID)
	if err != nil {
		slog.Error("match stats lookup failed", "tag", "api", "matchId", matchID, "err", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []storage.MatchPlayerStats{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		slog.Error("encode match stats response", "tag", "api", "err", err)
	}
}

// MyStatsResponse is the JSON structure for /api/stats/me.
type MyStatsResponse struct {
	Global  *storage.UserGlobalStats `json:"global"`
	Matches []storage.StatsWithMatch `json:"matches"`
}

// MyStats returns the authenticated user's per-match history plus the
// cross-match aggregate.
func (h *Handler) MyStats(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := h.extractUserID(r)
	if userID == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	matches, err := h.Repo.FindStatsByUserIDWithMatch(r.Context(), userID)
	if err != nil {
		slog.Error("user stats lookup failed", "tag", "api", "userId", userID, "err", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	if matches == nil {
		matches = []storage.StatsWithMatch{}
	}

	global, err := h.Repo.FindGlobalStats(r.Context(), userID)
	if err != nil {
		slog.Error("global stats lookup failed", "tag", "api", "userId", userID, "err", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := MyStatsResponse{Global: global, Matches: matches}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("encode user stats response", "tag", "api", "err", err)
	}
}
