package config

import (
	"os"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.JoinMatchPlayerLimit != 6 {
		t.Errorf("expected JoinMatchPlayerLimit=6, got %d", cfg.JoinMatchPlayerLimit)
	}
	if cfg.TeamCount != 5 {
		t.Errorf("expected TeamCount=5, got %d", cfg.TeamCount)
	}
	if cfg.TurnTimeoutMS != 30000 {
		t.Errorf("expected TurnTimeoutMS=30000, got %d", cfg.TurnTimeoutMS)
	}
	if cfg.MaxMissedTurns != 3 {
		t.Errorf("expected MaxMissedTurns=3, got %d", cfg.MaxMissedTurns)
	}
	if cfg.MaxPlacementAttempts != 100 {
		t.Errorf("expected MaxPlacementAttempts=100, got %d", cfg.MaxPlacementAttempts)
	}
	if cfg.MaxBoardSize != 20 {
		t.Errorf("expected MaxBoardSize=20, got %d", cfg.MaxBoardSize)
	}
	if cfg.NuclearProgressThreshold != 6 {
		t.Errorf("expected NuclearProgressThreshold=6, got %d", cfg.NuclearProgressThreshold)
	}
	if cfg.WSPort != 8080 {
		t.Errorf("expected WSPort=8080, got %d", cfg.WSPort)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	os.Setenv("TURN_TIMEOUT_MS", "10000")
	os.Setenv("JOIN_MATCH_PLAYER_LIMIT", "4")
	os.Setenv("WS_PORT", "9090")
	os.Setenv("REDIS_URL", "redis://localhost:6379/1")
	defer func() {
		os.Unsetenv("TURN_TIMEOUT_MS")
		os.Unsetenv("JOIN_MATCH_PLAYER_LIMIT")
		os.Unsetenv("WS_PORT")
		os.Unsetenv("REDIS_URL")
	}()

	cfg := Load()

	if cfg.TurnTimeoutMS != 10000 {
		t.Errorf("expected TurnTimeoutMS=10000, got %d", cfg.TurnTimeoutMS)
	}
	if cfg.JoinMatchPlayerLimit != 4 {
		t.Errorf("expected JoinMatchPlayerLimit=4, got %d", cfg.JoinMatchPlayerLimit)
	}
	if cfg.WSPort != 9090 {
		t.Errorf("expected WSPort=9090, got %d", cfg.WSPort)
	}
	if cfg.RedisURL != "redis://localhost:6379/1" {
		t.Errorf("expected RedisURL override, got %q", cfg.RedisURL)
	}
}

func TestClampOutOfRange(t *testing.T) {
	os.Setenv("JOIN_MATCH_PLAYER_LIMIT", "9")
	os.Setenv("TEAM_COUNT", "1")
	os.Setenv("TURN_TIMEOUT_MS", "15000")
	defer func() {
		os.Unsetenv("JOIN_MATCH_PLAYER_LIMIT")
		os.Unsetenv("TEAM_COUNT")
		os.Unsetenv("TURN_TIMEOUT_MS")
	}()

	cfg := Load()

	if cfg.JoinMatchPlayerLimit != 6 {
		t.Errorf("expected JoinMatchPlayerLimit clamped to 6, got %d", cfg.JoinMatchPlayerLimit)
	}
	if cfg.TeamCount != 2 {
		t.Errorf("expected TeamCount clamped to 2, got %d", cfg.TeamCount)
	}
	if cfg.TurnTimeoutMS != 30000 {
		t.Errorf("expected TurnTimeoutMS clamped to 30000, got %d", cfg.TurnTimeoutMS)
	}
}

func TestInvalidEnvValueIgnored(t *testing.T) {
	os.Setenv("MAX_MISSED_TURNS", "three")
	defer os.Unsetenv("MAX_MISSED_TURNS")

	cfg := Load()
	if cfg.MaxMissedTurns != 3 {
		t.Errorf("expected default MaxMissedTurns=3 when env invalid, got %d", cfg.MaxMissedTurns)
	}
}
