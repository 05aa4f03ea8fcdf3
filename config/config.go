package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// Config holds all configurable game parameters.
type Config struct {
	// JoinMatchPlayerLimit caps maxPlayers on any match (2..6).
	JoinMatchPlayerLimit int `json:"join_match_player_limit"`
	// TeamCount caps the number of teams on a teams-mode match (2..5).
	// A match may not declare more teams than maxPlayers-1.
	TeamCount int `json:"team_count"`
	// TurnTimeoutMS is the turn timer duration. 30000 is the canonical value;
	// 10000 is the accepted tighter variant.
	TurnTimeoutMS int `json:"turn_timeout_ms"`
	// MaxMissedTurns is how many consecutive turn timeouts a player survives.
	MaxMissedTurns int `json:"max_missed_turns"`
	// MaxPlacementAttempts bounds the random-placement retry loop per ship.
	MaxPlacementAttempts int `json:"max_placement_attempts"`
	// MaxBoardSize caps the generated board side length.
	MaxBoardSize int `json:"max_board_size"`
	// NuclearProgressThreshold is the consecutive-hit count that unlocks the
	// nuclear shot.
	NuclearProgressThreshold int `json:"nuclear_progress_threshold"`

	WSPort int `json:"ws_port"`

	// AuthBaseURL is the base URL of the external auth service (JWKS under
	// /.well-known/jwks.json). Empty means auth is not configured and the
	// gateway rejects clients.
	AuthBaseURL string `json:"auth_base_url"`

	// DatabaseURL is the Postgres connection string. Empty selects the
	// in-memory repositories (no durable persistence).
	DatabaseURL string `json:"database_url"`

	// RedisURL is the ephemeral-store connection string. Empty selects the
	// in-process store (single-instance only).
	RedisURL string `json:"redis_url"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		JoinMatchPlayerLimit:     6,
		TeamCount:                5,
		TurnTimeoutMS:            30000,
		MaxMissedTurns:           3,
		MaxPlacementAttempts:     100,
		MaxBoardSize:             20,
		NuclearProgressThreshold: 6,
		WSPort:                   8080,
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	cfg := Defaults()

	// Try to load from config.json
	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	// Environment variable overrides
	overrideInt(&cfg.JoinMatchPlayerLimit, "JOIN_MATCH_PLAYER_LIMIT")
	overrideInt(&cfg.TeamCount, "TEAM_COUNT")
	overrideInt(&cfg.TurnTimeoutMS, "TURN_TIMEOUT_MS")
	overrideInt(&cfg.MaxMissedTurns, "MAX_MISSED_TURNS")
	overrideInt(&cfg.MaxPlacementAttempts, "MAX_PLACEMENT_ATTEMPTS")
	overrideInt(&cfg.MaxBoardSize, "MAX_BOARD_SIZE")
	overrideInt(&cfg.NuclearProgressThreshold, "NUCLEAR_PROGRESS_THRESHOLD")
	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.RedisURL, "REDIS_URL")

	cfg.clamp()
	return cfg
}

// clamp pulls out-of-range values back into the documented bounds.
func (c *Config) clamp() {
	if c.JoinMatchPlayerLimit < 2 {
		log.Printf("Warning: JOIN_MATCH_PLAYER_LIMIT %d below minimum, using 2", c.JoinMatchPlayerLimit)
		c.JoinMatchPlayerLimit = 2
	}
	if c.JoinMatchPlayerLimit > 6 {
		log.Printf("Warning: JOIN_MATCH_PLAYER_LIMIT %d above maximum, using 6", c.JoinMatchPlayerLimit)
		c.JoinMatchPlayerLimit = 6
	}
	if c.TeamCount < 2 {
		log.Printf("Warning: TEAM_COUNT %d below minimum, using 2", c.TeamCount)
		c.TeamCount = 2
	}
	if c.TeamCount > 5 {
		log.Printf("Warning: TEAM_COUNT %d above maximum, using 5", c.TeamCount)
		c.TeamCount = 5
	}
	if c.TurnTimeoutMS != 10000 && c.TurnTimeoutMS != 30000 {
		log.Printf("Warning: TURN_TIMEOUT_MS %d is not 10000 or 30000, using 30000", c.TurnTimeoutMS)
		c.TurnTimeoutMS = 30000
	}
	if c.MaxBoardSize > 20 {
		log.Printf("Warning: MAX_BOARD_SIZE %d above maximum, using 20", c.MaxBoardSize)
		c.MaxBoardSize = 20
	}
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
