package storage

import (
	"time"

	"naval-battle-server/game"
)

// MatchStatus is the lifecycle state of a match row.
type MatchStatus string

const (
	StatusWaiting    MatchStatus = "waiting"
	StatusInProgress MatchStatus = "in_progress"
	StatusFinished   MatchStatus = "finished"
)

// User mirrors the identity service's view of a user. Rows are written only
// from verified token claims; the core never invents users.
type User struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Color    string `json:"color"`
}

// Match is one game instance. Board is nil until the match starts.
type Match struct {
	ID            string          `json:"id"`
	Name          string          `json:"name,omitempty"`
	AccessCode    string          `json:"accessCode,omitempty"`
	IsPublic      bool            `json:"isPublic"`
	IsMatchmaking bool            `json:"isMatchmaking"`
	MaxPlayers    int             `json:"maxPlayers"`
	Mode          game.Mode       `json:"mode"`
	Difficulty    game.Difficulty `json:"difficulty"`
	TeamCount     *int            `json:"teamCount,omitempty"`
	CreatedByID   string          `json:"createdById"`
	Status        MatchStatus     `json:"status"`
	Board         *game.Board     `json:"board,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`

	// Populated by FindByID when requested via LoadOptions.
	Players    []MatchPlayer `json:"players,omitempty"`
	Spectators []Spectator   `json:"spectators,omitempty"`
}

// MatchPlayer is a user's membership in a match. LeftAt is set when the
// player leaves, is eliminated, or abandons by timeout.
type MatchPlayer struct {
	ID       string     `json:"id"`
	MatchID  string     `json:"matchId"`
	UserID   string     `json:"userId"`
	Team     *int       `json:"team,omitempty"`
	IsWinner bool       `json:"isWinner"`
	LeftAt   *time.Time `json:"leftAt,omitempty"`
	JoinedAt time.Time  `json:"joinedAt"`

	// Populated when loaded with LoadOptions.WithUsers.
	User *User `json:"user,omitempty"`
}

// Alive reports whether the player is still in the running.
func (p *MatchPlayer) Alive() bool {
	return p.LeftAt == nil
}

// Spectator is a non-playing viewer of a match.
type Spectator struct {
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
}

// Shot is the durable record of one accepted fire.
type Shot struct {
	ID        string        `json:"id"`
	MatchID   string        `json:"matchId"`
	ShooterID string        `json:"shooterId"`
	Type      game.ShotType `json:"type"`
	TargetRow int           `json:"targetRow"`
	TargetCol int           `json:"targetCol"`
	Hit       bool          `json:"hit"`
	CreatedAt time.Time     `json:"createdAt"`
}

// MatchPlayerStats is the persisted per-match summary for one player.
type MatchPlayerStats struct {
	ID              string                `json:"id"`
	MatchID         string                `json:"matchId"`
	UserID          string                `json:"userId"`
	TotalShots      int                   `json:"totalShots"`
	SuccessfulShots int                   `json:"successfulShots"`
	Accuracy        float64               `json:"accuracy"`
	ShipsSunk       int                   `json:"shipsSunk"`
	WasWinner       bool                  `json:"wasWinner"`
	TurnsTaken      int                   `json:"turnsTaken"`
	ShipsRemaining  int                   `json:"shipsRemaining"`
	WasEliminated   bool                  `json:"wasEliminated"`
	HitStreak       int                   `json:"hitStreak"`
	LastShotWasHit  bool                  `json:"lastShotWasHit"`
	ShotsByType     map[game.ShotType]int `json:"shotsByType"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// MatchSummary is the slice of match data returned alongside a player's
// historical stats.
type MatchSummary struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	Mode       game.Mode       `json:"mode"`
	Difficulty game.Difficulty `json:"difficulty"`
	Status     MatchStatus     `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// StatsWithMatch pairs a stats row with its match summary.
type StatsWithMatch struct {
	MatchPlayerStats
	Match MatchSummary `json:"match"`
}

// UserGlobalStats is the accumulated cross-match aggregate for one user.
type UserGlobalStats struct {
	UserID          string     `json:"userId"`
	GamesPlayed     int        `json:"gamesPlayed"`
	GamesWon        int        `json:"gamesWon"`
	TotalShots      int        `json:"totalShots"`
	SuccessfulShots int        `json:"successfulShots"`
	Accuracy        float64    `json:"accuracy"`
	ShipsSunk       int        `json:"shipsSunk"`
	MaxHitStreak    int        `json:"maxHitStreak"`
	NuclearUsed     int        `json:"nuclearUsed"`
	LastGameAt      *time.Time `json:"lastGameAt,omitempty"`
}
