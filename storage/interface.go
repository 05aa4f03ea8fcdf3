package storage

import (
	"context"

	"naval-battle-server/game"
)

// LoadOptions selects which associations FindByID hydrates.
type LoadOptions struct {
	WithPlayers    bool
	WithUsers      bool
	WithSpectators bool
}

// Repository is the durable-state contract for matches, players, shots,
// spectators and stats. Implementations: Postgres (production) and Memory
// (single-process dev mode, tests).
type Repository interface {
	// Matches
	CreateWithCreator(ctx context.Context, m *Match) error
	FindOrCreateMatch(ctx context.Context, template *Match) (*Match, error)
	FindByID(ctx context.Context, matchID string, opts LoadOptions) (*Match, error)
	UpdateCreator(ctx context.Context, matchID, newCreatorID string) error
	UpdateStartBoard(ctx context.Context, matchID string, board *game.Board) error
	UpdateBoard(ctx context.Context, matchID string, board *game.Board) error
	MarkFinished(ctx context.Context, matchID string) error
	// RemoveAbandoned deletes shots, spectators, players and finally the
	// match row in one transaction.
	RemoveAbandoned(ctx context.Context, matchID string) error

	// Players
	AddPlayer(ctx context.Context, matchID, userID string) (*MatchPlayer, error)
	RemovePlayer(ctx context.Context, matchID, userID string) error
	AssignTeam(ctx context.Context, matchID, userID string, team int) error
	MarkDefeatedByUser(ctx context.Context, matchID, userID string) error
	MarkDefeatedByID(ctx context.Context, playerID string) error
	MarkWinner(ctx context.Context, matchID, userID string) error
	MarkTeamPlayersAsWinners(ctx context.Context, matchID string, team int) error

	// Shots
	RegisterShot(ctx context.Context, matchID, shooterID string, shotType game.ShotType, row, col int, hit bool) (*Shot, error)

	// Spectators
	AddSpectator(ctx context.Context, matchID, userID string) error
	FindSpectator(ctx context.Context, matchID, userID string) (*Spectator, error)

	// Users (mirror of verified token claims, used to enrich board views)
	UpsertUser(ctx context.Context, u User) error
	FindUser(ctx context.Context, userID string) (*User, error)

	// Stats
	SaveManyStats(ctx context.Context, matchID string, stats []game.PlayerStats) error
	FindStatsByMatchID(ctx context.Context, matchID string) ([]MatchPlayerStats, error)
	FindStatsByUserIDWithMatch(ctx context.Context, userID string) ([]StatsWithMatch, error)

	// Global aggregates
	FindGlobalStats(ctx context.Context, userID string) (*UserGlobalStats, error)
	UpsertFromMatchStats(ctx context.Context, stat game.PlayerStats) error

	Close()
}

// Both backends satisfy the contract at compile time.
var (
	_ Repository = (*Postgres)(nil)
	_ Repository = (*Memory)(nil)
)
