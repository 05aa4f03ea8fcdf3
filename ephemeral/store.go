// Package ephemeral holds the volatile per-match coordination state: turn
// pointer, timer owner, missed-turn counters, lobby readiness, team picks,
// nuclear shot tracking and the connection map. Everything here is discarded
// when a match finalizes; durable state lives in storage.
package ephemeral

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ConnBinding ties a live connection to the user and match it serves.
type ConnBinding struct {
	UserID  string
	MatchID string
}

// Store is the fast key-value contract shared by all match workers.
// Lookups on absent keys return zero values, not errors. Every Clear* and
// Reset* is idempotent.
type Store interface {
	SetTurn(ctx context.Context, matchID, userID string) error
	GetTurn(ctx context.Context, matchID string) (string, error)
	ClearTurn(ctx context.Context, matchID string) error

	SetTurnTimeoutOwner(ctx context.Context, matchID, userID string) error
	GetTurnTimeoutOwner(ctx context.Context, matchID string) (string, error)
	ClearTurnTimeoutOwner(ctx context.Context, matchID string) error

	// IncrMissed is atomic across workers and returns the new count.
	IncrMissed(ctx context.Context, matchID, userID string) (int, error)
	ResetMissed(ctx context.Context, matchID, userID string) error

	MarkReady(ctx context.Context, matchID, connID string) error
	AllReady(ctx context.Context, matchID string) ([]string, error)
	ClearReady(ctx context.Context, matchID string) error

	SetTeam(ctx context.Context, matchID, connID string, team int) error
	AllTeams(ctx context.Context, matchID string) (map[string]int, error)
	ClearTeams(ctx context.Context, matchID string) error

	IncrNuclearProgress(ctx context.Context, matchID, userID string) (int, error)
	GetNuclearProgress(ctx context.Context, matchID, userID string) (int, error)
	ResetNuclearProgress(ctx context.Context, matchID, userID string) error
	UnlockNuclear(ctx context.Context, matchID, userID string) error
	HasNuclearAvailable(ctx context.Context, matchID, userID string) (bool, error)
	MarkNuclearUsed(ctx context.Context, matchID, userID string) error
	HasNuclearUsed(ctx context.Context, matchID, userID string) (bool, error)
	ClearNuclear(ctx context.Context, matchID, userID string) error

	MarkAbandoned(ctx context.Context, matchID, userID string) error
	IsAbandoned(ctx context.Context, matchID, userID string) (bool, error)
	ClearAllAbandoned(ctx context.Context, matchID string, userIDs []string) error

	SaveConn(ctx context.Context, connID, userID, matchID string) error
	GetConn(ctx context.Context, connID string) (ConnBinding, bool, error)
	DeleteConn(ctx context.Context, connID string) error

	SetLastMatchByUser(ctx context.Context, userID, matchID string) error
	GetLastMatchByUser(ctx context.Context, userID string) (string, error)
}

// ClearMatch fans out every match-scoped clear in parallel. A failing clear
// is reported through the returned error but never stops the others; all
// clears run to completion.
func ClearMatch(ctx context.Context, s Store, matchID string, userIDs []string) error {
	println("DEBUG ClearMatch C0 enter")
	var g errgroup.Group
	g.Go(func() error { return s.ClearTurn(ctx, matchID) })
	g.Go(func() error { return s.ClearTurnTimeoutOwner(ctx, matchID) })
	g.Go(func() error { return s.ClearReady(ctx, matchID) })
	g.Go(func() error { return s.ClearTeams(ctx, matchID) })
	g.Go(func() error { return s.ClearAllAbandoned(ctx, matchID, userIDs) })
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error { return s.ResetMissed(ctx, matchID, userID) })
		g.Go(func() error { return s.ClearNuclear(ctx, matchID, userID) })
	}
	err := g.Wait()
	println("DEBUG ClearMatch C1 wait done")
	return err
}
