package match

import (
	"context"
	"log/slog"

	"naval-battle-server/events"
	"naval-battle-server/storage"
)

// handleTurnExpired consumes a timer wake-up. The stored owner is the source
// of truth; a wake-up carrying anyone else is a stale timer from an earlier
// turn and is dropped.
func (r *Runtime) handleTurnExpired(ctx context.Context, expected string) {
	owner, err := r.store.GetTurnTimeoutOwner(ctx, r.matchID)
	if err != nil {
		slog.Error("timeout owner lookup failed", "tag", "match", "matchId", r.matchID, "err", err)
		return
	}
	if owner == "" || owner != expected {
		return
	}
	m, err := r.loadMatch(ctx)
	if err != nil || m == nil || m.Status != storage.StatusInProgress {
		return
	}
	p := findPlayer(m, owner)
	if p == nil || !p.Alive() {
		return
	}

	missed, err := r.store.IncrMissed(ctx, r.matchID, owner)
	if err != nil {
		slog.Error("missed counter failed", "tag", "match", "matchId", r.matchID, "userId", owner, "err", err)
		return
	}

	if missed >= r.cfg.MaxMissedTurns {
		r.kickForAbandonment(ctx, m, owner)
		return
	}

	r.emitRoom(events.TurnTimeout{Type: events.TypeTurnTimeout, MatchID: r.matchID, UserID: owner, Missed: missed})
	r.mgr.timeouts.Clear(ctx, r.matchID)
	if next := r.passTurn(ctx, owner, nil); next != "" {
		r.mgr.timeouts.Start(ctx, r.matchID, next)
	}
}

// kickForAbandonment ejects a player who burned the whole missed-turn
// budget: defeat, rejoin block, transport close. The match moves on without
// them.
func (r *Runtime) kickForAbandonment(ctx context.Context, m *storage.Match, userID string) {
	if err := r.store.MarkAbandoned(ctx, r.matchID, userID); err != nil {
		slog.Warn("mark abandoned failed", "tag", "match", "matchId", r.matchID, "userId", userID, "err", err)
	}
	if err := r.repo.MarkDefeatedByUser(ctx, r.matchID, userID); err != nil {
		slog.Error("mark defeated failed", "tag", "match", "matchId", r.matchID, "userId", userID, "err", err)
	}
	r.emitRoom(events.PlayerEliminated{Type: events.TypePlayerEliminated, MatchID: r.matchID, UserID: userID})
	slog.Info("player kicked for inactivity", "tag", "match", "matchId", r.matchID, "userId", userID)

	kicked := events.PlayerKicked{Type: events.TypePlayerKicked, MatchID: r.matchID, Reason: "expulsado por inactividad"}
	for _, c := range r.connsOf(userID) {
		r.emitConn(c, kicked)
		r.removeConn(c.ID)
		if err := r.store.DeleteConn(ctx, c.ID); err != nil {
			slog.Warn("conn unbind failed", "tag", "match", "connId", c.ID, "err", err)
		}
		if c.Close != nil {
			c.Close()
		}
	}

	if len(r.conns) == 0 {
		r.teardownEmptyRoom(ctx, m)
		return
	}
	r.mgr.timeouts.Clear(ctx, r.matchID)
	if next := r.passTurn(ctx, userID, []string{userID}); next != "" {
		r.mgr.timeouts.Start(ctx, r.matchID, next)
	}
}
