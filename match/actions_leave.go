package match

import (
	"context"
	"log/slog"

	"naval-battle-server/events"
	"naval-battle-server/metrics"
	"naval-battle-server/storage"
)

// handleLeave processes a voluntary exit. Leaving a waiting match frees the
// seat; leaving an in-progress match is a surrender and blocks rejoining.
// The PLAYER_LEFT emission happens before the conn is dropped from the room
// so the leaver sees their own terminal response.
func (r *Runtime) handleLeave(ctx context.Context, c *Conn) {
	if !r.inRoom(c) {
		return
	}
	m, err := r.loadMatch(ctx)
	if err != nil {
		slog.Error("leave load failed", "tag", "match", "matchId", r.matchID, "err", err)
	}

	r.emitRoom(events.PlayerLeft{Type: events.TypePlayerLeft, MatchID: r.matchID, UserID: c.UserID})
	r.removeConn(c.ID)
	if err := r.store.DeleteConn(ctx, c.ID); err != nil {
		slog.Warn("conn unbind failed", "tag", "match", "connId", c.ID, "err", err)
	}

	if m == nil {
		return
	}

	p := findPlayer(m, c.UserID)
	surrendered := false
	heldTurn := false
	if p != nil && p.Alive() {
		switch m.Status {
		case storage.StatusWaiting:
			if err := r.repo.RemovePlayer(ctx, r.matchID, c.UserID); err != nil {
				slog.Error("remove player failed", "tag", "match", "matchId", r.matchID, "userId", c.UserID, "err", err)
			}
		case storage.StatusInProgress:
			turn, terr := r.store.GetTurn(ctx, r.matchID)
			if terr != nil {
				slog.Error("turn lookup failed", "tag", "match", "matchId", r.matchID, "err", terr)
			}
			heldTurn = turn == c.UserID
			surrendered = true
			if err := r.repo.MarkDefeatedByUser(ctx, r.matchID, c.UserID); err != nil {
				slog.Error("mark defeated failed", "tag", "match", "matchId", r.matchID, "userId", c.UserID, "err", err)
			}
			if err := r.store.MarkAbandoned(ctx, r.matchID, c.UserID); err != nil {
				slog.Warn("mark abandoned failed", "tag", "match", "matchId", r.matchID, "userId", c.UserID, "err", err)
			}
		}
	}

	if len(r.conns) == 0 {
		r.teardownEmptyRoom(ctx, m)
		return
	}

	if m.CreatedByID == c.UserID && len(r.connsOf(c.UserID)) == 0 {
		r.promoteCreator(ctx)
	}

	if surrendered {
		if heldTurn {
			r.mgr.timeouts.Clear(ctx, r.matchID)
			if next := r.passTurn(ctx, c.UserID, nil); next != "" {
				r.mgr.timeouts.Start(ctx, r.matchID, next)
			}
		} else {
			r.passTurn(ctx, "", nil)
		}
	}
}

// handleDisconnect reacts to a dropped transport. The player keeps their
// seat and the turn timer keeps running: they may reconnect before the
// missed-turn budget runs out.
func (r *Runtime) handleDisconnect(ctx context.Context, connID string) {
	c := r.removeConn(connID)
	if c == nil {
		return
	}
	m, err := r.loadMatch(ctx)
	if err != nil {
		slog.Error("disconnect load failed", "tag", "match", "matchId", r.matchID, "err", err)
		return
	}
	r.emitRoom(events.PlayerLeft{Type: events.TypePlayerLeft, MatchID: r.matchID, UserID: c.UserID})
	if m == nil {
		return
	}
	if len(r.conns) == 0 {
		r.teardownEmptyRoom(ctx, m)
		return
	}
	if m.CreatedByID == c.UserID && len(r.connsOf(c.UserID)) == 0 {
		r.promoteCreator(ctx)
	}
}

// teardownEmptyRoom is the empty-room cascade: a match still waiting or
// running when its last connection goes away is deleted outright, rows and
// coordination state both. A finished match was already finalized and keeps
// its history.
func (r *Runtime) teardownEmptyRoom(ctx context.Context, m *storage.Match) {
	println("DEBUG teardown T0")
	if m.Status == storage.StatusFinished {
		println("DEBUG teardown T0-finished-early-return")
		return
	}
	if err := r.repo.RemoveAbandoned(ctx, r.matchID); err != nil {
		slog.Error("abandon cascade failed", "tag", "match", "matchId", r.matchID, "err", err)
	}
	println("DEBUG teardown T1 after RemoveAbandoned")
	r.clearEphemeral(ctx, playerIDs(m))
	println("DEBUG teardown T2 after clearEphemeral")
	r.mgr.timeouts.Cancel(r.matchID)
	metrics.MatchesFinished.WithLabelValues(metrics.ReasonAbandoned).Inc()
	slog.Info("match abandoned, room empty", "tag", "match", "matchId", r.matchID)
}

// promoteCreator hands the match to the first remaining connection's user.
func (r *Runtime) promoteCreator(ctx context.Context) {
	if len(r.conns) == 0 {
		return
	}
	heir := r.conns[0].UserID
	if err := r.repo.UpdateCreator(ctx, r.matchID, heir); err != nil {
		slog.Error("creator promotion failed", "tag", "match", "matchId", r.matchID, "userId", heir, "err", err)
		return
	}
	r.emitRoom(events.CreatorChanged{Type: events.TypeCreatorChanged, MatchID: r.matchID, NewCreatorID: heir})
}
