package match

import (
	"context"
	"errors"
	"log/slog"

	"naval-battle-server/events"
	"naval-battle-server/game"
	"naval-battle-server/metrics"
	"naval-battle-server/storage"
)

// handleFire runs the full shot pipeline: validate, resolve against the
// board, persist, account the nuclear streak, then adjudicate and rotate
// the turn. A rejected shot changes nothing and the turn stays put.
func (r *Runtime) handleFire(ctx context.Context, c *Conn, row, col int, shot game.ShotType) {
	ackFail := func(reason error) {
		r.emitConn(c, events.PlayerFireAck{Type: events.TypePlayerFireAck, Success: false, Error: reason.Error()})
	}
	if !r.inRoom(c) {
		ackFail(ErrNotInMatch)
		return
	}
	m, err := r.loadMatch(ctx)
	if err != nil {
		ackFail(ErrInternal)
		return
	}
	if m == nil {
		ackFail(ErrMatchNotFound)
		return
	}
	if m.Status != storage.StatusInProgress {
		ackFail(ErrMatchNotStarted)
		return
	}
	if m.Board == nil {
		// A running match without a board cannot make progress. Close it
		// out instead of rejecting forever.
		slog.Error("in-progress match has no board", "tag", "match", "matchId", r.matchID)
		ackFail(ErrInternal)
		r.finalizeAbandoned(ctx, m)
		return
	}
	if !shot.Valid() {
		ackFail(ErrBadShotType)
		return
	}

	p := findPlayer(m, c.UserID)
	if p == nil {
		ackFail(ErrNotAPlayer)
		return
	}
	if !p.Alive() {
		ackFail(ErrAlreadyEliminated)
		return
	}

	turn, err := r.store.GetTurn(ctx, r.matchID)
	if err != nil {
		ackFail(ErrInternal)
		return
	}
	if turn != c.UserID {
		ackFail(ErrNotYourTurn)
		return
	}

	if !m.Board.InRange(row, col) {
		ackFail(ErrOutOfRange)
		return
	}
	if m.Board.AlreadyShot(row, col) {
		ackFail(ErrCellAlreadyShot)
		return
	}

	if shot == game.ShotNuclear {
		available, aerr := r.store.HasNuclearAvailable(ctx, r.matchID, c.UserID)
		used, uerr := r.store.HasNuclearUsed(ctx, r.matchID, c.UserID)
		if aerr != nil || uerr != nil {
			ackFail(ErrInternal)
			return
		}
		if !available || used {
			ackFail(ErrNuclearLocked)
			return
		}
	}

	result, err := game.Resolve(m.Board, c.UserID, shot, row, col)
	if err != nil {
		ackFail(resolveReason(err))
		return
	}

	// The board is authoritative only once persisted. On failure nothing
	// has been announced yet, so the rejected shot simply never happened.
	if err := r.repo.UpdateBoard(ctx, r.matchID, m.Board); err != nil {
		slog.Error("board persist failed", "tag", "match", "matchId", r.matchID, "err", err)
		ackFail(ErrInternal)
		return
	}
	if _, err := r.repo.RegisterShot(ctx, r.matchID, c.UserID, shot, row, col, result.Record.Hit); err != nil {
		slog.Warn("shot history write failed", "tag", "match", "matchId", r.matchID, "err", err)
	}

	rec := result.Record
	r.emitRoom(events.PlayerFired{
		Type: events.TypePlayerFired, MatchID: r.matchID, ShooterID: c.UserID,
		X: col, Y: row, ShotType: string(shot),
		Hit: rec.Hit, Sunk: rec.SunkShipID != "", SunkShipID: rec.SunkShipID,
	})

	// Eliminations caused by this shot are announced right away; passTurn
	// persists them and skips the re-emit.
	announced := r.announceSunkOwners(m, result.SunkShips)

	r.emitConn(c, r.accountNuclear(ctx, c.UserID, shot, rec.Hit))
	r.emitConn(c, events.PlayerFireAck{
		Type: events.TypePlayerFireAck, Success: true,
		Hit: rec.Hit, Sunk: rec.SunkShipID != "", SunkShipID: rec.SunkShipID,
	})

	if err := r.store.ResetMissed(ctx, r.matchID, c.UserID); err != nil {
		slog.Warn("missed counter reset failed", "tag", "match", "matchId", r.matchID, "userId", c.UserID, "err", err)
	}

	r.broadcastBoardViews(m)
	metrics.ShotsFired.WithLabelValues(string(shot)).Inc()

	r.mgr.timeouts.Clear(ctx, r.matchID)
	if next := r.passTurn(ctx, c.UserID, announced); next != "" {
		r.mgr.timeouts.Start(ctx, r.matchID, next)
	}
}

// announceSunkOwners emits PLAYER_ELIMINATED for every still-seated player
// whose last ship went down with this shot, in sunk order. Returns the user
// ids announced.
func (r *Runtime) announceSunkOwners(m *storage.Match, sunk []*game.Ship) []string {
	var announced []string
	seen := make(map[string]bool)
	for _, ship := range sunk {
		owner := ship.OwnerID
		if seen[owner] || m.Board.HasShipsAlive(owner) {
			continue
		}
		p := findPlayer(m, owner)
		if p == nil || !p.Alive() {
			continue
		}
		seen[owner] = true
		announced = append(announced, owner)
		r.emitRoom(events.PlayerEliminated{Type: events.TypePlayerEliminated, MatchID: r.matchID, UserID: owner})
	}
	return announced
}

// accountNuclear applies the streak rules: six consecutive simple hits
// unlock one nuclear shot for the match. Pattern shots leave the streak
// alone; a simple miss resets it. Returns the status snapshot for the
// shooter.
func (r *Runtime) accountNuclear(ctx context.Context, userID string, shot game.ShotType, hit bool) events.NuclearStatus {
	switch {
	case shot == game.ShotNuclear:
		if err := r.store.MarkNuclearUsed(ctx, r.matchID, userID); err != nil {
			slog.Warn("nuclear use mark failed", "tag", "match", "matchId", r.matchID, "userId", userID, "err", err)
		}
	case shot == game.ShotSimple && hit:
		n, err := r.store.IncrNuclearProgress(ctx, r.matchID, userID)
		if err != nil {
			slog.Warn("nuclear progress failed", "tag", "match", "matchId", r.matchID, "userId", userID, "err", err)
		} else if n >= r.cfg.NuclearProgressThreshold {
			if err := r.store.UnlockNuclear(ctx, r.matchID, userID); err != nil {
				slog.Warn("nuclear unlock failed", "tag", "match", "matchId", r.matchID, "userId", userID, "err", err)
			}
		}
	case shot == game.ShotSimple:
		if err := r.store.ResetNuclearProgress(ctx, r.matchID, userID); err != nil {
			slog.Warn("nuclear progress reset failed", "tag", "match", "matchId", r.matchID, "userId", userID, "err", err)
		}
	}
	progress, _ := r.store.GetNuclearProgress(ctx, r.matchID, userID)
	available, _ := r.store.HasNuclearAvailable(ctx, r.matchID, userID)
	used, _ := r.store.HasNuclearUsed(ctx, r.matchID, userID)
	return events.NuclearStatus{Type: events.TypeNuclearStatus, Progress: progress, HasNuclear: available, Used: used}
}

func resolveReason(err error) error {
	switch {
	case errors.Is(err, game.ErrShotOutOfRange):
		return ErrOutOfRange
	case errors.Is(err, game.ErrDuplicateShot):
		return ErrCellAlreadyShot
	case errors.Is(err, game.ErrUnknownShot):
		return ErrBadShotType
	}
	return ErrInternal
}
