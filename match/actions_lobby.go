package match

import (
	"context"
	"log/slog"

	"naval-battle-server/events"
	"naval-battle-server/game"
	"naval-battle-server/storage"
)

// handleJoin admits a connection to the room as player or spectator. A
// rejection leaves no trace: nothing persisted, nothing emitted to the room.
func (r *Runtime) handleJoin(ctx context.Context, c *Conn, role string) {
	m, err := r.loadMatch(ctx)
	if err != nil {
		slog.Error("join load failed", "tag", "match", "matchId", r.matchID, "err", err)
		r.emitConn(c, events.Error{Type: events.TypeError, Code: "JOIN_ERROR", Message: ErrInternal.Error()})
		return
	}
	if m == nil {
		r.deny(c, ErrMatchNotFound.Error())
		return
	}

	if role == RoleSpectator {
		r.joinSpectator(ctx, c, m)
		return
	}

	abandoned, err := r.store.IsAbandoned(ctx, r.matchID, c.UserID)
	if err != nil {
		slog.Error("abandoned lookup failed", "tag", "match", "matchId", r.matchID, "userId", c.UserID, "err", err)
	}
	if abandoned {
		r.deny(c, ErrRejoinBlocked.Error())
		return
	}

	// A returning player gets reconnect semantics, not a second seat.
	if findPlayer(m, c.UserID) != nil {
		r.completeReconnect(ctx, c, m)
		return
	}

	if m.Status != storage.StatusWaiting {
		r.deny(c, ErrMatchStarted.Error())
		return
	}
	limit := m.MaxPlayers
	if limit <= 0 || limit > r.cfg.JoinMatchPlayerLimit {
		limit = r.cfg.JoinMatchPlayerLimit
	}
	if len(alivePlayers(m)) >= limit {
		r.deny(c, ErrMatchFull.Error())
		return
	}

	if _, err := r.repo.AddPlayer(ctx, r.matchID, c.UserID); err != nil {
		slog.Error("add player failed", "tag", "match", "matchId", r.matchID, "userId", c.UserID, "err", err)
		r.emitConn(c, events.Error{Type: events.TypeError, Code: "JOIN_ERROR", Message: ErrInternal.Error()})
		return
	}
	r.bindConn(ctx, c)
	r.addConn(c)
	r.emitRoom(events.PlayerJoined{
		Type: events.TypePlayerJoined, MatchID: r.matchID,
		UserID: c.UserID, Nickname: c.Nickname, Color: c.Color,
	})
	r.emitConn(c, events.PlayerJoinedAck{Type: events.TypePlayerJoinedAck, Success: true, MatchID: r.matchID})
}

// joinSpectator is idempotent on membership: watching twice is one row.
// Spectators never get a lastMatchByUser pointer; auto-resume is for
// players only.
func (r *Runtime) joinSpectator(ctx context.Context, c *Conn, m *storage.Match) {
	sp, err := r.repo.FindSpectator(ctx, r.matchID, c.UserID)
	if err != nil {
		slog.Error("spectator lookup failed", "tag", "match", "matchId", r.matchID, "userId", c.UserID, "err", err)
		r.emitConn(c, events.Error{Type: events.TypeError, Code: "JOIN_ERROR", Message: ErrInternal.Error()})
		return
	}
	if sp == nil {
		if err := r.repo.AddSpectator(ctx, r.matchID, c.UserID); err != nil {
			slog.Error("add spectator failed", "tag", "match", "matchId", r.matchID, "userId", c.UserID, "err", err)
			r.emitConn(c, events.Error{Type: events.TypeError, Code: "JOIN_ERROR", Message: ErrInternal.Error()})
			return
		}
	}
	if err := r.store.SaveConn(ctx, c.ID, c.UserID, r.matchID); err != nil {
		slog.Warn("conn bind failed", "tag", "match", "connId", c.ID, "err", err)
	}
	r.addConn(c)
	r.emitConn(c, events.SpectatorJoinedAck{Type: events.TypeSpectatorJoinedAck, Success: true, MatchID: r.matchID})
	if m.Status == storage.StatusInProgress {
		r.sendBoardView(m, c)
	}
}

func (r *Runtime) handleReady(ctx context.Context, c *Conn) {
	if !r.inRoom(c) {
		r.emitConn(c, events.PlayerReadyAck{Type: events.TypePlayerReadyAck, Success: false, Error: ErrNotInMatch.Error()})
		return
	}
	m, err := r.loadMatch(ctx)
	if err != nil {
		r.emitConn(c, events.PlayerReadyAck{Type: events.TypePlayerReadyAck, Success: false, Error: ErrInternal.Error()})
		return
	}
	if m == nil {
		r.emitConn(c, events.PlayerReadyAck{Type: events.TypePlayerReadyAck, Success: false, Error: ErrMatchNotFound.Error()})
		return
	}
	if err := r.store.MarkReady(ctx, r.matchID, c.ID); err != nil {
		slog.Error("mark ready failed", "tag", "match", "matchId", r.matchID, "connId", c.ID, "err", err)
		r.emitConn(c, events.PlayerReadyAck{Type: events.TypePlayerReadyAck, Success: false, Error: ErrInternal.Error()})
		return
	}
	r.emitRoom(events.PlayerReadyNotify{Type: events.TypePlayerReadyNotify, MatchID: r.matchID, UserID: c.UserID})
	r.emitConn(c, events.PlayerReadyAck{Type: events.TypePlayerReadyAck, Success: true})
	if ok, err := r.allPlayersReady(ctx, m); err == nil && ok {
		r.emitRoom(events.AllReady{Type: events.TypeAllReady, MatchID: r.matchID})
	}
}

// allPlayersReady reports whether every player connection in the room has
// marked ready. Spectator connections never gate readiness.
func (r *Runtime) allPlayersReady(ctx context.Context, m *storage.Match) (bool, error) {
	readyIDs, err := r.store.AllReady(ctx, r.matchID)
	if err != nil {
		return false, err
	}
	readySet := make(map[string]bool, len(readyIDs))
	for _, id := range readyIDs {
		readySet[id] = true
	}
	count := 0
	for _, c := range r.conns {
		if findPlayer(m, c.UserID) == nil {
			continue
		}
		count++
		if !readySet[c.ID] {
			return false, nil
		}
	}
	return count > 0, nil
}

func (r *Runtime) handleChooseTeam(ctx context.Context, c *Conn, team int) {
	if !r.inRoom(c) {
		r.teamError(c, ErrNotInMatch)
		return
	}
	m, err := r.loadMatch(ctx)
	if err != nil {
		r.teamError(c, ErrInternal)
		return
	}
	if m == nil {
		r.teamError(c, ErrMatchNotFound)
		return
	}
	if m.Mode != game.ModeTeams {
		r.teamError(c, ErrNotTeamsMode)
		return
	}
	if m.Status != storage.StatusWaiting {
		r.teamError(c, ErrMatchStarted)
		return
	}
	if findPlayer(m, c.UserID) == nil {
		r.teamError(c, ErrNotAPlayer)
		return
	}
	if team < 1 || team > r.teamCount(m) {
		r.teamError(c, ErrBadTeam)
		return
	}
	if err := r.store.SetTeam(ctx, r.matchID, c.ID, team); err != nil {
		slog.Error("set team failed", "tag", "match", "matchId", r.matchID, "connId", c.ID, "err", err)
		r.teamError(c, ErrInternal)
		return
	}
	r.emitRoom(events.PlayerTeamAssigned{Type: events.TypePlayerTeamAssigned, MatchID: r.matchID, UserID: c.UserID, Team: team})
}

func (r *Runtime) handleCreatorTransfer(ctx context.Context, c *Conn, target string) {
	ackFail := func(reason error) {
		r.emitConn(c, events.CreatorTransferAck{Type: events.TypeCreatorTransferAck, Success: false, Error: reason.Error()})
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
	if m.CreatedByID != c.UserID {
		ackFail(ErrNotCreator)
		return
	}
	if len(r.connsOf(target)) == 0 {
		ackFail(ErrTargetNotPresent)
		return
	}
	if err := r.repo.UpdateCreator(ctx, r.matchID, target); err != nil {
		slog.Error("creator update failed", "tag", "match", "matchId", r.matchID, "err", err)
		ackFail(ErrInternal)
		return
	}
	r.emitRoom(events.CreatorChanged{Type: events.TypeCreatorChanged, MatchID: r.matchID, NewCreatorID: target})
	r.emitConn(c, events.CreatorTransferAck{Type: events.TypeCreatorTransferAck, Success: true})
}

func (r *Runtime) teamCount(m *storage.Match) int {
	if m.TeamCount != nil {
		return *m.TeamCount
	}
	return r.cfg.TeamCount
}

func (r *Runtime) teamError(c *Conn, reason error) {
	r.emitConn(c, events.Error{Type: events.TypeError, Code: "TEAM_ERROR", Message: reason.Error()})
}

func (r *Runtime) deny(c *Conn, reason string) {
	r.emitConn(c, events.JoinDenied{Type: events.TypeJoinDenied, MatchID: r.matchID, Reason: reason})
}

// bindConn records the conn-to-match binding and the user's resume pointer.
func (r *Runtime) bindConn(ctx context.Context, c *Conn) {
	if err := r.store.SaveConn(ctx, c.ID, c.UserID, r.matchID); err != nil {
		slog.Warn("conn bind failed", "tag", "match", "connId", c.ID, "err", err)
	}
	if err := r.store.SetLastMatchByUser(ctx, c.UserID, r.matchID); err != nil {
		slog.Warn("resume pointer bind failed", "tag", "match", "userId", c.UserID, "err", err)
	}
}
