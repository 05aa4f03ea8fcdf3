package match

import (
	"context"
	"log/slog"

	"naval-battle-server/events"
	"naval-battle-server/game"
	"naval-battle-server/storage"
)

// handleStart validates lobby readiness, generates the board and opens the
// match. The creator takes the first turn and the first timer is armed.
func (r *Runtime) handleStart(ctx context.Context, c *Conn) {
	ackFail := func(reason error) {
		r.emitConn(c, events.GameStartAck{Type: events.TypeGameStartAck, Success: false, Error: reason.Error()})
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
	if m.Status != storage.StatusWaiting {
		ackFail(ErrMatchStarted)
		return
	}
	if m.CreatedByID != c.UserID {
		ackFail(ErrNotCreator)
		return
	}

	players := alivePlayers(m)
	if len(players) < 2 {
		ackFail(ErrNotEnoughPlayers)
		return
	}

	ready, err := r.allPlayersReady(ctx, m)
	if err != nil {
		ackFail(ErrInternal)
		return
	}
	if !ready {
		ackFail(ErrNotAllReady)
		return
	}

	var teams map[string]int
	if m.Mode == game.ModeTeams {
		teams, err = r.collectTeams(ctx, m)
		if err != nil {
			ackFail(err)
			return
		}
	}

	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.UserID)
	}
	board, err := r.gen.Generate(ids, m.Difficulty, m.Mode, teams)
	if err != nil {
		slog.Error("board generation failed", "tag", "match", "matchId", r.matchID,
			"difficulty", string(m.Difficulty), "players", len(ids), "err", err)
		ackFail(ErrBoardGeneration)
		return
	}

	// Team picks become durable only now; until start they are lobby state.
	for userID, team := range teams {
		if err := r.repo.AssignTeam(ctx, r.matchID, userID, team); err != nil {
			slog.Error("team persist failed", "tag", "match", "matchId", r.matchID, "userId", userID, "err", err)
			ackFail(ErrInternal)
			return
		}
	}
	if err := r.repo.UpdateStartBoard(ctx, r.matchID, board); err != nil {
		slog.Error("start persist failed", "tag", "match", "matchId", r.matchID, "err", err)
		ackFail(ErrInternal)
		return
	}
	if err := r.store.SetTurn(ctx, r.matchID, m.CreatedByID); err != nil {
		slog.Error("set turn failed", "tag", "match", "matchId", r.matchID, "err", err)
	}

	r.emitRoom(events.TurnChanged{Type: events.TypeTurnChanged, MatchID: r.matchID, UserID: m.CreatedByID})
	r.emitRoom(events.GameStarted{Type: events.TypeGameStarted, MatchID: r.matchID})
	r.emitConn(c, events.GameStartAck{Type: events.TypeGameStartAck, Success: true})

	// Reload so views carry the persisted board and team stamps.
	started, err := r.loadMatch(ctx)
	if err != nil || started == nil {
		slog.Error("post-start load failed", "tag", "match", "matchId", r.matchID, "err", err)
		m.Board = board
		m.Status = storage.StatusInProgress
		started = m
	}
	r.broadcastBoardViews(started)
	r.mgr.timeouts.Start(ctx, r.matchID, m.CreatedByID)
	slog.Info("match started", "tag", "match", "matchId", r.matchID,
		"players", len(ids), "mode", string(m.Mode), "boardSize", board.Size)
}

// collectTeams maps each player's team pick (stored per connection) onto
// user ids and enforces the teams-mode start rules: every alive player has
// a live, team-assigned connection and at least one team can actually play
// together.
func (r *Runtime) collectTeams(ctx context.Context, m *storage.Match) (map[string]int, error) {
	picks, err := r.store.AllTeams(ctx, r.matchID)
	if err != nil {
		return nil, ErrInternal
	}
	limit := r.teamCount(m)
	byUser := make(map[string]int)
	for _, c := range r.conns {
		p := findPlayer(m, c.UserID)
		if p == nil || !p.Alive() {
			continue
		}
		team, ok := picks[c.ID]
		if !ok {
			return nil, ErrTeamsIncomplete
		}
		if team < 1 || team > limit {
			return nil, ErrBadTeam
		}
		byUser[c.UserID] = team
	}
	for _, p := range alivePlayers(m) {
		if _, ok := byUser[p.UserID]; !ok {
			return nil, ErrTeamsIncomplete
		}
	}
	sizes := make(map[int]int)
	for _, team := range byUser {
		sizes[team]++
	}
	for _, n := range sizes {
		if n >= 2 {
			return byUser, nil
		}
	}
	return nil, ErrTeamTooSmall
}
