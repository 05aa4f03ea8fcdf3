package match

import (
	"context"
	"log/slog"
	"time"

	"naval-battle-server/ephemeral"
	"naval-battle-server/events"
	"naval-battle-server/game"
	"naval-battle-server/metrics"
	"naval-battle-server/storage"
)

// passTurn is the post-action adjudication pipeline: eliminate players whose
// last ship was sunk, decide victory, otherwise rotate the turn to the next
// alive player after actor. Returns the new turn owner, empty when the match
// terminated. An empty actor runs adjudication only, leaving the current
// turn untouched (used when a bystander leaves mid-match).
//
// announced lists users whose elimination the caller already emitted, so the
// room never sees PLAYER_ELIMINATED twice for one user.
//
// Failures are logged, never returned: the worker must keep serving the room
// even when a persistence write fails.
func (r *Runtime) passTurn(ctx context.Context, actor string, announced []string) string {
	m, err := r.loadMatch(ctx)
	if err != nil {
		slog.Error("adjudication load failed", "tag", "match", "matchId", r.matchID, "err", err)
		return ""
	}
	if m == nil || m.Board == nil || m.Status != storage.StatusInProgress {
		return ""
	}

	already := make(map[string]bool, len(announced))
	for _, u := range announced {
		already[u] = true
	}

	// Elimination detector. Join order keeps emission deterministic.
	now := time.Now().UTC()
	for i := range m.Players {
		p := &m.Players[i]
		if !p.Alive() || m.Board.HasShipsAlive(p.UserID) {
			continue
		}
		if err := r.repo.MarkDefeatedByUser(ctx, r.matchID, p.UserID); err != nil {
			slog.Error("mark defeated failed", "tag", "match", "matchId", r.matchID, "userId", p.UserID, "err", err)
		}
		p.LeftAt = &now
		if !already[p.UserID] {
			r.emitRoom(events.PlayerEliminated{Type: events.TypePlayerEliminated, MatchID: r.matchID, UserID: p.UserID})
		}
	}

	alive := alivePlayers(m)
	if len(alive) == 0 {
		r.finalizeAbandoned(ctx, m)
		return ""
	}

	if m.Mode == game.ModeIndividual && len(alive) == 1 {
		winner := alive[0].UserID
		if err := r.repo.MarkWinner(ctx, r.matchID, winner); err != nil {
			slog.Error("mark winner failed", "tag", "match", "matchId", r.matchID, "userId", winner, "err", err)
		}
		r.finalizeEnded(ctx, m, map[string]bool{winner: true}, events.GameEnded{
			Type: events.TypeGameEnded, MatchID: r.matchID,
			Mode: string(game.ModeIndividual), WinnerUserID: winner,
		})
		return ""
	}

	if m.Mode == game.ModeTeams {
		teams := make([]*int, 0, len(alive))
		for _, p := range alive {
			teams = append(teams, p.Team)
		}
		if t := game.SingleAliveTeam(teams); t != nil {
			if err := r.repo.MarkTeamPlayersAsWinners(ctx, r.matchID, *t); err != nil {
				slog.Error("mark team winners failed", "tag", "match", "matchId", r.matchID, "team", *t, "err", err)
			}
			winners := make(map[string]bool)
			for i := range m.Players {
				if m.Players[i].Team != nil && *m.Players[i].Team == *t {
					winners[m.Players[i].UserID] = true
				}
			}
			r.finalizeEnded(ctx, m, winners, events.GameEnded{
				Type: events.TypeGameEnded, MatchID: r.matchID,
				Mode: string(game.ModeTeams), WinningTeam: t,
			})
			return ""
		}
	}

	if actor == "" {
		return ""
	}

	next := nextAliveAfter(m.Players, actor)
	if next == "" {
		return ""
	}
	if err := r.store.SetTurn(ctx, r.matchID, next); err != nil {
		slog.Error("set turn failed", "tag", "match", "matchId", r.matchID, "err", err)
	}
	r.emitRoom(events.TurnChanged{Type: events.TypeTurnChanged, MatchID: r.matchID, UserID: next})
	return next
}

// nextAliveAfter picks the turn successor in join order. When the actor is
// no longer in the alive set (self-elimination, surrender, kick) the scan
// walks the full seating once, starting after the actor's former seat.
func nextAliveAfter(players []storage.MatchPlayer, actor string) string {
	var aliveIDs []string
	for i := range players {
		if players[i].Alive() {
			aliveIDs = append(aliveIDs, players[i].UserID)
		}
	}
	if len(aliveIDs) == 0 {
		return ""
	}
	for _, id := range aliveIDs {
		if id == actor {
			return game.NextUserID(aliveIDs, actor)
		}
	}
	seat := -1
	for i := range players {
		if players[i].UserID == actor {
			seat = i
			break
		}
	}
	if seat == -1 {
		return aliveIDs[0]
	}
	n := len(players)
	for off := 1; off <= n; off++ {
		p := &players[(seat+off)%n]
		if p.Alive() {
			return p.UserID
		}
	}
	return aliveIDs[0]
}

// finalizeEnded closes out a decided match: durable status and stats first,
// then ephemeral cleanup, then the terminal event.
func (r *Runtime) finalizeEnded(ctx context.Context, m *storage.Match, winners map[string]bool, ended events.GameEnded) {
	if err := r.repo.MarkFinished(ctx, r.matchID); err != nil {
		slog.Error("mark finished failed", "tag", "match", "matchId", r.matchID, "err", err)
	}
	userIDs := playerIDs(m)
	stats := game.ComputeStats(m.Board, userIDs, winners)
	if err := r.repo.SaveManyStats(ctx, r.matchID, stats); err != nil {
		slog.Error("save match stats failed", "tag", "match", "matchId", r.matchID, "err", err)
	}
	for _, st := range stats {
		if err := r.repo.UpsertFromMatchStats(ctx, st); err != nil {
			slog.Error("global stats upsert failed", "tag", "match", "matchId", r.matchID, "userId", st.UserID, "err", err)
		}
	}
	r.clearEphemeral(ctx, userIDs)
	r.mgr.timeouts.Cancel(r.matchID)
	r.emitRoom(ended)
	metrics.MatchesFinished.WithLabelValues(metrics.ReasonVictory).Inc()
	slog.Info("match ended", "tag", "match", "matchId", r.matchID, "mode", ended.Mode)
}

// finalizeAbandoned closes out an in-progress match nobody can win anymore.
// The row is kept for history; no stats are produced.
func (r *Runtime) finalizeAbandoned(ctx context.Context, m *storage.Match) {
	if err := r.repo.MarkFinished(ctx, r.matchID); err != nil {
		slog.Error("mark finished failed", "tag", "match", "matchId", r.matchID, "err", err)
	}
	r.clearEphemeral(ctx, playerIDs(m))
	r.mgr.timeouts.Cancel(r.matchID)
	r.emitRoom(events.GameAbandoned{Type: events.TypeGameAbandoned, MatchID: r.matchID})
	metrics.MatchesFinished.WithLabelValues(metrics.ReasonAbandoned).Inc()
	slog.Info("match abandoned", "tag", "match", "matchId", r.matchID)
}

func (r *Runtime) clearEphemeral(ctx context.Context, userIDs []string) {
	if err := ephemeral.ClearMatch(ctx, r.store, r.matchID, userIDs); err != nil {
		slog.Warn("ephemeral clear incomplete", "tag", "match", "matchId", r.matchID, "err", err)
	}
}

func playerIDs(m *storage.Match) []string {
	ids := make([]string, 0, len(m.Players))
	for i := range m.Players {
		ids = append(ids, m.Players[i].UserID)
	}
	return ids
}
