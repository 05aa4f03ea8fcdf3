package match

import (
	"context"
	"log/slog"

	"naval-battle-server/events"
	"naval-battle-server/storage"
)

// handleResume reattaches a connection to its user's last match, invoked by
// the gateway right after AUTH. Users without a resume pointer never reach
// this point; once a pointer exists, every failure is reported.
func (r *Runtime) handleResume(ctx context.Context, c *Conn) {
	m, err := r.loadMatch(ctx)
	if err != nil {
		slog.Error("resume load failed", "tag", "match", "matchId", r.matchID, "err", err)
		r.reconnectFailed(c, ErrInternal)
		return
	}
	if m == nil {
		// Stale pointer: the match evaporated. Drop it so the next
		// connect stays quiet.
		if err := r.store.SetLastMatchByUser(ctx, c.UserID, ""); err != nil {
			slog.Warn("resume pointer clear failed", "tag", "match", "userId", c.UserID, "err", err)
		}
		r.reconnectFailed(c, ErrMatchGone)
		return
	}
	r.completeReconnect(ctx, c, m)
}

// completeReconnect is shared by resume-after-auth and join-as-existing-
// player. Membership is the single gate; then the conn rejoins the room and
// receives the same board view a fresh viewer would.
func (r *Runtime) completeReconnect(ctx context.Context, c *Conn, m *storage.Match) {
	if m.Status == storage.StatusFinished {
		r.reconnectFailed(c, ErrMatchOver)
		return
	}
	if findPlayer(m, c.UserID) == nil {
		r.reconnectFailed(c, ErrNotAPlayer)
		return
	}
	if abandoned, err := r.store.IsAbandoned(ctx, r.matchID, c.UserID); err == nil && abandoned {
		r.reconnectFailed(c, ErrRejoinBlocked)
		return
	}
	r.bindConn(ctx, c)
	r.addConn(c)
	r.sendBoardView(m, c)
	r.emitRoom(events.PlayerReconnected{
		Type: events.TypePlayerReconnected, MatchID: r.matchID,
		UserID: c.UserID, Nickname: c.Nickname,
	})
	r.emitConn(c, events.ReconnectAck{Type: events.TypeReconnectAck, Success: true, MatchID: r.matchID})
	slog.Info("player reconnected", "tag", "match", "matchId", r.matchID, "userId", c.UserID)
}

func (r *Runtime) reconnectFailed(c *Conn, reason error) {
	r.emitConn(c, events.ReconnectFailed{Type: events.TypeReconnectFailed, Reason: reason.Error()})
}
