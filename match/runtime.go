package match

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"naval-battle-server/config"
	"naval-battle-server/ephemeral"
	"naval-battle-server/events"
	"naval-battle-server/game"
	"naval-battle-server/metrics"
	"naval-battle-server/storage"
	"naval-battle-server/wsutil"
)

type commandType int

const (
	cmdJoin commandType = iota
	cmdReady
	cmdChooseTeam
	cmdCreatorTransfer
	cmdStart
	cmdFire
	cmdLeave
	cmdResume
	cmdDisconnect
	cmdTurnExpired
)

// command is one unit of work for a match worker. Only the fields relevant
// to the command type are set.
type command struct {
	typ      commandType
	conn     *Conn
	connID   string // cmdDisconnect
	role     string // cmdJoin
	team     int    // cmdChooseTeam
	target   string // cmdCreatorTransfer
	row, col int    // cmdFire
	shot     game.ShotType
	expected string // cmdTurnExpired staleness guard
}

// Runtime owns one match. It consumes commands one at a time, mutates
// durable and ephemeral state, and fans events out to the room. conns and
// roster are only touched from the worker goroutine.
type Runtime struct {
	matchID string
	cfg     *config.Config
	repo    storage.Repository
	store   ephemeral.Store
	mgr     *Manager
	gen     *game.Generator

	commands chan command
	done     chan struct{}
	stopped  bool

	// Room: live connections in join order. roster keeps display data for
	// every user ever seen in this room so views survive disconnects.
	conns  []*Conn
	roster map[string]game.PlayerInfo
}

func newRuntime(matchID string, mgr *Manager) *Runtime {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Runtime{
		matchID:  matchID,
		cfg:      mgr.cfg,
		repo:     mgr.repo,
		store:    mgr.store,
		mgr:      mgr,
		gen:      game.NewGenerator(mgr.cfg.MaxBoardSize, mgr.cfg.MaxPlacementAttempts, rng),
		commands: make(chan command, 32),
		done:     make(chan struct{}),
		roster:   make(map[string]game.PlayerInfo),
	}
}

// run consumes commands until the room empties. On exit the worker
// unregisters itself, closes done so in-flight posts fail over, then
// re-dispatches anything already buffered so no command is dropped.
func (r *Runtime) run() {
	metrics.ActiveMatches.Inc()
	ctx := context.Background()
	for !r.stopped {
		cmd := <-r.commands
		r.handle(ctx, cmd)
		if len(r.conns) == 0 {
			r.stopped = true
		}
	}
	r.mgr.forget(r.matchID, r)
	r.mgr.timeouts.Cancel(r.matchID)
	close(r.done)
	for {
		select {
		case cmd := <-r.commands:
			r.mgr.redispatch(r.matchID, cmd)
		default:
			metrics.ActiveMatches.Dec()
			return
		}
	}
}

func (r *Runtime) handle(ctx context.Context, cmd command) {
	switch cmd.typ {
	case cmdJoin:
		r.handleJoin(ctx, cmd.conn, cmd.role)
	case cmdReady:
		r.handleReady(ctx, cmd.conn)
	case cmdChooseTeam:
		r.handleChooseTeam(ctx, cmd.conn, cmd.team)
	case cmdCreatorTransfer:
		r.handleCreatorTransfer(ctx, cmd.conn, cmd.target)
	case cmdStart:
		r.handleStart(ctx, cmd.conn)
	case cmdFire:
		r.handleFire(ctx, cmd.conn, cmd.row, cmd.col, cmd.shot)
	case cmdLeave:
		r.handleLeave(ctx, cmd.conn)
	case cmdResume:
		r.handleResume(ctx, cmd.conn)
	case cmdDisconnect:
		r.handleDisconnect(ctx, cmd.connID)
	case cmdTurnExpired:
		r.handleTurnExpired(ctx, cmd.expected)
	}
}

// --- room bookkeeping ---

func (r *Runtime) addConn(c *Conn) {
	for _, existing := range r.conns {
		if existing.ID == c.ID {
			return
		}
	}
	r.conns = append(r.conns, c)
	r.roster[c.UserID] = game.PlayerInfo{Nickname: c.Nickname, Color: c.Color}
}

func (r *Runtime) removeConn(connID string) *Conn {
	for i, c := range r.conns {
		if c.ID == connID {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			return c
		}
	}
	return nil
}

func (r *Runtime) findConn(connID string) *Conn {
	for _, c := range r.conns {
		if c.ID == connID {
			return c
		}
	}
	return nil
}

func (r *Runtime) inRoom(c *Conn) bool {
	return r.findConn(c.ID) != nil
}

func (r *Runtime) connsOf(userID string) []*Conn {
	var out []*Conn
	for _, c := range r.conns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

// --- event emission ---

// emitRoom marshals once and fans out to every connection in join order.
// Per-connection queues are FIFO, so all room members observe the same
// event order.
func (r *Runtime) emitRoom(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal room event failed", "tag", "match", "matchId", r.matchID, "err", err)
		return
	}
	for _, c := range r.conns {
		wsutil.SafeSend(c.Send, data)
	}
	metrics.EventsEmitted.Add(float64(len(r.conns)))
}

func (r *Runtime) emitConn(c *Conn, v any) {
	wsutil.SendJSON(c.Send, v)
	metrics.EventsEmitted.Inc()
}

func (r *Runtime) emitUser(userID string, v any) {
	for _, c := range r.connsOf(userID) {
		r.emitConn(c, v)
	}
}

// --- board views ---

// playerInfos merges persisted user rows with live roster identities. The
// roster wins because token claims are fresher than the mirrored user row.
func (r *Runtime) playerInfos(m *storage.Match) map[string]game.PlayerInfo {
	infos := make(map[string]game.PlayerInfo, len(m.Players))
	for i := range m.Players {
		p := &m.Players[i]
		info := game.PlayerInfo{Team: p.Team}
		if p.User != nil {
			info.Nickname = p.User.Nickname
			info.Color = p.User.Color
		}
		if live, ok := r.roster[p.UserID]; ok {
			info.Nickname = live.Nickname
			info.Color = live.Color
		}
		infos[p.UserID] = info
	}
	return infos
}

// sendBoardView sends the viewer-specific projection to one connection.
// Spectators and eliminated players get the public projection (history, no
// hidden ships).
func (r *Runtime) sendBoardView(m *storage.Match, c *Conn) {
	if m == nil || m.Board == nil {
		return
	}
	view := game.BuildViewFor(m.Board, c.UserID, m.Mode, r.playerInfos(m))
	r.emitConn(c, events.BoardUpdate{Type: events.TypeBoardUpdate, MatchID: r.matchID, Board: view})
}

func (r *Runtime) broadcastBoardViews(m *storage.Match) {
	for _, c := range r.conns {
		r.sendBoardView(m, c)
	}
}

// loadMatch hydrates the match with players and user rows, the shape every
// handler needs. A nil match without error means the row is gone.
func (r *Runtime) loadMatch(ctx context.Context) (*storage.Match, error) {
	return r.repo.FindByID(ctx, r.matchID, storage.LoadOptions{WithPlayers: true, WithUsers: true})
}

func findPlayer(m *storage.Match, userID string) *storage.MatchPlayer {
	for i := range m.Players {
		if m.Players[i].UserID == userID {
			return &m.Players[i]
		}
	}
	return nil
}

func alivePlayers(m *storage.Match) []*storage.MatchPlayer {
	var out []*storage.MatchPlayer
	for i := range m.Players {
		if m.Players[i].Alive() {
			out = append(out, &m.Players[i])
		}
	}
	return out
}
