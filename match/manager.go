package match

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"naval-battle-server/config"
	"naval-battle-server/ephemeral"
	"naval-battle-server/game"
	"naval-battle-server/storage"
)

// Manager routes commands to match workers, spawning one per match on
// demand. It owns the shared turn-timeout scheduler.
type Manager struct {
	cfg      *config.Config
	repo     storage.Repository
	store    ephemeral.Store
	timeouts *TimeoutManager

	mu       sync.Mutex
	runtimes map[string]*Runtime
}

func NewManager(cfg *config.Config, repo storage.Repository, store ephemeral.Store) *Manager {
	m := &Manager{
		cfg:      cfg,
		repo:     repo,
		store:    store,
		runtimes: make(map[string]*Runtime),
	}
	m.timeouts = NewTimeoutManager(store, time.Duration(cfg.TurnTimeoutMS)*time.Millisecond, m.onTurnExpired)
	return m
}

// Join binds a connection to a match as player or spectator.
func (m *Manager) Join(c *Conn, matchID, role string) {
	m.dispatch(matchID, command{typ: cmdJoin, conn: c, role: role}, true)
}

func (m *Manager) Ready(c *Conn, matchID string) {
	m.dispatch(matchID, command{typ: cmdReady, conn: c}, true)
}

func (m *Manager) ChooseTeam(c *Conn, matchID string, team int) {
	m.dispatch(matchID, command{typ: cmdChooseTeam, conn: c, team: team}, true)
}

func (m *Manager) TransferCreator(c *Conn, matchID, targetUserID string) {
	m.dispatch(matchID, command{typ: cmdCreatorTransfer, conn: c, target: targetUserID}, true)
}

func (m *Manager) Start(c *Conn, matchID string) {
	m.dispatch(matchID, command{typ: cmdStart, conn: c}, true)
}

// Fire aims at (row, col). The transport translates wire x/y into col/row
// before calling.
func (m *Manager) Fire(c *Conn, matchID string, row, col int, shot game.ShotType) {
	m.dispatch(matchID, command{typ: cmdFire, conn: c, row: row, col: col, shot: shot}, true)
}

func (m *Manager) Leave(c *Conn, matchID string) {
	m.dispatch(matchID, command{typ: cmdLeave, conn: c}, true)
}

// Resume reattaches a freshly authenticated connection to the match it last
// played, if any. Called by the gateway right after AUTH succeeds.
func (m *Manager) Resume(ctx context.Context, c *Conn) {
	matchID, err := m.store.GetLastMatchByUser(ctx, c.UserID)
	if err != nil {
		slog.Error("resume lookup failed", "tag", "match", "userId", c.UserID, "err", err)
		return
	}
	if matchID == "" {
		return
	}
	m.dispatch(matchID, command{typ: cmdResume, conn: c}, true)
}

// Disconnect handles a dropped transport. Without a conn binding there is
// nothing to do: the connection never joined a match.
func (m *Manager) Disconnect(ctx context.Context, connID string) {
	binding, ok, err := m.store.GetConn(ctx, connID)
	if err != nil {
		slog.Error("conn lookup failed", "tag", "match", "connId", connID, "err", err)
		return
	}
	if !ok {
		return
	}
	if err := m.store.DeleteConn(ctx, connID); err != nil {
		slog.Warn("conn unbind failed", "tag", "match", "connId", connID, "err", err)
	}
	m.dispatch(binding.MatchID, command{typ: cmdDisconnect, connID: connID}, false)
}

func (m *Manager) onTurnExpired(matchID, expectedUserID string) {
	m.dispatch(matchID, command{typ: cmdTurnExpired, expected: expectedUserID}, false)
}

// dispatch posts cmd to the match worker, spawning one when allowed. A post
// can lose the race against a worker that is shutting down; the loop then
// retries against a fresh worker.
func (m *Manager) dispatch(matchID string, cmd command, spawn bool) {
	for attempt := 0; attempt < 4; attempt++ {
		rt := m.lookup(matchID, spawn)
		if rt == nil {
			return
		}
		select {
		case rt.commands <- cmd:
			return
		case <-rt.done:
		}
	}
	slog.Warn("command dropped after retries", "tag", "match", "matchId", matchID, "cmd", int(cmd.typ))
}

// redispatch recovers commands an exiting worker had left in its mailbox.
func (m *Manager) redispatch(matchID string, cmd command) {
	spawn := cmd.typ != cmdDisconnect && cmd.typ != cmdTurnExpired
	m.dispatch(matchID, cmd, spawn)
}

func (m *Manager) lookup(matchID string, spawn bool) *Runtime {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.runtimes[matchID]; ok {
		return rt
	}
	if !spawn {
		return nil
	}
	rt := newRuntime(matchID, m)
	m.runtimes[matchID] = rt
	go rt.run()
	return rt
}

// forget unregisters rt unless a fresh worker already took the slot.
func (m *Manager) forget(matchID string, rt *Runtime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runtimes[matchID] == rt {
		delete(m.runtimes, matchID)
	}
}
