package match

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"naval-battle-server/ephemeral"
)

// TimeoutManager schedules one turn timer per match. The expected owner
// lives in the ephemeral store and is the source of truth; the in-process
// timer is only a wake-up call. A wake-up whose user no longer matches the
// stored owner is discarded by the expiry handler.
type TimeoutManager struct {
	store    ephemeral.Store
	duration time.Duration
	expire   func(matchID, expectedUserID string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimeoutManager(store ephemeral.Store, duration time.Duration, expire func(matchID, expectedUserID string)) *TimeoutManager {
	return &TimeoutManager{
		store:    store,
		duration: duration,
		expire:   expire,
		timers:   make(map[string]*time.Timer),
	}
}

// Start records userID as the expected owner and arms the timer, replacing
// any previous one for the match.
func (t *TimeoutManager) Start(ctx context.Context, matchID, userID string) {
	if err := t.store.SetTurnTimeoutOwner(ctx, matchID, userID); err != nil {
		slog.Error("set timeout owner failed", "tag", "match", "matchId", matchID, "err", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[matchID]; ok {
		old.Stop()
	}
	t.timers[matchID] = time.AfterFunc(t.duration, func() {
		t.expire(matchID, userID)
	})
}

// Clear drops the stored owner. The in-process timer may still fire; the
// wake-up is then stale and ignored.
func (t *TimeoutManager) Clear(ctx context.Context, matchID string) {
	if err := t.store.ClearTurnTimeoutOwner(ctx, matchID); err != nil {
		slog.Warn("clear timeout owner failed", "tag", "match", "matchId", matchID, "err", err)
	}
}

// Cancel stops the in-process timer without touching the store. Called when
// a match worker exits.
func (t *TimeoutManager) Cancel(matchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[matchID]; ok {
		timer.Stop()
		delete(t.timers, matchID)
	}
}
