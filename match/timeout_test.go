package match

import (
	"context"
	"testing"
	"time"

	"naval-battle-server/config"
	"naval-battle-server/ephemeral"
	"naval-battle-server/events"
	"naval-battle-server/game"
	"naval-battle-server/storage"
)

func TestTimeoutManagerStartArmsTimer(t *testing.T) {
	store := ephemeral.NewMemoryStore()
	fired := make(chan string, 4)
	tm := NewTimeoutManager(store, 20*time.Millisecond, func(matchID, userID string) {
		fired <- matchID + "/" + userID
	})
	ctx := context.Background()

	tm.Start(ctx, "m1", "ana")
	if owner, _ := store.GetTurnTimeoutOwner(ctx, "m1"); owner != "ana" {
		t.Fatalf("expected stored owner ana, got %q", owner)
	}
	select {
	case got := <-fired:
		if got != "m1/ana" {
			t.Fatalf("expected wake-up for m1/ana, got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestTimeoutManagerRestartReplacesTimer(t *testing.T) {
	store := ephemeral.NewMemoryStore()
	fired := make(chan string, 4)
	tm := NewTimeoutManager(store, 30*time.Millisecond, func(matchID, userID string) {
		fired <- userID
	})
	ctx := context.Background()

	tm.Start(ctx, "m1", "ana")
	tm.Start(ctx, "m1", "beto")

	select {
	case got := <-fired:
		if got != "beto" {
			t.Fatalf("expected only the replacement timer to fire, got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	select {
	case got := <-fired:
		t.Fatalf("replaced timer fired anyway for %s", got)
	case <-time.After(100 * time.Millisecond):
	}
	if owner, _ := store.GetTurnTimeoutOwner(ctx, "m1"); owner != "beto" {
		t.Errorf("expected stored owner beto, got %q", owner)
	}
}

func TestTimeoutManagerCancelAndClear(t *testing.T) {
	store := ephemeral.NewMemoryStore()
	fired := make(chan string, 4)
	tm := NewTimeoutManager(store, 30*time.Millisecond, func(matchID, userID string) {
		fired <- userID
	})
	ctx := context.Background()

	tm.Start(ctx, "m1", "ana")
	tm.Cancel("m1")
	select {
	case got := <-fired:
		t.Fatalf("cancelled timer fired for %s", got)
	case <-time.After(100 * time.Millisecond):
	}

	// Cancel stops the timer only; the stored owner needs Clear.
	if owner, _ := store.GetTurnTimeoutOwner(ctx, "m1"); owner != "ana" {
		t.Errorf("cancel must not touch the stored owner, got %q", owner)
	}
	tm.Clear(ctx, "m1")
	if owner, _ := store.GetTurnTimeoutOwner(ctx, "m1"); owner != "" {
		t.Errorf("expected cleared owner, got %q", owner)
	}
}

func TestTurnTimeoutRotates(t *testing.T) {
	e := newEnv()
	b := testBoard(10, ship("s-ana", "ana", [2]int{0, 0}), ship("s-beto", "beto", [2]int{5, 5}))
	e.seedRunning(t, "m1", game.ModeIndividual, b, "ana", "ana", "beto")
	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	beto := newConn("c-beto", "beto")
	e.joinSeated(t, beto, "m1")
	drain(ana)
	drain(beto)

	ctx := context.Background()
	e.store.SetTurnTimeoutOwner(ctx, "m1", "ana")
	e.mgr.onTurnExpired("m1", "ana")

	timeout := expectEvent(t, ana, events.TypeTurnTimeout)
	if timeout["userId"] != "ana" || timeout["missed"] != float64(1) {
		t.Errorf("unexpected TURN_TIMEOUT payload: %v", timeout)
	}
	if tc := expectEvent(t, ana, events.TypeTurnChanged); tc["userId"] != "beto" {
		t.Errorf("expected turn to rotate to beto, got %v", tc["userId"])
	}
	expectEvent(t, beto, events.TypeTurnTimeout)
	expectEvent(t, beto, events.TypeTurnChanged)

	if turn, _ := e.store.GetTurn(ctx, "m1"); turn != "beto" {
		t.Errorf("expected stored turn beto, got %q", turn)
	}
	if owner, _ := e.store.GetTurnTimeoutOwner(ctx, "m1"); owner != "beto" {
		t.Errorf("expected timer re-armed for beto, got %q", owner)
	}
}

func TestStaleTimeoutIgnored(t *testing.T) {
	e := newEnv()
	b := testBoard(10, ship("s-ana", "ana", [2]int{0, 0}), ship("s-beto", "beto", [2]int{5, 5}))
	e.seedRunning(t, "m1", game.ModeIndividual, b, "beto", "ana", "beto")
	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	beto := newConn("c-beto", "beto")
	e.joinSeated(t, beto, "m1")
	drain(ana)
	drain(beto)

	ctx := context.Background()
	e.store.SetTurnTimeoutOwner(ctx, "m1", "beto")

	// A wake-up for a user who no longer owns the turn does nothing.
	e.mgr.onTurnExpired("m1", "ana")
	expectQuiet(t, ana)
	expectQuiet(t, beto)
	if n, _ := e.store.IncrMissed(ctx, "m1", "ana"); n != 1 {
		t.Errorf("stale wake-up must not count a miss, got %d", n)
	}

	// Same with no owner at all.
	e.store.ClearTurnTimeoutOwner(ctx, "m1")
	e.mgr.onTurnExpired("m1", "beto")
	expectQuiet(t, beto)
}

// Burning the full missed-turn budget in a two-player match hands the
// survivor the win.
func TestThirdMissKicksAndEndsMatch(t *testing.T) {
	e := newEnv()
	b := testBoard(10, ship("s-ana", "ana", [2]int{0, 0}), ship("s-beto", "beto", [2]int{5, 5}))
	e.seedRunning(t, "m1", game.ModeIndividual, b, "ana", "ana", "beto")
	ana := newConn("c-ana", "ana")
	closed := make(chan struct{}, 1)
	ana.Close = func() { closed <- struct{}{} }
	e.joinSeated(t, ana, "m1")
	beto := newConn("c-beto", "beto")
	e.joinSeated(t, beto, "m1")
	drain(ana)
	drain(beto)

	ctx := context.Background()
	e.store.IncrMissed(ctx, "m1", "ana")
	e.store.IncrMissed(ctx, "m1", "ana")
	e.store.SetTurnTimeoutOwner(ctx, "m1", "ana")

	e.mgr.onTurnExpired("m1", "ana")

	if elim := expectEvent(t, ana, events.TypePlayerEliminated); elim["userId"] != "ana" {
		t.Errorf("expected ana eliminated, got %v", elim["userId"])
	}
	if kicked := expectEvent(t, ana, events.TypePlayerKicked); kicked["reason"] != "expulsado por inactividad" {
		t.Errorf("unexpected kick reason: %v", kicked["reason"])
	}
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("kicked transport was never closed")
	}
	expectQuiet(t, ana) // out of the room before the endgame

	if elim := expectEvent(t, beto, events.TypePlayerEliminated); elim["userId"] != "ana" {
		t.Errorf("expected ana eliminated, got %v", elim["userId"])
	}
	ended := expectEvent(t, beto, events.TypeGameEnded)
	if ended["winnerUserId"] != "beto" {
		t.Errorf("expected beto to inherit the win, got %v", ended)
	}
	expectQuiet(t, beto)

	m, err := e.repo.FindByID(ctx, "m1", storage.LoadOptions{WithPlayers: true})
	if err != nil || m == nil {
		t.Fatalf("FindByID: %v %v", m, err)
	}
	if m.Status != storage.StatusFinished {
		t.Errorf("expected finished match, got %s", m.Status)
	}

	// The seat is burned for good: the match is over for ana.
	again := newConn("c-ana2", "ana")
	e.mgr.Join(again, "m1", RolePlayer)
	if ev := expectEvent(t, again, events.TypeReconnectFailed); ev["reason"] != ErrMatchOver.Error() {
		t.Errorf("expected match-over rejection, got %v", ev)
	}
}

// With three players the match survives a kick and the turn moves to the
// next seat.
func TestThirdMissKickContinuesMatch(t *testing.T) {
	e := newEnv()
	b := testBoard(10,
		ship("s-ana", "ana", [2]int{0, 0}),
		ship("s-beto", "beto", [2]int{1, 1}),
		ship("s-carla", "carla", [2]int{2, 2}),
	)
	e.seedRunning(t, "m1", game.ModeIndividual, b, "ana", "ana", "beto", "carla")
	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	beto := newConn("c-beto", "beto")
	e.joinSeated(t, beto, "m1")
	carla := newConn("c-carla", "carla")
	e.joinSeated(t, carla, "m1")
	drain(ana)
	drain(beto)
	drain(carla)

	ctx := context.Background()
	e.store.IncrMissed(ctx, "m1", "ana")
	e.store.IncrMissed(ctx, "m1", "ana")
	e.store.SetTurnTimeoutOwner(ctx, "m1", "ana")

	e.mgr.onTurnExpired("m1", "ana")

	expectEvent(t, ana, events.TypePlayerEliminated)
	expectEvent(t, ana, events.TypePlayerKicked)
	expectQuiet(t, ana)

	expectEvent(t, beto, events.TypePlayerEliminated)
	if tc := expectEvent(t, beto, events.TypeTurnChanged); tc["userId"] != "beto" {
		t.Errorf("expected the seat after ana to take the turn, got %v", tc["userId"])
	}
	expectEvent(t, carla, events.TypePlayerEliminated)
	expectEvent(t, carla, events.TypeTurnChanged)

	m, _ := e.repo.FindByID(ctx, "m1", storage.LoadOptions{})
	if m == nil || m.Status != storage.StatusInProgress {
		t.Fatalf("expected the match to continue, got %+v", m)
	}
	if turn, _ := e.store.GetTurn(ctx, "m1"); turn != "beto" {
		t.Errorf("expected stored turn beto, got %q", turn)
	}

	// The kicked player cannot rejoin a live match.
	again := newConn("c-ana2", "ana")
	e.mgr.Join(again, "m1", RolePlayer)
	if ev := expectEvent(t, again, events.TypeJoinDenied); ev["reason"] != ErrRejoinBlocked.Error() {
		t.Errorf("expected rejoin block, got %v", ev)
	}
}

// Kicking the only connected player empties the room; an unfinished match
// is torn down entirely.
func TestKickOfLastConnectionTearsDown(t *testing.T) {
	e := newEnv()
	b := testBoard(10, ship("s-ana", "ana", [2]int{0, 0}), ship("s-beto", "beto", [2]int{5, 5}))
	e.seedRunning(t, "m1", game.ModeIndividual, b, "ana", "ana", "beto")
	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	drain(ana)

	ctx := context.Background()
	e.store.IncrMissed(ctx, "m1", "ana")
	e.store.IncrMissed(ctx, "m1", "ana")
	e.store.SetTurnTimeoutOwner(ctx, "m1", "ana")

	e.mgr.onTurnExpired("m1", "ana")

	expectEvent(t, ana, events.TypePlayerEliminated)
	expectEvent(t, ana, events.TypePlayerKicked)

	waitFor(t, func() bool {
		m, err := e.repo.FindByID(ctx, "m1", storage.LoadOptions{})
		return err == nil && m == nil
	}, "match row should be removed")
	if turn, _ := e.store.GetTurn(ctx, "m1"); turn != "" {
		t.Errorf("expected cleared turn, got %q", turn)
	}
}

// The real timer path: a short deadline fires through the manager into the
// worker without any manual wake-up.
func TestTurnTimerFiresEndToEnd(t *testing.T) {
	cfg := &config.Config{
		JoinMatchPlayerLimit:     6,
		TeamCount:                5,
		TurnTimeoutMS:            80,
		MaxMissedTurns:           3,
		MaxPlacementAttempts:     100,
		MaxBoardSize:             20,
		NuclearProgressThreshold: 6,
	}
	e := &env{cfg: cfg, repo: storage.NewMemory(), store: ephemeral.NewMemoryStore()}
	e.mgr = NewManager(cfg, e.repo, e.store)

	b := testBoard(10, ship("s-ana", "ana", [2]int{0, 0}), ship("s-beto", "beto", [2]int{5, 5}))
	e.seedRunning(t, "m1", game.ModeIndividual, b, "ana", "ana", "beto")
	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	beto := newConn("c-beto", "beto")
	e.joinSeated(t, beto, "m1")
	drain(ana)
	drain(beto)

	e.mgr.timeouts.Start(context.Background(), "m1", "ana")

	if ev := awaitEvent(t, ana, events.TypeTurnTimeout); ev["userId"] != "ana" {
		t.Errorf("expected ana to time out, got %v", ev["userId"])
	}
	if ev := awaitEvent(t, ana, events.TypeTurnChanged); ev["userId"] != "beto" {
		t.Errorf("expected rotation to beto, got %v", ev["userId"])
	}

	// Stop the rotation chain before leaving the test.
	e.mgr.Leave(ana, "m1")
	awaitEvent(t, ana, events.TypePlayerLeft)
	e.mgr.Leave(beto, "m1")
	awaitEvent(t, beto, events.TypePlayerLeft)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
