package match

import (
	"context"
	"encoding/json"
	"testing"

	"naval-battle-server/events"
	"naval-battle-server/game"
	"naval-battle-server/storage"
)

func TestLeaveWaitingFreesSeat(t *testing.T) {
	e := newEnv()
	e.seedWaiting(t, "m1", game.ModeIndividual, 6, nil, "ana")
	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	beto := newConn("c-beto", "beto")
	e.joinFresh(t, beto, "m1")
	drain(ana)
	drain(beto)

	e.mgr.Leave(beto, "m1")
	// The leaver sees their own departure before the conn is dropped.
	if ev := expectEvent(t, beto, events.TypePlayerLeft); ev["userId"] != "beto" {
		t.Errorf("expected beto in PLAYER_LEFT, got %v", ev["userId"])
	}
	expectEvent(t, ana, events.TypePlayerLeft)

	// In the lobby the seat is freed, so a comeback is a fresh join.
	back := newConn("c-beto2", "beto")
	e.mgr.Join(back, "m1", RolePlayer)
	awaitEvent(t, back, events.TypePlayerJoinedAck)

	m, err := e.repo.FindByID(context.Background(), "m1", storage.LoadOptions{WithPlayers: true})
	if err != nil || m == nil {
		t.Fatalf("FindByID: %v %v", m, err)
	}
	if len(m.Players) != 2 {
		t.Errorf("expected 2 seats after leave and rejoin, got %d", len(m.Players))
	}
}

func TestLeaveInProgressIsSurrender(t *testing.T) {
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

	// Ana holds the turn, owns the match, and walks away.
	e.mgr.Leave(ana, "m1")
	expectEvent(t, ana, events.TypePlayerLeft)
	expectQuiet(t, ana)

	expectEvent(t, beto, events.TypePlayerLeft)
	if ev := expectEvent(t, beto, events.TypeCreatorChanged); ev["newCreatorId"] != "beto" {
		t.Errorf("expected beto promoted, got %v", ev["newCreatorId"])
	}
	if tc := expectEvent(t, beto, events.TypeTurnChanged); tc["userId"] != "beto" {
		t.Errorf("expected the turn to move to beto, got %v", tc["userId"])
	}

	ctx := context.Background()
	m, err := e.repo.FindByID(ctx, "m1", storage.LoadOptions{WithPlayers: true})
	if err != nil || m == nil {
		t.Fatalf("FindByID: %v %v", m, err)
	}
	if m.Status != storage.StatusInProgress {
		t.Errorf("two players remain, expected the match to continue, got %s", m.Status)
	}
	for i := range m.Players {
		if m.Players[i].UserID == "ana" && m.Players[i].Alive() {
			t.Error("a surrendered player must be marked defeated")
		}
	}
	if abandoned, _ := e.store.IsAbandoned(ctx, "m1", "ana"); !abandoned {
		t.Error("surrender should block rejoining")
	}
	if owner, _ := e.store.GetTurnTimeoutOwner(ctx, "m1"); owner != "beto" {
		t.Errorf("expected timer re-armed for beto, got %q", owner)
	}

	again := newConn("c-ana2", "ana")
	e.mgr.Join(again, "m1", RolePlayer)
	if ev := expectEvent(t, again, events.TypeJoinDenied); ev["reason"] != ErrRejoinBlocked.Error() {
		t.Errorf("expected rejoin block after surrender, got %v", ev)
	}
}

func TestSurrenderOfSecondToLastEndsMatch(t *testing.T) {
	e := newEnv()
	b := testBoard(10, ship("s-ana", "ana", [2]int{0, 0}), ship("s-beto", "beto", [2]int{5, 5}))
	// Beto owns the match so ana's exit does not shuffle the creator.
	e.seedRunning(t, "m1", game.ModeIndividual, b, "beto", "beto", "ana")
	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	beto := newConn("c-beto", "beto")
	e.joinSeated(t, beto, "m1")
	drain(ana)
	drain(beto)

	// Ana surrenders while beto holds the turn.
	e.mgr.Leave(ana, "m1")
	expectEvent(t, beto, events.TypePlayerLeft)
	ended := expectEvent(t, beto, events.TypeGameEnded)
	if ended["mode"] != "individual" || ended["winnerUserId"] != "beto" {
		t.Errorf("expected beto to win by surrender, got %v", ended)
	}
	expectQuiet(t, beto)

	ctx := context.Background()
	m, err := e.repo.FindByID(ctx, "m1", storage.LoadOptions{WithPlayers: true})
	if err != nil || m == nil {
		t.Fatalf("FindByID: %v %v", m, err)
	}
	if m.Status != storage.StatusFinished {
		t.Errorf("expected finished match, got %s", m.Status)
	}
	for i := range m.Players {
		if m.Players[i].UserID == "beto" && !m.Players[i].IsWinner {
			t.Error("beto should be flagged winner")
		}
	}

	// Resuming a finished match reports it as over.
	back := newConn("c-beto2", "beto")
	e.mgr.Resume(ctx, back)
	if ev := expectEvent(t, back, events.TypeReconnectFailed); ev["reason"] != ErrMatchOver.Error() {
		t.Errorf("expected match-over on resume, got %v", ev)
	}
}

func TestDisconnectKeepsSeat(t *testing.T) {
	e := newEnv()
	b := testBoard(10, ship("s-ana", "ana", [2]int{0, 0}), ship("s-beto", "beto", [2]int{5, 5}))
	// Beto owns the match so ana's drop does not shuffle the creator.
	e.seedRunning(t, "m1", game.ModeIndividual, b, "ana", "beto", "ana")
	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	beto := newConn("c-beto", "beto")
	e.joinSeated(t, beto, "m1")
	drain(ana)
	drain(beto)

	ctx := context.Background()
	e.mgr.Disconnect(ctx, "c-ana")
	if ev := expectEvent(t, beto, events.TypePlayerLeft); ev["userId"] != "ana" {
		t.Errorf("expected ana's drop announced, got %v", ev["userId"])
	}
	expectQuiet(t, ana) // already out of the room

	m, err := e.repo.FindByID(ctx, "m1", storage.LoadOptions{WithPlayers: true})
	if err != nil || m == nil {
		t.Fatalf("FindByID: %v %v", m, err)
	}
	if m.Status != storage.StatusInProgress {
		t.Errorf("a drop must not end the match, got %s", m.Status)
	}
	for i := range m.Players {
		if m.Players[i].UserID == "ana" && !m.Players[i].Alive() {
			t.Error("a dropped player keeps the seat")
		}
	}
	if turn, _ := e.store.GetTurn(ctx, "m1"); turn != "ana" {
		t.Errorf("a drop must not rotate the turn, got %q", turn)
	}

	// Auto-resume after re-auth: board view first, then the room notice,
	// then the ack.
	back := newConn("c-ana2", "ana")
	e.mgr.Resume(ctx, back)
	raw := nextRaw(t, back)
	var update events.BoardUpdate
	if err := json.Unmarshal(raw, &update); err != nil || update.Type != events.TypeBoardUpdate {
		t.Fatalf("expected BOARD_UPDATE first, got %s", raw)
	}
	if update.Board == nil || len(update.Board.MyShips) != 1 {
		t.Errorf("reconnect view should carry own ships, got %+v", update.Board)
	}
	if ev := expectEvent(t, back, events.TypePlayerReconnected); ev["userId"] != "ana" {
		t.Errorf("expected ana reconnected, got %v", ev["userId"])
	}
	expectEvent(t, back, events.TypeReconnectAck)
	expectEvent(t, beto, events.TypePlayerReconnected)

	// The retained turn is usable right away.
	ack := e.fire(t, back, "m1", 9, 9, game.ShotSimple)
	if ack["success"] != true {
		t.Errorf("expected the reconnected holder to fire, got %v", ack)
	}
}

func TestLastDisconnectTearsDownUnfinishedMatch(t *testing.T) {
	e := newEnv()
	e.seedWaiting(t, "m1", game.ModeIndividual, 6, nil, "ana")
	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	drain(ana)

	ctx := context.Background()
	e.mgr.Disconnect(ctx, "c-ana")

	waitFor(t, func() bool {
		m, err := e.repo.FindByID(ctx, "m1", storage.LoadOptions{})
		return err == nil && m == nil
	}, "empty waiting match should be removed")

	// The user's resume pointer is now stale. The first resume reports the
	// match gone and clears the pointer; the next one stays silent.
	if last, _ := e.store.GetLastMatchByUser(ctx, "ana"); last != "m1" {
		t.Fatalf("expected stale pointer m1, got %q", last)
	}
	back := newConn("c-ana2", "ana")
	e.mgr.Resume(ctx, back)
	if ev := expectEvent(t, back, events.TypeReconnectFailed); ev["reason"] != ErrMatchGone.Error() {
		t.Errorf("expected match-gone on resume, got %v", ev)
	}
	if last, _ := e.store.GetLastMatchByUser(ctx, "ana"); last != "" {
		t.Errorf("expected pointer cleared, got %q", last)
	}
	e.mgr.Resume(ctx, back)
	expectQuiet(t, back)
}

func TestCreatorPromotionOnLeave(t *testing.T) {
	e := newEnv()
	e.seedWaiting(t, "m1", game.ModeIndividual, 6, nil, "ana")
	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	beto := newConn("c-beto", "beto")
	e.joinFresh(t, beto, "m1")
	drain(ana)
	drain(beto)

	e.mgr.Leave(ana, "m1")
	expectEvent(t, beto, events.TypePlayerLeft)
	if ev := expectEvent(t, beto, events.TypeCreatorChanged); ev["newCreatorId"] != "beto" {
		t.Errorf("expected beto promoted, got %v", ev["newCreatorId"])
	}

	m, err := e.repo.FindByID(context.Background(), "m1", storage.LoadOptions{})
	if err != nil || m == nil || m.CreatedByID != "beto" {
		t.Errorf("expected persisted creator beto, got %+v err=%v", m, err)
	}
}
