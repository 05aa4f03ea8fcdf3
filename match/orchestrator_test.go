package match

import (
	"context"
	"testing"
	"time"

	"naval-battle-server/events"
	"naval-battle-server/game"
	"naval-battle-server/storage"
)

func seating(dead map[string]bool, order ...string) []storage.MatchPlayer {
	gone := time.Now().UTC()
	out := make([]storage.MatchPlayer, 0, len(order))
	for _, id := range order {
		p := storage.MatchPlayer{UserID: id}
		if dead[id] {
			p.LeftAt = &gone
		}
		out = append(out, p)
	}
	return out
}

func TestNextAliveAfter(t *testing.T) {
	cases := []struct {
		name    string
		players []storage.MatchPlayer
		actor   string
		want    string
	}{
		{"all alive, middle seat", seating(nil, "a", "b", "c"), "a", "b"},
		{"wraps around", seating(nil, "a", "b", "c"), "c", "a"},
		{"skips dead seats", seating(map[string]bool{"b": true}, "a", "b", "c"), "a", "c"},
		{"dead actor scans from former seat", seating(map[string]bool{"a": true}, "a", "b", "c"), "a", "b"},
		{"dead actor wraps", seating(map[string]bool{"b": true}, "a", "b"), "b", "a"},
		{"unknown actor falls back to first alive", seating(map[string]bool{"a": true}, "a", "b", "c"), "zz", "b"},
		{"nobody alive", seating(map[string]bool{"a": true, "b": true}, "a", "b"), "a", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextAliveAfter(tc.players, tc.actor); got != tc.want {
				t.Errorf("nextAliveAfter(%s) = %q, want %q", tc.actor, got, tc.want)
			}
		})
	}
}

// Teams victory: the match ends the moment a single team holds all the
// surviving ships, and every member of that team is flagged winner.
func TestTeamsVictory(t *testing.T) {
	e := newEnv()
	b := testBoard(10,
		teamShip("s-ana", "ana", 1, [2]int{0, 0}),
		teamShip("s-beto", "beto", 1, [2]int{1, 0}),
		teamShip("s-carla", "carla", 2, [2]int{2, 0}),
		teamShip("s-dani", "dani", 2, [2]int{3, 0}),
	)
	e.seedRunning(t, "m1", game.ModeTeams, b, "ana", "ana", "beto", "carla", "dani")
	ctx := context.Background()
	teams := map[string]int{"ana": 1, "beto": 1, "carla": 2, "dani": 2}
	for userID, team := range teams {
		if err := e.repo.AssignTeam(ctx, "m1", userID, team); err != nil {
			t.Fatalf("AssignTeam(%s): %v", userID, err)
		}
	}

	ana := newConn("c-ana", "ana")
	e.joinSeated(t, ana, "m1")
	beto := newConn("c-beto", "beto")
	e.joinSeated(t, beto, "m1")
	carla := newConn("c-carla", "carla")
	e.joinSeated(t, carla, "m1")
	dani := newConn("c-dani", "dani")
	e.joinSeated(t, dani, "m1")
	for _, c := range []*Conn{ana, beto, carla, dani} {
		drain(c)
	}

	// Ana sinks carla's last ship: one opponent down, match continues.
	ack := e.fire(t, ana, "m1", 2, 0, game.ShotSimple)
	if ack["sunk"] != true {
		t.Fatalf("expected carla's ship sunk, got %v", ack)
	}
	expectEvent(t, dani, events.TypePlayerFired)
	if elim := expectEvent(t, dani, events.TypePlayerEliminated); elim["userId"] != "carla" {
		t.Errorf("expected carla eliminated, got %v", elim["userId"])
	}
	expectEvent(t, dani, events.TypeBoardUpdate)
	if tc := expectEvent(t, dani, events.TypeTurnChanged); tc["userId"] != "beto" {
		t.Errorf("expected beto on turn, got %v", tc["userId"])
	}

	// Beto sinks dani's: team 2 has nothing left afloat.
	ack = e.fire(t, beto, "m1", 3, 0, game.ShotSimple)
	if ack["sunk"] != true {
		t.Fatalf("expected dani's ship sunk, got %v", ack)
	}
	expectEvent(t, dani, events.TypePlayerFired)
	if elim := expectEvent(t, dani, events.TypePlayerEliminated); elim["userId"] != "dani" {
		t.Errorf("expected dani eliminated, got %v", elim["userId"])
	}
	expectEvent(t, dani, events.TypeBoardUpdate)
	ended := expectEvent(t, dani, events.TypeGameEnded)
	if ended["mode"] != "teams" || ended["winningTeam"] != float64(1) {
		t.Errorf("unexpected GAME_ENDED payload: %v", ended)
	}
	expectQuiet(t, dani)

	m, err := e.repo.FindByID(ctx, "m1", storage.LoadOptions{WithPlayers: true})
	if err != nil || m == nil {
		t.Fatalf("FindByID: %v %v", m, err)
	}
	if m.Status != storage.StatusFinished {
		t.Errorf("expected finished match, got %s", m.Status)
	}
	for i := range m.Players {
		p := &m.Players[i]
		wantWinner := teams[p.UserID] == 1
		if p.IsWinner != wantWinner {
			t.Errorf("player %s: winner=%v, want %v", p.UserID, p.IsWinner, wantWinner)
		}
	}

	stats, err := e.repo.FindStatsByMatchID(ctx, "m1")
	if err != nil || len(stats) != 4 {
		t.Fatalf("expected 4 stat rows, got %d err=%v", len(stats), err)
	}
	for _, st := range stats {
		if wantWinner := teams[st.UserID] == 1; st.WasWinner != wantWinner {
			t.Errorf("stats %s: wasWinner=%v, want %v", st.UserID, st.WasWinner, wantWinner)
		}
	}
}
