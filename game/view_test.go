package game

import (
	"reflect"
	"testing"
)

func intp(v int) *int {
	return &v
}

func TestBuildViewForIndividualHidesOpponents(t *testing.T) {
	b := testBoard()
	infos := map[string]PlayerInfo{
		"u1": {Nickname: "Ana", Color: "#ff0000"},
		"u2": {Nickname: "Beto", Color: "#00ff00"},
	}

	view := BuildViewFor(b, "u1", ModeIndividual, infos)

	if len(view.Ships) != 1 {
		t.Fatalf("u1 should see only own ships, got %d", len(view.Ships))
	}
	if view.Ships[0].OwnerID != "u1" {
		t.Errorf("visible ship owned by %s", view.Ships[0].OwnerID)
	}
	if view.Ships[0].Nickname != "Ana" || view.Ships[0].Color != "#ff0000" {
		t.Errorf("ship not enriched: %+v", view.Ships[0])
	}
	if view.Size != b.Size {
		t.Errorf("size %d, want %d", view.Size, b.Size)
	}
}

func TestBuildViewForTeamsShowsTeammates(t *testing.T) {
	b := &Board{
		Size: 10,
		Ships: []Ship{
			{ShipID: "s1", OwnerID: "u1", TeamID: intp(1), Positions: []Position{{Row: 0, Col: 0}}},
			{ShipID: "s2", OwnerID: "u2", TeamID: intp(1), Positions: []Position{{Row: 1, Col: 0}}},
			{ShipID: "s3", OwnerID: "u3", TeamID: intp(2), Positions: []Position{{Row: 2, Col: 0}}},
		},
		Shots: []ShotRecord{},
	}
	infos := map[string]PlayerInfo{
		"u1": {Nickname: "Ana", Team: intp(1)},
		"u2": {Nickname: "Beto", Team: intp(1)},
	}

	view := BuildViewFor(b, "u1", ModeTeams, infos)

	if len(view.Ships) != 2 {
		t.Fatalf("u1 should see own and teammate ships, got %d", len(view.Ships))
	}
	owners := map[string]bool{}
	for _, sv := range view.Ships {
		owners[sv.OwnerID] = true
	}
	if !owners["u1"] || !owners["u2"] || owners["u3"] {
		t.Errorf("wrong visibility set: %v", owners)
	}
	if len(view.MyShips) != 1 || view.MyShips[0].ShipID != "s1" {
		t.Errorf("myShips must list only owned ships, got %+v", view.MyShips)
	}
}

func TestBuildViewForShotsProjection(t *testing.T) {
	b := testBoard()
	b.Shots = []ShotRecord{
		{ID: "a", ShooterID: "u1", Type: ShotSimple, Target: Target{Row: 5, Col: 5}, Hit: true},
		{ID: "b", ShooterID: "u2", Type: ShotSimple, Target: Target{Row: 7, Col: 7}, Hit: false},
	}

	view := BuildViewFor(b, "u2", ModeIndividual, nil)

	want := []ShotView{
		{Row: 5, Col: 5, Result: "hit"},
		{Row: 7, Col: 7, Result: "miss"},
	}
	if !reflect.DeepEqual(view.Shots, want) {
		t.Errorf("shots projection = %+v, want %+v", view.Shots, want)
	}
}

func TestBuildViewForMyShipDamage(t *testing.T) {
	b := &Board{
		Size: 10,
		Ships: []Ship{
			{ShipID: "s1", OwnerID: "u1", Positions: []Position{
				{Row: 0, Col: 0, IsHit: true},
				{Row: 0, Col: 1},
				{Row: 0, Col: 2, IsHit: true},
			}},
		},
		Shots: []ShotRecord{},
	}

	view := BuildViewFor(b, "u1", ModeIndividual, nil)
	if len(view.MyShips) != 1 {
		t.Fatalf("expected 1 myShips entry, got %d", len(view.MyShips))
	}
	ms := view.MyShips[0]
	if ms.ImpactedPositions != 2 || ms.TotalPositions != 3 || ms.IsSunk {
		t.Errorf("damage summary wrong: %+v", ms)
	}
}

func TestBuildViewForSpectator(t *testing.T) {
	b := testBoard()
	b.Shots = []ShotRecord{{ID: "a", ShooterID: "u1", Target: Target{Row: 1, Col: 1}}}

	view := BuildViewFor(b, "watcher", ModeIndividual, map[string]PlayerInfo{})

	if len(view.Ships) != 0 {
		t.Errorf("spectator sees %d ships, want 0", len(view.Ships))
	}
	if len(view.MyShips) != 0 {
		t.Errorf("spectator has myShips: %+v", view.MyShips)
	}
	if len(view.Shots) != 1 {
		t.Errorf("spectator should see shot history, got %d", len(view.Shots))
	}
}

func TestBuildViewForDeterministic(t *testing.T) {
	b := testBoard()
	b.Shots = []ShotRecord{{ID: "a", ShooterID: "u1", Target: Target{Row: 3, Col: 3}, Hit: true}}
	infos := map[string]PlayerInfo{"u1": {Nickname: "Ana"}}

	v1 := BuildViewFor(b, "u1", ModeIndividual, infos)
	v2 := BuildViewFor(b, "u1", ModeIndividual, infos)
	if !reflect.DeepEqual(v1, v2) {
		t.Error("same board and viewer must produce identical views")
	}
}
