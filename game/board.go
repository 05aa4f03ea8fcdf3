package game

import (
	"encoding/json"
	"time"
)

// Mode selects how victory is decided.
type Mode string

const (
	ModeIndividual Mode = "individual"
	ModeTeams      Mode = "teams"
)

// Difficulty selects board sizing and the per-player fleet.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Position is a single board cell occupied by a ship.
type Position struct {
	Row   int  `json:"row"`
	Col   int  `json:"col"`
	IsHit bool `json:"isHit"`
}

// Ship is an owned run of cells. TeamID is null in individual mode and is
// stamped once at match start in teams mode; it never changes afterwards.
type Ship struct {
	ShipID    string     `json:"shipId"`
	OwnerID   string     `json:"ownerId"`
	TeamID    *int       `json:"teamId"`
	Positions []Position `json:"positions"`
	IsSunk    bool       `json:"isSunk"`
}

// Target is the cell a shot was aimed at.
type Target struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ShotRecord is one resolved shot in the board history. Pattern shots keep
// their per-cell impacts in the ship position flags; a single record per
// fire preserves target uniqueness.
type ShotRecord struct {
	ID         string    `json:"id"`
	ShooterID  string    `json:"shooterId"`
	Type       ShotType  `json:"type"`
	Target     Target    `json:"target"`
	Hit        bool      `json:"hit"`
	SunkShipID string    `json:"sunkShipId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Board is the square playing field shared by all players in a match.
type Board struct {
	Size  int          `json:"size"`
	Ships []Ship       `json:"ships"`
	Shots []ShotRecord `json:"shots"`
}

// InRange reports whether (row,col) lies inside the board.
func (b *Board) InRange(row, col int) bool {
	return row >= 0 && row < b.Size && col >= 0 && col < b.Size
}

// AlreadyShot reports whether a shot in the history already targeted (row,col).
func (b *Board) AlreadyShot(row, col int) bool {
	for _, s := range b.Shots {
		if s.Target.Row == row && s.Target.Col == col {
			return true
		}
	}
	return false
}

// HasShipsAlive reports whether userID still owns at least one unsunk ship.
func (b *Board) HasShipsAlive(userID string) bool {
	for i := range b.Ships {
		if b.Ships[i].OwnerID == userID && !b.Ships[i].IsSunk {
			return true
		}
	}
	return false
}

func (s *Ship) allHit() bool {
	for _, p := range s.Positions {
		if !p.IsHit {
			return false
		}
	}
	return true
}

// Encode serializes the board to its persisted JSON form.
func (b *Board) Encode() ([]byte, error) {
	return json.Marshal(b)
}

// DecodeBoard parses a board from its persisted JSON form.
func DecodeBoard(data []byte) (*Board, error) {
	var b Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
