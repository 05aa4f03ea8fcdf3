package game

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ShotType is the closed taxonomy of shot patterns.
type ShotType string

const (
	ShotSimple  ShotType = "simple"
	ShotCross   ShotType = "cross"
	ShotMulti   ShotType = "multi"
	ShotArea    ShotType = "area"
	ShotScan    ShotType = "scan"
	ShotNuclear ShotType = "nuclear"
)

// Valid reports whether t is a known shot type.
func (t ShotType) Valid() bool {
	switch t {
	case ShotSimple, ShotCross, ShotMulti, ShotArea, ShotScan, ShotNuclear:
		return true
	}
	return false
}

// Resolver rejections.
var (
	ErrShotOutOfRange = errors.New("shot target out of range")
	ErrDuplicateShot  = errors.New("cell already shot")
	ErrUnknownShot    = errors.New("unknown shot type")
)

// ShotResult is the outcome of resolving one fire against the board.
// SunkShips points into the board's ship slice for every ship this shot
// finished off.
type ShotResult struct {
	Record    ShotRecord
	SunkShips []*Ship
}

// Pattern expands a shot type into the affected cells, clipped to the
// board. Cells are unique within a pattern.
//
//	simple  — the target cell
//	cross   — target plus its four orthogonal neighbours
//	multi   — target plus the NE and SW diagonals
//	area    — the 3x3 block centred on the target
//	scan    — a horizontal run of five centred on the target
//	nuclear — the 5x5 block centred on the target
func Pattern(t ShotType, row, col, size int) []Target {
	var cells []Target
	add := func(r, c int) {
		if r >= 0 && r < size && c >= 0 && c < size {
			cells = append(cells, Target{Row: r, Col: c})
		}
	}
	switch t {
	case ShotSimple:
		add(row, col)
	case ShotCross:
		add(row, col)
		add(row-1, col)
		add(row+1, col)
		add(row, col-1)
		add(row, col+1)
	case ShotMulti:
		add(row, col)
		add(row-1, col+1)
		add(row+1, col-1)
	case ShotArea:
		for r := row - 1; r <= row+1; r++ {
			for c := col - 1; c <= col+1; c++ {
				add(r, c)
			}
		}
	case ShotScan:
		for c := col - 2; c <= col+2; c++ {
			add(row, c)
		}
	case ShotNuclear:
		for r := row - 2; r <= row+2; r++ {
			for c := col - 2; c <= col+2; c++ {
				add(r, c)
			}
		}
	}
	return cells
}

// Resolve applies one shot to the board, mutating ship hit flags and
// appending a single ShotRecord to the history. The caller persists the
// mutated board; nothing here touches a repository.
func Resolve(b *Board, shooterID string, shotType ShotType, row, col int) (*ShotResult, error) {
	if !shotType.Valid() {
		return nil, ErrUnknownShot
	}
	if !b.InRange(row, col) {
		return nil, ErrShotOutOfRange
	}
	if b.AlreadyShot(row, col) {
		return nil, ErrDuplicateShot
	}

	hit := false
	var sunk []*Ship
	for _, cell := range Pattern(shotType, row, col, b.Size) {
		for si := range b.Ships {
			ship := &b.Ships[si]
			if ship.IsSunk {
				continue
			}
			for pi := range ship.Positions {
				pos := &ship.Positions[pi]
				if pos.Row != cell.Row || pos.Col != cell.Col || pos.IsHit {
					continue
				}
				pos.IsHit = true
				hit = true
				if ship.allHit() {
					ship.IsSunk = true
					sunk = append(sunk, ship)
				}
			}
		}
	}

	rec := ShotRecord{
		ID:        uuid.NewString(),
		ShooterID: shooterID,
		Type:      shotType,
		Target:    Target{Row: row, Col: col},
		Hit:       hit,
		CreatedAt: time.Now().UTC(),
	}
	if len(sunk) > 0 {
		rec.SunkShipID = sunk[0].ShipID
	}
	b.Shots = append(b.Shots, rec)
	return &ShotResult{Record: rec, SunkShips: sunk}, nil
}
