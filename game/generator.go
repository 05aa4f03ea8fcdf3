package game

import (
	"errors"
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// Generation failures. CapacityExceeded is detected before any placement;
// PlacementFailed means a ship exhausted its random-placement attempts.
var (
	ErrCapacityExceeded = errors.New("fleet does not fit on the board for this player count")
	ErrPlacementFailed  = errors.New("could not place a ship without collisions")
)

type sizing struct {
	base      float64
	perPlayer float64
	cellCap   float64
}

var sizingTable = map[Difficulty]sizing{
	DifficultyEasy:   {base: 10, perPlayer: 1.0, cellCap: 0.70},
	DifficultyMedium: {base: 12, perPlayer: 1.5, cellCap: 0.55},
	DifficultyHard:   {base: 14, perPlayer: 2.0, cellCap: 0.35},
}

// Ship lengths placed for each player, in placement order.
var fleetTable = map[Difficulty][]int{
	DifficultyEasy:   {5, 4, 3, 2, 2, 1, 1},
	DifficultyMedium: {4, 4, 3, 3, 2, 2, 1},
	DifficultyHard:   {4, 3, 2, 2, 1},
}

// Generator places fleets on freshly sized boards. It is not safe for
// concurrent use; each match generates its board inside its own loop.
type Generator struct {
	maxSize     int
	maxAttempts int
	rng         *rand.Rand
}

// NewGenerator returns a generator bounded by maxSize cells per side and
// maxAttempts random placements per ship. rng is owned by the caller; pass
// a seeded source for reproducible boards.
func NewGenerator(maxSize, maxAttempts int, rng *rand.Rand) *Generator {
	return &Generator{maxSize: maxSize, maxAttempts: maxAttempts, rng: rng}
}

// BoardSize computes the board side for a difficulty and player count.
func (g *Generator) BoardSize(difficulty Difficulty, players int) int {
	s := sizingTable[difficulty]
	size := int(math.Ceil(s.base + float64(players)*s.perPlayer))
	if size > g.maxSize {
		size = g.maxSize
	}
	return size
}

// Generate produces an initial board for the given players. In teams mode
// each ship is stamped with its owner's team from the teams map.
//
// The capacity pre-check rejects configurations whose total fleet cells
// exceed the occupancy cap before attempting any placement.
func (g *Generator) Generate(playerIDs []string, difficulty Difficulty, mode Mode, teams map[string]int) (*Board, error) {
	s, ok := sizingTable[difficulty]
	if !ok {
		s = sizingTable[DifficultyEasy]
		difficulty = DifficultyEasy
	}
	fleet := fleetTable[difficulty]

	size := g.BoardSize(difficulty, len(playerIDs))
	cellCap := s.cellCap
	if mode == ModeTeams {
		cellCap += 0.05
	}

	fleetCells := 0
	for _, l := range fleet {
		fleetCells += l
	}
	if len(playerIDs)*fleetCells > int(math.Floor(float64(size*size)*cellCap)) {
		return nil, ErrCapacityExceeded
	}

	board := &Board{Size: size, Ships: make([]Ship, 0, len(playerIDs)*len(fleet)), Shots: []ShotRecord{}}
	occupied := make(map[int]bool, len(playerIDs)*fleetCells)

	for _, playerID := range playerIDs {
		for _, length := range fleet {
			positions, err := g.placeShip(size, length, occupied)
			if err != nil {
				return nil, err
			}
			ship := Ship{
				ShipID:    uuid.NewString(),
				OwnerID:   playerID,
				Positions: positions,
			}
			if mode == ModeTeams {
				if team, ok := teams[playerID]; ok {
					t := team
					ship.TeamID = &t
				}
			}
			board.Ships = append(board.Ships, ship)
		}
	}
	return board, nil
}

// placeShip tries random orientations and origins until the ship fits
// without touching an occupied cell.
func (g *Generator) placeShip(size, length int, occupied map[int]bool) ([]Position, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		horizontal := g.rng.Intn(2) == 0
		var row, col int
		if horizontal {
			row = g.rng.Intn(size)
			col = g.rng.Intn(size - length + 1)
		} else {
			row = g.rng.Intn(size - length + 1)
			col = g.rng.Intn(size)
		}

		cells := make([]int, length)
		collision := false
		for i := 0; i < length; i++ {
			r, c := row, col
			if horizontal {
				c += i
			} else {
				r += i
			}
			key := r*size + c
			if occupied[key] {
				collision = true
				break
			}
			cells[i] = key
		}
		if collision {
			continue
		}

		positions := make([]Position, length)
		for i, key := range cells {
			occupied[key] = true
			positions[i] = Position{Row: key / size, Col: key % size}
		}
		return positions, nil
	}
	return nil, ErrPlacementFailed
}
