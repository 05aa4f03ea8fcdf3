package game

import "math"

// PlayerStats is the per-match, per-player summary computed from the final
// board once a match ends.
type PlayerStats struct {
	UserID          string
	TotalShots      int
	SuccessfulShots int
	Accuracy        float64
	ShipsSunk       int
	WasWinner       bool
	TurnsTaken      int
	ShipsRemaining  int
	WasEliminated   bool
	HitStreak       int
	LastShotWasHit  bool
	ShotsByType     map[ShotType]int
}

// ComputeStats derives stats for every listed player from the final board.
// winners marks the users flagged as winners; elimination is derived from
// the board (no unsunk ships left).
func ComputeStats(b *Board, playerIDs []string, winners map[string]bool) []PlayerStats {
	out := make([]PlayerStats, 0, len(playerIDs))
	for _, userID := range playerIDs {
		stat := PlayerStats{
			UserID:      userID,
			WasWinner:   winners[userID],
			ShotsByType: make(map[ShotType]int),
		}

		streak := 0
		for _, shot := range b.Shots {
			if shot.ShooterID != userID {
				continue
			}
			stat.TotalShots++
			stat.ShotsByType[shot.Type]++
			if shot.Hit {
				stat.SuccessfulShots++
				streak++
				if streak > stat.HitStreak {
					stat.HitStreak = streak
				}
			} else {
				streak = 0
			}
			stat.LastShotWasHit = shot.Hit
			if shot.SunkShipID != "" {
				stat.ShipsSunk++
			}
		}
		stat.TurnsTaken = stat.TotalShots
		if stat.TotalShots > 0 {
			stat.Accuracy = math.Round(float64(stat.SuccessfulShots)/float64(stat.TotalShots)*10000) / 100
		}

		for i := range b.Ships {
			if b.Ships[i].OwnerID == userID && !b.Ships[i].IsSunk {
				stat.ShipsRemaining++
			}
		}
		stat.WasEliminated = stat.ShipsRemaining == 0

		out = append(out, stat)
	}
	return out
}
