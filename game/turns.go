package game

// NextUserID returns the user after current in the alive order, wrapping
// around. If current is absent or the order is empty, current is returned
// unchanged so callers never lose the turn pointer.
func NextUserID(aliveOrder []string, current string) string {
	for i, id := range aliveOrder {
		if id == current {
			return aliveOrder[(i+1)%len(aliveOrder)]
		}
	}
	return current
}

// IsLastOne reports whether only one player remains alive.
func IsLastOne(aliveOrder []string) bool {
	return len(aliveOrder) == 1
}

// SingleAliveTeam returns the team shared by every remaining player, or nil
// when the survivors span more than one team or none has a team assigned.
// Entries with a nil team are skipped.
func SingleAliveTeam(teams []*int) *int {
	var winner *int
	for _, t := range teams {
		if t == nil {
			continue
		}
		if winner == nil {
			v := *t
			winner = &v
			continue
		}
		if *winner != *t {
			return nil
		}
	}
	return winner
}
