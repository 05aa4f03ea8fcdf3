package ephemeral

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// MemoryStore implements Store with in-process maps. Used when no redis URL
// is configured (single-instance deployments) and by tests.
type MemoryStore struct {
	mu               sync.RWMutex
	turns            map[string]string
	timeoutOwners    map[string]string
	missed           map[string]int
	ready            map[string]map[string]bool
	teams            map[string]map[string]int
	nuclearProgress  map[string]int
	nuclearAvailable map[string]bool
	nuclearUsed      map[string]bool
	abandoned        map[string]bool
	conns            map[string]ConnBinding
	lastMatch        map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		turns:            make(map[string]string),
		timeoutOwners:    make(map[string]string),
		missed:           make(map[string]int),
		ready:            make(map[string]map[string]bool),
		teams:            make(map[string]map[string]int),
		nuclearProgress:  make(map[string]int),
		nuclearAvailable: make(map[string]bool),
		nuclearUsed:      make(map[string]bool),
		abandoned:        make(map[string]bool),
		conns:            make(map[string]ConnBinding),
		lastMatch:        make(map[string]string),
	}
}

func userKey(matchID, userID string) string {
	return matchID + ":" + userID
}

func (s *MemoryStore) SetTurn(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("DEBUG SetTurn %s=%s\n%s\n", matchID, userID, debug.Stack())
	s.turns[matchID] = userID
	return nil
}

func (s *MemoryStore) GetTurn(_ context.Context, matchID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turns[matchID], nil
}

func (s *MemoryStore) ClearTurn(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("DEBUG ClearTurn %s\n%s\n", matchID, debug.Stack())
	delete(s.turns, matchID)
	return nil
}

func (s *MemoryStore) SetTurnTimeoutOwner(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeoutOwners[matchID] = userID
	return nil
}

func (s *MemoryStore) GetTurnTimeoutOwner(_ context.Context, matchID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeoutOwners[matchID], nil
}

func (s *MemoryStore) ClearTurnTimeoutOwner(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timeoutOwners, matchID)
	return nil
}

func (s *MemoryStore) IncrMissed(_ context.Context, matchID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := userKey(matchID, userID)
	s.missed[k]++
	return s.missed[k], nil
}

func (s *MemoryStore) ResetMissed(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.missed, userKey(matchID, userID))
	return nil
}

func (s *MemoryStore) MarkReady(_ context.Context, matchID, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready[matchID] == nil {
		s.ready[matchID] = make(map[string]bool)
	}
	s.ready[matchID][connID] = true
	return nil
}

func (s *MemoryStore) AllReady(_ context.Context, matchID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ready[matchID]))
	for connID := range s.ready[matchID] {
		out = append(out, connID)
	}
	return out, nil
}

func (s *MemoryStore) ClearReady(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ready, matchID)
	return nil
}

func (s *MemoryStore) SetTeam(_ context.Context, matchID, connID string, team int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teams[matchID] == nil {
		s.teams[matchID] = make(map[string]int)
	}
	s.teams[matchID][connID] = team
	return nil
}

func (s *MemoryStore) AllTeams(_ context.Context, matchID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.teams[matchID]))
	for connID, team := range s.teams[matchID] {
		out[connID] = team
	}
	return out, nil
}

func (s *MemoryStore) ClearTeams(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.teams, matchID)
	return nil
}

func (s *MemoryStore) IncrNuclearProgress(_ context.Context, matchID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := userKey(matchID, userID)
	s.nuclearProgress[k]++
	return s.nuclearProgress[k], nil
}

func (s *MemoryStore) GetNuclearProgress(_ context.Context, matchID, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nuclearProgress[userKey(matchID, userID)], nil
}

func (s *MemoryStore) ResetNuclearProgress(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nuclearProgress, userKey(matchID, userID))
	return nil
}

func (s *MemoryStore) UnlockNuclear(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nuclearAvailable[userKey(matchID, userID)] = true
	return nil
}

func (s *MemoryStore) HasNuclearAvailable(_ context.Context, matchID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nuclearAvailable[userKey(matchID, userID)], nil
}

func (s *MemoryStore) MarkNuclearUsed(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nuclearUsed[userKey(matchID, userID)] = true
	return nil
}

func (s *MemoryStore) HasNuclearUsed(_ context.Context, matchID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nuclearUsed[userKey(matchID, userID)], nil
}

func (s *MemoryStore) ClearNuclear(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := userKey(matchID, userID)
	delete(s.nuclearProgress, k)
	delete(s.nuclearAvailable, k)
	delete(s.nuclearUsed, k)
	return nil
}

func (s *MemoryStore) MarkAbandoned(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandoned[userKey(matchID, userID)] = true
	return nil
}

func (s *MemoryStore) IsAbandoned(_ context.Context, matchID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.abandoned[userKey(matchID, userID)], nil
}

func (s *MemoryStore) ClearAllAbandoned(_ context.Context, matchID string, userIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, userID := range userIDs {
		delete(s.abandoned, userKey(matchID, userID))
	}
	return nil
}

func (s *MemoryStore) SaveConn(_ context.Context, connID, userID, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[connID] = ConnBinding{UserID: userID, MatchID: matchID}
	return nil
}

func (s *MemoryStore) GetConn(_ context.Context, connID string) (ConnBinding, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.conns[connID]
	return b, ok, nil
}

func (s *MemoryStore) DeleteConn(_ context.Context, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
	return nil
}

func (s *MemoryStore) SetLastMatchByUser(_ context.Context, userID, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMatch[userID] = matchID
	return nil
}

func (s *MemoryStore) GetLastMatchByUser(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMatch[userID], nil
}
