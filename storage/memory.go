package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"naval-battle-server/game"
)

// Memory implements Repository with in-process maps. It keeps boards in
// their encoded form so every read decodes a fresh copy, the same isolation
// callers get from Postgres.
type Memory struct {
	mu           sync.RWMutex
	matches      map[string]*memMatch
	users        map[string]User
	statsByMatch map[string][]MatchPlayerStats
	globalStats  map[string]UserGlobalStats
}

type memMatch struct {
	row        Match
	boardJSON  []byte
	players    []MatchPlayer
	spectators []Spectator
	shots      []Shot
}

// NewMemory returns an empty repository.
func NewMemory() *Memory {
	return &Memory{
		matches:      make(map[string]*memMatch),
		users:        make(map[string]User),
		statsByMatch: make(map[string][]MatchPlayerStats),
		globalStats:  make(map[string]UserGlobalStats),
	}
}

// Close implements Repository.
func (s *Memory) Close() {}

func (s *Memory) CreateWithCreator(_ context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Status == "" {
		m.Status = StatusWaiting
	}
	boardJSON, err := encodeBoard(m.Board)
	if err != nil {
		return err
	}

	row := *m
	row.Board = nil
	row.Players = nil
	row.Spectators = nil
	s.matches[m.ID] = &memMatch{
		row:       row,
		boardJSON: boardJSON,
		players: []MatchPlayer{{
			ID:       uuid.NewString(),
			MatchID:  m.ID,
			UserID:   m.CreatedByID,
			JoinedAt: m.CreatedAt,
		}},
	}
	return nil
}

func (s *Memory) FindOrCreateMatch(ctx context.Context, template *Match) (*Match, error) {
	s.mu.Lock()
	var candidates []*memMatch
	for _, mm := range s.matches {
		if mm.row.Status != StatusWaiting || !mm.row.IsMatchmaking || !mm.row.IsPublic {
			continue
		}
		if mm.row.Mode != template.Mode || mm.row.Difficulty != template.Difficulty {
			continue
		}
		alive := 0
		for _, p := range mm.players {
			if p.Alive() {
				alive++
			}
		}
		if alive < mm.row.MaxPlayers {
			candidates = append(candidates, mm)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].row.CreatedAt.Before(candidates[j].row.CreatedAt)
	})
	s.mu.Unlock()

	if len(candidates) > 0 {
		return s.FindByID(ctx, candidates[0].row.ID, LoadOptions{WithPlayers: true})
	}
	created := *template
	created.IsMatchmaking = true
	created.IsPublic = true
	if err := s.CreateWithCreator(ctx, &created); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, created.ID, LoadOptions{WithPlayers: true})
}

func (s *Memory) FindByID(_ context.Context, matchID string, opts LoadOptions) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mm, ok := s.matches[matchID]
	if !ok {
		return nil, nil
	}
	m := mm.row
	if mm.boardJSON != nil {
		board, err := game.DecodeBoard(mm.boardJSON)
		if err != nil {
			return nil, err
		}
		m.Board = board
	}
	if opts.WithPlayers {
		m.Players = make([]MatchPlayer, len(mm.players))
		copy(m.Players, mm.players)
		if opts.WithUsers {
			for i := range m.Players {
				if u, ok := s.users[m.Players[i].UserID]; ok {
					user := u
					m.Players[i].User = &user
				} else {
					m.Players[i].User = &User{ID: m.Players[i].UserID}
				}
			}
		}
	}
	if opts.WithSpectators {
		m.Spectators = make([]Spectator, len(mm.spectators))
		copy(m.Spectators, mm.spectators)
	}
	return &m, nil
}

func (s *Memory) UpdateCreator(_ context.Context, matchID, newCreatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mm, ok := s.matches[matchID]; ok {
		mm.row.CreatedByID = newCreatorID
	}
	return nil
}

func (s *Memory) UpdateStartBoard(_ context.Context, matchID string, board *game.Board) error {
	boardJSON, err := encodeBoard(board)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if mm, ok := s.matches[matchID]; ok {
		mm.row.Status = StatusInProgress
		mm.boardJSON = boardJSON
	}
	return nil
}

func (s *Memory) UpdateBoard(_ context.Context, matchID string, board *game.Board) error {
	boardJSON, err := encodeBoard(board)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if mm, ok := s.matches[matchID]; ok {
		mm.boardJSON = boardJSON
	}
	return nil
}

func (s *Memory) MarkFinished(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mm, ok := s.matches[matchID]; ok {
		mm.row.Status = StatusFinished
	}
	return nil
}

func (s *Memory) RemoveAbandoned(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, matchID)
	delete(s.statsByMatch, matchID)
	return nil
}

func (s *Memory) AddPlayer(_ context.Context, matchID, userID string) (*MatchPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mm, ok := s.matches[matchID]
	if !ok {
		return nil, nil
	}
	p := MatchPlayer{
		ID:       uuid.NewString(),
		MatchID:  matchID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	mm.players = append(mm.players, p)
	return &p, nil
}

func (s *Memory) RemovePlayer(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mm, ok := s.matches[matchID]
	if !ok {
		return nil
	}
	kept := mm.players[:0]
	for _, p := range mm.players {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	mm.players = kept
	return nil
}

func (s *Memory) AssignTeam(_ context.Context, matchID, userID string, team int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mm, ok := s.matches[matchID]; ok {
		for i := range mm.players {
			if mm.players[i].UserID == userID {
				t := team
				mm.players[i].Team = &t
			}
		}
	}
	return nil
}

func (s *Memory) MarkDefeatedByUser(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mm, ok := s.matches[matchID]; ok {
		for i := range mm.players {
			if mm.players[i].UserID == userID && mm.players[i].LeftAt == nil {
				now := time.Now().UTC()
				mm.players[i].LeftAt = &now
			}
		}
	}
	return nil
}

func (s *Memory) MarkDefeatedByID(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, mm := range s.matches {
		for i := range mm.players {
			if mm.players[i].ID == playerID && mm.players[i].LeftAt == nil {
				now := time.Now().UTC()
				mm.players[i].LeftAt = &now
			}
		}
	}
	return nil
}

func (s *Memory) MarkWinner(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mm, ok := s.matches[matchID]; ok {
		for i := range mm.players {
			if mm.players[i].UserID == userID {
				mm.players[i].IsWinner = true
			}
		}
	}
	return nil
}

func (s *Memory) MarkTeamPlayersAsWinners(_ context.Context, matchID string, team int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mm, ok := s.matches[matchID]; ok {
		for i := range mm.players {
			if mm.players[i].Team != nil && *mm.players[i].Team == team {
				mm.players[i].IsWinner = true
			}
		}
	}
	return nil
}

func (s *Memory) RegisterShot(_ context.Context, matchID, shooterID string, shotType game.ShotType, row, col int, hit bool) (*Shot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shot := Shot{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		ShooterID: shooterID,
		Type:      shotType,
		TargetRow: row,
		TargetCol: col,
		Hit:       hit,
		CreatedAt: time.Now().UTC(),
	}
	if mm, ok := s.matches[matchID]; ok {
		mm.shots = append(mm.shots, shot)
	}
	return &shot, nil
}

func (s *Memory) AddSpectator(_ context.Context, matchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mm, ok := s.matches[matchID]
	if !ok {
		return nil
	}
	for _, sp := range mm.spectators {
		if sp.UserID == userID {
			return nil
		}
	}
	mm.spectators = append(mm.spectators, Spectator{MatchID: matchID, UserID: userID})
	return nil
}

func (s *Memory) FindSpectator(_ context.Context, matchID, userID string) (*Spectator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if mm, ok := s.matches[matchID]; ok {
		for _, sp := range mm.spectators {
			if sp.UserID == userID {
				found := sp
				return &found, nil
			}
		}
	}
	return nil, nil
}

func (s *Memory) UpsertUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *Memory) FindUser(_ context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		found := u
		return &found, nil
	}
	return nil, nil
}

func (s *Memory) SaveManyStats(_ context.Context, matchID string, stats []game.PlayerStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool)
	for _, st := range s.statsByMatch[matchID] {
		existing[st.UserID] = true
	}
	for _, stat := range stats {
		if existing[stat.UserID] {
			continue
		}
		byType := make(map[game.ShotType]int, len(stat.ShotsByType))
		for k, v := range stat.ShotsByType {
			byType[k] = v
		}
		s.statsByMatch[matchID] = append(s.statsByMatch[matchID], MatchPlayerStats{
			ID:              uuid.NewString(),
			MatchID:         matchID,
			UserID:          stat.UserID,
			TotalShots:      stat.TotalShots,
			SuccessfulShots: stat.SuccessfulShots,
			Accuracy:        stat.Accuracy,
			ShipsSunk:       stat.ShipsSunk,
			WasWinner:       stat.WasWinner,
			TurnsTaken:      stat.TurnsTaken,
			ShipsRemaining:  stat.ShipsRemaining,
			WasEliminated:   stat.WasEliminated,
			HitStreak:       stat.HitStreak,
			LastShotWasHit:  stat.LastShotWasHit,
			ShotsByType:     byType,
			CreatedAt:       time.Now().UTC(),
		})
	}
	return nil
}

func (s *Memory) FindStatsByMatchID(_ context.Context, matchID string) ([]MatchPlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]MatchPlayerStats, len(s.statsByMatch[matchID]))
	copy(out, s.statsByMatch[matchID])
	return out, nil
}

func (s *Memory) FindStatsByUserIDWithMatch(_ context.Context, userID string) ([]StatsWithMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []StatsWithMatch
	for matchID, stats := range s.statsByMatch {
		mm, ok := s.matches[matchID]
		if !ok {
			continue
		}
		for _, st := range stats {
			if st.UserID != userID {
				continue
			}
			out = append(out, StatsWithMatch{
				MatchPlayerStats: st,
				Match: MatchSummary{
					ID:         mm.row.ID,
					Name:       mm.row.Name,
					Mode:       mm.row.Mode,
					Difficulty: mm.row.Difficulty,
					Status:     mm.row.Status,
					CreatedAt:  mm.row.CreatedAt,
				},
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Memory) FindGlobalStats(_ context.Context, userID string) (*UserGlobalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g, ok := s.globalStats[userID]; ok {
		found := g
		return &found, nil
	}
	return nil, nil
}

func (s *Memory) UpsertFromMatchStats(_ context.Context, stat game.PlayerStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.globalStats[stat.UserID]
	if !ok {
		g = UserGlobalStats{UserID: stat.UserID}
	}
	merged := mergeGlobalStats(g, stat)
	now := time.Now().UTC()
	merged.LastGameAt = &now
	s.globalStats[stat.UserID] = merged
	return nil
}
