package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"naval-battle-server/game"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	nickname   TEXT NOT NULL DEFAULT '',
	color      TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS matches (
	id             UUID PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	access_code    TEXT NOT NULL DEFAULT '',
	is_public      BOOLEAN NOT NULL DEFAULT true,
	is_matchmaking BOOLEAN NOT NULL DEFAULT false,
	max_players    INT NOT NULL,
	mode           TEXT NOT NULL,
	difficulty     TEXT NOT NULL,
	team_count     INT,
	created_by_id  TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'waiting',
	board          JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
CREATE INDEX IF NOT EXISTS idx_matches_matchmaking ON matches(is_matchmaking, status);
CREATE TABLE IF NOT EXISTS match_players (
	id        UUID PRIMARY KEY,
	match_id  UUID NOT NULL REFERENCES matches(id),
	user_id   TEXT NOT NULL,
	team      INT,
	is_winner BOOLEAN NOT NULL DEFAULT false,
	left_at   TIMESTAMPTZ,
	joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (match_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_match_players_match ON match_players(match_id);
CREATE INDEX IF NOT EXISTS idx_match_players_user ON match_players(user_id);
CREATE TABLE IF NOT EXISTS spectators (
	match_id UUID NOT NULL REFERENCES matches(id),
	user_id  TEXT NOT NULL,
	UNIQUE (match_id, user_id)
);
CREATE TABLE IF NOT EXISTS shots (
	id         UUID PRIMARY KEY,
	match_id   UUID NOT NULL REFERENCES matches(id),
	shooter_id TEXT NOT NULL,
	type       TEXT NOT NULL,
	target_row INT NOT NULL,
	target_col INT NOT NULL,
	hit        BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_shots_match ON shots(match_id);
CREATE TABLE IF NOT EXISTS match_player_stats (
	id                UUID PRIMARY KEY,
	match_id          UUID NOT NULL REFERENCES matches(id),
	user_id           TEXT NOT NULL,
	total_shots       INT NOT NULL,
	successful_shots  INT NOT NULL,
	accuracy          DOUBLE PRECISION NOT NULL,
	ships_sunk        INT NOT NULL,
	was_winner        BOOLEAN NOT NULL,
	turns_taken       INT NOT NULL,
	ships_remaining   INT NOT NULL,
	was_eliminated    BOOLEAN NOT NULL,
	hit_streak        INT NOT NULL,
	last_shot_was_hit BOOLEAN NOT NULL,
	shots_by_type     JSONB NOT NULL DEFAULT '{}',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (match_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_match_player_stats_user ON match_player_stats(user_id);
CREATE TABLE IF NOT EXISTS user_global_stats (
	user_id          TEXT PRIMARY KEY,
	games_played     INT NOT NULL DEFAULT 0,
	games_won        INT NOT NULL DEFAULT 0,
	total_shots      INT NOT NULL DEFAULT 0,
	successful_shots INT NOT NULL DEFAULT 0,
	accuracy         DOUBLE PRECISION NOT NULL DEFAULT 0,
	ships_sunk       INT NOT NULL DEFAULT 0,
	max_hit_streak   INT NOT NULL DEFAULT 0,
	nuclear_used     INT NOT NULL DEFAULT 0,
	last_game_at     TIMESTAMPTZ
);
`

// Postgres persists durable match state.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to Postgres and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func encodeBoard(board *game.Board) ([]byte, error) {
	if board == nil {
		return nil, nil
	}
	return board.Encode()
}

func (s *Postgres) CreateWithCreator(ctx context.Context, m *Match) error {
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO matches (id, name, access_code, is_public, is_matchmaking, max_players, mode, difficulty, team_count, created_by_id, status, board, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.Name, m.AccessCode, m.IsPublic, m.IsMatchmaking, m.MaxPlayers, m.Mode, m.Difficulty, m.TeamCount, m.CreatedByID, m.Status, boardJSON, m.CreatedAt)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO match_players (id, match_id, user_id, joined_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), m.ID, m.CreatedByID, m.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FindOrCreateMatch returns a joinable public matchmaking match with the
// template's mode and difficulty, or creates one from the template.
func (s *Postgres) FindOrCreateMatch(ctx context.Context, template *Match) (*Match, error) {
	var matchID string
	err := s.pool.QueryRow(ctx, `
		SELECT m.id FROM matches m
		WHERE m.status = 'waiting' AND m.is_matchmaking AND m.is_public
			AND m.mode = $1 AND m.difficulty = $2
			AND (SELECT COUNT(*) FROM match_players mp WHERE mp.match_id = m.id AND mp.left_at IS NULL) < m.max_players
		ORDER BY m.created_at
		LIMIT 1`,
		template.Mode, template.Difficulty).Scan(&matchID)
	if err == nil {
		return s.FindByID(ctx, matchID, LoadOptions{WithPlayers: true})
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	created := *template
	created.IsMatchmaking = true
	created.IsPublic = true
	if err := s.CreateWithCreator(ctx, &created); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, created.ID, LoadOptions{WithPlayers: true})
}

// FindByID loads a match, or (nil, nil) when it does not exist.
func (s *Postgres) FindByID(ctx context.Context, matchID string, opts LoadOptions) (*Match, error) {
	var m Match
	var boardJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, access_code, is_public, is_matchmaking, max_players, mode, difficulty, team_count, created_by_id, status, board, created_at
		FROM matches WHERE id = $1`,
		matchID).Scan(&m.ID, &m.Name, &m.AccessCode, &m.IsPublic, &m.IsMatchmaking, &m.MaxPlayers, &m.Mode, &m.Difficulty, &m.TeamCount, &m.CreatedByID, &m.Status, &boardJSON, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if boardJSON != nil {
		board, err := game.DecodeBoard(boardJSON)
		if err != nil {
			return nil, err
		}
		m.Board = board
	}

	if opts.WithPlayers {
		players, err := s.loadPlayers(ctx, matchID, opts.WithUsers)
		if err != nil {
			return nil, err
		}
		m.Players = players
	}
	if opts.WithSpectators {
		spectators, err := s.loadSpectators(ctx, matchID)
		if err != nil {
			return nil, err
		}
		m.Spectators = spectators
	}
	return &m, nil
}

// loadPlayers returns players in join order. Elimination sweeps and the
// turn rotation both rely on this ordering being stable.
func (s *Postgres) loadPlayers(ctx context.Context, matchID string, withUsers bool) ([]MatchPlayer, error) {
	query := `
		SELECT mp.id, mp.match_id, mp.user_id, mp.team, mp.is_winner, mp.left_at, mp.joined_at, '', ''
		FROM match_players mp
		WHERE mp.match_id = $1
		ORDER BY mp.joined_at, mp.id`
	if withUsers {
		query = `
		SELECT mp.id, mp.match_id, mp.user_id, mp.team, mp.is_winner, mp.left_at, mp.joined_at,
			COALESCE(u.nickname, ''), COALESCE(u.color, '')
		FROM match_players mp
		LEFT JOIN users u ON u.id = mp.user_id
		WHERE mp.match_id = $1
		ORDER BY mp.joined_at, mp.id`
	}
	rows, err := s.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchPlayer
	for rows.Next() {
		var p MatchPlayer
		var nickname, color string
		if err := rows.Scan(&p.ID, &p.MatchID, &p.UserID, &p.Team, &p.IsWinner, &p.LeftAt, &p.JoinedAt, &nickname, &color); err != nil {
			return nil, err
		}
		if withUsers {
			p.User = &User{ID: p.UserID, Nickname: nickname, Color: color}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) loadSpectators(ctx context.Context, matchID string) ([]Spectator, error) {
	rows, err := s.pool.Query(ctx, `SELECT match_id, user_id FROM spectators WHERE match_id = $1`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Spectator
	for rows.Next() {
		var sp Spectator
		if err := rows.Scan(&sp.MatchID, &sp.UserID); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateCreator(ctx context.Context, matchID, newCreatorID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE matches SET created_by_id = $2 WHERE id = $1`, matchID, newCreatorID)
	return err
}

// UpdateStartBoard stores the generated board and flips the match to
// in_progress in one statement.
func (s *Postgres) UpdateStartBoard(ctx context.Context, matchID string, board *game.Board) error {
	boardJSON, err := encodeBoard(board)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `UPDATE matches SET status = 'in_progress', board = $2 WHERE id = $1`, matchID, boardJSON)
	return err
}

func (s *Postgres) UpdateBoard(ctx context.Context, matchID string, board *game.Board) error {
	boardJSON, err := encodeBoard(board)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `UPDATE matches SET board = $2 WHERE id = $1`, matchID, boardJSON)
	return err
}

func (s *Postgres) MarkFinished(ctx context.Context, matchID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE matches SET status = 'finished' WHERE id = $1`, matchID)
	return err
}

// RemoveAbandoned deletes the match and its dependents atomically:
// shots, spectators, players, then the match row.
func (s *Postgres) RemoveAbandoned(ctx context.Context, matchID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		`DELETE FROM shots WHERE match_id = $1`,
		`DELETE FROM spectators WHERE match_id = $1`,
		`DELETE FROM match_player_stats WHERE match_id = $1`,
		`DELETE FROM match_players WHERE match_id = $1`,
		`DELETE FROM matches WHERE id = $1`,
	} {
		if _, err := tx.Exec(ctx, stmt, matchID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Postgres) AddPlayer(ctx context.Context, matchID, userID string) (*MatchPlayer, error) {
	p := &MatchPlayer{
		ID:       uuid.NewString(),
		MatchID:  matchID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO match_players (id, match_id, user_id, joined_at)
		VALUES ($1, $2, $3, $4)`,
		p.ID, p.MatchID, p.UserID, p.JoinedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Postgres) RemovePlayer(ctx context.Context, matchID, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM match_players WHERE match_id = $1 AND user_id = $2`, matchID, userID)
	return err
}

func (s *Postgres) AssignTeam(ctx context.Context, matchID, userID string, team int) error {
	_, err := s.pool.Exec(ctx, `UPDATE match_players SET team = $3 WHERE match_id = $1 AND user_id = $2`, matchID, userID, team)
	return err
}

func (s *Postgres) MarkDefeatedByUser(ctx context.Context, matchID, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE match_players SET left_at = now()
		WHERE match_id = $1 AND user_id = $2 AND left_at IS NULL`,
		matchID, userID)
	return err
}

func (s *Postgres) MarkDefeatedByID(ctx context.Context, playerID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE match_players SET left_at = now() WHERE id = $1 AND left_at IS NULL`, playerID)
	return err
}

func (s *Postgres) MarkWinner(ctx context.Context, matchID, userID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE match_players SET is_winner = true WHERE match_id = $1 AND user_id = $2`, matchID, userID)
	return err
}

func (s *Postgres) MarkTeamPlayersAsWinners(ctx context.Context, matchID string, team int) error {
	_, err := s.pool.Exec(ctx, `UPDATE match_players SET is_winner = true WHERE match_id = $1 AND team = $2`, matchID, team)
	return err
}

func (s *Postgres) RegisterShot(ctx context.Context, matchID, shooterID string, shotType game.ShotType, row, col int, hit bool) (*Shot, error) {
	shot := &Shot{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		ShooterID: shooterID,
		Type:      shotType,
		TargetRow: row,
		TargetCol: col,
		Hit:       hit,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO shots (id, match_id, shooter_id, type, target_row, target_col, hit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		shot.ID, shot.MatchID, shot.ShooterID, shot.Type, shot.TargetRow, shot.TargetCol, shot.Hit, shot.CreatedAt)
	if err != nil {
		return nil, err
	}
	return shot, nil
}

func (s *Postgres) AddSpectator(ctx context.Context, matchID, userID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO spectators (match_id, user_id) VALUES ($1, $2)
		ON CONFLICT (match_id, user_id) DO NOTHING`,
		matchID, userID)
	return err
}

func (s *Postgres) FindSpectator(ctx context.Context, matchID, userID string) (*Spectator, error) {
	var sp Spectator
	err := s.pool.QueryRow(ctx, `SELECT match_id, user_id FROM spectators WHERE match_id = $1 AND user_id = $2`, matchID, userID).
		Scan(&sp.MatchID, &sp.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sp, nil
}

func (s *Postgres) UpsertUser(ctx context.Context, u User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, nickname, color) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET nickname = $2, color = $3, updated_at = now()`,
		u.ID, u.Nickname, u.Color)
	return err
}

func (s *Postgres) FindUser(ctx context.Context, userID string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `SELECT id, nickname, color FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Nickname, &u.Color)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) SaveManyStats(ctx context.Context, matchID string, stats []game.PlayerStats) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, stat := range stats {
		byType, err := json.Marshal(stat.ShotsByType)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO match_player_stats (id, match_id, user_id, total_shots, successful_shots, accuracy, ships_sunk, was_winner, turns_taken, ships_remaining, was_eliminated, hit_streak, last_shot_was_hit, shots_by_type)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (match_id, user_id) DO NOTHING`,
			uuid.NewString(), matchID, stat.UserID, stat.TotalShots, stat.SuccessfulShots, stat.Accuracy, stat.ShipsSunk, stat.WasWinner, stat.TurnsTaken, stat.ShipsRemaining, stat.WasEliminated, stat.HitStreak, stat.LastShotWasHit, byType)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const statsColumns = `id, match_id, user_id, total_shots, successful_shots, accuracy, ships_sunk, was_winner, turns_taken, ships_remaining, was_eliminated, hit_streak, last_shot_was_hit, shots_by_type, created_at`

func scanStats(row pgx.Row) (MatchPlayerStats, error) {
	var st MatchPlayerStats
	var byType []byte
	err := row.Scan(&st.ID, &st.MatchID, &st.UserID, &st.TotalShots, &st.SuccessfulShots, &st.Accuracy, &st.ShipsSunk, &st.WasWinner, &st.TurnsTaken, &st.ShipsRemaining, &st.WasEliminated, &st.HitStreak, &st.LastShotWasHit, &byType, &st.CreatedAt)
	if err != nil {
		return st, err
	}
	if len(byType) > 0 {
		if err := json.Unmarshal(byType, &st.ShotsByType); err != nil {
			return st, err
		}
	}
	return st, nil
}

func (s *Postgres) FindStatsByMatchID(ctx context.Context, matchID string) ([]MatchPlayerStats, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+statsColumns+` FROM match_player_stats WHERE match_id = $1 ORDER BY created_at, id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchPlayerStats
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Postgres) FindStatsByUserIDWithMatch(ctx context.Context, userID string) ([]StatsWithMatch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT st.id, st.match_id, st.user_id, st.total_shots, st.successful_shots, st.accuracy, st.ships_sunk, st.was_winner, st.turns_taken, st.ships_remaining, st.was_eliminated, st.hit_streak, st.last_shot_was_hit, st.shots_by_type, st.created_at,
			m.id, m.name, m.mode, m.difficulty, m.status, m.created_at
		FROM match_player_stats st
		JOIN matches m ON m.id = st.match_id
		WHERE st.user_id = $1
		ORDER BY st.created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatsWithMatch
	for rows.Next() {
		var sm StatsWithMatch
		var byType []byte
		err := rows.Scan(&sm.ID, &sm.MatchID, &sm.UserID, &sm.TotalShots, &sm.SuccessfulShots, &sm.Accuracy, &sm.ShipsSunk, &sm.WasWinner, &sm.TurnsTaken, &sm.ShipsRemaining, &sm.WasEliminated, &sm.HitStreak, &sm.LastShotWasHit, &byType, &sm.CreatedAt,
			&sm.Match.ID, &sm.Match.Name, &sm.Match.Mode, &sm.Match.Difficulty, &sm.Match.Status, &sm.Match.CreatedAt)
		if err != nil {
			return nil, err
		}
		if len(byType) > 0 {
			if err := json.Unmarshal(byType, &sm.ShotsByType); err != nil {
				return nil, err
			}
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *Postgres) FindGlobalStats(ctx context.Context, userID string) (*UserGlobalStats, error) {
	var g UserGlobalStats
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, games_played, games_won, total_shots, successful_shots, accuracy, ships_sunk, max_hit_streak, nuclear_used, last_game_at
		FROM user_global_stats WHERE user_id = $1`,
		userID).Scan(&g.UserID, &g.GamesPlayed, &g.GamesWon, &g.TotalShots, &g.SuccessfulShots, &g.Accuracy, &g.ShipsSunk, &g.MaxHitStreak, &g.NuclearUsed, &g.LastGameAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

// UpsertFromMatchStats folds one match's stats into the user's aggregate
// inside a transaction: counters are added, accuracy is recomputed over the
// new totals, the best hit streak is kept.
func (s *Postgres) UpsertFromMatchStats(ctx context.Context, stat game.PlayerStats) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO user_global_stats (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`,
		stat.UserID)
	if err != nil {
		return err
	}

	var g UserGlobalStats
	err = tx.QueryRow(ctx, `
		SELECT games_played, games_won, total_shots, successful_shots, ships_sunk, max_hit_streak, nuclear_used
		FROM user_global_stats WHERE user_id = $1`,
		stat.UserID).Scan(&g.GamesPlayed, &g.GamesWon, &g.TotalShots, &g.SuccessfulShots, &g.ShipsSunk, &g.MaxHitStreak, &g.NuclearUsed)
	if err != nil {
		return err
	}

	merged := mergeGlobalStats(g, stat)
	_, err = tx.Exec(ctx, `
		UPDATE user_global_stats
		SET games_played = $2, games_won = $3, total_shots = $4, successful_shots = $5, accuracy = $6, ships_sunk = $7, max_hit_streak = $8, nuclear_used = $9, last_game_at = now()
		WHERE user_id = $1`,
		stat.UserID, merged.GamesPlayed, merged.GamesWon, merged.TotalShots, merged.SuccessfulShots, merged.Accuracy, merged.ShipsSunk, merged.MaxHitStreak, merged.NuclearUsed)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// mergeGlobalStats applies one match result to the running aggregate.
func mergeGlobalStats(g UserGlobalStats, stat game.PlayerStats) UserGlobalStats {
	g.GamesPlayed++
	if stat.WasWinner {
		g.GamesWon++
	}
	g.TotalShots += stat.TotalShots
	g.SuccessfulShots += stat.SuccessfulShots
	if g.TotalShots > 0 {
		g.Accuracy = math.Round(float64(g.SuccessfulShots)/float64(g.TotalShots)*10000) / 100
	}
	g.ShipsSunk += stat.ShipsSunk
	if stat.HitStreak > g.MaxHitStreak {
		g.MaxHitStreak = stat.HitStreak
	}
	g.NuclearUsed += stat.ShotsByType[game.ShotNuclear]
	return g
}
