package ephemeral

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Key layout. Match-scoped keys are cleared by ClearMatch; conn and
// lastMatchByUser keys live across matches.
func keyTurn(matchID string) string         { return "turn:" + matchID }
func keyTimeoutOwner(matchID string) string { return "turnTimeout:" + matchID }
func keyMissed(matchID, userID string) string {
	return "missed:" + matchID + ":" + userID
}
func keyReady(matchID string) string { return "ready:" + matchID }
func keyTeams(matchID string) string { return "team:" + matchID }
func keyNuclear(matchID, userID, field string) string {
	return "nuclear:" + matchID + ":" + userID + ":" + field
}
func keyAbandoned(matchID, userID string) string {
	return "abandoned:" + matchID + ":" + userID
}
func keyConn(connID string) string      { return "conn:" + connID }
func keyLastMatch(userID string) string { return "lastMatchByUser:" + userID }

// RedisStore implements Store on a shared redis instance so concurrent
// workers see the same coordination state. Counters use INCR for
// cross-process atomicity.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an already-configured client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) getString(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisStore) hasFlag(ctx context.Context, key string) (bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *RedisStore) SetTurn(ctx context.Context, matchID, userID string) error {
	return s.rdb.Set(ctx, keyTurn(matchID), userID, 0).Err()
}

func (s *RedisStore) GetTurn(ctx context.Context, matchID string) (string, error) {
	return s.getString(ctx, keyTurn(matchID))
}

func (s *RedisStore) ClearTurn(ctx context.Context, matchID string) error {
	return s.rdb.Del(ctx, keyTurn(matchID)).Err()
}

func (s *RedisStore) SetTurnTimeoutOwner(ctx context.Context, matchID, userID string) error {
	return s.rdb.Set(ctx, keyTimeoutOwner(matchID), userID, 0).Err()
}

func (s *RedisStore) GetTurnTimeoutOwner(ctx context.Context, matchID string) (string, error) {
	return s.getString(ctx, keyTimeoutOwner(matchID))
}

func (s *RedisStore) ClearTurnTimeoutOwner(ctx context.Context, matchID string) error {
	return s.rdb.Del(ctx, keyTimeoutOwner(matchID)).Err()
}

func (s *RedisStore) IncrMissed(ctx context.Context, matchID, userID string) (int, error) {
	n, err := s.rdb.Incr(ctx, keyMissed(matchID, userID)).Result()
	return int(n), err
}

func (s *RedisStore) ResetMissed(ctx context.Context, matchID, userID string) error {
	return s.rdb.Del(ctx, keyMissed(matchID, userID)).Err()
}

func (s *RedisStore) MarkReady(ctx context.Context, matchID, connID string) error {
	return s.rdb.SAdd(ctx, keyReady(matchID), connID).Err()
}

func (s *RedisStore) AllReady(ctx context.Context, matchID string) ([]string, error) {
	return s.rdb.SMembers(ctx, keyReady(matchID)).Result()
}

func (s *RedisStore) ClearReady(ctx context.Context, matchID string) error {
	return s.rdb.Del(ctx, keyReady(matchID)).Err()
}

func (s *RedisStore) SetTeam(ctx context.Context, matchID, connID string, team int) error {
	return s.rdb.HSet(ctx, keyTeams(matchID), connID, team).Err()
}

func (s *RedisStore) AllTeams(ctx context.Context, matchID string) (map[string]int, error) {
	raw, err := s.rdb.HGetAll(ctx, keyTeams(matchID)).Result()
	if err != nil {
		return nil, err
	}
	teams := make(map[string]int, len(raw))
	for connID, v := range raw {
		team, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("team entry %s=%q: %w", connID, v, err)
		}
		teams[connID] = team
	}
	return teams, nil
}

func (s *RedisStore) ClearTeams(ctx context.Context, matchID string) error {
	return s.rdb.Del(ctx, keyTeams(matchID)).Err()
}

func (s *RedisStore) IncrNuclearProgress(ctx context.Context, matchID, userID string) (int, error) {
	n, err := s.rdb.Incr(ctx, keyNuclear(matchID, userID, "progress")).Result()
	return int(n), err
}

func (s *RedisStore) GetNuclearProgress(ctx context.Context, matchID, userID string) (int, error) {
	v, err := s.getString(ctx, keyNuclear(matchID, userID, "progress"))
	if err != nil || v == "" {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (s *RedisStore) ResetNuclearProgress(ctx context.Context, matchID, userID string) error {
	return s.rdb.Del(ctx, keyNuclear(matchID, userID, "progress")).Err()
}

func (s *RedisStore) UnlockNuclear(ctx context.Context, matchID, userID string) error {
	return s.rdb.Set(ctx, keyNuclear(matchID, userID, "available"), "1", 0).Err()
}

func (s *RedisStore) HasNuclearAvailable(ctx context.Context, matchID, userID string) (bool, error) {
	return s.hasFlag(ctx, keyNuclear(matchID, userID, "available"))
}

func (s *RedisStore) MarkNuclearUsed(ctx context.Context, matchID, userID string) error {
	return s.rdb.Set(ctx, keyNuclear(matchID, userID, "used"), "1", 0).Err()
}

func (s *RedisStore) HasNuclearUsed(ctx context.Context, matchID, userID string) (bool, error) {
	return s.hasFlag(ctx, keyNuclear(matchID, userID, "used"))
}

func (s *RedisStore) ClearNuclear(ctx context.Context, matchID, userID string) error {
	return s.rdb.Del(ctx,
		keyNuclear(matchID, userID, "progress"),
		keyNuclear(matchID, userID, "available"),
		keyNuclear(matchID, userID, "used"),
	).Err()
}

func (s *RedisStore) MarkAbandoned(ctx context.Context, matchID, userID string) error {
	return s.rdb.Set(ctx, keyAbandoned(matchID, userID), "1", 0).Err()
}

func (s *RedisStore) IsAbandoned(ctx context.Context, matchID, userID string) (bool, error) {
	return s.hasFlag(ctx, keyAbandoned(matchID, userID))
}

func (s *RedisStore) ClearAllAbandoned(ctx context.Context, matchID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, userID := range userIDs {
		keys[i] = keyAbandoned(matchID, userID)
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) SaveConn(ctx context.Context, connID, userID, matchID string) error {
	return s.rdb.HSet(ctx, keyConn(connID), "userId", userID, "matchId", matchID).Err()
}

func (s *RedisStore) GetConn(ctx context.Context, connID string) (ConnBinding, bool, error) {
	raw, err := s.rdb.HGetAll(ctx, keyConn(connID)).Result()
	if err != nil {
		return ConnBinding{}, false, err
	}
	if len(raw) == 0 {
		return ConnBinding{}, false, nil
	}
	return ConnBinding{UserID: raw["userId"], MatchID: raw["matchId"]}, true, nil
}

func (s *RedisStore) DeleteConn(ctx context.Context, connID string) error {
	return s.rdb.Del(ctx, keyConn(connID)).Err()
}

func (s *RedisStore) SetLastMatchByUser(ctx context.Context, userID, matchID string) error {
	return s.rdb.Set(ctx, keyLastMatch(userID), matchID, 0).Err()
}

func (s *RedisStore) GetLastMatchByUser(ctx context.Context, userID string) (string, error) {
	return s.getString(ctx, keyLastMatch(userID))
}
