package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

func keyRoom(id string) string { return "game:room:" + strings.TrimSpace(id) }
func keyLobby() string         { return "game:lobby" }

// keyRounds holds the guesses of one game instance. A restart or a guest
// reset bumps the instance and the active list starts empty.
func keyRounds(id string, instance int) string {
	return fmt.Sprintf("game:room:%s:rounds:%d", strings.TrimSpace(id), instance)
}

func keyEvents(id string) string { return "game:events:" + strings.TrimSpace(id) }

// Store persists rooms and the waiting-lobby index in Redis. Rooms carry no
// TTL; retention is an external concern.
type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) SaveRoom(ctx context.Context, r *Room) error {
	raw, err := encodeRoom(r)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, keyRoom(r.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrStorageUnavailable, err)
	}
	return nil
}

// LoadRoom returns (nil, nil) when the room does not exist.
func (s *Store) LoadRoom(ctx context.Context, id string) (*Room, error) {
	raw, err := s.rdb.Get(ctx, keyRoom(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStorageUnavailable, err)
	}
	return decodeRoom(raw)
}

// ListWaiting returns rooms still accepting a guest, newest first. Entries
// whose room moved on since indexing are skipped and pruned lazily.
func (s *Store) ListWaiting(ctx context.Context) ([]*Room, error) {
	ids, err := s.rdb.SMembers(ctx, keyLobby()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStorageUnavailable, err)
	}
	var out []*Room
	for _, id := range ids {
		r, err := s.LoadRoom(ctx, id)
		if err != nil {
			return nil, err
		}
		if r == nil || r.Status != StatusWaiting {
			_ = s.rdb.SRem(ctx, keyLobby(), id).Err()
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func encodeRoom(r *Room) ([]byte, error) { return json.Marshal(r) }

func encodeRound(rd *Round) ([]byte, error) { return json.Marshal(rd) }

func decodeRoom(raw []byte) (*Room, error) {
	var r Room
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func decodeRound(raw string) (*Round, error) {
	var rd Round
	if err := json.Unmarshal([]byte(raw), &rd); err != nil {
		return nil, err
	}
	return &rd, nil
}
