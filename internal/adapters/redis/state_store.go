package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bft-labs/tripdiary/internal/domain"
)

const (
	fieldState     = "state"
	fieldUpdatedAt = "updated_at"
)

// StateStore implements ports.StateRepository with a Redis hash, so several
// tracker processes (or a tracker and its tooling) can share one state slot.
type StateStore struct {
	client redis.UniversalClient
	key    string
}

// NewStateStore creates a store that keeps its state under key.
func NewStateStore(client redis.UniversalClient, key string) *StateStore {
	return &StateStore{client: client, key: key}
}

// Key returns the Redis key of the state hash.
func (s *StateStore) Key() string {
	return s.key
}

// Load returns the persisted state, or StateStart when the key does not exist.
func (s *StateStore) Load(ctx context.Context) (domain.State, error) {
	v, err := s.client.HGet(ctx, s.key, fieldState).Result()
	if errors.Is(err, redis.Nil) {
		return domain.StateStart, nil
	}
	if err != nil {
		return domain.StateStart, fmt.Errorf("read %s: %w", s.key, err)
	}
	st, err := domain.ParseState(v)
	if err != nil {
		return domain.StateStart, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return st, nil
}

// Save writes the state and its update time in one command.
func (s *StateStore) Save(ctx context.Context, state domain.State) error {
	err := s.client.HSet(ctx, s.key,
		fieldState, state.String(),
		fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("write %s: %w", s.key, err)
	}
	return nil
}

// Ping reports whether the server answers.
func (s *StateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
