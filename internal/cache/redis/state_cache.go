package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

const stateTTL = 10 * time.Minute

// StateCache implements domain.StateCache using Redis strings with JSON-
// serialized state slices.
//
// Key schema:
//
//	signals:{propertyID} - JSON array of SignalState
type StateCache struct {
	rdb *redis.Client
}

// NewStateCache creates a StateCache backed by the given Client.
func NewStateCache(c *Client) *StateCache {
	return &StateCache{rdb: c.Underlying()}
}

func stateKey(propertyID string) string { return "signals:" + propertyID }

// SetStates stores the full state set for a property with a 10-minute TTL.
// The whole slice is written at once; there is no per-type patching, matching
// the wholesale recompute model.
func (sc *StateCache) SetStates(ctx context.Context, propertyID string, states []domain.SignalState) error {
	data, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("redis: marshal signal states for %s: %w", propertyID, err)
	}
	if err := sc.rdb.Set(ctx, stateKey(propertyID), data, stateTTL).Err(); err != nil {
		return fmt.Errorf("redis: set signal states for %s: %w", propertyID, err)
	}
	return nil
}

// GetStates retrieves the cached state set for a property.
// It returns domain.ErrNotFound when the key does not exist.
func (sc *StateCache) GetStates(ctx context.Context, propertyID string) ([]domain.SignalState, error) {
	data, err := sc.rdb.Get(ctx, stateKey(propertyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get signal states for %s: %w", propertyID, err)
	}

	var states []domain.SignalState
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("redis: unmarshal signal states for %s: %w", propertyID, err)
	}
	return states, nil
}

// Invalidate removes the cached state set for a property.
func (sc *StateCache) Invalidate(ctx context.Context, propertyID string) error {
	if err := sc.rdb.Del(ctx, stateKey(propertyID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate signal states for %s: %w", propertyID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StateCache = (*StateCache)(nil)
