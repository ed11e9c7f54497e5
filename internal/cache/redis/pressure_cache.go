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

// pressureTTL is short: pressure folds in live offer/visit counts, so a
// stale read here can hold a property at the wrong level.
const pressureTTL = 2 * time.Minute

// PressureCache implements domain.PressureCache using Redis strings with
// JSON-serialized pressure states.
//
// Key schema:
//
//	pressure:{propertyID} - JSON PressureState
type PressureCache struct {
	rdb *redis.Client
}

// NewPressureCache creates a PressureCache backed by the given Client.
func NewPressureCache(c *Client) *PressureCache {
	return &PressureCache{rdb: c.Underlying()}
}

func pressureKey(propertyID string) string { return "pressure:" + propertyID }

// Set stores a pressure state with a 2-minute TTL.
func (pc *PressureCache) Set(ctx context.Context, p domain.PressureState) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal pressure for %s: %w", p.PropertyID, err)
	}
	if err := pc.rdb.Set(ctx, pressureKey(p.PropertyID), data, pressureTTL).Err(); err != nil {
		return fmt.Errorf("redis: set pressure for %s: %w", p.PropertyID, err)
	}
	return nil
}

// Get retrieves a cached pressure state for a property.
// It returns domain.ErrNotFound when the key does not exist.
func (pc *PressureCache) Get(ctx context.Context, propertyID string) (domain.PressureState, error) {
	data, err := pc.rdb.Get(ctx, pressureKey(propertyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PressureState{}, domain.ErrNotFound
		}
		return domain.PressureState{}, fmt.Errorf("redis: get pressure for %s: %w", propertyID, err)
	}

	var p domain.PressureState
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.PressureState{}, fmt.Errorf("redis: unmarshal pressure for %s: %w", propertyID, err)
	}
	return p, nil
}

// Compile-time interface check.
var _ domain.PressureCache = (*PressureCache)(nil)
