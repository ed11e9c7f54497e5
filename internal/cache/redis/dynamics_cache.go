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

const dynamicsTTL = 30 * time.Minute

// DynamicsCache implements domain.DynamicsCache using Redis strings with
// JSON-serialized dynamics.
//
// Key schema:
//
//	dynamics:{zoneID} - JSON ZoneMarketDynamics
type DynamicsCache struct {
	rdb *redis.Client
}

// NewDynamicsCache creates a DynamicsCache backed by the given Client.
func NewDynamicsCache(c *Client) *DynamicsCache {
	return &DynamicsCache{rdb: c.Underlying()}
}

func dynamicsKey(zoneID string) string { return "dynamics:" + zoneID }

// Set stores zone dynamics with a 30-minute TTL. Zone aggregates move slowly,
// so a longer TTL than the per-property caches is fine.
func (dc *DynamicsCache) Set(ctx context.Context, d domain.ZoneMarketDynamics) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("redis: marshal dynamics for zone %s: %w", d.ZoneID, err)
	}
	if err := dc.rdb.Set(ctx, dynamicsKey(d.ZoneID), data, dynamicsTTL).Err(); err != nil {
		return fmt.Errorf("redis: set dynamics for zone %s: %w", d.ZoneID, err)
	}
	return nil
}

// Get retrieves cached dynamics for a zone.
// It returns domain.ErrNotFound when the key does not exist.
func (dc *DynamicsCache) Get(ctx context.Context, zoneID string) (domain.ZoneMarketDynamics, error) {
	data, err := dc.rdb.Get(ctx, dynamicsKey(zoneID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ZoneMarketDynamics{}, domain.ErrNotFound
		}
		return domain.ZoneMarketDynamics{}, fmt.Errorf("redis: get dynamics for zone %s: %w", zoneID, err)
	}

	var d domain.ZoneMarketDynamics
	if err := json.Unmarshal(data, &d); err != nil {
		return domain.ZoneMarketDynamics{}, fmt.Errorf("redis: unmarshal dynamics for zone %s: %w", zoneID, err)
	}
	return d, nil
}

// Compile-time interface check.
var _ domain.DynamicsCache = (*DynamicsCache)(nil)
