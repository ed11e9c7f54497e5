package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/engine"
)

func newDynamicsFixture(props map[string]domain.Property) (*DynamicsService, *fakeDynamicsCache) {
	zones := &fakeZoneStore{zones: map[string]domain.Zone{"z1": {ID: "z1"}}}
	cache := newFakeDynamicsCache()
	svc := NewDynamicsService(
		engine.DefaultDynamicsConfig(),
		&fakePropertyStore{properties: props}, zones, cache, testLogger(),
	)
	return svc, cache
}

func TestZoneDynamics(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	closed := now.Add(-5 * 24 * time.Hour)
	props := map[string]domain.Property{
		"a": {ID: "a", ZoneID: "z1", Price: 200000, AreaM2: 100, Status: domain.PropertyActive, ListedAt: now.Add(-80 * 24 * time.Hour)},
		"b": {ID: "b", ZoneID: "z1", Price: 205000, AreaM2: 100, Status: domain.PropertySold, ListedAt: now.Add(-70 * 24 * time.Hour), ClosedAt: &closed},
		"c": {ID: "c", ZoneID: "z1", Price: 210000, AreaM2: 100, Status: domain.PropertyActive, ListedAt: now.Add(-30 * 24 * time.Hour)},
		"d": {ID: "d", ZoneID: "z1", Price: 215000, AreaM2: 100, Status: domain.PropertySold, ListedAt: now.Add(-20 * 24 * time.Hour), ClosedAt: &closed},
		"e": {ID: "e", ZoneID: "z1", Price: 220000, AreaM2: 100, Status: domain.PropertyActive, ListedAt: now.Add(-10 * 24 * time.Hour)},
	}

	t.Run("refresh computes and caches", func(t *testing.T) {
		svc, cache := newDynamicsFixture(props)

		d, err := svc.Refresh(ctx, "z1")
		require.NoError(t, err)
		assert.Equal(t, "z1", d.ZoneID)
		assert.Equal(t, domain.TrendRising, d.PriceTrend)
		assert.Equal(t, 5, d.SampleSize)
		assert.False(t, d.LowConfidence)

		cached, err := cache.Get(ctx, "z1")
		require.NoError(t, err)
		assert.Equal(t, d, cached)
	})

	t.Run("zone serves the cached value when warm", func(t *testing.T) {
		svc, cache := newDynamicsFixture(props)
		warm := domain.ZoneMarketDynamics{ZoneID: "z1", Regime: domain.RegimeHot, AnalyzedAt: now}
		require.NoError(t, cache.Set(ctx, warm))

		d, err := svc.Zone(ctx, "z1")
		require.NoError(t, err)
		assert.Equal(t, domain.RegimeHot, d.Regime)
	})

	t.Run("zone computes on cache miss", func(t *testing.T) {
		svc, _ := newDynamicsFixture(props)

		d, err := svc.Zone(ctx, "z1")
		require.NoError(t, err)
		assert.Equal(t, 5, d.SampleSize)
	})

	t.Run("empty zone is low confidence, not an error", func(t *testing.T) {
		svc, _ := newDynamicsFixture(map[string]domain.Property{})

		d, err := svc.Refresh(ctx, "z1")
		require.NoError(t, err)
		assert.True(t, d.LowConfidence)
		assert.Equal(t, domain.TrendStable, d.PriceTrend)
	})

	t.Run("unknown zone", func(t *testing.T) {
		svc, _ := newDynamicsFixture(props)
		_, err := svc.Refresh(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
