package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

func listing(id string, price, area float64, listed time.Time) domain.Property {
	return domain.Property{ID: id, ZoneID: "z1", Price: price, AreaM2: area, Status: domain.PropertyActive, ListedAt: listed}
}

func TestFairPriceEstimate(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	subject := listing("subject", 260000, 100, now)

	t.Run("median price per square meter times subject area", func(t *testing.T) {
		pool := []domain.Property{
			listing("c1", 240000, 100, now), // 2400/m2
			listing("c2", 250000, 100, now), // 2500/m2
			listing("c3", 290000, 100, now), // 2900/m2
		}
		est, err := FairPriceEstimate(subject, pool)
		require.NoError(t, err)
		assert.InDelta(t, 250000, est, 1e-9)
	})

	t.Run("outlier does not drag the median", func(t *testing.T) {
		pool := []domain.Property{
			listing("c1", 240000, 100, now),
			listing("c2", 250000, 100, now),
			listing("c3", 2500000, 100, now),
		}
		est, err := FairPriceEstimate(subject, pool)
		require.NoError(t, err)
		assert.InDelta(t, 250000, est, 1e-9)
	})

	t.Run("subject excluded from its own pool", func(t *testing.T) {
		pool := []domain.Property{
			subject,
			listing("c1", 250000, 100, now),
		}
		est, err := FairPriceEstimate(subject, pool)
		require.NoError(t, err)
		assert.InDelta(t, 250000, est, 1e-9)
	})

	t.Run("falls back to median price when areas are unknown", func(t *testing.T) {
		pool := []domain.Property{
			listing("c1", 200000, 0, now),
			listing("c2", 250000, 0, now),
			listing("c3", 300000, 0, now),
		}
		est, err := FairPriceEstimate(subject, pool)
		require.NoError(t, err)
		assert.InDelta(t, 250000, est, 1e-9)
	})

	t.Run("empty pool is a computation error", func(t *testing.T) {
		_, err := FairPriceEstimate(subject, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrComputation)
	})

	t.Run("zero-priced comparables are skipped", func(t *testing.T) {
		pool := []domain.Property{listing("c1", 0, 100, now)}
		_, err := FairPriceEstimate(subject, pool)
		assert.ErrorIs(t, err, domain.ErrComputation)
	})
}

func TestAssessFairness(t *testing.T) {
	cfg := DefaultFairnessConfig()
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	pool := make([]domain.Property, 0, 6)
	for i := 0; i < 6; i++ {
		pool = append(pool, listing("c"+string(rune('1'+i)), 250000, 100, now.Add(-24*time.Hour)))
	}

	t.Run("offer at ninety five percent of estimate is justa", func(t *testing.T) {
		offer := domain.Offer{ID: "o1", PropertyID: "p1", Amount: 237500, Status: domain.OfferPending}
		a, err := AssessFairness(cfg, offer, 250000, domain.ScopeZone, pool, now)
		require.NoError(t, err)

		assert.InDelta(t, 0.95, a.Ratio, 1e-12)
		assert.Equal(t, domain.BadgeJusta, a.Badge)
		assert.InDelta(t, -12500, a.Difference, 1e-9)
		assert.InDelta(t, -5.0, a.DifferencePercent, 1e-9)
		assert.False(t, a.LowConfidence)
	})

	t.Run("non-positive estimate is a computation error", func(t *testing.T) {
		offer := domain.Offer{ID: "o1", Amount: 100000}
		_, err := AssessFairness(cfg, offer, 0, domain.ScopeZone, pool, now)
		assert.ErrorIs(t, err, domain.ErrComputation)
	})

	t.Run("sparse pool flags low confidence", func(t *testing.T) {
		offer := domain.Offer{ID: "o1", Amount: 250000}
		a, err := AssessFairness(cfg, offer, 250000, domain.ScopeZone, pool[:2], now)
		require.NoError(t, err)
		assert.True(t, a.LowConfidence)
		assert.Equal(t, 2, a.ComparableCount)
	})

	t.Run("fallback scope lowers confidence versus zone scope", func(t *testing.T) {
		offer := domain.Offer{ID: "o1", Amount: 250000}
		zone, err := AssessFairness(cfg, offer, 250000, domain.ScopeZone, pool, now)
		require.NoError(t, err)
		fallback, err := AssessFairness(cfg, offer, 250000, domain.ScopeFallback, pool, now)
		require.NoError(t, err)
		assert.Less(t, fallback.Confidence, zone.Confidence)
	})

	t.Run("stale comparables lower confidence", func(t *testing.T) {
		offer := domain.Offer{ID: "o1", Amount: 250000}
		stale := make([]domain.Property, len(pool))
		copy(stale, pool)
		for i := range stale {
			stale[i].ListedAt = now.Add(-400 * 24 * time.Hour)
		}
		fresh, err := AssessFairness(cfg, offer, 250000, domain.ScopeZone, pool, now)
		require.NoError(t, err)
		old, err := AssessFairness(cfg, offer, 250000, domain.ScopeZone, stale, now)
		require.NoError(t, err)
		assert.Less(t, old.Confidence, fresh.Confidence)
		assert.GreaterOrEqual(t, old.Confidence, 0.1)
	})
}

func TestBadgeBoundaries(t *testing.T) {
	cases := []struct {
		ratio float64
		want  domain.FairnessBadge
	}{
		{0.80, domain.BadgeRiesgosa},
		{0.8499, domain.BadgeRiesgosa},
		{0.85, domain.BadgeAgresiva},
		{0.90, domain.BadgeAgresiva},
		{0.9499, domain.BadgeAgresiva},
		{0.95, domain.BadgeJusta},
		{1.00, domain.BadgeJusta},
		{1.05, domain.BadgeJusta},
		{1.0501, domain.BadgeGenerosa},
		{1.20, domain.BadgeGenerosa},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Badge(tc.ratio), "ratio %v", tc.ratio)
	}
}
