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

func newFairnessFixture(props map[string]domain.Property) (*FairnessService, *fakeOfferStore) {
	zones := &fakeZoneStore{
		zones: map[string]domain.Zone{
			"z1": {ID: "z1", Name: "Centro"},
			"z2": {ID: "z2", Name: "Norte"},
		},
		nearest: map[string][]domain.Zone{
			"z2": {{ID: "z1", Name: "Centro"}},
		},
	}
	offers := &fakeOfferStore{offers: map[string]domain.Offer{}}
	svc := NewFairnessService(
		engine.DefaultFairnessConfig(), 3,
		&fakePropertyStore{properties: props}, zones, offers, testLogger(),
	)
	return svc, offers
}

func zoneComparables(zoneID string, n int, ppm float64) map[string]domain.Property {
	now := time.Now().UTC()
	props := make(map[string]domain.Property, n)
	for i := 0; i < n; i++ {
		id := zoneID + "-c" + string(rune('a'+i))
		props[id] = domain.Property{
			ID:       id,
			ZoneID:   zoneID,
			Price:    ppm * 100,
			AreaM2:   100,
			Status:   domain.PropertyActive,
			ListedAt: now.Add(-20 * 24 * time.Hour),
		}
	}
	return props
}

func TestAssessAmount(t *testing.T) {
	ctx := context.Background()

	t.Run("zone pool produces a zone-scoped assessment", func(t *testing.T) {
		props := zoneComparables("z1", 6, 2000)
		props["sub"] = domain.Property{ID: "sub", ZoneID: "z1", Price: 210000, AreaM2: 100, Status: domain.PropertyActive, ListedAt: time.Now().UTC()}
		svc, _ := newFairnessFixture(props)

		// Median 2000/m2 over 100m2 puts the fair price at 200000.
		a, err := svc.AssessAmount(ctx, "sub", domain.Offer{ID: "o1", Amount: 190000})
		require.NoError(t, err)
		assert.InDelta(t, 200000, a.FairPriceEstimate, 0.001)
		assert.InDelta(t, 0.95, a.Ratio, 0.0001)
		assert.Equal(t, domain.BadgeJusta, a.Badge)
		assert.Equal(t, domain.ScopeZone, a.ReferenceScope)
		assert.Equal(t, 6, a.ComparableCount)
		assert.False(t, a.LowConfidence)
	})

	t.Run("sparse zone widens into nearest zones as fallback", func(t *testing.T) {
		props := zoneComparables("z1", 6, 2000)
		props["z2-c"] = domain.Property{ID: "z2-c", ZoneID: "z2", Price: 200000, AreaM2: 100, Status: domain.PropertyActive, ListedAt: time.Now().UTC()}
		props["sub"] = domain.Property{ID: "sub", ZoneID: "z2", Price: 220000, AreaM2: 100, Status: domain.PropertyActive, ListedAt: time.Now().UTC()}
		svc, _ := newFairnessFixture(props)

		a, err := svc.AssessAmount(ctx, "sub", domain.Offer{ID: "o1", Amount: 160000})
		require.NoError(t, err)
		assert.Equal(t, domain.ScopeFallback, a.ReferenceScope)
		assert.Equal(t, 7, a.ComparableCount)
		assert.Equal(t, domain.BadgeRiesgosa, a.Badge)
	})

	t.Run("subject is excluded from its own pool", func(t *testing.T) {
		props := zoneComparables("z1", 6, 2000)
		// The subject carries an extreme price that would skew the median.
		props["sub"] = domain.Property{ID: "sub", ZoneID: "z1", Price: 900000, AreaM2: 100, Status: domain.PropertyActive, ListedAt: time.Now().UTC()}
		svc, _ := newFairnessFixture(props)

		a, err := svc.AssessAmount(ctx, "sub", domain.Offer{ID: "o1", Amount: 200000})
		require.NoError(t, err)
		assert.InDelta(t, 200000, a.FairPriceEstimate, 0.001)
	})

	t.Run("rejects non-positive offer amounts", func(t *testing.T) {
		props := zoneComparables("z1", 6, 2000)
		props["sub"] = domain.Property{ID: "sub", ZoneID: "z1", Price: 200000, AreaM2: 100, Status: domain.PropertyActive, ListedAt: time.Now().UTC()}
		svc, _ := newFairnessFixture(props)

		_, err := svc.AssessAmount(ctx, "sub", domain.Offer{ID: "o1", Amount: 0})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown property", func(t *testing.T) {
		svc, _ := newFairnessFixture(map[string]domain.Property{})
		_, err := svc.AssessAmount(ctx, "ghost", domain.Offer{ID: "o1", Amount: 100})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAssessOffer(t *testing.T) {
	ctx := context.Background()

	props := zoneComparables("z1", 6, 2000)
	props["sub"] = domain.Property{ID: "sub", ZoneID: "z1", Price: 210000, AreaM2: 100, Status: domain.PropertyActive, ListedAt: time.Now().UTC()}
	svc, offers := newFairnessFixture(props)
	offers.offers["o1"] = domain.Offer{ID: "o1", PropertyID: "sub", Amount: 210000, Status: domain.OfferPending}

	a, err := svc.AssessOffer(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", a.OfferID)
	assert.Equal(t, domain.BadgeJusta, a.Badge)
	assert.InDelta(t, 1.05, a.Ratio, 0.0001)

	_, err = svc.AssessOffer(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
