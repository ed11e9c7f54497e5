package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
	"github.com/pricewaze/pricewaze-backend/internal/engine"
)

type aggregatorFixture struct {
	events  *fakeEventStore
	states  *fakeStateStore
	offers  *fakeOfferStore
	visits  *fakeVisitStore
	cache   *fakeStateCache
	bus     *fakeBus
	locks   *fakeLockManager
	service *AggregatorService
}

func newAggregatorFixture() *aggregatorFixture {
	f := &aggregatorFixture{
		events: &fakeEventStore{},
		states: newFakeStateStore(),
		offers: &fakeOfferStore{offers: map[string]domain.Offer{}},
		visits: &fakeVisitStore{visits: map[string]domain.Visit{}, verified: map[string]int{}},
		cache:  newFakeStateCache(),
		bus:    newFakeBus(),
		locks:  newFakeLockManager(),
	}
	f.service = NewAggregatorService(
		engine.DefaultAggregateConfig(), 4,
		f.events, f.states, f.visits, f.offers,
		f.cache, f.bus, f.locks, testLogger(),
	)
	return f
}

func systemEvent(propertyID string, t domain.SignalType, age time.Duration) domain.SignalEvent {
	return domain.SignalEvent{
		ID:         propertyID + "-" + string(t),
		PropertyID: propertyID,
		Type:       t,
		Source:     domain.SourceSystem,
		Weight:     1.0,
		ObservedAt: time.Now().UTC().Add(-age),
	}
}

func TestRecompute(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms competing offers against live counts", func(t *testing.T) {
		f := newAggregatorFixture()
		require.NoError(t, f.events.Append(ctx, systemEvent("p1", domain.SignalCompetingOffers, time.Hour)))
		f.offers.offers = map[string]domain.Offer{
			"o1": {ID: "o1", PropertyID: "p1", Status: domain.OfferPending},
			"o2": {ID: "o2", PropertyID: "p1", Status: domain.OfferCountered},
		}

		states, err := f.service.Recompute(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, states, 1)
		assert.Equal(t, domain.StatusConfirmed, states[0].Status)

		state, err := f.states.Get(ctx, "p1", domain.SignalCompetingOffers)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, state.Status)

		edges := f.bus.published["edges:p1"]
		require.Len(t, edges, 1)
		var edge domain.SignalEdge
		require.NoError(t, json.Unmarshal(edges[0], &edge))
		assert.Equal(t, domain.StatusUnconfirmed, edge.From)
		assert.Equal(t, domain.StatusConfirmed, edge.To)
		assert.Equal(t, domain.SignalCompetingOffers, edge.Type)
	})

	t.Run("unconfirms when live counts drop", func(t *testing.T) {
		f := newAggregatorFixture()
		require.NoError(t, f.events.Append(ctx, systemEvent("p1", domain.SignalCompetingOffers, time.Hour)))
		f.offers.offers = map[string]domain.Offer{
			"o1": {ID: "o1", PropertyID: "p1", Status: domain.OfferPending},
			"o2": {ID: "o2", PropertyID: "p1", Status: domain.OfferPending},
		}
		_, err := f.service.Recompute(ctx, "p1")
		require.NoError(t, err)

		f.offers.offers["o2"] = domain.Offer{ID: "o2", PropertyID: "p1", Status: domain.OfferRejected}
		_, err = f.service.Recompute(ctx, "p1")
		require.NoError(t, err)

		state, err := f.states.Get(ctx, "p1", domain.SignalCompetingOffers)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusUnconfirmed, state.Status)

		// Two edges total: the confirm, then the unconfirm.
		assert.Len(t, f.bus.published["edges:p1"], 2)
	})

	t.Run("recompute is idempotent with no spurious edges", func(t *testing.T) {
		f := newAggregatorFixture()
		require.NoError(t, f.events.Append(ctx, systemEvent("p1", domain.SignalManyVisits, 2*time.Hour)))
		f.visits.verified["p1"] = 6

		first, err := f.service.Recompute(ctx, "p1")
		require.NoError(t, err)
		second, err := f.service.Recompute(ctx, "p1")
		require.NoError(t, err)
		_, err = f.service.Recompute(ctx, "p1")
		require.NoError(t, err)

		assert.Equal(t, len(first), len(second))

		// Only the first recompute crossed a threshold.
		assert.Len(t, f.bus.published["edges:p1"], 1)
	})

	t.Run("edge history replays the durable stream", func(t *testing.T) {
		f := newAggregatorFixture()
		require.NoError(t, f.events.Append(ctx, systemEvent("p1", domain.SignalCompetingOffers, time.Hour)))
		f.offers.offers = map[string]domain.Offer{
			"o1": {ID: "o1", PropertyID: "p1", Status: domain.OfferPending},
			"o2": {ID: "o2", PropertyID: "p1", Status: domain.OfferPending},
		}
		_, err := f.service.Recompute(ctx, "p1")
		require.NoError(t, err)

		records, err := f.service.EdgeHistory(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "p1", records[0].Edge.PropertyID)
		assert.Equal(t, domain.StatusConfirmed, records[0].Edge.To)
	})

	t.Run("writes fresh states to cache", func(t *testing.T) {
		f := newAggregatorFixture()
		require.NoError(t, f.events.Append(ctx, systemEvent("p1", domain.SignalPriceDrop, time.Hour)))

		_, err := f.service.Recompute(ctx, "p1")
		require.NoError(t, err)

		cached, err := f.cache.GetStates(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, cached, 1)
		assert.Equal(t, domain.SignalPriceDrop, cached[0].Type)
	})

	t.Run("ageing out every event unconfirms through an edge", func(t *testing.T) {
		f := newAggregatorFixture()
		for _, ev := range []domain.SignalEvent{
			{ID: "e1", PropertyID: "p1", Type: domain.SignalNoise, Source: domain.SourceUser, ReporterID: "u1", VisitID: "v1", Weight: 1, ObservedAt: time.Now().UTC().Add(-40 * 24 * time.Hour)},
			{ID: "e2", PropertyID: "p1", Type: domain.SignalNoise, Source: domain.SourceUser, ReporterID: "u2", VisitID: "v2", Weight: 1, ObservedAt: time.Now().UTC().Add(-40 * 24 * time.Hour)},
			{ID: "e3", PropertyID: "p1", Type: domain.SignalNoise, Source: domain.SourceUser, ReporterID: "u3", VisitID: "v3", Weight: 1, ObservedAt: time.Now().UTC().Add(-40 * 24 * time.Hour)},
		} {
			require.NoError(t, f.events.Append(ctx, ev))
		}
		require.NoError(t, f.states.ReplaceAll(ctx, "p1", []domain.SignalState{{
			PropertyID:    "p1",
			Type:          domain.SignalNoise,
			Status:        domain.StatusConfirmed,
			Strength:      2.0,
			ReporterCount: 3,
			LastSeenAt:    time.Now().UTC().Add(-40 * 24 * time.Hour),
		}}))

		states, err := f.service.Recompute(ctx, "p1")
		require.NoError(t, err)

		// The type does not vanish: it stays as a zero-strength
		// unconfirmed row.
		require.Len(t, states, 1)
		assert.Equal(t, domain.SignalNoise, states[0].Type)
		assert.Equal(t, domain.StatusUnconfirmed, states[0].Status)
		assert.Zero(t, states[0].Strength)

		edges := f.bus.published["edges:p1"]
		require.Len(t, edges, 1)
		var edge domain.SignalEdge
		require.NoError(t, json.Unmarshal(edges[0], &edge))
		assert.Equal(t, domain.StatusConfirmed, edge.From)
		assert.Equal(t, domain.StatusUnconfirmed, edge.To)

		// A repeat recompute holds steady with no second edge.
		_, err = f.service.Recompute(ctx, "p1")
		require.NoError(t, err)
		assert.Len(t, f.bus.published["edges:p1"], 1)
	})

	t.Run("invalidates the cache when the refresh write fails", func(t *testing.T) {
		f := newAggregatorFixture()
		require.NoError(t, f.cache.SetStates(ctx, "p1", []domain.SignalState{{
			PropertyID: "p1",
			Type:       domain.SignalNoise,
			Status:     domain.StatusConfirmed,
		}}))
		f.cache.setErr = errors.New("redis down")

		require.NoError(t, f.events.Append(ctx, systemEvent("p1", domain.SignalPriceDrop, time.Hour)))
		_, err := f.service.Recompute(ctx, "p1")
		require.NoError(t, err)

		_, err = f.cache.GetStates(ctx, "p1")
		assert.ErrorIs(t, err, domain.ErrNotFound, "stale entry must not survive a failed refresh")
	})
}

func TestRecomputeAll(t *testing.T) {
	ctx := context.Background()

	t.Run("processes every property with events", func(t *testing.T) {
		f := newAggregatorFixture()
		require.NoError(t, f.events.Append(ctx, systemEvent("p1", domain.SignalPriceDrop, time.Hour)))
		require.NoError(t, f.events.Append(ctx, systemEvent("p2", domain.SignalPriceDrop, time.Hour)))
		require.NoError(t, f.events.Append(ctx, systemEvent("p3", domain.SignalHighActivity, time.Hour)))

		result, err := f.service.RecomputeAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Processed)
		assert.Empty(t, result.Failures)

		for _, id := range []string{"p1", "p2", "p3"} {
			states, err := f.states.ListByProperty(ctx, id)
			require.NoError(t, err)
			assert.NotEmpty(t, states, id)
		}
	})

	t.Run("skips when the lock is held elsewhere", func(t *testing.T) {
		f := newAggregatorFixture()
		_, err := f.locks.Acquire(ctx, recomputeLockKey, time.Minute)
		require.NoError(t, err)

		_, err = f.service.RecomputeAll(ctx)
		assert.ErrorIs(t, err, domain.ErrLockHeld)
	})

	t.Run("releases the lock after the run", func(t *testing.T) {
		f := newAggregatorFixture()

		_, err := f.service.RecomputeAll(ctx)
		require.NoError(t, err)

		unlock, err := f.locks.Acquire(ctx, recomputeLockKey, time.Minute)
		require.NoError(t, err)
		unlock()
	})
}
