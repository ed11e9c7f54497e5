package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEmitter struct {
	mu      sync.Mutex
	emitted []domain.SignalType
}

func (f *fakeEmitter) Emit(_ context.Context, propertyID string, t domain.SignalType, _ float64) (domain.SignalEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, t)
	return domain.SignalEvent{PropertyID: propertyID, Type: t}, nil
}

func (f *fakeEmitter) count(t domain.SignalType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.emitted {
		if e == t {
			n++
		}
	}
	return n
}

type stubStateStore struct {
	states map[string]domain.SignalState // keyed by property id + type
}

func (s *stubStateStore) ReplaceAll(context.Context, string, []domain.SignalState) error {
	return nil
}

func (s *stubStateStore) ListByProperty(context.Context, string) ([]domain.SignalState, error) {
	return nil, nil
}

func (s *stubStateStore) Get(_ context.Context, propertyID string, t domain.SignalType) (domain.SignalState, error) {
	st, ok := s.states[propertyID+"/"+string(t)]
	if !ok {
		return domain.SignalState{}, domain.ErrNotFound
	}
	return st, nil
}

type stubOfferStore struct {
	grouped map[string]int
}

func (s *stubOfferStore) GetByID(context.Context, string) (domain.Offer, error) {
	return domain.Offer{}, domain.ErrNotFound
}

func (s *stubOfferStore) CountActive(_ context.Context, propertyID string) (int, error) {
	return s.grouped[propertyID], nil
}

func (s *stubOfferStore) CountActiveGrouped(context.Context) (map[string]int, error) {
	return s.grouped, nil
}

func (s *stubOfferStore) ListEvents(context.Context, string) ([]domain.NegotiationEvent, error) {
	return nil, nil
}

type stubVisitStore struct {
	verified map[string]int
}

func (s *stubVisitStore) GetByID(context.Context, string) (domain.Visit, error) {
	return domain.Visit{}, domain.ErrNotFound
}

func (s *stubVisitStore) CountVerifiedSince(_ context.Context, propertyID string, _ time.Time) (int, error) {
	return s.verified[propertyID], nil
}

type stubPropertyStore struct {
	properties map[string]domain.Property
}

func (s *stubPropertyStore) GetByID(_ context.Context, id string) (domain.Property, error) {
	p, ok := s.properties[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubPropertyStore) ListActiveByZone(context.Context, string) ([]domain.Property, error) {
	return nil, nil
}

func (s *stubPropertyStore) ListByZoneSince(context.Context, string, time.Time) ([]domain.Property, error) {
	return nil, nil
}

type stubEventStore struct {
	propertyIDs []string
}

func (s *stubEventStore) Append(context.Context, domain.SignalEvent) error { return nil }

func (s *stubEventStore) Exists(context.Context, string, string, domain.SignalType) (bool, error) {
	return false, nil
}

func (s *stubEventStore) ListByProperty(context.Context, string, time.Time) ([]domain.SignalEvent, error) {
	return nil, nil
}

func (s *stubEventStore) ListPropertyIDs(context.Context) ([]string, error) {
	return s.propertyIDs, nil
}

func (s *stubEventStore) ListBefore(context.Context, time.Time) ([]domain.SignalEvent, error) {
	return nil, nil
}

func (s *stubEventStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type detectorFixture struct {
	emitter    *fakeEmitter
	states     *stubStateStore
	offers     *stubOfferStore
	visits     *stubVisitStore
	properties *stubPropertyStore
	events     *stubEventStore
	detector   *Detector
}

func newDetectorFixture() *detectorFixture {
	f := &detectorFixture{
		emitter:    &fakeEmitter{},
		states:     &stubStateStore{states: map[string]domain.SignalState{}},
		offers:     &stubOfferStore{grouped: map[string]int{}},
		visits:     &stubVisitStore{verified: map[string]int{}},
		properties: &stubPropertyStore{properties: map[string]domain.Property{}},
		events:     &stubEventStore{},
	}
	f.detector = NewDetector(f.emitter, f.states, f.offers, f.visits, f.properties, f.events, testLogger())
	return f
}

func TestDetectorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("emits for competing offers and visit bursts", func(t *testing.T) {
		f := newDetectorFixture()
		f.offers.grouped["p1"] = 2
		f.visits.verified["p1"] = 5

		require.NoError(t, f.detector.Run(ctx))

		assert.Equal(t, 1, f.emitter.count(domain.SignalCompetingOffers))
		assert.Equal(t, 1, f.emitter.count(domain.SignalManyVisits))
		assert.Equal(t, 1, f.emitter.count(domain.SignalHighActivity))
	})

	t.Run("quiet property emits nothing", func(t *testing.T) {
		f := newDetectorFixture()
		f.offers.grouped["p1"] = 1
		f.visits.verified["p1"] = 1

		require.NoError(t, f.detector.Run(ctx))
		assert.Empty(t, f.emitter.emitted)
	})

	t.Run("recent state suppresses re-emission", func(t *testing.T) {
		f := newDetectorFixture()
		f.offers.grouped["p1"] = 2
		f.states.states["p1/"+string(domain.SignalCompetingOffers)] = domain.SignalState{
			PropertyID: "p1",
			Type:       domain.SignalCompetingOffers,
			LastSeenAt: time.Now().UTC().Add(-time.Hour),
		}

		require.NoError(t, f.detector.Run(ctx))
		assert.Zero(t, f.emitter.count(domain.SignalCompetingOffers))
	})
}

func TestDetectorPriceDrop(t *testing.T) {
	ctx := context.Background()

	t.Run("emits when the listed price falls between sweeps", func(t *testing.T) {
		f := newDetectorFixture()
		f.events.propertyIDs = []string{"p1"}
		f.properties.properties["p1"] = domain.Property{ID: "p1", Price: 300000}

		// First sweep only records the price.
		require.NoError(t, f.detector.Run(ctx))
		assert.Zero(t, f.emitter.count(domain.SignalPriceDrop))

		f.properties.properties["p1"] = domain.Property{ID: "p1", Price: 280000}
		require.NoError(t, f.detector.Run(ctx))
		assert.Equal(t, 1, f.emitter.count(domain.SignalPriceDrop))

		// Unchanged price on the next sweep does not re-emit.
		require.NoError(t, f.detector.Run(ctx))
		assert.Equal(t, 1, f.emitter.count(domain.SignalPriceDrop))
	})

	t.Run("a price increase is not a drop", func(t *testing.T) {
		f := newDetectorFixture()
		f.events.propertyIDs = []string{"p1"}
		f.properties.properties["p1"] = domain.Property{ID: "p1", Price: 300000}

		require.NoError(t, f.detector.Run(ctx))
		f.properties.properties["p1"] = domain.Property{ID: "p1", Price: 320000}
		require.NoError(t, f.detector.Run(ctx))

		assert.Zero(t, f.emitter.count(domain.SignalPriceDrop))
	})

	t.Run("direct invocation guards non-drops", func(t *testing.T) {
		f := newDetectorFixture()

		require.NoError(t, f.detector.DetectPriceDrop(ctx, "p1", 100, 200))
		require.NoError(t, f.detector.DetectPriceDrop(ctx, "p1", 0, 50))
		assert.Empty(t, f.emitter.emitted)

		require.NoError(t, f.detector.DetectPriceDrop(ctx, "p1", 200, 150))
		assert.Equal(t, 1, f.emitter.count(domain.SignalPriceDrop))
	})
}
