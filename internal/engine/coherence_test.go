package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

func priceEvent(id string, price float64, at time.Time) domain.NegotiationEvent {
	return domain.NegotiationEvent{
		ID:        id,
		Type:      domain.EventCounterReceived,
		Price:     &price,
		CreatedAt: at,
	}
}

func TestComputeFriction(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	t.Run("unchanged counter price is high price friction", func(t *testing.T) {
		events := []domain.NegotiationEvent{
			priceEvent("e1", 250000, now.Add(-48*time.Hour)),
			priceEvent("e2", 250000, now.Add(-24*time.Hour)),
		}
		f := computeFriction(events)
		assert.Equal(t, domain.FrictionHigh, f.Price)
		assert.Equal(t, domain.AreaPrice, f.Dominant)
	})

	t.Run("token price move under two percent is medium", func(t *testing.T) {
		events := []domain.NegotiationEvent{
			priceEvent("e1", 250000, now.Add(-48*time.Hour)),
			priceEvent("e2", 249000, now.Add(-24*time.Hour)), // 0.4% move
		}
		f := computeFriction(events)
		assert.Equal(t, domain.FrictionMedium, f.Price)
	})

	t.Run("real price move is low friction", func(t *testing.T) {
		events := []domain.NegotiationEvent{
			priceEvent("e1", 250000, now.Add(-48*time.Hour)),
			priceEvent("e2", 240000, now.Add(-24*time.Hour)), // 4% move
		}
		f := computeFriction(events)
		assert.Equal(t, domain.FrictionLow, f.Price)
	})

	t.Run("new contingencies are high terms friction", func(t *testing.T) {
		events := []domain.NegotiationEvent{
			{ID: "e1", Type: domain.EventOfferSent, Contingencies: []string{"inspection"}, CreatedAt: now.Add(-48 * time.Hour)},
			{ID: "e2", Type: domain.EventCounterReceived, Contingencies: []string{"inspection", "financing"}, CreatedAt: now.Add(-24 * time.Hour)},
		}
		f := computeFriction(events)
		assert.Equal(t, domain.FrictionHigh, f.Terms)
	})

	t.Run("two high dimensions resolve to mixed", func(t *testing.T) {
		events := []domain.NegotiationEvent{
			func() domain.NegotiationEvent {
				ev := priceEvent("e1", 250000, now.Add(-48*time.Hour))
				ev.Contingencies = []string{"inspection"}
				return ev
			}(),
			func() domain.NegotiationEvent {
				ev := priceEvent("e2", 250000, now.Add(-24*time.Hour))
				ev.Contingencies = []string{"inspection", "appraisal"}
				return ev
			}(),
		}
		f := computeFriction(events)
		assert.Equal(t, domain.AreaMixed, f.Dominant)
		assert.Equal(t, domain.FrictionHigh, f.Overall)
	})

	t.Run("single event has nothing to compare", func(t *testing.T) {
		f := computeFriction([]domain.NegotiationEvent{priceEvent("e1", 250000, now)})
		assert.Equal(t, domain.FrictionNone, f.Price)
	})
}

func TestComputeRhythm(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	eventsAt := func(offsets ...time.Duration) []domain.NegotiationEvent {
		events := make([]domain.NegotiationEvent, 0, len(offsets))
		for i, off := range offsets {
			events = append(events, domain.NegotiationEvent{ID: string(rune('a' + i)), CreatedAt: start.Add(off)})
		}
		return events
	}

	t.Run("fewer than three events is unsampled normal", func(t *testing.T) {
		r := computeRhythm(eventsAt(0, 24*time.Hour))
		assert.False(t, r.Sampled)
		assert.Equal(t, domain.RhythmNormal, r.State)
	})

	t.Run("latest gap well over the average is slowing", func(t *testing.T) {
		r := computeRhythm(eventsAt(0, 24*time.Hour, 48*time.Hour, 120*time.Hour))
		require.True(t, r.Sampled)
		assert.Equal(t, domain.RhythmSlowing, r.State)
		assert.Equal(t, domain.ResponseSlower, r.Trend)
		assert.InDelta(t, 24, r.AvgResponseHours, 1e-9)
	})

	t.Run("latest gap well under the average is fast", func(t *testing.T) {
		r := computeRhythm(eventsAt(0, 24*time.Hour, 48*time.Hour, 52*time.Hour))
		assert.Equal(t, domain.RhythmFast, r.State)
		assert.Equal(t, domain.ResponseFaster, r.Trend)
	})

	t.Run("steady cadence is normal", func(t *testing.T) {
		r := computeRhythm(eventsAt(0, 24*time.Hour, 48*time.Hour, 72*time.Hour))
		assert.Equal(t, domain.RhythmNormal, r.State)
		assert.Equal(t, domain.ResponseStable, r.Trend)
	})
}

func TestConcessionPattern(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	withPrices := func(prices ...float64) []domain.NegotiationEvent {
		events := make([]domain.NegotiationEvent, 0, len(prices))
		for i, p := range prices {
			events = append(events, priceEvent(string(rune('a'+i)), p, start.Add(time.Duration(i)*24*time.Hour)))
		}
		return events
	}

	t.Run("shrinking concessions stall", func(t *testing.T) {
		// deltas: 10000, 4000, 1000
		assert.Equal(t, domain.ConcessionStalled, concessionPattern(withPrices(260000, 250000, 246000, 245000)))
	})

	t.Run("even concessions are consistent", func(t *testing.T) {
		// deltas: 5000, 5000, 5000
		assert.Equal(t, domain.ConcessionConsistent, concessionPattern(withPrices(265000, 260000, 255000, 250000)))
	})

	t.Run("jumping concessions are erratic", func(t *testing.T) {
		// deltas: 2000, 15000, 1000
		assert.Equal(t, domain.ConcessionErratic, concessionPattern(withPrices(260000, 258000, 243000, 242000)))
	})

	t.Run("too few priced events default consistent", func(t *testing.T) {
		assert.Equal(t, domain.ConcessionConsistent, concessionPattern(withPrices(260000, 255000)))
	})
}

func TestComputeSnapshot(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	stalled := []domain.NegotiationEvent{
		priceEvent("e1", 250000, now.Add(-6*24*time.Hour)),
		priceEvent("e2", 250000, now.Add(-5*24*time.Hour)),
		priceEvent("e3", 250000, now.Add(-24*time.Hour)), // long latest gap
	}

	t.Run("stalled slowing thread loses alignment", func(t *testing.T) {
		snap := ComputeSnapshot(CoherenceInputs{OfferID: "o1", Events: stalled}, now)

		assert.Equal(t, "e3", snap.EventID)
		assert.Equal(t, domain.AlignmentDeteriorating, snap.Alignment)
		assert.Equal(t, domain.RhythmSlowing, snap.Rhythm.State)
		assert.Equal(t, domain.InsightLosingAlignment, snap.Insight.Code)
		assert.Contains(t, snap.Insight.Options, domain.OptionShiftToPrice)
		assert.Less(t, snap.CoherenceScore, 0.5)
	})

	t.Run("first snapshot alerts on every condition that holds", func(t *testing.T) {
		snap := ComputeSnapshot(CoherenceInputs{OfferID: "o1", Events: stalled}, now)

		types := make([]domain.AlertType, 0, len(snap.Alerts))
		for _, a := range snap.Alerts {
			types = append(types, a.Type)
		}
		assert.Contains(t, types, domain.AlertRhythmSlowing)
		assert.Contains(t, types, domain.AlertAlignmentDeteriorating)
	})

	t.Run("unchanged conditions do not re-alert", func(t *testing.T) {
		first := ComputeSnapshot(CoherenceInputs{OfferID: "o1", Events: stalled}, now)
		second := ComputeSnapshot(CoherenceInputs{OfferID: "o1", Events: stalled, Previous: &first}, now.Add(time.Hour))
		assert.Empty(t, second.Alerts)
	})

	t.Run("pressure spike alerts once on the transition", func(t *testing.T) {
		healthy := []domain.NegotiationEvent{
			priceEvent("e1", 260000, now.Add(-3*24*time.Hour)),
			priceEvent("e2", 250000, now.Add(-2*24*time.Hour)),
			priceEvent("e3", 240000, now.Add(-24*time.Hour)),
		}
		calm := domain.MarketContext{Pressure: domain.PressureState{Level: domain.PressureLow}}
		hot := domain.MarketContext{Pressure: domain.PressureState{Level: domain.PressureHigh}}

		first := ComputeSnapshot(CoherenceInputs{OfferID: "o1", Events: healthy, Market: calm}, now)
		require.Empty(t, first.Alerts)

		second := ComputeSnapshot(CoherenceInputs{OfferID: "o1", Events: healthy, Market: hot, Previous: &first}, now.Add(time.Hour))
		require.Len(t, second.Alerts, 1)
		assert.Equal(t, domain.AlertPressureIncreasing, second.Alerts[0].Type)

		third := ComputeSnapshot(CoherenceInputs{OfferID: "o1", Events: healthy, Market: hot, Previous: &second}, now.Add(2*time.Hour))
		assert.Empty(t, third.Alerts)
	})

	t.Run("score stays in unit range", func(t *testing.T) {
		snap := ComputeSnapshot(CoherenceInputs{
			OfferID: "o1",
			Events:  stalled,
			Market:  domain.MarketContext{Pressure: domain.PressureState{Level: domain.PressureHigh}},
		}, now)
		assert.GreaterOrEqual(t, snap.CoherenceScore, 0.0)
		assert.LessOrEqual(t, snap.CoherenceScore, 1.0)
	})

	t.Run("empty thread yields a monitor snapshot", func(t *testing.T) {
		snap := ComputeSnapshot(CoherenceInputs{OfferID: "o1"}, now)
		assert.Empty(t, snap.EventID)
		assert.Equal(t, domain.AlignmentStable, snap.Alignment)
		assert.Equal(t, domain.InsightMonitor, snap.Insight.Code)
	})
}
