package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

func TestDecay(t *testing.T) {
	cfg := DefaultAggregateConfig()

	t.Run("non-increasing in age", func(t *testing.T) {
		prev := cfg.Decay(0)
		assert.Equal(t, 1.0, prev)
		for age := time.Hour; age <= cfg.Window+24*time.Hour; age += 12 * time.Hour {
			d := cfg.Decay(age)
			assert.GreaterOrEqual(t, prev, d, "decay must not increase at age %s", age)
			assert.GreaterOrEqual(t, d, 0.0)
			prev = d
		}
	})

	t.Run("zero at and beyond the horizon", func(t *testing.T) {
		assert.Equal(t, 0.0, cfg.Decay(cfg.Window))
		assert.Equal(t, 0.0, cfg.Decay(cfg.Window+time.Minute))
	})

	t.Run("halves every half-life", func(t *testing.T) {
		assert.InDelta(t, 0.5, cfg.Decay(cfg.HalfLife), 1e-9)
		assert.InDelta(t, 0.25, cfg.Decay(2*cfg.HalfLife), 1e-9)
	})

	t.Run("future events are clamped, not amplified", func(t *testing.T) {
		assert.Equal(t, 1.0, cfg.Decay(-time.Hour))
	})
}

func TestStrength(t *testing.T) {
	cfg := DefaultAggregateConfig()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	events := func(ages ...time.Duration) []domain.SignalEvent {
		out := make([]domain.SignalEvent, len(ages))
		for i, age := range ages {
			out[i] = domain.SignalEvent{
				PropertyID: "p1",
				Type:       domain.SignalNoise,
				Source:     domain.SourceUser,
				Weight:     1.0,
				ObservedAt: now.Add(-age),
			}
		}
		return out
	}

	t.Run("non-negative", func(t *testing.T) {
		assert.GreaterOrEqual(t, cfg.Strength(events(time.Hour, 40*24*time.Hour), now), 0.0)
	})

	t.Run("non-increasing as time elapses with no new events", func(t *testing.T) {
		evs := events(24*time.Hour, 5*24*time.Hour, 20*24*time.Hour)
		prev := cfg.Strength(evs, now)
		for d := 1; d <= 45; d++ {
			s := cfg.Strength(evs, now.Add(time.Duration(d)*24*time.Hour))
			require.LessOrEqual(t, s, prev, "strength rose at day %d", d)
			prev = s
		}
		assert.Equal(t, 0.0, prev, "all events aged past the horizon")
	})

	t.Run("deterministic", func(t *testing.T) {
		evs := events(time.Hour, 48*time.Hour)
		assert.Equal(t, cfg.Strength(evs, now), cfg.Strength(evs, now))
	})
}
