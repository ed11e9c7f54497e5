package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

func TestForecastWaitRisk(t *testing.T) {
	cfg := DefaultWaitRiskConfig()
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	t.Run("longer horizons never carry less risk", func(t *testing.T) {
		pressures := []domain.PressureState{
			{Level: domain.PressureLow},
			{Level: domain.PressureMedium},
			{Level: domain.PressureHigh, CompetingConfirmed: true},
		}
		velocities := []domain.Velocity{domain.VelocitySlow, domain.VelocityModerate, domain.VelocityFast}

		for _, p := range pressures {
			for _, v := range velocities {
				f := ForecastWaitRisk(cfg, "p1", p, domain.ZoneMarketDynamics{Velocity: v}, now)
				require.Len(t, f.Horizons, 2)
				assert.LessOrEqual(t, f.Horizons[0].ProbabilityOfLoss, f.Horizons[1].ProbabilityOfLoss)
			}
		}
	})

	t.Run("calm market is safe to wait", func(t *testing.T) {
		f := ForecastWaitRisk(cfg, "p1",
			domain.PressureState{Level: domain.PressureLow},
			domain.ZoneMarketDynamics{Velocity: domain.VelocitySlow}, now)

		assert.Equal(t, domain.RecommendSafeToWait, f.Recommendation)
		p, ok := f.Probability(7)
		require.True(t, ok)
		assert.Zero(t, p)
	})

	t.Run("confirmed competition in a fast market means act now", func(t *testing.T) {
		f := ForecastWaitRisk(cfg, "p1",
			domain.PressureState{Level: domain.PressureHigh, CompetingConfirmed: true},
			domain.ZoneMarketDynamics{Velocity: domain.VelocityFast}, now)

		assert.Equal(t, domain.RecommendActNow, f.Recommendation)
		// base 0.30+0.25+0.35 = 0.90, clamped at every horizon
		p, ok := f.Probability(30)
		require.True(t, ok)
		assert.InDelta(t, cfg.MaxProbability, p, 1e-9)
	})

	t.Run("middle ground stays neutral", func(t *testing.T) {
		f := ForecastWaitRisk(cfg, "p1",
			domain.PressureState{Level: domain.PressureMedium},
			domain.ZoneMarketDynamics{Velocity: domain.VelocitySlow}, now)

		// base 0.15: P(7) ~ 0.1675 < 0.45, P(30) = 0.225 > 0.15
		assert.Equal(t, domain.RecommendNeutral, f.Recommendation)
	})

	t.Run("probabilities never exceed the clamp", func(t *testing.T) {
		f := ForecastWaitRisk(cfg, "p1",
			domain.PressureState{Level: domain.PressureHigh, CompetingConfirmed: true},
			domain.ZoneMarketDynamics{Velocity: domain.VelocityFast}, now)
		for _, h := range f.Horizons {
			assert.LessOrEqual(t, h.ProbabilityOfLoss, cfg.MaxProbability)
		}
	})
}

func TestHorizonMultiplierSaturates(t *testing.T) {
	assert.InDelta(t, 1.0+7.0/60.0, horizonMultiplier(7), 1e-12)
	assert.InDelta(t, 1.5, horizonMultiplier(30), 1e-12)
	assert.InDelta(t, 1.5, horizonMultiplier(365), 1e-12, "saturates past thirty days")
}
