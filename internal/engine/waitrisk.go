package engine

import (
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// WaitRiskConfig tunes the horizon model and recommendation bands.
type WaitRiskConfig struct {
	Horizons []int // days, ascending

	// ActNowThreshold: P(loss) at the shortest horizon at or above this
	// recommends acting now.
	ActNowThreshold float64

	// SafeThreshold: P(loss) at the longest horizon at or below this
	// recommends waiting. Between the two bands the recommendation is
	// explicitly neutral.
	SafeThreshold float64

	MaxProbability float64 // hard clamp on any horizon probability
}

// DefaultWaitRiskConfig returns the production defaults.
func DefaultWaitRiskConfig() WaitRiskConfig {
	return WaitRiskConfig{
		Horizons:        []int{7, 30},
		ActNowThreshold: 0.45,
		SafeThreshold:   0.15,
		MaxProbability:  0.9,
	}
}

// ForecastWaitRisk projects the probability of losing the opportunity per
// horizon from pressure and zone velocity. The base contribution is additive
// in severity and the horizon multiplier grows with days, so probabilities
// are non-decreasing in days, pressure and velocity by construction.
func ForecastWaitRisk(cfg WaitRiskConfig, propertyID string, pressure domain.PressureState, dynamics domain.ZoneMarketDynamics, now time.Time) domain.WaitRiskForecast {
	base := baseLossProbability(pressure, dynamics)

	horizons := make([]domain.HorizonRisk, 0, len(cfg.Horizons))
	for _, days := range cfg.Horizons {
		p := base * horizonMultiplier(days)
		if p > cfg.MaxProbability {
			p = cfg.MaxProbability
		}
		horizons = append(horizons, domain.HorizonRisk{Days: days, ProbabilityOfLoss: p})
	}

	f := domain.WaitRiskForecast{
		PropertyID: propertyID,
		Horizons:   horizons,
		ForecastAt: now,
	}
	f.Recommendation = recommend(cfg, f)
	return f
}

// baseLossProbability is the horizon-independent severity. Each factor only
// adds, which keeps the forecast monotonic in pressure and velocity.
func baseLossProbability(pressure domain.PressureState, dynamics domain.ZoneMarketDynamics) float64 {
	var p float64

	switch pressure.Level {
	case domain.PressureHigh:
		p += 0.30
	case domain.PressureMedium:
		p += 0.15
	}

	switch dynamics.Velocity {
	case domain.VelocityFast:
		p += 0.25
	case domain.VelocityModerate:
		p += 0.10
	}

	if pressure.CompetingConfirmed {
		p += 0.35
	}
	return p
}

// horizonMultiplier grows with the waiting period and saturates at 1.5x.
func horizonMultiplier(days int) float64 {
	m := 1 + float64(days)/60
	if m > 1.5 {
		m = 1.5
	}
	return m
}

func recommend(cfg WaitRiskConfig, f domain.WaitRiskForecast) domain.WaitRecommendation {
	if len(f.Horizons) == 0 {
		return domain.RecommendNeutral
	}
	short := f.Horizons[0].ProbabilityOfLoss
	long := f.Horizons[len(f.Horizons)-1].ProbabilityOfLoss

	switch {
	case short >= cfg.ActNowThreshold:
		return domain.RecommendActNow
	case long <= cfg.SafeThreshold:
		return domain.RecommendSafeToWait
	default:
		return domain.RecommendNeutral
	}
}
