package engine

import (
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// DynamicsConfig tunes the zone market analysis.
type DynamicsConfig struct {
	Lookback      time.Duration // analysis window over zone listings
	PriceBand     float64       // relative change treated as stable
	InventoryBand float64       // relative count change treated as stable
	SlowMax       float64       // turnover ratio at or below this is slow
	FastMin       float64       // turnover ratio at or above this is fast
	MinSamples    int           // below this the result is low-confidence
}

// DefaultDynamicsConfig returns the production defaults: a 90-day lookback
// split into two halves.
func DefaultDynamicsConfig() DynamicsConfig {
	return DynamicsConfig{
		Lookback:      90 * 24 * time.Hour,
		PriceBand:     0.02,
		InventoryBand: 0.20,
		SlowMax:       0.20,
		FastMin:       0.50,
		MinSamples:    5,
	}
}

// AnalyzeZone classifies a zone's price trend, inventory trend, turnover
// velocity and regime from its listings inside the lookback window. Sparse
// zones return a stable, low-confidence result; the operation never fails.
func AnalyzeZone(cfg DynamicsConfig, zoneID string, listings []domain.Property, now time.Time) domain.ZoneMarketDynamics {
	windowStart := now.Add(-cfg.Lookback)
	mid := now.Add(-cfg.Lookback / 2)

	var older, newer []domain.Property
	active, closed := 0, 0
	for _, p := range listings {
		if p.ListedAt.Before(windowStart) {
			continue
		}
		if p.ListedAt.Before(mid) {
			older = append(older, p)
		} else {
			newer = append(newer, p)
		}
		if p.Status == domain.PropertyActive {
			active++
		} else {
			closed++
		}
	}

	sample := len(older) + len(newer)
	d := domain.ZoneMarketDynamics{
		ZoneID:         zoneID,
		PriceTrend:     domain.TrendStable,
		InventoryTrend: domain.TrendStable,
		Velocity:       domain.VelocitySlow,
		Regime:         domain.RegimeWarm,
		SampleSize:     sample,
		AnalyzedAt:     now,
	}

	if sample < cfg.MinSamples {
		d.LowConfidence = true
		return d
	}

	d.PriceTrend = classifyChange(avgPricePerM2(older), avgPricePerM2(newer), cfg.PriceBand)
	d.InventoryTrend = classifyChange(float64(len(older)), float64(len(newer)), cfg.InventoryBand)

	if active > 0 {
		d.TurnoverRatio = float64(closed) / float64(active)
	} else if closed > 0 {
		// Everything in the window turned over.
		d.TurnoverRatio = cfg.FastMin
	}
	d.Velocity = classifyVelocity(cfg, d.TurnoverRatio)
	d.Regime = classifyRegime(d.PriceTrend, d.InventoryTrend, d.Velocity)
	return d
}

func classifyChange(older, newer, band float64) domain.Trend {
	if older <= 0 {
		return domain.TrendStable
	}
	change := (newer - older) / older
	switch {
	case change > band:
		return domain.TrendRising
	case change < -band:
		return domain.TrendFalling
	default:
		return domain.TrendStable
	}
}

func classifyVelocity(cfg DynamicsConfig, turnover float64) domain.Velocity {
	switch {
	case turnover >= cfg.FastMin:
		return domain.VelocityFast
	case turnover <= cfg.SlowMax:
		return domain.VelocitySlow
	default:
		return domain.VelocityModerate
	}
}

// classifyRegime combines trend and velocity into the market temperature.
// Hot: fast turnover with rising prices or shrinking inventory. Cold: slow
// turnover with falling prices or swelling inventory.
func classifyRegime(price, inventory domain.Trend, velocity domain.Velocity) domain.Regime {
	switch velocity {
	case domain.VelocityFast:
		if price == domain.TrendFalling {
			return domain.RegimeWarm
		}
		return domain.RegimeHot
	case domain.VelocitySlow:
		if price == domain.TrendFalling || inventory == domain.TrendRising {
			return domain.RegimeCold
		}
		return domain.RegimeCool
	default:
		if price == domain.TrendRising && inventory != domain.TrendRising {
			return domain.RegimeHot
		}
		if price == domain.TrendFalling {
			return domain.RegimeCool
		}
		return domain.RegimeWarm
	}
}

func avgPricePerM2(props []domain.Property) float64 {
	var sum float64
	n := 0
	for _, p := range props {
		if ppm := p.PricePerM2(); ppm > 0 {
			sum += ppm
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
