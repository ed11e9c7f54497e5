package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// FairnessConfig tunes the comparable pool requirements.
type FairnessConfig struct {
	// MinComparables is the sample size below which the result is flagged
	// low-confidence (and below which the zone pool falls back to radius).
	MinComparables int

	// RecencyHorizon bounds how old a comparable listing may be before it
	// stops counting toward confidence.
	RecencyHorizon time.Duration
}

// DefaultFairnessConfig returns the production defaults.
func DefaultFairnessConfig() FairnessConfig {
	return FairnessConfig{
		MinComparables: 5,
		RecencyHorizon: 180 * 24 * time.Hour,
	}
}

// FairPriceEstimate derives a fair price for the subject property from a
// comparable pool using the median price per square meter. The median keeps
// a single mispriced listing from dragging the estimate. When the subject's
// area is unknown the median comparable price is used directly. Returns
// domain.ErrComputation when no positive estimate can be derived.
func FairPriceEstimate(subject domain.Property, comparables []domain.Property) (float64, error) {
	perM2 := make([]float64, 0, len(comparables))
	prices := make([]float64, 0, len(comparables))
	for _, c := range comparables {
		if c.ID == subject.ID || c.Price <= 0 {
			continue
		}
		prices = append(prices, c.Price)
		if ppm := c.PricePerM2(); ppm > 0 {
			perM2 = append(perM2, ppm)
		}
	}

	if subject.AreaM2 > 0 && len(perM2) > 0 {
		if est := median(perM2) * subject.AreaM2; est > 0 {
			return est, nil
		}
	}
	if len(prices) > 0 {
		if est := median(prices); est > 0 {
			return est, nil
		}
	}
	return 0, fmt.Errorf("fair price for property %s: %w", subject.ID, domain.ErrComputation)
}

// AssessFairness scores an offer against the fair estimate. Ratio is exactly
// offer/estimate. Badge boundaries are exact and documented on the badge
// constants; 0.95 and 1.05 are justa inclusive, 0.85 is agresiva inclusive.
func AssessFairness(cfg FairnessConfig, offer domain.Offer, estimate float64, scope domain.ReferenceScope, comparables []domain.Property, now time.Time) (domain.FairnessAssessment, error) {
	if estimate <= 0 {
		return domain.FairnessAssessment{}, fmt.Errorf("offer %s: non-positive estimate: %w", offer.ID, domain.ErrComputation)
	}

	ratio := offer.Amount / estimate
	diff := offer.Amount - estimate

	return domain.FairnessAssessment{
		OfferID:           offer.ID,
		OfferAmount:       offer.Amount,
		FairPriceEstimate: estimate,
		Ratio:             ratio,
		Badge:             Badge(ratio),
		Difference:        diff,
		DifferencePercent: diff / estimate * 100,
		ReferenceScope:    scope,
		Confidence:        confidence(cfg, scope, comparables, now),
		ComparableCount:   len(comparables),
		LowConfidence:     len(comparables) < cfg.MinComparables,
	}, nil
}

// Badge maps a fairness ratio to its classification.
func Badge(ratio float64) domain.FairnessBadge {
	switch {
	case ratio >= 0.95 && ratio <= 1.05:
		return domain.BadgeJusta
	case ratio >= 0.85 && ratio < 0.95:
		return domain.BadgeAgresiva
	case ratio < 0.85:
		return domain.BadgeRiesgosa
	default:
		return domain.BadgeGenerosa
	}
}

// confidence reflects pool scope, sample size, and recency. Zone-scoped
// pools start higher than radius fallbacks; stale or sparse pools lose
// confidence proportionally.
func confidence(cfg FairnessConfig, scope domain.ReferenceScope, comparables []domain.Property, now time.Time) float64 {
	base := 0.9
	if scope == domain.ScopeFallback {
		base = 0.7
	}

	if len(comparables) < cfg.MinComparables {
		base -= 0.1 * float64(cfg.MinComparables-len(comparables))
	}

	recent := 0
	for _, c := range comparables {
		if now.Sub(c.ListedAt) <= cfg.RecencyHorizon {
			recent++
		}
	}
	if len(comparables) > 0 {
		base *= 0.5 + 0.5*float64(recent)/float64(len(comparables))
	}

	if base < 0.1 {
		base = 0.1
	}
	return base
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
