package domain

import "time"

// WaitRecommendation is the decision hint derived from horizon risk. The
// neutral band is explicit so ambiguous inputs never collapse into either
// extreme.
type WaitRecommendation string

const (
	RecommendActNow     WaitRecommendation = "act_now"
	RecommendNeutral    WaitRecommendation = "neutral"
	RecommendSafeToWait WaitRecommendation = "safe_to_wait"
)

// HorizonRisk is the modeled probability of losing the opportunity when
// delaying the decision by Days.
type HorizonRisk struct {
	Days              int     `json:"days"`
	ProbabilityOfLoss float64 `json:"probability_of_loss"` // [0, 0.9]
}

// WaitRiskForecast projects loss probability over fixed day horizons.
// Probabilities are non-decreasing in both days and pressure/velocity
// severity.
type WaitRiskForecast struct {
	PropertyID     string             `json:"property_id"`
	Horizons       []HorizonRisk      `json:"horizons"`
	Recommendation WaitRecommendation `json:"recommendation"`
	ForecastAt     time.Time          `json:"forecast_at"`
}

// Probability returns the modeled loss probability for the given horizon, or
// false when the horizon was not forecast.
func (f WaitRiskForecast) Probability(days int) (float64, bool) {
	for _, h := range f.Horizons {
		if h.Days == days {
			return h.ProbabilityOfLoss, true
		}
	}
	return 0, false
}
