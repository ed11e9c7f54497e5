package domain

// FairnessBadge classifies an offer's fairness ratio. The labels are the
// product's canonical Spanish badge names.
type FairnessBadge string

const (
	BadgeJusta    FairnessBadge = "justa"    // ratio in [0.95, 1.05]
	BadgeAgresiva FairnessBadge = "agresiva" // ratio in [0.85, 0.95)
	BadgeRiesgosa FairnessBadge = "riesgosa" // ratio < 0.85
	BadgeGenerosa FairnessBadge = "generosa" // ratio > 1.05
)

// ReferenceScope states which comparable pool produced the fair-price
// estimate: the property's own zone, or the radius fallback used when the
// zone is too sparse.
type ReferenceScope string

const (
	ScopeZone     ReferenceScope = "zone"
	ScopeFallback ReferenceScope = "fallback"
)

// FairnessAssessment is the result of scoring an offer against the estimated
// fair price. Ratio is exactly OfferAmount / FairPriceEstimate.
type FairnessAssessment struct {
	OfferID           string         `json:"offer_id,omitempty"`
	OfferAmount       float64        `json:"offer_amount"`
	FairPriceEstimate float64        `json:"fair_price_estimate"`
	Ratio             float64        `json:"ratio"`
	Badge             FairnessBadge  `json:"badge"`
	Difference        float64        `json:"difference"` // signed, OfferAmount - FairPriceEstimate
	DifferencePercent float64        `json:"difference_percent"`
	ReferenceScope    ReferenceScope `json:"reference_scope"`
	Confidence        float64        `json:"confidence"` // [0,1], reduced for sparse or fallback pools
	ComparableCount   int            `json:"comparable_count"`
	LowConfidence     bool           `json:"low_confidence"` // sparse comparables: explicit result, not an error
}
