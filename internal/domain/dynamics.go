package domain

import "time"

// Trend is a direction classification over a comparison window.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendStable  Trend = "stable"
	TrendFalling Trend = "falling"
)

// Velocity classifies zone inventory turnover speed.
type Velocity string

const (
	VelocitySlow     Velocity = "slow"
	VelocityModerate Velocity = "moderate"
	VelocityFast     Velocity = "fast"
)

// Regime is the combined market temperature label.
type Regime string

const (
	RegimeHot  Regime = "hot"
	RegimeWarm Regime = "warm"
	RegimeCool Regime = "cool"
	RegimeCold Regime = "cold"
)

// ZoneMarketDynamics is the derived zone-level market view. Zones with too
// few samples return LowConfidence=true with stable trends instead of
// extrapolating; the operation never fails.
type ZoneMarketDynamics struct {
	ZoneID         string    `json:"zone_id"`
	PriceTrend     Trend     `json:"price_trend"`
	InventoryTrend Trend     `json:"inventory_trend"`
	Velocity       Velocity  `json:"velocity"`
	Regime         Regime    `json:"regime"`
	TurnoverRatio  float64   `json:"turnover_ratio"`
	SampleSize     int       `json:"sample_size"`
	LowConfidence  bool      `json:"low_confidence"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}
