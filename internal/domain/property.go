package domain

import "time"

// PropertyStatus is the listing lifecycle state.
type PropertyStatus string

const (
	PropertyActive  PropertyStatus = "active"
	PropertySold    PropertyStatus = "sold"
	PropertyRemoved PropertyStatus = "removed"
)

// Property is reference data for a listed property. Ownership of this data
// belongs to the listing subsystem; the engine only reads it.
type Property struct {
	ID       string
	ZoneID   string
	Price    float64
	AreaM2   float64
	Status   PropertyStatus
	ListedAt time.Time
	ClosedAt *time.Time // set when status is sold or removed
}

// PricePerM2 returns the listing price per square meter, or 0 when the area
// is unknown.
func (p Property) PricePerM2() float64 {
	if p.AreaM2 <= 0 {
		return 0
	}
	return p.Price / p.AreaM2
}

// Zone is reference data for a geographic zone.
type Zone struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
}
