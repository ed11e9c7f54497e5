package domain

import "time"

// OfferStatus is the negotiation lifecycle state of an offer.
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferCountered OfferStatus = "countered"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferExpired   OfferStatus = "expired"
)

// Active reports whether the offer still competes for the property. Pressure
// and detector logic count only active offers.
func (s OfferStatus) Active() bool {
	return s == OfferPending || s == OfferCountered
}

// Offer is reference data for a purchase offer on a property.
type Offer struct {
	ID         string
	PropertyID string
	BuyerID    string
	SellerID   string
	Amount     float64
	Status     OfferStatus
	CreatedAt  time.Time
	ExpiresAt  *time.Time
}

// NegotiationEventType tags one step in an offer's negotiation history.
type NegotiationEventType string

const (
	EventOfferSent       NegotiationEventType = "offer_sent"
	EventCounterReceived NegotiationEventType = "counter_received"
	EventCounterSent     NegotiationEventType = "counter_sent"
	EventAccepted        NegotiationEventType = "accepted"
	EventRejected        NegotiationEventType = "rejected"
	EventExpired         NegotiationEventType = "expired"
)

// NegotiationEvent is one append-only step in an offer thread. Price is nil
// for events that do not carry an amount (e.g. rejection).
type NegotiationEvent struct {
	ID            string
	OfferID       string
	Type          NegotiationEventType
	Price         *float64
	ClosingDate   *time.Time
	Contingencies []string
	ActorRole     string // buyer, seller, agent, system
	CreatedAt     time.Time
}
