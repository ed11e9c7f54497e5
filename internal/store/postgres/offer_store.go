package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// OfferStore implements domain.OfferStore using PostgreSQL.
type OfferStore struct {
	pool *pgxpool.Pool
}

// NewOfferStore creates a new OfferStore backed by the given pool.
func NewOfferStore(pool *pgxpool.Pool) *OfferStore {
	return &OfferStore{pool: pool}
}

// GetByID returns one offer, or domain.ErrNotFound.
func (s *OfferStore) GetByID(ctx context.Context, id string) (domain.Offer, error) {
	var o domain.Offer
	err := s.pool.QueryRow(ctx, `
		SELECT id, property_id, buyer_id, seller_id, amount, status, created_at, expires_at
		FROM offers WHERE id = $1`, id).Scan(
		&o.ID, &o.PropertyID, &o.BuyerID, &o.SellerID, &o.Amount, &o.Status, &o.CreatedAt, &o.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Offer{}, domain.ErrNotFound
		}
		return domain.Offer{}, fmt.Errorf("postgres: get offer %s: %w", id, err)
	}
	return o, nil
}

// CountActive returns the number of pending/countered offers on a property.
func (s *OfferStore) CountActive(ctx context.Context, propertyID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM offers
		WHERE property_id = $1 AND status IN ('pending', 'countered')`,
		propertyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count active offers for property %s: %w", propertyID, err)
	}
	return count, nil
}

// CountActiveGrouped returns active-offer counts keyed by property id, for
// every property with at least one active offer.
func (s *OfferStore) CountActiveGrouped(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT property_id, COUNT(*) FROM offers
		WHERE status IN ('pending', 'countered')
		GROUP BY property_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: count active offers grouped: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var propertyID string
		var n int
		if err := rows.Scan(&propertyID, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan active offer count: %w", err)
		}
		counts[propertyID] = n
	}
	return counts, rows.Err()
}

// ListEvents returns the full negotiation history for an offer, oldest first.
func (s *OfferStore) ListEvents(ctx context.Context, offerID string) ([]domain.NegotiationEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, offer_id, event_type, price, closing_date, contingencies, actor_role, created_at
		FROM negotiation_events
		WHERE offer_id = $1
		ORDER BY created_at ASC`, offerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list negotiation events for offer %s: %w", offerID, err)
	}
	defer rows.Close()

	var events []domain.NegotiationEvent
	for rows.Next() {
		var ev domain.NegotiationEvent
		if err := rows.Scan(
			&ev.ID, &ev.OfferID, &ev.Type, &ev.Price, &ev.ClosingDate,
			&ev.Contingencies, &ev.ActorRole, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan negotiation event for offer %s: %w", offerID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
