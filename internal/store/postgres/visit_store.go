package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// VisitStore implements domain.VisitStore using PostgreSQL.
type VisitStore struct {
	pool *pgxpool.Pool
}

// NewVisitStore creates a new VisitStore backed by the given pool.
func NewVisitStore(pool *pgxpool.Pool) *VisitStore {
	return &VisitStore{pool: pool}
}

// GetByID returns one visit, or domain.ErrNotFound.
func (s *VisitStore) GetByID(ctx context.Context, id string) (domain.Visit, error) {
	var v domain.Visit
	err := s.pool.QueryRow(ctx, `
		SELECT id, property_id, visitor_id, status, verified_at, created_at
		FROM visits WHERE id = $1`, id).Scan(
		&v.ID, &v.PropertyID, &v.VisitorID, &v.Status, &v.VerifiedAt, &v.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Visit{}, domain.ErrNotFound
		}
		return domain.Visit{}, fmt.Errorf("postgres: get visit %s: %w", id, err)
	}
	return v, nil
}

// CountVerifiedSince returns how many verified visits the property received
// at or after since.
func (s *VisitStore) CountVerifiedSince(ctx context.Context, propertyID string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM visits
		WHERE property_id = $1 AND verified_at IS NOT NULL AND verified_at >= $2`,
		propertyID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count verified visits for property %s: %w", propertyID, err)
	}
	return count, nil
}
