package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// PropertyStore implements domain.PropertyStore using PostgreSQL.
type PropertyStore struct {
	pool *pgxpool.Pool
}

// NewPropertyStore creates a new PropertyStore backed by the given pool.
func NewPropertyStore(pool *pgxpool.Pool) *PropertyStore {
	return &PropertyStore{pool: pool}
}

const propertySelectCols = `id, zone_id, price, area_m2, status, listed_at, closed_at`

func scanPropertyRows(rows pgx.Rows) ([]domain.Property, error) {
	var props []domain.Property
	for rows.Next() {
		var p domain.Property
		if err := rows.Scan(
			&p.ID, &p.ZoneID, &p.Price, &p.AreaM2, &p.Status, &p.ListedAt, &p.ClosedAt,
		); err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

// GetByID returns one property, or domain.ErrNotFound.
func (s *PropertyStore) GetByID(ctx context.Context, id string) (domain.Property, error) {
	query := `SELECT ` + propertySelectCols + ` FROM properties WHERE id = $1`

	var p domain.Property
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ZoneID, &p.Price, &p.AreaM2, &p.Status, &p.ListedAt, &p.ClosedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Property{}, domain.ErrNotFound
		}
		return domain.Property{}, fmt.Errorf("postgres: get property %s: %w", id, err)
	}
	return p, nil
}

// ListActiveByZone returns active listings in a zone, newest first.
func (s *PropertyStore) ListActiveByZone(ctx context.Context, zoneID string) ([]domain.Property, error) {
	query := `SELECT ` + propertySelectCols + `
		FROM properties WHERE zone_id = $1 AND status = 'active'
		ORDER BY listed_at DESC`

	rows, err := s.pool.Query(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active properties in zone %s: %w", zoneID, err)
	}
	defer rows.Close()

	props, err := scanPropertyRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan active properties in zone %s: %w", zoneID, err)
	}
	return props, nil
}

// ListByZoneSince returns listings of any status listed at or after since.
func (s *PropertyStore) ListByZoneSince(ctx context.Context, zoneID string, since time.Time) ([]domain.Property, error) {
	query := `SELECT ` + propertySelectCols + `
		FROM properties WHERE zone_id = $1 AND listed_at >= $2
		ORDER BY listed_at ASC`

	rows, err := s.pool.Query(ctx, query, zoneID, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list properties in zone %s since: %w", zoneID, err)
	}
	defer rows.Close()

	props, err := scanPropertyRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan properties in zone %s since: %w", zoneID, err)
	}
	return props, nil
}
