package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// ZoneStore implements domain.ZoneStore using PostgreSQL.
type ZoneStore struct {
	pool *pgxpool.Pool
}

// NewZoneStore creates a new ZoneStore backed by the given pool.
func NewZoneStore(pool *pgxpool.Pool) *ZoneStore {
	return &ZoneStore{pool: pool}
}

// GetByID returns one zone, or domain.ErrNotFound.
func (s *ZoneStore) GetByID(ctx context.Context, id string) (domain.Zone, error) {
	var z domain.Zone
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, latitude, longitude FROM zones WHERE id = $1`, id).Scan(
		&z.ID, &z.Name, &z.Latitude, &z.Longitude,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Zone{}, domain.ErrNotFound
		}
		return domain.Zone{}, fmt.Errorf("postgres: get zone %s: %w", id, err)
	}
	return z, nil
}

// ListNearest returns up to limit zones ordered by centroid distance from the
// given zone, excluding the zone itself. Euclidean distance over lat/lng is
// close enough at neighbourhood scale.
func (s *ZoneStore) ListNearest(ctx context.Context, zoneID string, limit int) ([]domain.Zone, error) {
	const query = `
		SELECT z.id, z.name, z.latitude, z.longitude
		FROM zones z, zones origin
		WHERE origin.id = $1 AND z.id <> origin.id
		ORDER BY (z.latitude - origin.latitude)^2 + (z.longitude - origin.longitude)^2 ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, zoneID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list zones near %s: %w", zoneID, err)
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Latitude, &z.Longitude); err != nil {
			return nil, fmt.Errorf("postgres: scan zone near %s: %w", zoneID, err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}
