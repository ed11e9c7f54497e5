package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// SignalEventStore implements domain.SignalEventStore using PostgreSQL.
type SignalEventStore struct {
	pool *pgxpool.Pool
}

// NewSignalEventStore creates a new SignalEventStore backed by the given pool.
func NewSignalEventStore(pool *pgxpool.Pool) *SignalEventStore {
	return &SignalEventStore{pool: pool}
}

const signalEventSelectCols = `id, property_id, signal_type, source, weight,
	COALESCE(reporter_id::text, ''), COALESCE(visit_id::text, ''), observed_at`

func scanSignalEventRows(rows pgx.Rows) ([]domain.SignalEvent, error) {
	var events []domain.SignalEvent
	for rows.Next() {
		var ev domain.SignalEvent
		if err := rows.Scan(
			&ev.ID, &ev.PropertyID, &ev.Type, &ev.Source, &ev.Weight,
			&ev.ReporterID, &ev.VisitID, &ev.ObservedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Append inserts one event into the log. The log is append-only; there is no
// update path.
func (s *SignalEventStore) Append(ctx context.Context, ev domain.SignalEvent) error {
	const query = `
		INSERT INTO signal_events (
			id, property_id, signal_type, source, weight,
			reporter_id, visit_id, observed_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, NULLIF($7, '')::uuid, $8)`

	_, err := s.pool.Exec(ctx, query,
		ev.ID, ev.PropertyID, string(ev.Type), string(ev.Source), ev.Weight,
		ev.ReporterID, ev.VisitID, ev.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append signal event for property %s: %w", ev.PropertyID, err)
	}
	return nil
}

// Exists reports whether the reporter already logged this signal type from
// this visit.
func (s *SignalEventStore) Exists(ctx context.Context, reporterID, visitID string, t domain.SignalType) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM signal_events
			WHERE reporter_id = $1 AND visit_id = $2 AND signal_type = $3
		)`, reporterID, visitID, string(t)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check signal event exists: %w", err)
	}
	return exists, nil
}

// ListByProperty returns all events for a property observed at or after
// since, oldest first.
func (s *SignalEventStore) ListByProperty(ctx context.Context, propertyID string, since time.Time) ([]domain.SignalEvent, error) {
	query := `SELECT ` + signalEventSelectCols + `
		FROM signal_events
		WHERE property_id = $1 AND observed_at >= $2
		ORDER BY observed_at ASC`

	rows, err := s.pool.Query(ctx, query, propertyID, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signal events for property %s: %w", propertyID, err)
	}
	defer rows.Close()

	events, err := scanSignalEventRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan signal events for property %s: %w", propertyID, err)
	}
	return events, nil
}

// ListPropertyIDs returns every property id with at least one event.
func (s *SignalEventStore) ListPropertyIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT property_id FROM signal_events`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signal event property ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan signal event property id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListBefore returns all events observed strictly before the given time (for archiving).
func (s *SignalEventStore) ListBefore(ctx context.Context, before time.Time) ([]domain.SignalEvent, error) {
	query := `SELECT ` + signalEventSelectCols + `
		FROM signal_events WHERE observed_at < $1 ORDER BY observed_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signal events before: %w", err)
	}
	defer rows.Close()
	return scanSignalEventRows(rows)
}

// DeleteBefore deletes all events observed before the given time. Returns the number deleted.
func (s *SignalEventStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM signal_events WHERE observed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete signal events before: %w", err)
	}
	return tag.RowsAffected(), nil
}
