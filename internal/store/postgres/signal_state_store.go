package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// SignalStateStore implements domain.SignalStateStore using PostgreSQL.
type SignalStateStore struct {
	pool *pgxpool.Pool
}

// NewSignalStateStore creates a new SignalStateStore backed by the given pool.
func NewSignalStateStore(pool *pgxpool.Pool) *SignalStateStore {
	return &SignalStateStore{pool: pool}
}

const signalStateSelectCols = `property_id, signal_type, strength, status,
	reporter_count, COALESCE(last_seen_at, 'epoch'::timestamptz), recomputed_at`

func scanSignalStateRows(rows pgx.Rows) ([]domain.SignalState, error) {
	var states []domain.SignalState
	for rows.Next() {
		var st domain.SignalState
		if err := rows.Scan(
			&st.PropertyID, &st.Type, &st.Strength, &st.Status,
			&st.ReporterCount, &st.LastSeenAt, &st.RecomputedAt,
		); err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// ReplaceAll deletes every state row for the property and inserts the given
// set in one transaction, so readers never see a partial recompute and
// concurrent recomputes resolve last-writer-wins.
func (s *SignalStateStore) ReplaceAll(ctx context.Context, propertyID string, states []domain.SignalState) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin replace signal states: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM signal_states WHERE property_id = $1`, propertyID); err != nil {
		return fmt.Errorf("postgres: clear signal states for property %s: %w", propertyID, err)
	}

	const query = `
		INSERT INTO signal_states (
			property_id, signal_type, strength, status,
			reporter_count, last_seen_at, recomputed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, st := range states {
		if _, err := tx.Exec(ctx, query,
			propertyID, string(st.Type), st.Strength, string(st.Status),
			st.ReporterCount, st.LastSeenAt, st.RecomputedAt,
		); err != nil {
			return fmt.Errorf("postgres: insert signal state %s/%s: %w", propertyID, st.Type, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit signal states for property %s: %w", propertyID, err)
	}
	return nil
}

// ListByProperty returns all current states for a property, ordered by type.
func (s *SignalStateStore) ListByProperty(ctx context.Context, propertyID string) ([]domain.SignalState, error) {
	query := `SELECT ` + signalStateSelectCols + `
		FROM signal_states WHERE property_id = $1 ORDER BY signal_type ASC`

	rows, err := s.pool.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signal states for property %s: %w", propertyID, err)
	}
	defer rows.Close()

	states, err := scanSignalStateRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan signal states for property %s: %w", propertyID, err)
	}
	return states, nil
}

// Get returns the state for one (property, type), or domain.ErrNotFound.
func (s *SignalStateStore) Get(ctx context.Context, propertyID string, t domain.SignalType) (domain.SignalState, error) {
	query := `SELECT ` + signalStateSelectCols + `
		FROM signal_states WHERE property_id = $1 AND signal_type = $2`

	var st domain.SignalState
	err := s.pool.QueryRow(ctx, query, propertyID, string(t)).Scan(
		&st.PropertyID, &st.Type, &st.Strength, &st.Status,
		&st.ReporterCount, &st.LastSeenAt, &st.RecomputedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.SignalState{}, domain.ErrNotFound
		}
		return domain.SignalState{}, fmt.Errorf("postgres: get signal state %s/%s: %w", propertyID, t, err)
	}
	return st, nil
}
