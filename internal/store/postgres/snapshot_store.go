package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL. The
// structured sections of a snapshot (friction, rhythm, market, insight) are
// stored as JSONB; alerts live in their own table keyed by snapshot.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a new SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Insert persists a snapshot and its alerts in one transaction.
func (s *SnapshotStore) Insert(ctx context.Context, snap domain.NegotiationSnapshot) error {
	friction, err := json.Marshal(snap.Friction)
	if err != nil {
		return fmt.Errorf("postgres: marshal snapshot friction: %w", err)
	}
	rhythm, err := json.Marshal(snap.Rhythm)
	if err != nil {
		return fmt.Errorf("postgres: marshal snapshot rhythm: %w", err)
	}
	market, err := json.Marshal(snap.Market)
	if err != nil {
		return fmt.Errorf("postgres: marshal snapshot market: %w", err)
	}
	insight, err := json.Marshal(snap.Insight)
	if err != nil {
		return fmt.Errorf("postgres: marshal snapshot insight: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin insert snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO negotiation_snapshots (
			id, offer_id, event_id, alignment,
			friction, rhythm, market, insight,
			coherence_score, generated_at
		) VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, $10)`,
		snap.ID, snap.OfferID, snap.EventID, string(snap.Alignment),
		friction, rhythm, market, insight,
		snap.CoherenceScore, snap.GeneratedAt,
	); err != nil {
		return fmt.Errorf("postgres: insert snapshot for offer %s: %w", snap.OfferID, err)
	}

	for _, a := range snap.Alerts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO negotiation_alerts (id, snapshot_id, offer_id, alert_type, delivered, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, snap.ID, a.OfferID, string(a.Type), a.Delivered, a.CreatedAt,
		); err != nil {
			return fmt.Errorf("postgres: insert snapshot alert %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit snapshot for offer %s: %w", snap.OfferID, err)
	}
	return nil
}

func scanSnapshot(row pgx.Row) (domain.NegotiationSnapshot, error) {
	var snap domain.NegotiationSnapshot
	var eventID *string
	var friction, rhythm, market, insight []byte

	err := row.Scan(
		&snap.ID, &snap.OfferID, &eventID, &snap.Alignment,
		&friction, &rhythm, &market, &insight,
		&snap.CoherenceScore, &snap.GeneratedAt,
	)
	if err != nil {
		return domain.NegotiationSnapshot{}, err
	}
	if eventID != nil {
		snap.EventID = *eventID
	}

	if err := json.Unmarshal(friction, &snap.Friction); err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("unmarshal friction: %w", err)
	}
	if err := json.Unmarshal(rhythm, &snap.Rhythm); err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("unmarshal rhythm: %w", err)
	}
	if err := json.Unmarshal(market, &snap.Market); err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("unmarshal market: %w", err)
	}
	if err := json.Unmarshal(insight, &snap.Insight); err != nil {
		return domain.NegotiationSnapshot{}, fmt.Errorf("unmarshal insight: %w", err)
	}
	return snap, nil
}

const snapshotSelectCols = `id, offer_id, event_id::text, alignment,
	friction, rhythm, market, insight, coherence_score, generated_at`

// Latest returns the most recent snapshot for an offer, or domain.ErrNotFound
// when no snapshot exists yet.
func (s *SnapshotStore) Latest(ctx context.Context, offerID string) (domain.NegotiationSnapshot, error) {
	query := `SELECT ` + snapshotSelectCols + `
		FROM negotiation_snapshots
		WHERE offer_id = $1
		ORDER BY generated_at DESC
		LIMIT 1`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, offerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.NegotiationSnapshot{}, domain.ErrNotFound
		}
		return domain.NegotiationSnapshot{}, fmt.Errorf("postgres: latest snapshot for offer %s: %w", offerID, err)
	}
	return snap, nil
}

// ListUndeliveredAlerts returns alerts for an offer that have not been
// delivered yet, oldest first.
func (s *SnapshotStore) ListUndeliveredAlerts(ctx context.Context, offerID string) ([]domain.NegotiationAlert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, snapshot_id, offer_id, alert_type, delivered, created_at
		FROM negotiation_alerts
		WHERE offer_id = $1 AND NOT delivered
		ORDER BY created_at ASC`, offerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list undelivered alerts for offer %s: %w", offerID, err)
	}
	defer rows.Close()

	var alerts []domain.NegotiationAlert
	for rows.Next() {
		var a domain.NegotiationAlert
		if err := rows.Scan(&a.ID, &a.SnapshotID, &a.OfferID, &a.Type, &a.Delivered, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan undelivered alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// MarkAlertsDelivered flags the given alerts as delivered.
func (s *SnapshotStore) MarkAlertsDelivered(ctx context.Context, alertIDs []string) error {
	if len(alertIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE negotiation_alerts SET delivered = TRUE WHERE id = ANY($1)`, alertIDs)
	if err != nil {
		return fmt.Errorf("postgres: mark alerts delivered: %w", err)
	}
	return nil
}

// ListBefore returns snapshots generated strictly before the given time (for archiving).
func (s *SnapshotStore) ListBefore(ctx context.Context, before time.Time) ([]domain.NegotiationSnapshot, error) {
	query := `SELECT ` + snapshotSelectCols + `
		FROM negotiation_snapshots WHERE generated_at < $1 ORDER BY generated_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots before: %w", err)
	}
	defer rows.Close()

	var snaps []domain.NegotiationSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot before: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DeleteBefore deletes snapshots (and their alerts) generated before the
// given time. Returns the number of snapshots deleted.
func (s *SnapshotStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin delete snapshots before: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM negotiation_alerts WHERE snapshot_id IN (
			SELECT id FROM negotiation_snapshots WHERE generated_at < $1
		)`, before); err != nil {
		return 0, fmt.Errorf("postgres: delete snapshot alerts before: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM negotiation_snapshots WHERE generated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete snapshots before: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit delete snapshots before: %w", err)
	}
	return tag.RowsAffected(), nil
}
