package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver. The archiver only needs
// the time-ranged query methods it actually calls, not the full domain store
// interfaces; the Postgres stores satisfy these implicitly.
// ---------------------------------------------------------------------------

// SignalEventArchiveStore provides read access to aged signal events.
type SignalEventArchiveStore interface {
	// ListBefore returns all events observed strictly before the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.SignalEvent, error)
}

// SnapshotArchiveStore provides read access to aged negotiation snapshots.
type SnapshotArchiveStore interface {
	// ListBefore returns all snapshots generated strictly before the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.NegotiationSnapshot, error)
}

// ArchiveImpl implements domain.Archiver by querying the stores for aged
// rows, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of the archived rows from the primary store is intentionally NOT
// performed here. That is a separate, explicit step executed after the
// archive has been verified.
type ArchiveImpl struct {
	writer    domain.BlobWriter
	events    SignalEventArchiveStore
	snapshots SnapshotArchiveStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, events SignalEventArchiveStore, snapshots SnapshotArchiveStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		events:    events,
		snapshots: snapshots,
	}
}

// ArchiveSignalEvents queries all signal events before the cutoff,
// serializes them to JSONL, and uploads the file to S3 at
// archive/signal_events/YYYY-MM.jsonl. Returns the number of archived rows.
func (a *ArchiveImpl) ArchiveSignalEvents(ctx context.Context, before time.Time) (int64, error) {
	events, err := a.events.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive signal events query: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive signal events marshal: %w", err)
	}

	path := archivePath("signal_events", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive signal events upload: %w", err)
	}

	return int64(len(events)), nil
}

// ArchiveSnapshots queries all negotiation snapshots before the cutoff,
// serializes them to JSONL, and uploads the file to S3 at
// archive/snapshots/YYYY-MM.jsonl. Returns the number of archived rows.
func (a *ArchiveImpl) ArchiveSnapshots(ctx context.Context, before time.Time) (int64, error) {
	snaps, err := a.snapshots.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots query: %w", err)
	}
	if len(snaps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(snaps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots marshal: %w", err)
	}

	path := archivePath("snapshots", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots upload: %w", err)
	}

	return int64(len(snaps)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/signal_events/2026-08.jsonl
//	archive/snapshots/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
