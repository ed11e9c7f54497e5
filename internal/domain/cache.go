package domain

import (
	"context"
	"time"
)

// StateCache provides fast reads of derived signal states per property.
type StateCache interface {
	SetStates(ctx context.Context, propertyID string, states []SignalState) error
	GetStates(ctx context.Context, propertyID string) ([]SignalState, error)
	Invalidate(ctx context.Context, propertyID string) error
}

// DynamicsCache caches zone market dynamics with a short TTL.
type DynamicsCache interface {
	Set(ctx context.Context, d ZoneMarketDynamics) error
	Get(ctx context.Context, zoneID string) (ZoneMarketDynamics, error)
}

// PressureCache caches composed pressure states with a short TTL.
type PressureCache interface {
	Set(ctx context.Context, p PressureState) error
	Get(ctx context.Context, propertyID string) (PressureState, error)
}

// LockManager provides distributed locking, used to keep bulk recompute runs
// singleton across instances.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub for edge events and durable streams for their
// history.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
