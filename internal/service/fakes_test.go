package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// In-memory fakes for the store, cache and bus interfaces. All fakes are
// safe for concurrent use so bulk-recompute tests can run with real
// parallelism.

type fakeEventStore struct {
	mu     sync.Mutex
	events []domain.SignalEvent
	err    error
}

func (f *fakeEventStore) Append(_ context.Context, ev domain.SignalEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEventStore) Exists(_ context.Context, reporterID, visitID string, t domain.SignalType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.events {
		if ev.ReporterID == reporterID && ev.VisitID == visitID && ev.Type == t {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEventStore) ListByProperty(_ context.Context, propertyID string, since time.Time) ([]domain.SignalEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SignalEvent
	for _, ev := range f.events {
		if ev.PropertyID == propertyID && !ev.ObservedAt.Before(since) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out, nil
}

func (f *fakeEventStore) ListPropertyIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, ev := range f.events {
		if _, ok := seen[ev.PropertyID]; !ok {
			seen[ev.PropertyID] = struct{}{}
			out = append(out, ev.PropertyID)
		}
	}
	return out, nil
}

func (f *fakeEventStore) ListBefore(_ context.Context, before time.Time) ([]domain.SignalEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SignalEvent
	for _, ev := range f.events {
		if ev.ObservedAt.Before(before) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeEventStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.events[:0]
	var n int64
	for _, ev := range f.events {
		if ev.ObservedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	f.events = kept
	return n, nil
}

type fakeStateStore struct {
	mu     sync.Mutex
	states map[string][]domain.SignalState // by property id
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string][]domain.SignalState)}
}

func (f *fakeStateStore) ReplaceAll(_ context.Context, propertyID string, states []domain.SignalState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[propertyID] = append([]domain.SignalState(nil), states...)
	return nil
}

func (f *fakeStateStore) ListByProperty(_ context.Context, propertyID string) ([]domain.SignalState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SignalState(nil), f.states[propertyID]...), nil
}

func (f *fakeStateStore) Get(_ context.Context, propertyID string, t domain.SignalType) (domain.SignalState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.states[propertyID] {
		if s.Type == t {
			return s, nil
		}
	}
	return domain.SignalState{}, domain.ErrNotFound
}

type fakePropertyStore struct {
	properties map[string]domain.Property
}

func (f *fakePropertyStore) GetByID(_ context.Context, id string) (domain.Property, error) {
	p, ok := f.properties[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePropertyStore) ListActiveByZone(_ context.Context, zoneID string) ([]domain.Property, error) {
	var out []domain.Property
	for _, p := range f.properties {
		if p.ZoneID == zoneID && p.Status == domain.PropertyActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePropertyStore) ListByZoneSince(_ context.Context, zoneID string, since time.Time) ([]domain.Property, error) {
	var out []domain.Property
	for _, p := range f.properties {
		if p.ZoneID == zoneID && !p.ListedAt.Before(since) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeZoneStore struct {
	zones   map[string]domain.Zone
	nearest map[string][]domain.Zone
}

func (f *fakeZoneStore) GetByID(_ context.Context, id string) (domain.Zone, error) {
	z, ok := f.zones[id]
	if !ok {
		return domain.Zone{}, domain.ErrNotFound
	}
	return z, nil
}

func (f *fakeZoneStore) ListNearest(_ context.Context, zoneID string, limit int) ([]domain.Zone, error) {
	near := f.nearest[zoneID]
	if len(near) > limit {
		near = near[:limit]
	}
	return near, nil
}

type fakeVisitStore struct {
	visits   map[string]domain.Visit
	verified map[string]int // property id -> recent verified count
}

func (f *fakeVisitStore) GetByID(_ context.Context, id string) (domain.Visit, error) {
	v, ok := f.visits[id]
	if !ok {
		return domain.Visit{}, domain.ErrNotFound
	}
	return v, nil
}

func (f *fakeVisitStore) CountVerifiedSince(_ context.Context, propertyID string, _ time.Time) (int, error) {
	return f.verified[propertyID], nil
}

type fakeOfferStore struct {
	offers map[string]domain.Offer
	events map[string][]domain.NegotiationEvent // by offer id
}

func (f *fakeOfferStore) GetByID(_ context.Context, id string) (domain.Offer, error) {
	o, ok := f.offers[id]
	if !ok {
		return domain.Offer{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeOfferStore) CountActive(_ context.Context, propertyID string) (int, error) {
	n := 0
	for _, o := range f.offers {
		if o.PropertyID == propertyID && o.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (f *fakeOfferStore) CountActiveGrouped(_ context.Context) (map[string]int, error) {
	out := make(map[string]int)
	for _, o := range f.offers {
		if o.Status.Active() {
			out[o.PropertyID]++
		}
	}
	return out, nil
}

func (f *fakeOfferStore) ListEvents(_ context.Context, offerID string) ([]domain.NegotiationEvent, error) {
	return append([]domain.NegotiationEvent(nil), f.events[offerID]...), nil
}

type fakeSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string][]domain.NegotiationSnapshot // by offer id
	delivered map[string]bool                         // alert id -> delivered
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{
		snapshots: make(map[string][]domain.NegotiationSnapshot),
		delivered: make(map[string]bool),
	}
}

func (f *fakeSnapshotStore) Insert(_ context.Context, snap domain.NegotiationSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[snap.OfferID] = append(f.snapshots[snap.OfferID], snap)
	return nil
}

func (f *fakeSnapshotStore) Latest(_ context.Context, offerID string) (domain.NegotiationSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snaps := f.snapshots[offerID]
	if len(snaps) == 0 {
		return domain.NegotiationSnapshot{}, domain.ErrNotFound
	}
	return snaps[len(snaps)-1], nil
}

func (f *fakeSnapshotStore) ListUndeliveredAlerts(_ context.Context, offerID string) ([]domain.NegotiationAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.NegotiationAlert
	for _, snap := range f.snapshots[offerID] {
		for _, a := range snap.Alerts {
			if !f.delivered[a.ID] {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (f *fakeSnapshotStore) MarkAlertsDelivered(_ context.Context, alertIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range alertIDs {
		f.delivered[id] = true
	}
	return nil
}

func (f *fakeSnapshotStore) ListBefore(_ context.Context, before time.Time) ([]domain.NegotiationSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.NegotiationSnapshot
	for _, snaps := range f.snapshots {
		for _, s := range snaps {
			if s.GeneratedAt.Before(before) {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeSnapshotStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, snaps := range f.snapshots {
		kept := snaps[:0]
		for _, s := range snaps {
			if s.GeneratedAt.Before(before) {
				n++
				continue
			}
			kept = append(kept, s)
		}
		f.snapshots[id] = kept
	}
	return n, nil
}

type fakeStateCache struct {
	mu     sync.Mutex
	states map[string][]domain.SignalState
	setErr error
}

func newFakeStateCache() *fakeStateCache {
	return &fakeStateCache{states: make(map[string][]domain.SignalState)}
}

func (f *fakeStateCache) SetStates(_ context.Context, propertyID string, states []domain.SignalState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.states[propertyID] = append([]domain.SignalState(nil), states...)
	return nil
}

func (f *fakeStateCache) GetStates(_ context.Context, propertyID string) ([]domain.SignalState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	states, ok := f.states[propertyID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return states, nil
}

func (f *fakeStateCache) Invalidate(_ context.Context, propertyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, propertyID)
	return nil
}

type fakeDynamicsCache struct {
	mu      sync.Mutex
	entries map[string]domain.ZoneMarketDynamics
}

func newFakeDynamicsCache() *fakeDynamicsCache {
	return &fakeDynamicsCache{entries: make(map[string]domain.ZoneMarketDynamics)}
}

func (f *fakeDynamicsCache) Set(_ context.Context, d domain.ZoneMarketDynamics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[d.ZoneID] = d
	return nil
}

func (f *fakeDynamicsCache) Get(_ context.Context, zoneID string) (domain.ZoneMarketDynamics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.entries[zoneID]
	if !ok {
		return domain.ZoneMarketDynamics{}, domain.ErrNotFound
	}
	return d, nil
}

type fakePressureCache struct {
	mu      sync.Mutex
	entries map[string]domain.PressureState
}

func newFakePressureCache() *fakePressureCache {
	return &fakePressureCache{entries: make(map[string]domain.PressureState)}
}

func (f *fakePressureCache) Set(_ context.Context, p domain.PressureState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[p.PropertyID] = p
	return nil
}

func (f *fakePressureCache) Get(_ context.Context, propertyID string) (domain.PressureState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.entries[propertyID]
	if !ok {
		return domain.PressureState{}, domain.ErrNotFound
	}
	return p, nil
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streamed  map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		published: make(map[string][][]byte),
		streamed:  make(map[string][][]byte),
	}
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[channel] = append(f.published[channel], payload)
	return nil
}

func (f *fakeBus) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (f *fakeBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamed[stream] = append(f.streamed[stream], payload)
	return nil
}

func (f *fakeBus) StreamRead(_ context.Context, stream string, _ string, _ int) ([]domain.StreamMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.StreamMessage
	for _, p := range f.streamed[stream] {
		out = append(out, domain.StreamMessage{Payload: p})
	}
	return out, nil
}

type fakeLockManager struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLockManager() *fakeLockManager {
	return &fakeLockManager{held: make(map[string]bool)}
}

func (f *fakeLockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, key)
	}, nil
}
