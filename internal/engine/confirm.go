package engine

import (
	"sort"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// LiveCounts carries the live reference counts that system-type confirmation
// rules check against, resolved by the caller at recompute time.
type LiveCounts struct {
	ActiveOffers int // offers in pending/countered
	RecentVisits int // verified visits in the trailing short window
}

// Aggregate recomputes the full set of signal states for one property from
// its event log. It is the deterministic core of recomputation: given the
// same events, counts and clock it always produces the same states, which is
// what makes concurrent recomputes safe to overwrite last-writer-wins.
func Aggregate(cfg AggregateConfig, events []domain.SignalEvent, live LiveCounts, now time.Time) []domain.SignalState {
	byType := make(map[domain.SignalType][]domain.SignalEvent)
	for _, ev := range events {
		byType[ev.Type] = append(byType[ev.Type], ev)
	}

	states := make([]domain.SignalState, 0, len(byType))
	for t, evs := range byType {
		states = append(states, aggregateType(cfg, t, evs, live, now))
	}

	// Stable output order so successive recomputes persist identical rows.
	sort.Slice(states, func(i, j int) bool { return states[i].Type < states[j].Type })
	return states
}

// Carryover unions previously persisted types into a recomputed set. When
// every event of a type has aged out of the window the type keeps a
// zero-strength unconfirmed row instead of disappearing from the store, so
// confirmed types always leave through an explicit transition.
func Carryover(prev, curr []domain.SignalState, now time.Time) []domain.SignalState {
	currTypes := make(map[domain.SignalType]struct{}, len(curr))
	for _, s := range curr {
		currTypes[s.Type] = struct{}{}
	}

	out := curr
	for _, p := range prev {
		if _, ok := currTypes[p.Type]; ok {
			continue
		}
		out = append(out, domain.SignalState{
			PropertyID:   p.PropertyID,
			Type:         p.Type,
			Status:       domain.StatusUnconfirmed,
			LastSeenAt:   p.LastSeenAt,
			RecomputedAt: now,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func aggregateType(cfg AggregateConfig, t domain.SignalType, events []domain.SignalEvent, live LiveCounts, now time.Time) domain.SignalState {
	windowStart := now.Add(-cfg.Window)

	var lastSeen time.Time
	reporters := make(map[string]struct{})
	inWindow := 0
	for _, ev := range events {
		if ev.ObservedAt.After(lastSeen) {
			lastSeen = ev.ObservedAt
		}
		if ev.ObservedAt.Before(windowStart) {
			continue
		}
		inWindow++
		if ev.Source == domain.SourceUser && ev.ReporterID != "" {
			reporters[ev.ReporterID] = struct{}{}
		}
	}

	state := domain.SignalState{
		PropertyID:    events[0].PropertyID,
		Type:          t,
		Strength:      cfg.Strength(events, now),
		Status:        domain.StatusUnconfirmed,
		ReporterCount: len(reporters),
		LastSeenAt:    lastSeen,
		RecomputedAt:  now,
	}

	if confirmed(cfg, t, state, live, inWindow) {
		state.Status = domain.StatusConfirmed
	}
	return state
}

// confirmed evaluates the confirmation rule for a type. User-reportable
// types need ConfirmReporters distinct reporters inside the window; system
// types check live counts or decayed strength. The rule is re-evaluated on
// every recomputation, never latched, so ageing reports unconfirm a signal.
func confirmed(cfg AggregateConfig, t domain.SignalType, s domain.SignalState, live LiveCounts, inWindow int) bool {
	if t.UserReportable() {
		return s.ReporterCount >= cfg.ConfirmReporters
	}
	switch t {
	case domain.SignalCompetingOffers:
		return live.ActiveOffers >= cfg.CompetingOffersMin
	case domain.SignalManyVisits:
		return live.RecentVisits >= cfg.ManyVisitsMin
	case domain.SignalHighActivity:
		return s.Strength >= cfg.HighActivityStrength
	case domain.SignalPriceDrop:
		return inWindow > 0
	default:
		return false
	}
}

// Edges compares previous and current states for one property and returns
// every confirmation transition in either direction. Callers alert on the
// returned edges, not on the current level, so repeated recomputations never
// re-notify. A confirmed type missing from curr entirely still unconfirms;
// a deleted row is not an exit path from the confirmed status.
func Edges(prev, curr []domain.SignalState, now time.Time) []domain.SignalEdge {
	prevByType := make(map[domain.SignalType]domain.SignalStatus, len(prev))
	for _, s := range prev {
		prevByType[s.Type] = s.Status
	}

	var edges []domain.SignalEdge
	currTypes := make(map[domain.SignalType]struct{}, len(curr))
	for _, s := range curr {
		currTypes[s.Type] = struct{}{}
		before, ok := prevByType[s.Type]
		if !ok {
			before = domain.StatusUnconfirmed
		}
		if before == s.Status {
			continue
		}
		edges = append(edges, domain.SignalEdge{
			PropertyID: s.PropertyID,
			Type:       s.Type,
			From:       before,
			To:         s.Status,
			Strength:   s.Strength,
			At:         now,
		})
	}

	for _, p := range prev {
		if _, ok := currTypes[p.Type]; ok {
			continue
		}
		if p.Status != domain.StatusConfirmed {
			continue
		}
		edges = append(edges, domain.SignalEdge{
			PropertyID: p.PropertyID,
			Type:       p.Type,
			From:       domain.StatusConfirmed,
			To:         domain.StatusUnconfirmed,
			At:         now,
		})
	}
	return edges
}
