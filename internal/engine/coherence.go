package engine

import (
	"math"
	"time"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// smallPriceDelta is the relative counter-offer movement below which a price
// change counts as friction rather than progress.
const smallPriceDelta = 0.02

// CoherenceInputs is everything a snapshot is computed from: the offer's
// full event history (oldest first), the market backdrop resolved at the
// same instant, and the previous snapshot when one exists.
type CoherenceInputs struct {
	OfferID  string
	Events   []domain.NegotiationEvent
	Market   domain.MarketContext
	Previous *domain.NegotiationSnapshot
}

// ComputeSnapshot assembles the point-in-time coherence view for an offer
// thread. The result is deterministic in its inputs; persistence and alert
// row creation are the caller's concern.
func ComputeSnapshot(in CoherenceInputs, now time.Time) domain.NegotiationSnapshot {
	var latestEventID string
	if n := len(in.Events); n > 0 {
		latestEventID = in.Events[n-1].ID
	}

	friction := computeFriction(in.Events)
	rhythm := computeRhythm(in.Events)
	alignment := computeAlignment(friction, rhythm, in.Previous)

	snap := domain.NegotiationSnapshot{
		OfferID:        in.OfferID,
		EventID:        latestEventID,
		Alignment:      alignment,
		Friction:       friction,
		Rhythm:         rhythm,
		Market:         in.Market,
		Insight:        computeInsight(alignment, rhythm, friction),
		CoherenceScore: coherenceScore(alignment, rhythm.State, friction.Overall, in.Market.Pressure.Level),
		GeneratedAt:    now,
	}

	for _, t := range alertEdges(snap, in.Previous) {
		snap.Alerts = append(snap.Alerts, domain.NegotiationAlert{
			OfferID:   in.OfferID,
			Type:      t,
			CreatedAt: now,
		})
	}
	return snap
}

// computeFriction grades disagreement per dimension from successive events.
// An unchanged counter price is the strongest stall indicator; a token move
// under smallPriceDelta is medium.
func computeFriction(events []domain.NegotiationEvent) domain.Friction {
	f := domain.Friction{
		Price:    domain.FrictionNone,
		Timeline: domain.FrictionLow,
		Terms:    domain.FrictionLow,
	}

	priced := make([]domain.NegotiationEvent, 0, len(events))
	for _, ev := range events {
		if ev.Price != nil {
			priced = append(priced, ev)
		}
	}
	if len(priced) >= 2 {
		last := priced[len(priced)-1]
		prev := priced[len(priced)-2]
		delta := math.Abs(*last.Price - *prev.Price)
		switch {
		case delta == 0:
			f.Price = domain.FrictionHigh
		case *prev.Price > 0 && delta / *prev.Price < smallPriceDelta:
			f.Price = domain.FrictionMedium
		default:
			f.Price = domain.FrictionLow
		}
	}

	if len(events) >= 2 {
		last := events[len(events)-1]
		prev := events[len(events)-2]
		if last.ClosingDate != nil && prev.ClosingDate != nil && last.ClosingDate.Equal(*prev.ClosingDate) {
			f.Timeline = domain.FrictionMedium
		}
		if len(newContingencies(prev.Contingencies, last.Contingencies)) > 0 {
			f.Terms = domain.FrictionHigh
		}
	}

	f.Dominant, f.Overall = dominantFriction(f)
	return f
}

func newContingencies(prev, curr []string) []string {
	known := make(map[string]struct{}, len(prev))
	for _, c := range prev {
		known[c] = struct{}{}
	}
	var added []string
	for _, c := range curr {
		if _, ok := known[c]; !ok {
			added = append(added, c)
		}
	}
	return added
}

func frictionRank(l domain.FrictionLevel) int {
	switch l {
	case domain.FrictionHigh:
		return 3
	case domain.FrictionMedium:
		return 2
	case domain.FrictionLow:
		return 1
	default:
		return 0
	}
}

func dominantFriction(f domain.Friction) (domain.FrictionArea, domain.FrictionLevel) {
	type entry struct {
		area  domain.FrictionArea
		level domain.FrictionLevel
	}
	// Price first: ties resolve toward the dimension negotiations stall on.
	entries := []entry{
		{domain.AreaPrice, f.Price},
		{domain.AreaTimeline, f.Timeline},
		{domain.AreaTerms, f.Terms},
	}

	high := 0
	best := entries[0]
	for _, e := range entries {
		if e.level == domain.FrictionHigh {
			high++
		}
		if frictionRank(e.level) > frictionRank(best.level) {
			best = e
		}
	}
	if high > 1 {
		return domain.AreaMixed, domain.FrictionHigh
	}
	return best.area, best.level
}

// computeRhythm measures response cadence from event spacing and concession
// shape from the last price moves. With fewer than three events there is not
// enough history; Sampled stays false and the state is normal.
func computeRhythm(events []domain.NegotiationEvent) domain.Rhythm {
	r := domain.Rhythm{
		State:             domain.RhythmNormal,
		Trend:             domain.ResponseStable,
		ConcessionPattern: domain.ConcessionConsistent,
	}
	if len(events) < 3 {
		return r
	}
	r.Sampled = true

	gaps := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		gaps = append(gaps, events[i].CreatedAt.Sub(events[i-1].CreatedAt).Hours())
	}

	prior := gaps[:len(gaps)-1]
	latest := gaps[len(gaps)-1]

	var sum float64
	for _, g := range prior {
		sum += g
	}
	avg := sum / float64(len(prior))
	r.AvgResponseHours = avg

	switch {
	case latest < avg*0.8:
		r.Trend = domain.ResponseFaster
		r.State = domain.RhythmFast
	case latest > avg*1.2:
		r.Trend = domain.ResponseSlower
		r.State = domain.RhythmSlowing
	}

	r.ConcessionPattern = concessionPattern(events)
	return r
}

// concessionPattern classifies the last three price deltas: shrinking to
// under half the first delta is stalled, roughly equal deltas are
// consistent, anything else is erratic.
func concessionPattern(events []domain.NegotiationEvent) domain.ConcessionPattern {
	var prices []float64
	for _, ev := range events {
		if ev.Price != nil {
			prices = append(prices, *ev.Price)
		}
	}
	if len(prices) > 4 {
		prices = prices[len(prices)-4:]
	}
	if len(prices) < 3 {
		return domain.ConcessionConsistent
	}

	deltas := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		deltas = append(deltas, math.Abs(prices[i]-prices[i-1]))
	}
	if deltas[0] == 0 {
		return domain.ConcessionStalled
	}

	shrinking := true
	consistent := true
	for i, d := range deltas {
		if i > 0 && d > deltas[i-1]*0.9 {
			shrinking = false
		}
		if math.Abs(d-deltas[0])/deltas[0] >= 0.2 {
			consistent = false
		}
	}

	switch {
	case shrinking && deltas[len(deltas)-1] < deltas[0]*0.5:
		return domain.ConcessionStalled
	case consistent:
		return domain.ConcessionConsistent
	default:
		return domain.ConcessionErratic
	}
}

func computeAlignment(friction domain.Friction, rhythm domain.Rhythm, previous *domain.NegotiationSnapshot) domain.AlignmentState {
	improved := previous != nil &&
		frictionRank(friction.Overall) < frictionRank(previous.Friction.Overall)

	switch {
	case improved && rhythm.ConcessionPattern == domain.ConcessionConsistent:
		return domain.AlignmentImproving
	case friction.Overall == domain.FrictionHigh ||
		(rhythm.Sampled && rhythm.ConcessionPattern == domain.ConcessionStalled):
		return domain.AlignmentDeteriorating
	default:
		return domain.AlignmentStable
	}
}

// computeInsight maps the composed states to a structured code plus tactical
// options. Codes only; rendering copy is the explanation layer's job.
func computeInsight(alignment domain.AlignmentState, rhythm domain.Rhythm, friction domain.Friction) domain.Insight {
	focus := friction.Dominant
	if focus == domain.AreaMixed {
		focus = domain.AreaPrice
	}

	switch {
	case alignment == domain.AlignmentDeteriorating && rhythm.State == domain.RhythmSlowing:
		return domain.Insight{
			Code:      domain.InsightLosingAlignment,
			FocusArea: focus,
			Options:   []domain.OptionCode{domain.OptionShiftToPrice, domain.OptionAdjustTerms},
		}
	case alignment == domain.AlignmentStable && rhythm.State == domain.RhythmSlowing:
		return domain.Insight{
			Code:      domain.InsightProgressSlowed,
			FocusArea: focus,
			Options:   []domain.OptionCode{domain.OptionImprovePrice, domain.OptionPauseBriefly},
		}
	case alignment == domain.AlignmentImproving:
		return domain.Insight{
			Code:      domain.InsightOnTrack,
			FocusArea: focus,
			Options:   []domain.OptionCode{domain.OptionContinueApproach},
		}
	default:
		return domain.Insight{Code: domain.InsightMonitor, FocusArea: focus}
	}
}

func coherenceScore(alignment domain.AlignmentState, rhythm domain.RhythmState, friction domain.FrictionLevel, pressure domain.PressureLevel) float64 {
	score := 0.5
	switch alignment {
	case domain.AlignmentImproving:
		score = 0.7
	case domain.AlignmentDeteriorating:
		score = 0.3
	}

	switch rhythm {
	case domain.RhythmFast:
		score += 0.2
	case domain.RhythmNormal:
		score += 0.1
	}

	switch friction {
	case domain.FrictionHigh:
		score -= 0.3
	case domain.FrictionMedium:
		score -= 0.15
	}

	switch pressure {
	case domain.PressureHigh:
		score -= 0.2
	case domain.PressureMedium:
		score -= 0.1
	}

	return math.Max(0, math.Min(1, score))
}

// alertEdges returns alert types that newly hold relative to the previous
// snapshot. Each condition fires on its transition only, so successive
// snapshots in the same state never re-alert.
func alertEdges(curr domain.NegotiationSnapshot, prev *domain.NegotiationSnapshot) []domain.AlertType {
	var out []domain.AlertType

	if curr.Rhythm.State == domain.RhythmSlowing &&
		(prev == nil || prev.Rhythm.State != domain.RhythmSlowing) {
		out = append(out, domain.AlertRhythmSlowing)
	}
	if curr.Alignment == domain.AlignmentDeteriorating &&
		(prev == nil || prev.Alignment != domain.AlignmentDeteriorating) {
		out = append(out, domain.AlertAlignmentDeteriorating)
	}
	if curr.Market.Pressure.Level == domain.PressureHigh &&
		curr.Alignment != domain.AlignmentImproving &&
		(prev == nil || prev.Market.Pressure.Level != domain.PressureHigh) {
		out = append(out, domain.AlertPressureIncreasing)
	}
	return out
}
