package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pricewaze/pricewaze-backend/internal/domain"
)

// EdgeWatcher subscribes to signal confirmation edges on the bus and turns
// them into operator notifications. Both edge directions go through the
// notifier's event filter, so operators choose which to receive.
type EdgeWatcher struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewEdgeWatcher creates an EdgeWatcher.
func NewEdgeWatcher(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *EdgeWatcher {
	return &EdgeWatcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "edge_watcher")),
	}
}

// Run consumes edge and alert messages until ctx is cancelled or a
// subscription channel closes.
func (w *EdgeWatcher) Run(ctx context.Context) error {
	edges, err := w.bus.Subscribe(ctx, "edges:*")
	if err != nil {
		return fmt.Errorf("notify: subscribe to edges: %w", err)
	}
	alerts, err := w.bus.Subscribe(ctx, "alerts:*")
	if err != nil {
		return fmt.Errorf("notify: subscribe to alerts: %w", err)
	}
	w.logger.InfoContext(ctx, "edge watcher started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-edges:
			if !ok {
				w.logger.InfoContext(ctx, "edge subscription closed")
				return nil
			}
			w.handleEdge(ctx, payload)
		case payload, ok := <-alerts:
			if !ok {
				w.logger.InfoContext(ctx, "alert subscription closed")
				return nil
			}
			w.handleAlert(ctx, payload)
		}
	}
}

func (w *EdgeWatcher) handleEdge(ctx context.Context, payload []byte) {
	var edge domain.SignalEdge
	if err := json.Unmarshal(payload, &edge); err != nil {
		w.logger.WarnContext(ctx, "bad edge payload", slog.String("error", err.Error()))
		return
	}

	event := EventSignalConfirmed
	title := fmt.Sprintf("Signal confirmed: %s", edge.Type)
	message := fmt.Sprintf("Property %s: %s confirmed (strength %.2f)",
		edge.PropertyID, edge.Type, edge.Strength)
	if edge.To != domain.StatusConfirmed {
		event = EventSignalUnconfirmed
		title = fmt.Sprintf("Signal no longer confirmed: %s", edge.Type)
		message = fmt.Sprintf("Property %s: %s dropped below the confirmation threshold",
			edge.PropertyID, edge.Type)
	}

	if err := w.notifier.Notify(ctx, event, title, message); err != nil {
		w.logger.WarnContext(ctx, "edge notification failed",
			slog.String("property_id", edge.PropertyID),
			slog.String("error", err.Error()),
		)
	}
}

func (w *EdgeWatcher) handleAlert(ctx context.Context, payload []byte) {
	var alert domain.NegotiationAlert
	if err := json.Unmarshal(payload, &alert); err != nil {
		w.logger.WarnContext(ctx, "bad alert payload", slog.String("error", err.Error()))
		return
	}

	title := fmt.Sprintf("Negotiation alert: %s", alert.Type)
	message := fmt.Sprintf("Offer %s: %s detected against the previous snapshot",
		alert.OfferID, alert.Type)

	if err := w.notifier.Notify(ctx, EventNegotiationAlert, title, message); err != nil {
		w.logger.WarnContext(ctx, "alert notification failed",
			slog.String("offer_id", alert.OfferID),
			slog.String("error", err.Error()),
		)
	}
}
