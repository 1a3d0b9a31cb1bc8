package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/subflowhq/gateway/pkg/logger"
	"github.com/subflowhq/gateway/pkg/userstore"
)

// Reconciler consumes asynchronous billing lifecycle events and applies the
// corresponding subscription state transition to the user record. It fails
// closed: nothing is written before the event is authenticated and correlated.
type Reconciler struct {
	provider Provider
	store    userstore.Store
	deduper  EventDeduper
	log      *slog.Logger
}

// NewReconciler creates a Reconciler. The deduper is optional; without it
// redelivered events are reprocessed, which is safe because transitions are
// idempotent.
func NewReconciler(provider Provider, store userstore.Store, deduper EventDeduper, log *slog.Logger) *Reconciler {
	if provider == nil {
		panic("billing: Provider is required")
	}
	if store == nil {
		panic("billing: userstore.Store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{provider: provider, store: store, deduper: deduper, log: log}
}

// HandleEvent authenticates, classifies, and applies a single raw webhook
// delivery.
//
// Error semantics, which transport maps to acknowledgment behavior:
//   - ErrInvalidSignature: reject, the sender may retry or alert.
//   - ErrUnresolvableUser: the event is authentic but cannot be correlated;
//     callers should log and acknowledge it so an unfixable event is not
//     redelivered forever.
//   - any other error: a persistence failure for this event only; reject so
//     the sender redelivers.
//
// A nil return means the transition committed (or was a recognized no-op:
// duplicate delivery, stale event, or an event type this service ignores).
func (r *Reconciler) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := r.provider.ParseWebhook(payload, signatureHeader)
	if err != nil {
		return err
	}

	log := r.log.With(logger.EventID(event.ID), logger.EventType(event.ProviderType))

	if event.Kind == EventIgnored {
		log.InfoContext(ctx, "ignoring unhandled billing event type")
		return nil
	}

	if r.deduper != nil {
		seen, err := r.deduper.Seen(ctx, event.ID)
		if err != nil {
			// Replay guard outage is not fatal: transitions are idempotent.
			log.WarnContext(ctx, "event dedupe unavailable, processing anyway", logger.Error(err))
		} else if seen {
			log.InfoContext(ctx, "duplicate billing event, already applied")
			return nil
		}
	}

	if event.UserID == "" {
		log.ErrorContext(ctx, "billing event has no user correlation metadata",
			logger.CustomerID(event.CustomerID),
			slog.String("subscription_id", event.SubscriptionID),
		)
		return ErrUnresolvableUser
	}

	switch event.Kind {
	case EventCreated, EventUpdated:
		err = r.applyUpsert(ctx, log, event)
	case EventDeleted:
		err = r.applyCancel(ctx, log, event)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	// The guard is written only after the transition commits, so a delivery
	// that failed to persist stays eligible for redelivery.
	r.markSeen(ctx, log, event.ID)
	return nil
}

func (r *Reconciler) markSeen(ctx context.Context, log *slog.Logger, eventID string) {
	if r.deduper == nil {
		return
	}
	if err := r.deduper.MarkSeen(ctx, eventID); err != nil {
		log.WarnContext(ctx, "failed to record billing event as applied", logger.Error(err))
	}
}

// applyUpsert mirrors the provider-reported subscription snapshot onto the
// user record. Redelivery converges to the same state; the store's watermark
// guard rejects older snapshots arriving late.
func (r *Reconciler) applyUpsert(ctx context.Context, log *slog.Logger, event *Event) error {
	fields := map[string]any{
		userstore.FieldSubscriptionID:      event.SubscriptionID,
		userstore.FieldSubscriptionPlan:    event.Plan,
		userstore.FieldSubscriptionStatus:  event.Status,
		userstore.FieldSubscriptionEndDate: event.PeriodEnd,
		userstore.FieldRole:                userstore.RoleForStatus(event.Status),
		userstore.FieldProTrialStart:       nil,
		userstore.FieldProTrialEnd:         nil,
	}

	if err := r.store.ApplySubscriptionState(ctx, event.UserID, fields, event.OccurredAt); err != nil {
		return r.mapApplyError(ctx, log, event, err)
	}

	log.InfoContext(ctx, "subscription state applied",
		logger.UserID(event.UserID),
		slog.String("status", string(event.Status)),
		slog.String("plan", string(event.Plan)),
	)
	return nil
}

// applyCancel performs the terminal cancellation transition: identifiers and
// dates are nulled, status becomes cancelled, role drops to free. Applying it
// to an already-cancelled record is observably a no-op.
func (r *Reconciler) applyCancel(ctx context.Context, log *slog.Logger, event *Event) error {
	fields := map[string]any{
		userstore.FieldSubscriptionID:      nil,
		userstore.FieldSubscriptionPlan:    userstore.PlanNone,
		userstore.FieldSubscriptionStatus:  userstore.StatusCancelled,
		userstore.FieldSubscriptionEndDate: nil,
		userstore.FieldRole:                userstore.RoleFree,
	}

	if err := r.store.ApplySubscriptionState(ctx, event.UserID, fields, event.OccurredAt); err != nil {
		return r.mapApplyError(ctx, log, event, err)
	}

	log.InfoContext(ctx, "subscription cancelled", logger.UserID(event.UserID))
	return nil
}

func (r *Reconciler) mapApplyError(ctx context.Context, log *slog.Logger, event *Event, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, userstore.ErrStaleEvent):
		// A newer event already reached the record; dropping the older one
		// preserves the no-regression invariant.
		log.WarnContext(ctx, "dropping stale billing event", logger.UserID(event.UserID))
		return nil
	case IsNotFound(err):
		log.ErrorContext(ctx, "user record not found for billing event", logger.UserID(event.UserID))
		return fmt.Errorf("apply %s event %s: %w", event.Kind, event.ID, err)
	default:
		return fmt.Errorf("apply %s event %s: %w", event.Kind, event.ID, err)
	}
}
