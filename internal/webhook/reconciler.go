// Package webhook reconciles asynchronous provider notifications against the
// order lifecycle without processing any notification twice.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Abdullraaa/mai-inji/internal/audit"
	"github.com/Abdullraaa/mai-inji/internal/order"
	"github.com/Abdullraaa/mai-inji/internal/payment"
)

var (
	ErrMissingReference = errors.New("webhook payload carries no reference")
	ErrPaymentNotFound  = errors.New("no payment for webhook reference")
	ErrOrderNotFound    = errors.New("no order for webhook payment")
)

type PaymentLookup interface {
	GetByProviderReference(ctx context.Context, ref string) (*payment.Payment, error)
}

type OrderGate interface {
	GetByID(ctx context.Context, id string) (*order.Order, error)
	Transition(ctx context.Context, id string, target order.Status, actorType audit.ActorType, actorID, reason string) (*order.Order, error)
}

type Ack struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"-"`
}

// Reconciler drives order transitions from provider notifications. Safety
// under concurrent duplicate delivery rests on two database facts: the
// unique index on webhook_references and the row lock inside Transition.
type Reconciler struct {
	events   Store
	payments PaymentLookup
	orders   OrderGate
	log      *slog.Logger
}

func NewReconciler(events Store, payments PaymentLookup, orders OrderGate, log *slog.Logger) *Reconciler {
	return &Reconciler{events: events, payments: payments, orders: orders, log: log}
}

// Process handles one signature-verified notification body.
//
// Sentinel errors map to client responses (missing reference, unknown
// payment or order); any other error is internal and the transport layer
// still acks the provider to avoid a retry storm.
func (r *Reconciler) Process(ctx context.Context, body []byte) (*Ack, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, ErrMissingReference
	}
	ref := n.Data.Reference
	if ref == "" {
		return nil, ErrMissingReference
	}

	// Idempotency gate: a recorded reference means this notification has
	// already been applied in full.
	if ev, err := r.events.Find(ctx, ref); err != nil {
		return nil, err
	} else if ev != nil {
		r.log.Info("webhook already processed", "reference", ref, "order_id", ev.OrderID)
		return &Ack{Status: "ok", Duplicate: true}, nil
	}

	p, err := r.payments.GetByProviderReference(ctx, ref)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			// A notification for a payment we never initiated must not be
			// silently accepted as success.
			r.log.Error("webhook for unknown payment", "reference", ref)
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	o, err := r.orders.GetByID(ctx, p.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			r.log.Error("webhook for unknown order", "reference", ref, "payment_id", p.ID)
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	target := order.StatusPaid
	eventType := "charge.success"
	reason := "Payment confirmed via Paystack webhook"
	if n.Data.Status != "success" {
		target = order.StatusPaymentFailed
		eventType = "charge.failed"
		reason = "Payment failed: " + n.Data.GatewayResponse
	}

	if _, err := r.orders.Transition(ctx, o.ID, target, audit.ActorSystem, "system", reason); err != nil {
		if !errors.Is(err, order.ErrInvalidTransition) {
			return nil, err
		}
		// Lost a race with a concurrent delivery of the same reference: if
		// the order already sits at the target status, this is a duplicate.
		cur, gerr := r.orders.GetByID(ctx, o.ID)
		if gerr != nil || cur.Status != target {
			return nil, err
		}
	}

	ev := &Event{
		ID:        uuid.NewString(),
		Reference: ref,
		OrderID:   o.ID,
		PaymentID: p.ID,
		EventType: eventType,
		Payload:   body,
	}
	if err := r.events.Record(ctx, ev); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			return &Ack{Status: "ok", Duplicate: true}, nil
		}
		return nil, err
	}

	r.log.Info("webhook processed",
		"reference", ref,
		"order_number", o.OrderNumber,
		"event_type", eventType,
	)
	return &Ack{Status: "ok"}, nil
}
