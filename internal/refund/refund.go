// Package refund holds the admin-triggered refund flow: preconditions first,
// provider call second, local state only after the provider accepts.
package refund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abdullraaa/mai-inji/internal/audit"
	"github.com/Abdullraaa/mai-inji/internal/order"
	"github.com/Abdullraaa/mai-inji/internal/payment"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrNotRefundable        = errors.New("order status does not allow a refund")
	ErrNoGatewayPayment     = errors.New("no gateway payment for order")
	ErrPaymentNotRefundable = errors.New("payment status does not allow a refund")
	ErrReasonRequired       = errors.New("refund reason is required")
)

type OrderStore interface {
	GetByID(ctx context.Context, id string) (*order.Order, error)
	Transition(ctx context.Context, id string, target order.Status, actorType audit.ActorType, actorID, reason string) (*order.Order, error)
}

type PaymentStore interface {
	LatestGatewayPayment(ctx context.Context, orderID string) (*payment.Payment, error)
	UpdateStatus(ctx context.Context, id string, status payment.Status, rawPayload []byte) error
}

type Result struct {
	OrderID         string       `json:"order_id"`
	Status          order.Status `json:"status"`
	RefundReference string       `json:"refund_reference"`
	Reason          string       `json:"reason"`
	InitiatedAt     time.Time    `json:"initiated_at"`
}

type Orchestrator struct {
	orders   OrderStore
	payments PaymentStore
	gateway  payment.Gateway
	aud      audit.Recorder
	log      *slog.Logger
}

func New(orders OrderStore, payments PaymentStore, gateway payment.Gateway, aud audit.Recorder, log *slog.Logger) *Orchestrator {
	return &Orchestrator{orders: orders, payments: payments, gateway: gateway, aud: aud, log: log}
}

// Refund runs the admin refund flow for one order. Preconditions are checked
// in order and each is a hard rejection before any provider call. Provider
// rejection aborts with no local state change; acceptance moves the order to
// REFUNDING and the payment with it.
func (f *Orchestrator) Refund(ctx context.Context, orderID, actorID, reason string) (*Result, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	o, err := f.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if o.Status != order.StatusCompleted && o.Status != order.StatusPaid {
		return nil, fmt.Errorf("%w: order is %s, only COMPLETED or PAID can be refunded", ErrNotRefundable, o.Status)
	}

	p, err := f.payments.LatestGatewayPayment(ctx, orderID)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return nil, ErrNoGatewayPayment
		}
		return nil, err
	}
	if p.Status != payment.StatusSuccess {
		return nil, fmt.Errorf("%w: payment is %s", ErrPaymentNotRefundable, p.Status)
	}

	res, err := f.gateway.Refund(ctx, p.ProviderReference, p.Amount)
	if err != nil {
		f.log.Error("provider refund rejected", "order_id", orderID, "payment_id", p.ID, "error", err)
		return nil, err
	}

	refunding, err := f.orders.Transition(ctx, orderID, order.StatusRefunding, audit.ActorAdmin, actorID, reason)
	if err != nil {
		return nil, err
	}
	if err := f.payments.UpdateStatus(ctx, p.ID, payment.StatusRefunding, nil); err != nil {
		return nil, err
	}

	f.aud.Record(ctx, audit.Entry{
		EntityType:    "ORDER",
		EntityID:      orderID,
		Action:        audit.ActionRefundInitiated,
		PreviousState: string(o.Status),
		NewState:      string(order.StatusRefunding),
		ActorType:     audit.ActorAdmin,
		ActorID:       actorID,
		Reason:        reason,
		Metadata:      map[string]any{"refund_reference": res.Reference},
	})

	return &Result{
		OrderID:         orderID,
		Status:          refunding.Status,
		RefundReference: res.Reference,
		Reason:          reason,
		InitiatedAt:     time.Now().UTC(),
	}, nil
}
