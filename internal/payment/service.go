package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Abdullraaa/mai-inji/internal/audit"
	"github.com/Abdullraaa/mai-inji/internal/money"
)

// Service ties Payment rows to the external gateway. It never touches order
// status: callers apply outcomes through the order transition gate so that
// payment verification and order state changes stay separately auditable.
type Service struct {
	repo    Repository
	gateway Gateway
	aud     audit.Recorder
	log     *slog.Logger
}

func NewService(repo Repository, gateway Gateway, aud audit.Recorder, log *slog.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, aud: aud, log: log}
}

type InitOutcome struct {
	PaymentID        string `json:"payment_id"`
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type VerifyOutcome struct {
	OrderID    string `json:"order_id"`
	PaymentID  string `json:"payment_id"`
	Status     Status `json:"status"`
	Successful bool   `json:"successful"`
}

// Initialize records an INITIATED row before the outbound call, so a call
// that times out but succeeded provider-side can still be reconciled by the
// webhook later. A provider failure leaves the row in place for a retry or
// manual cleanup.
func (s *Service) Initialize(ctx context.Context, orderID string, amount money.Kobo, email string) (*InitOutcome, error) {
	p := &Payment{
		ID:       uuid.NewString(),
		OrderID:  orderID,
		Provider: ProviderPaystack,
		Amount:   amount,
		Status:   StatusInitiated,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}

	reference := fmt.Sprintf("MAI-%s-%d", orderID, time.Now().UnixMilli())
	res, err := s.gateway.Initialize(ctx, amount, email, reference, map[string]string{
		"order_id":   orderID,
		"payment_id": p.ID,
	})
	if err != nil {
		s.log.Error("payment initialization failed", "order_id", orderID, "payment_id", p.ID, "error", err)
		return nil, err
	}

	if err := s.repo.SetProviderReference(ctx, p.ID, res.Reference); err != nil {
		return nil, err
	}

	s.aud.Record(ctx, audit.Entry{
		EntityType: "PAYMENT",
		EntityID:   p.ID,
		Action:     audit.ActionCreate,
		NewState:   string(StatusInitiated),
		ActorType:  audit.ActorSystem,
		Reason:     "Payment initialized with Paystack",
	})

	return &InitOutcome{
		PaymentID:        p.ID,
		AuthorizationURL: res.AuthorizationURL,
		Reference:        res.Reference,
	}, nil
}

// Verify asks the provider for the outcome of a charge and persists it on
// the Payment row. Returns ErrNotFound when no local payment carries the
// reference.
func (s *Service) Verify(ctx context.Context, reference string) (*VerifyOutcome, error) {
	res, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.GetByProviderReference(ctx, reference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Warn("verification for unknown payment", "reference", reference)
		}
		return nil, err
	}

	newStatus := StatusFailed
	if res.Successful() {
		newStatus = StatusSuccess
	}
	if err := s.repo.UpdateStatus(ctx, p.ID, newStatus, res.Raw); err != nil {
		return nil, err
	}

	s.aud.Record(ctx, audit.Entry{
		EntityType:    "PAYMENT",
		EntityID:      p.ID,
		Action:        audit.ActionUpdate,
		PreviousState: string(p.Status),
		NewState:      string(newStatus),
		ActorType:     audit.ActorSystem,
		Reason:        "Paystack verification: " + res.Status,
	})

	return &VerifyOutcome{
		OrderID:    p.OrderID,
		PaymentID:  p.ID,
		Status:     newStatus,
		Successful: newStatus == StatusSuccess,
	}, nil
}

// Refund marks a payment refunded. Cash payments are settled manually, so
// they skip the provider call. For gateway payments the provider is the
// source of truth for eventual settlement; this records intent and local
// bookkeeping status regardless of the response body.
func (s *Service) Refund(ctx context.Context, paymentID, reason string) error {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}

	if p.Provider != ProviderPaystack {
		return s.repo.UpdateStatus(ctx, p.ID, StatusRefunded, nil)
	}

	if _, err := s.gateway.Refund(ctx, p.ProviderReference, p.Amount); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, p.ID, StatusRefunded, nil); err != nil {
		return err
	}

	s.aud.Record(ctx, audit.Entry{
		EntityType:    "PAYMENT",
		EntityID:      p.ID,
		Action:        audit.ActionRefund,
		PreviousState: string(p.Status),
		NewState:      string(StatusRefunded),
		ActorType:     audit.ActorAdmin,
		Reason:        orDefault(reason, "Payment refunded"),
	})
	return nil
}

// FinalizeRefund settles the bookkeeping side of a refund that the refund
// orchestrator already cleared with the provider: the latest gateway payment
// moves REFUNDING -> REFUNDED. No provider call is made.
func (s *Service) FinalizeRefund(ctx context.Context, orderID, actorID string) error {
	p, err := s.repo.LatestGatewayPayment(ctx, orderID)
	if err != nil {
		return err
	}
	if p.Status != StatusRefunding {
		return fmt.Errorf("payment %s is %s, expected %s", p.ID, p.Status, StatusRefunding)
	}
	if err := s.repo.UpdateStatus(ctx, p.ID, StatusRefunded, nil); err != nil {
		return err
	}
	s.aud.Record(ctx, audit.Entry{
		EntityType:    "PAYMENT",
		EntityID:      p.ID,
		Action:        audit.ActionRefund,
		PreviousState: string(StatusRefunding),
		NewState:      string(StatusRefunded),
		ActorType:     audit.ActorAdmin,
		ActorID:       actorID,
		Reason:        "Refund settled",
	})
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
