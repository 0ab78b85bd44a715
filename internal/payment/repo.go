package payment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abdullraaa/mai-inji/internal/money"
)

var ErrNotFound = errors.New("payment not found")

type Repository interface {
	Insert(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByProviderReference(ctx context.Context, ref string) (*Payment, error)
	LatestGatewayPayment(ctx context.Context, orderID string) (*Payment, error)
	SetProviderReference(ctx context.Context, id, ref string) error
	UpdateStatus(ctx context.Context, id string, status Status, rawPayload []byte) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const selectPayment = `
	SELECT id, order_id, provider, COALESCE(provider_reference,''), amount, status,
	       COALESCE(raw_payload,'null'::jsonb), created_at, updated_at
	FROM payments
`

func (r *PGRepo) Insert(ctx context.Context, p *Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (id, order_id, provider, provider_reference, amount, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
	`, p.ID, p.OrderID, string(p.Provider), nullIfEmpty(p.ProviderReference), int64(p.Amount), string(p.Status))
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Payment, error) {
	return r.getOne(ctx, selectPayment+` WHERE id = $1`, id)
}

func (r *PGRepo) GetByProviderReference(ctx context.Context, ref string) (*Payment, error) {
	return r.getOne(ctx, selectPayment+` WHERE provider_reference = $1`, ref)
}

// LatestGatewayPayment returns the newest online-gateway payment for an
// order, skipping cash rows.
func (r *PGRepo) LatestGatewayPayment(ctx context.Context, orderID string) (*Payment, error) {
	return r.getOne(ctx,
		selectPayment+` WHERE order_id = $1 AND provider = $2 ORDER BY created_at DESC LIMIT 1`,
		orderID, string(ProviderPaystack))
}

func (r *PGRepo) getOne(ctx context.Context, sql string, args ...any) (*Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p Payment
	var provider, status string
	var amount int64
	err := r.db.QueryRow(ctx, sql, args...).Scan(
		&p.ID, &p.OrderID, &provider, &p.ProviderReference, &amount, &status,
		&p.RawPayload, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Provider = Provider(provider)
	p.Status = Status(status)
	p.Amount = money.Kobo(amount)
	return &p, nil
}

func (r *PGRepo) SetProviderReference(ctx context.Context, id, ref string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET provider_reference = $2, updated_at = NOW() WHERE id = $1
	`, id, ref)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id string, status Status, rawPayload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var payload any
	if len(rawPayload) > 0 {
		payload = rawPayload
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE payments
		SET status = $2, raw_payload = COALESCE($3, raw_payload), updated_at = NOW()
		WHERE id = $1
	`, id, string(status), payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
