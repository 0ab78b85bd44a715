package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abdullraaa/mai-inji/internal/audit"
	"github.com/Abdullraaa/mai-inji/internal/menu"
	"github.com/Abdullraaa/mai-inji/internal/money"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrNoLines           = errors.New("order needs at least one line")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const uniqueViolation = "23505"

type ListQuery struct {
	Statuses []Status
	Page     int
	Limit    int
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	Transition(ctx context.Context, id string, target Status, actorType audit.ActorType, actorID, reason string) (*Order, error)
	List(ctx context.Context, q ListQuery) ([]Order, int, error)
}

type Options struct {
	DeliveryFee  money.Kobo
	NumberPrefix string
}

type PGRepo struct {
	db   *pgxpool.Pool
	aud  audit.Recorder
	opts Options
}

func NewPGRepo(db *pgxpool.Pool, aud audit.Recorder, opts Options) *PGRepo {
	if opts.NumberPrefix == "" {
		opts.NumberPrefix = "MAI"
	}
	return &PGRepo{db: db, aud: aud, opts: opts}
}

// Create snapshots catalog prices, computes amounts, and inserts the order
// with all its lines in one transaction. Any failure rolls everything back;
// no partial order is ever observable.
func (r *PGRepo) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if len(in.Lines) == 0 {
		return nil, ErrNoLines
	}
	for _, ln := range in.Lines {
		if ln.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrNoLines)
		}
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	priced := make([]pricedLine, 0, len(in.Lines))
	for _, ln := range in.Lines {
		var price int64
		err := tx.QueryRow(ctx, `
			SELECT price FROM menu_items WHERE id = $1 AND deleted_at IS NULL
		`, ln.MenuItemID).Scan(&price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("menu item %s: %w", ln.MenuItemID, menu.ErrNotFound)
			}
			return nil, err
		}
		priced = append(priced, pricedLine{Line: ln, unitPrice: money.Kobo(price)})
	}

	subtotal, fee, total := priceOrder(priced, in.Fulfillment, r.opts.DeliveryFee)

	orderID := uuid.NewString()
	// ON CONFLICT DO NOTHING keeps the transaction alive when the random
	// suffix collides with an existing order number, so we can retry with a
	// fresh one.
	inserted := false
	for attempt := 0; attempt < 3; attempt++ {
		tag, err := tx.Exec(ctx, `
			INSERT INTO orders
			  (id, order_number, user_id, status, subtotal, delivery_fee, total_amount,
			   fulfillment_type, delivery_address, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
			ON CONFLICT (order_number) DO NOTHING
		`, orderID, NewOrderNumber(r.opts.NumberPrefix), in.UserID, string(StatusCreated),
			int64(subtotal), int64(fee), int64(total),
			string(in.Fulfillment), nullIfEmpty(in.DeliveryAddress))
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() > 0 {
			inserted = true
			break
		}
	}
	if !inserted {
		return nil, fmt.Errorf("order number collision persisted after retries")
	}

	for _, ln := range priced {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, menu_item_id, quantity, unit_price, total_price)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, uuid.NewString(), orderID, ln.MenuItemID, ln.Quantity,
			int64(ln.unitPrice), int64(ln.unitPrice.Times(ln.Quantity))); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	r.aud.Record(ctx, audit.Entry{
		EntityType: "ORDER",
		EntityID:   orderID,
		Action:     audit.ActionCreate,
		NewState:   string(StatusCreated),
		ActorType:  audit.ActorCustomer,
		ActorID:    in.UserID,
		Reason:     "Order created",
	})

	return r.GetByID(ctx, orderID)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	var o Order
	var status string
	var subtotal, fee, total int64
	var fulfillment string
	err := r.db.QueryRow(ctx, `
		SELECT id, order_number, user_id, status, subtotal, delivery_fee, total_amount,
		       fulfillment_type, COALESCE(delivery_address,''), created_at, updated_at
		FROM orders WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&o.ID, &o.OrderNumber, &o.UserID, &status, &subtotal, &fee, &total,
		&fulfillment, &o.DeliveryAddress, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Status = Status(status)
	o.Subtotal = money.Kobo(subtotal)
	o.DeliveryFee = money.Kobo(fee)
	o.TotalAmount = money.Kobo(total)
	o.Fulfillment = FulfillmentType(fulfillment)

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, menu_item_id, quantity, unit_price, total_price
		FROM order_items WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		var unit, lineTotal int64
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity, &unit, &lineTotal); err != nil {
			return nil, err
		}
		it.UnitPrice = money.Kobo(unit)
		it.TotalPrice = money.Kobo(lineTotal)
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

// Transition is the single gate for every status change. The row lock taken
// by SELECT ... FOR UPDATE serializes concurrent attempts on the same order.
func (r *PGRepo) Transition(ctx context.Context, id string, target Status, actorType audit.ActorType, actorID, reason string) (*Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status FROM orders WHERE id = $1 AND deleted_at IS NULL FOR UPDATE
	`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !Status(current).CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, string(target)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	r.aud.Record(ctx, audit.Entry{
		EntityType:    "ORDER",
		EntityID:      id,
		Action:        audit.ActionStatusChange,
		PreviousState: current,
		NewState:      string(target),
		ActorType:     actorType,
		ActorID:       actorID,
		Reason:        reason,
	})

	return r.GetByID(ctx, id)
}

func (r *PGRepo) List(ctx context.Context, q ListQuery) ([]Order, int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	statuses := make([]string, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses = append(statuses, string(s))
	}

	var total int
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE deleted_at IS NULL
		  AND (cardinality($1::text[]) = 0 OR status = ANY($1::text[]))
	`, statuses).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_number, user_id, status, subtotal, delivery_fee, total_amount,
		       fulfillment_type, COALESCE(delivery_address,''), created_at, updated_at
		FROM orders
		WHERE deleted_at IS NULL
		  AND (cardinality($1::text[]) = 0 OR status = ANY($1::text[]))
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, statuses, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var status, fulfillment string
		var subtotal, fee, totalAmt int64
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &status, &subtotal, &fee, &totalAmt,
			&fulfillment, &o.DeliveryAddress, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		o.Status = Status(status)
		o.Subtotal = money.Kobo(subtotal)
		o.DeliveryFee = money.Kobo(fee)
		o.TotalAmount = money.Kobo(totalAmt)
		o.Fulfillment = FulfillmentType(fulfillment)
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// failure, optionally on one named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
