package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateEvent signals that the reference is already recorded. The
// unique index makes a concurrent duplicate insert fail at the database
// level, and that failure means "already processed", not an error.
var ErrDuplicateEvent = errors.New("webhook event already recorded")

type Store interface {
	Find(ctx context.Context, reference string) (*Event, error)
	Record(ctx context.Context, ev *Event) error
}

type PGStore struct{ db *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{db: db} }

// Find returns the processed event for reference, or (nil, nil).
func (s *PGStore) Find(ctx context.Context, reference string) (*Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ev Event
	err := s.db.QueryRow(ctx, `
		SELECT id, webhook_reference, order_id, payment_id, event_type, payload, processed_at
		FROM webhook_events WHERE webhook_reference = $1
	`, reference).Scan(&ev.ID, &ev.Reference, &ev.OrderID, &ev.PaymentID, &ev.EventType, &ev.Payload, &ev.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

func (s *PGStore) Record(ctx context.Context, ev *Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO webhook_events (id, webhook_reference, order_id, payment_id, event_type, payload, processed_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
	`, ev.ID, ev.Reference, ev.OrderID, ev.PaymentID, ev.EventType, []byte(ev.Payload))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEvent
		}
		return err
	}
	return nil
}
