// Package audit appends immutable change records. Writing an entry is
// best-effort: a failed audit insert is logged and swallowed so it can never
// abort the primary operation.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ActorType string

const (
	ActorSystem   ActorType = "SYSTEM"
	ActorAdmin    ActorType = "ADMIN"
	ActorCustomer ActorType = "CUSTOMER"
)

type Action string

const (
	ActionCreate          Action = "CREATE"
	ActionStatusChange    Action = "STATUS_CHANGE"
	ActionUpdate          Action = "UPDATE"
	ActionRefund          Action = "REFUND"
	ActionRefundInitiated Action = "REFUND_INITIATED"
)

// Entry is one appended fact: entity X went from state A to state B, by
// actor Y, because Z. Empty PreviousState/NewState/ActorID/Reason persist
// as NULL.
type Entry struct {
	EntityType    string
	EntityID      string
	Action        Action
	PreviousState string
	NewState      string
	ActorType     ActorType
	ActorID       string
	Reason        string
	Metadata      map[string]any
}

// Recorder appends entries. Implementations never return errors to callers.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type PGRecorder struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewPGRecorder(db *pgxpool.Pool, log *slog.Logger) *PGRecorder {
	return &PGRecorder{db: db, log: log}
}

func (r *PGRecorder) Record(ctx context.Context, e Entry) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var meta []byte
	if e.Metadata != nil {
		var err error
		if meta, err = json.Marshal(e.Metadata); err != nil {
			r.log.Error("audit metadata marshal failed", "entity_id", e.EntityID, "error", err)
			meta = nil
		}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs
		  (entity_type, entity_id, action, previous_state, new_state, actor_type, actor_id, reason, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
	`, e.EntityType, e.EntityID, string(e.Action),
		nullIfEmpty(e.PreviousState), nullIfEmpty(e.NewState),
		string(e.ActorType), nullIfEmpty(e.ActorID), nullIfEmpty(e.Reason), meta)
	if err != nil {
		r.log.Error("audit write failed",
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"action", e.Action,
			"error", err,
		)
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Nop discards entries. Used in tests.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
