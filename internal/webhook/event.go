package webhook

import (
	"encoding/json"
	"time"
)

// Event is the idempotency ledger row: one per successfully processed
// provider notification. Reference is globally unique; a second notification
// carrying the same reference is a duplicate and changes nothing.
type Event struct {
	ID          string          `json:"id"`
	Reference   string          `json:"webhook_reference"`
	OrderID     string          `json:"order_id"`
	PaymentID   string          `json:"payment_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// Notification is the provider callback shape. The calling layer verifies
// the signature before this ever gets parsed.
type Notification struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}
