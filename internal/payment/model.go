package payment

import (
	"encoding/json"
	"time"

	"github.com/Abdullraaa/mai-inji/internal/money"
)

type Provider string

const (
	ProviderPaystack Provider = "PAYSTACK"
	ProviderCash     Provider = "CASH"
)

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusRefunding Status = "REFUNDING"
	StatusRefunded  Status = "REFUNDED"
)

// Payment is one attempt to collect money for an order. An order can carry
// several rows across retries. Amount always equals the order's total.
type Payment struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"order_id"`
	Provider          Provider        `json:"provider"`
	ProviderReference string          `json:"provider_reference,omitempty"` // empty until the provider assigns one
	Amount            money.Kobo      `json:"amount"`
	Status            Status          `json:"status"`
	RawPayload        json.RawMessage `json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
