package order

import (
	"time"

	"github.com/Abdullraaa/mai-inji/internal/money"
)

type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "PICKUP"
	FulfillmentDelivery FulfillmentType = "DELIVERY"
)

func (f FulfillmentType) Valid() bool {
	return f == FulfillmentPickup || f == FulfillmentDelivery
}

// Order is the aggregate root. Amounts and items are frozen at creation;
// only Status and UpdatedAt change afterwards.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          string          `json:"user_id"`
	Status          Status          `json:"status"`
	Subtotal        money.Kobo      `json:"subtotal"`
	DeliveryFee     money.Kobo      `json:"delivery_fee"`
	TotalAmount     money.Kobo      `json:"total_amount"`
	Fulfillment     FulfillmentType `json:"fulfillment_type"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	Items           []Item          `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Item is one order line with its price snapshot: the unit price captured at
// creation time, immune to later catalog edits.
type Item struct {
	ID         string     `json:"id"`
	OrderID    string     `json:"order_id"`
	MenuItemID string     `json:"menu_item_id"`
	Quantity   int        `json:"quantity"`
	UnitPrice  money.Kobo `json:"unit_price"`
	TotalPrice money.Kobo `json:"total_price"`
}

// Line is one requested (catalog item, quantity) pair in a create call.
type Line struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type CreateInput struct {
	UserID          string
	Lines           []Line
	Fulfillment     FulfillmentType
	DeliveryAddress string
}

// pricedLine is a Line after its snapshot price has been read.
type pricedLine struct {
	Line
	unitPrice money.Kobo
}

// priceOrder folds priced lines into the amounts stored on the order.
// total = subtotal + fee is established here and never recomputed.
func priceOrder(lines []pricedLine, fulfillment FulfillmentType, flatDeliveryFee money.Kobo) (subtotal, fee, total money.Kobo) {
	for _, ln := range lines {
		subtotal = subtotal.Add(ln.unitPrice.Times(ln.Quantity))
	}
	if fulfillment == FulfillmentDelivery {
		fee = flatDeliveryFee
	}
	return subtotal, fee, subtotal.Add(fee)
}
