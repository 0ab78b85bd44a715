package main

import (
	"github.com/Abdullraaa/mai-inji/internal/money"
	"github.com/Abdullraaa/mai-inji/internal/order"
)

// CreateOrderItem is one requested line.
// swagger:model CreateOrderItem
type CreateOrderItem struct {
	MenuItemID string `json:"menu_item_id" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Quantity   int    `json:"quantity"     example:"2"`
}

// CreateOrderRequest is the order-creation payload.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	Items           []CreateOrderItem     `json:"items"`
	FulfillmentType order.FulfillmentType `json:"fulfillment_type" example:"DELIVERY"`
	DeliveryAddress string                `json:"delivery_address" example:"12 Allen Avenue, Ikeja"`
}

// InitializePaymentRequest starts a charge for an order.
// swagger:model InitializePaymentRequest
type InitializePaymentRequest struct {
	UserEmail string `json:"user_email" example:"ada@example.com"`
}

// VerifyPaymentRequest is the manual verification payload.
// swagger:model VerifyPaymentRequest
type VerifyPaymentRequest struct {
	Reference string `json:"reference"`
}

// UpdateStatusRequest is the admin status-change payload.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status order.Status `json:"status" example:"ACCEPTED"`
	Reason string       `json:"reason"`
}

// UpdateMenuItemRequest is a partial admin catalog edit; omitted fields
// keep their current values. Price is in kobo.
// swagger:model UpdateMenuItemRequest
type UpdateMenuItemRequest struct {
	Price       *money.Kobo `json:"price" example:"250000"`
	IsAvailable *bool       `json:"is_available"`
	Description *string     `json:"description"`
}

// RefundRequest is the admin refund payload.
// swagger:model RefundRequest
type RefundRequest struct {
	Reason string `json:"reason"`
}

type pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}
