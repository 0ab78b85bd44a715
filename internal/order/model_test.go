package order

import (
	"testing"

	"github.com/Abdullraaa/mai-inji/internal/money"
)

func TestPriceOrderDelivery(t *testing.T) {
	lines := []pricedLine{
		{Line: Line{MenuItemID: "a", Quantity: 2}, unitPrice: 25000},
		{Line: Line{MenuItemID: "b", Quantity: 1}, unitPrice: 15000},
	}
	subtotal, fee, total := priceOrder(lines, FulfillmentDelivery, money.Kobo(5000))
	if subtotal != 65000 {
		t.Fatalf("subtotal=%d, expected 65000", subtotal)
	}
	if fee != 5000 {
		t.Fatalf("fee=%d, expected 5000", fee)
	}
	if total != 70000 {
		t.Fatalf("total=%d, expected 70000", total)
	}
	if total != subtotal.Add(fee) {
		t.Fatal("total != subtotal + delivery fee")
	}
}

func TestPriceOrderPickupHasNoFee(t *testing.T) {
	lines := []pricedLine{{Line: Line{MenuItemID: "a", Quantity: 3}, unitPrice: 10000}}
	subtotal, fee, total := priceOrder(lines, FulfillmentPickup, money.Kobo(5000))
	if fee != 0 {
		t.Fatalf("pickup fee=%d, expected 0", fee)
	}
	if subtotal != 30000 || total != 30000 {
		t.Fatalf("subtotal=%d total=%d, expected 30000/30000", subtotal, total)
	}
}

func TestFulfillmentTypeValid(t *testing.T) {
	if !FulfillmentPickup.Valid() || !FulfillmentDelivery.Valid() {
		t.Fatal("known fulfillment types reported invalid")
	}
	if FulfillmentType("DRONE").Valid() {
		t.Fatal("unknown fulfillment type reported valid")
	}
}
