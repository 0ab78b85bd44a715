// Package money centralizes minor-currency-unit arithmetic. All amounts in
// the system are stored and computed in kobo; conversion to naira happens
// only at display time.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kobo is an amount in the smallest currency denomination.
type Kobo int64

func (k Kobo) Add(other Kobo) Kobo { return k + other }

// Times scales a unit price by a line quantity.
func (k Kobo) Times(qty int) Kobo { return k * Kobo(qty) }

func (k Kobo) IsNegative() bool { return k < 0 }

// Naira converts to the major unit for display. Never used for arithmetic.
func (k Kobo) Naira() decimal.Decimal {
	return decimal.New(int64(k), -2)
}

func (k Kobo) String() string {
	return fmt.Sprintf("NGN %s", k.Naira().StringFixed(2))
}
