package order

import (
	"fmt"
	"math/rand"
	"time"
)

// NewOrderNumber builds a human-readable number like MAI-20260109-0001.
// The random suffix alone does not guarantee uniqueness; the orders table
// carries a UNIQUE constraint and Create regenerates on conflict.
func NewOrderNumber(prefix string) string {
	date := time.Now().UTC().Format("20060102")
	return fmt.Sprintf("%s-%s-%04d", prefix, date, rand.Intn(10000))
}
