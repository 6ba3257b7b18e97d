package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string
type OrderStatus string

const (
	Bid   Side = "BID"
	Offer Side = "OFFER"

	Active          OrderStatus = "ACTIVE"
	PartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	Filled          OrderStatus = "FILLED"
	Expired         OrderStatus = "EXPIRED"
	Cancelled       OrderStatus = "CANCELLED"

	// DefaultPriority is assigned when the submitter does not specify one.
	DefaultPriority = 5

	// DefaultOrderTTL bounds how long an order rests on the book.
	DefaultOrderTTL = 30 * time.Minute
)

// Order is a resting buy (bid) or sell (offer) intent for energy delivery.
// Terms are fixed at creation; only FilledQuantity and Status change, and
// only under the owning engine's lock.
type Order struct {
	ID             string          `json:"id"`
	Side           Side            `json:"side"`
	ActorID        string          `json:"actor_id"`
	Quantity       decimal.Decimal `json:"quantity_mw"`
	LimitPrice     decimal.Decimal `json:"price_per_mwh"`
	Priority       int             `json:"priority"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	Status         OrderStatus     `json:"status"`
}

// Remaining returns the quantity still open for matching.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// Live reports whether the order may still participate in matching.
func (o *Order) Live() bool {
	return o.Status == Active || o.Status == PartiallyFilled
}

// ExpiredAt reports whether the order has passed its expiry at now.
func (o *Order) ExpiredAt(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// Fill records a partial or complete execution and recomputes status.
// Callers must never fill beyond Remaining.
func (o *Order) Fill(qty decimal.Decimal) {
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	if o.FilledQuantity.GreaterThanOrEqual(o.Quantity) {
		o.Status = Filled
	} else if o.FilledQuantity.GreaterThan(decimal.Zero) {
		o.Status = PartiallyFilled
	}
}
