package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Bid   Side = "BID"
	Offer Side = "OFFER"
)

type SubmitOrderRequest struct {
	OrderID   string          `json:"order_id,omitempty"` // for deduplication
	ActorID   string          `json:"actor_id" binding:"required"`
	Side      Side            `json:"side" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity_mw" binding:"required"`
	Price     decimal.Decimal `json:"price_per_mwh" binding:"required"`
	Priority  int             `json:"priority,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

type SubmitOrderResponse struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message,omitempty"`
}

type CancelOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

type CancelOrderResponse struct {
	OrderID   string `json:"order_id"`
	Cancelled bool   `json:"cancelled"`
}

type GetOrderResponse struct {
	Order Order `json:"order"`
}

type GetOrderbookResponse struct {
	Bids      []Order   `json:"bids"`
	Offers    []Order   `json:"offers"`
	Timestamp time.Time `json:"timestamp"`
}

type Order struct {
	ID             string          `json:"id"`
	ActorID        string          `json:"actor_id"`
	Side           Side            `json:"side"`
	Quantity       decimal.Decimal `json:"quantity_mw"`
	Price          decimal.Decimal `json:"price_per_mwh"`
	Priority       int             `json:"priority"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}
