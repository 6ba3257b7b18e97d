package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable record of one bid/offer pairing. It is created by
// the matching engine and never mutated afterwards.
type Trade struct {
	ID         string          `json:"trade_id"`
	BidID      string          `json:"bid_id"`
	OfferID    string          `json:"offer_id"`
	BuyerID    string          `json:"buyer_id"`
	SellerID   string          `json:"seller_id"`
	Quantity   decimal.Decimal `json:"quantity_mw"`
	Price      decimal.Decimal `json:"price_per_mwh"`
	TotalValue decimal.Decimal `json:"total_value"`
	Fee        decimal.Decimal `json:"market_fee"`
	Timestamp  time.Time       `json:"timestamp"`
	SessionID  string          `json:"session_id"`
}
