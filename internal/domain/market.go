package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MarketStatus string
type HaltReason string

const (
	MarketActive MarketStatus = "ACTIVE"
	MarketHalted MarketStatus = "HALTED"

	HaltNone           HaltReason = ""
	HaltImbalance      HaltReason = "supply_demand_imbalance"
	HaltHighVolatility HaltReason = "high_volatility"
)

// MarketState is the process-wide mutable state of one trading session.
// It is owned by the engine and threaded explicitly through each clearing,
// monitoring and price-discovery tick; there are no package globals.
type MarketState struct {
	ClearingPrice decimal.Decimal
	Volatility    float64
	TotalVolume   decimal.Decimal
	TradeCount    int64

	SupplyDemandRatio float64
	Spread            float64

	Status     MarketStatus
	HaltReason HaltReason

	SessionID    string
	SessionStart time.Time
	LastClearing time.Time
}

// NewMarketState seeds a session with the configured initial price.
func NewMarketState(sessionID string, seedPrice decimal.Decimal, now time.Time) *MarketState {
	return &MarketState{
		ClearingPrice:     seedPrice,
		TotalVolume:       decimal.Zero,
		SupplyDemandRatio: 1.0,
		Status:            MarketActive,
		SessionID:         sessionID,
		SessionStart:      now,
	}
}

// Halted reports whether matching is currently suspended.
func (s *MarketState) Halted() bool { return s.Status == MarketHalted }

// MarketSnapshot is the point-in-time view served on the query surface and
// broadcast periodically to participants.
type MarketSnapshot struct {
	Timestamp         time.Time       `json:"timestamp"`
	SessionID         string          `json:"session_id"`
	ClearingPrice     decimal.Decimal `json:"clearing_price"`
	Volatility        float64         `json:"volatility"`
	TotalVolume       decimal.Decimal `json:"total_volume_mw"`
	TradeCount        int64           `json:"trade_count"`
	SupplyDemandRatio float64         `json:"supply_demand_ratio"`
	Spread            float64         `json:"price_spread"`
	LiquidityScore    float64         `json:"liquidity_score"`
	MarketEfficiency  float64         `json:"market_efficiency"`
	AverageTradeSize  decimal.Decimal `json:"average_trade_size"`
	OrderFlowRate     float64         `json:"order_flow_rate"`
	Halted            bool            `json:"halted"`
	HaltReason        HaltReason      `json:"halt_reason,omitempty"`
	ActiveBids        int             `json:"active_bids"`
	ActiveOffers      int             `json:"active_offers"`
	LastClearing      time.Time       `json:"last_clearing_time"`
}
