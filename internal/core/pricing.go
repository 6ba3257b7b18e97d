package core

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridpool/market-engine/internal/domain"
)

// updateClearingPrice sets the clearing price to the volume-weighted
// average price of the round's trades and folds the relative price change
// into the volatility EMA. A round with no trades leaves both untouched.
func (e *Engine) updateClearingPrice(trades []*domain.Trade) {
	if len(trades) == 0 {
		return
	}

	totalQty := decimal.Zero
	weighted := decimal.Zero
	for _, t := range trades {
		totalQty = totalQty.Add(t.Quantity)
		weighted = weighted.Add(t.Quantity.Mul(t.Price))
	}
	newPrice := weighted.Div(totalQty)

	e.mu.Lock()
	defer e.mu.Unlock()

	// Skip the volatility update when the previous price is zero; a
	// relative change against zero is undefined.
	if old := e.state.ClearingPrice; old.GreaterThan(decimal.Zero) {
		change, _ := newPrice.Sub(old).Abs().Div(old).Float64()
		e.state.Volatility = e.state.Volatility*0.9 + change*0.1
	}
	e.state.ClearingPrice = newPrice
	e.state.LastClearing = time.Now().UTC()
}
