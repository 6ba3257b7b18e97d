package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gridpool/market-engine/internal/domain"
)

// orderFlowWindow is the trailing window for the order-flow-rate metric.
const orderFlowWindow = 5 * time.Minute

// MonitorTick recomputes market health, drives the circuit breaker, and
// persists the resulting metrics. It runs on its own cadence and also after
// every clearing round so the breaker always sees fresh price/volatility.
func (e *Engine) MonitorTick(ctx context.Context) {
	e.updateHealth(ctx)

	snap := e.buildSnapshot()
	if e.repo != nil {
		if err := e.repo.SaveMetrics(ctx, snap); err != nil {
			e.logger.Warn("metrics persistence failed", zap.Error(err))
		}
	}
	if e.cache != nil {
		if err := e.cache.SetMarketSnapshot(ctx, snap); err != nil {
			e.logger.Warn("snapshot cache update failed", zap.Error(err))
		}
	}
}

// updateHealth refreshes supply/demand and spread and applies the
// circuit-breaker state machine. The halt is level-triggered: it holds
// while a breach condition holds and clears on the first tick where both
// ratio and volatility are back inside thresholds.
func (e *Engine) updateHealth(ctx context.Context) {
	supply, demand := e.book.SupplyDemand()
	bestBid, bestOffer, haveBoth := e.book.BestPrices()

	e.mu.Lock()

	if demand.GreaterThan(decimal.Zero) {
		ratio, _ := supply.Div(demand).Float64()
		e.state.SupplyDemandRatio = ratio
	} else {
		e.state.SupplyDemandRatio = 1.0
	}
	if haveBoth {
		spread, _ := bestOffer.Sub(bestBid).Float64()
		e.state.Spread = spread
	} else {
		e.state.Spread = 0
	}

	// Volatility only moves when trades execute, so a volatility halt does
	// not clear on its own; recovery is operational (restart the session or
	// raise the volatility limit). Price discovery must not invent decay on
	// empty rounds.
	reason := domain.HaltNone
	if e.state.SupplyDemandRatio < e.settings.EmergencyRatio {
		reason = domain.HaltImbalance
	} else if e.state.Volatility > e.settings.VolatilityLimit {
		reason = domain.HaltHighVolatility
	}

	var transition domain.Event
	switch {
	case reason != domain.HaltNone && e.state.Status == domain.MarketActive:
		e.state.Status = domain.MarketHalted
		e.state.HaltReason = reason
		transition = domain.MarketHaltedEvent{
			Reason:            reason,
			SupplyDemandRatio: e.state.SupplyDemandRatio,
			Volatility:        e.state.Volatility,
			Spread:            e.state.Spread,
		}
	case reason == domain.HaltNone && e.state.Status == domain.MarketHalted:
		e.state.Status = domain.MarketActive
		e.state.HaltReason = domain.HaltNone
		transition = domain.MarketResumedEvent{}
	case e.state.Status == domain.MarketHalted:
		// Still halted; keep the reason current if the breach cause shifted.
		e.state.HaltReason = reason
	}
	ratio := e.state.SupplyDemandRatio
	vol := e.state.Volatility
	e.mu.Unlock()

	switch transition.(type) {
	case domain.MarketHaltedEvent:
		e.logger.Warn("trading halted",
			zap.String("reason", string(reason)),
			zap.Float64("supply_demand_ratio", ratio),
			zap.Float64("volatility", vol))
		e.publish(transition)
	case domain.MarketResumedEvent:
		e.logger.Info("trading resumed", zap.Float64("supply_demand_ratio", ratio))
		e.publish(transition)
	}
}

// buildSnapshot assembles the query-surface view of market state plus book
// depth and the derived liquidity metrics.
func (e *Engine) buildSnapshot() *domain.MarketSnapshot {
	bids, offers := e.book.Depth()
	flow := e.book.RecentCount(time.Now().UTC(), orderFlowWindow)

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &domain.MarketSnapshot{
		Timestamp:         time.Now().UTC(),
		SessionID:         e.state.SessionID,
		ClearingPrice:     e.state.ClearingPrice,
		Volatility:        e.state.Volatility,
		TotalVolume:       e.state.TotalVolume,
		TradeCount:        e.state.TradeCount,
		SupplyDemandRatio: e.state.SupplyDemandRatio,
		Spread:            e.state.Spread,
		Halted:            e.state.Halted(),
		HaltReason:        e.state.HaltReason,
		ActiveBids:        bids,
		ActiveOffers:      offers,
		LastClearing:      e.state.LastClearing,
		OrderFlowRate:     float64(flow) / orderFlowWindow.Minutes(),
		AverageTradeSize:  decimal.Zero,
	}

	if e.state.ClearingPrice.GreaterThan(decimal.Zero) {
		liq, _ := e.state.TotalVolume.Div(e.state.ClearingPrice.Mul(decimal.NewFromInt(100))).Float64()
		snap.LiquidityScore = clamp01(liq)
	}
	if e.state.TradeCount > 0 {
		eff, _ := e.state.TotalVolume.Div(decimal.NewFromInt(e.state.TradeCount * 10)).Float64()
		snap.MarketEfficiency = clamp01(eff)
		snap.AverageTradeSize = e.state.TotalVolume.Div(decimal.NewFromInt(e.state.TradeCount))
	}
	return snap
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
