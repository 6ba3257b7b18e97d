package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gridpool/market-engine/internal/domain"
)

// ClearingTick is one scheduler tick: run a clearing round (skipped while
// halted), rediscover the price, then re-evaluate market health against
// the fresh price and volatility.
func (e *Engine) ClearingTick(ctx context.Context) []*domain.Trade {
	trades := e.clearOnce(ctx)
	e.updateClearingPrice(trades)
	e.updateHealth(ctx)

	if len(trades) > 0 {
		total := decimal.Zero
		for _, t := range trades {
			total = total.Add(t.Quantity)
		}
		e.mu.Lock()
		price := e.state.ClearingPrice
		e.mu.Unlock()
		e.logger.Info("market cleared",
			zap.Int("trades_executed", len(trades)),
			zap.String("total_volume_mw", total.String()),
			zap.String("clearing_price", price.String()))
	}
	return trades
}

// clearOnce runs a single round over ordered snapshots of both sides. Each
// pairing mutates both orders and emits the trade before the next pairing
// starts, so a fault mid-round loses at most the in-flight pairing. The
// halt gate is checked inside the round's critical section: a halt engaged
// by a concurrent monitor tick can never let a round through.
func (e *Engine) clearOnce(ctx context.Context) []*domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Halted() {
		e.logger.Debug("clearing skipped, market halted")
		return nil
	}

	bids := e.book.Snapshot(domain.Bid)
	offers := e.book.Snapshot(domain.Offer)
	if len(bids) == 0 || len(offers) == 0 {
		return nil
	}

	now := time.Now().UTC()
	var trades []*domain.Trade
	for _, bid := range bids {
		if !bid.Live() || bid.ExpiredAt(now) {
			continue
		}
		for _, offer := range offers {
			if !offer.Live() || offer.ExpiredAt(now) {
				continue
			}
			if bid.LimitPrice.LessThan(offer.LimitPrice) {
				continue
			}
			qty := decimal.Min(bid.Remaining(), offer.Remaining())
			if qty.LessThan(e.settings.MinTradeSize) {
				continue
			}
			trades = append(trades, e.executeTrade(ctx, bid, offer, qty, now))
			if bid.Status == domain.Filled {
				break
			}
		}
	}

	// Filled orders cannot match again; evict them now rather than waiting
	// for the janitor.
	for _, o := range append(bids, offers...) {
		if !o.Live() {
			e.book.Remove(o.ID)
		}
	}
	return trades
}

// executeTrade prices and records one pairing. The trade is economically
// final once both orders are filled; persistence and notification are
// best-effort and never roll it back.
func (e *Engine) executeTrade(ctx context.Context, bid, offer *domain.Order, qty decimal.Decimal, now time.Time) *domain.Trade {
	var price decimal.Decimal
	if e.settings.PricingMode == PayAsBid {
		price = bid.LimitPrice
	} else {
		price = bid.LimitPrice.Add(offer.LimitPrice).Div(decimal.NewFromInt(2))
	}
	value := qty.Mul(price)

	trade := &domain.Trade{
		ID:         newTradeID(now),
		BidID:      bid.ID,
		OfferID:    offer.ID,
		BuyerID:    bid.ActorID,
		SellerID:   offer.ActorID,
		Quantity:   qty,
		Price:      price,
		TotalValue: value,
		Fee:        value.Mul(e.settings.FeeRate),
		Timestamp:  now,
		SessionID:  e.state.SessionID,
	}

	// The round works on snapshot copies; commit the fill to the live book
	// entries under the book lock, and keep the copies in step so the rest
	// of the round sees the same remaining quantities and statuses.
	bid.Fill(qty)
	offer.Fill(qty)
	e.book.Fill(bid.ID, qty)
	e.book.Fill(offer.ID, qty)
	e.state.TotalVolume = e.state.TotalVolume.Add(qty)
	e.state.TradeCount++

	if e.repo != nil {
		if err := e.repo.SaveTrade(ctx, trade); err != nil {
			e.logger.Warn("trade persistence failed", zap.String("trade_id", trade.ID), zap.Error(err))
		}
	}
	e.persistOrder(ctx, bid)
	e.persistOrder(ctx, offer)

	e.publish(domain.TradeExecuted{Recipient: trade.BuyerID, Trade: trade})
	e.publish(domain.TradeExecuted{Recipient: trade.SellerID, Trade: trade})
	e.publish(domain.TradeExecuted{Recipient: domain.BroadcastRecipient, Trade: trade})
	return trade
}

func newTradeID(now time.Time) string {
	return fmt.Sprintf("trade_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8])
}
