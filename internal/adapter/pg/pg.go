package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridpool/market-engine/internal/domain"
	"github.com/gridpool/market-engine/internal/port"
)

var _ port.Repository = (*PgRepo)(nil)

type PgRepo struct {
	pool *pgxpool.Pool
}

// call Close when finished with the database.
func NewPgRepo(ctx context.Context, dsn string) (*PgRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &PgRepo{pool: pool}, nil
}

func (p *PgRepo) Close(ctx context.Context) {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PgRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO orders(id, side, actor_id, quantity_mw, price_per_mwh, priority, created_at, expires_at, filled_quantity, status)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  filled_quantity = EXCLUDED.filled_quantity,
  status = EXCLUDED.status
`, o.ID, string(o.Side), o.ActorID, o.Quantity, o.LimitPrice, o.Priority,
		o.CreatedAt, o.ExpiresAt, o.FilledQuantity, string(o.Status))
	return err
}

func (p *PgRepo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if t == nil {
		return errors.New("nil trade")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO trades(id, bid_id, offer_id, buyer_id, seller_id, quantity_mw, price_per_mwh, total_value, market_fee, executed_at, session_id)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO NOTHING
`, t.ID, t.BidID, t.OfferID, t.BuyerID, t.SellerID, t.Quantity, t.Price,
		t.TotalValue, t.Fee, t.Timestamp, t.SessionID)
	return err
}

// SaveMetrics appends one measurement row per metric, mirroring the
// time-series shape consumers expect.
func (p *PgRepo) SaveMetrics(ctx context.Context, snap *domain.MarketSnapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	clearingPrice, _ := snap.ClearingPrice.Float64()
	totalVolume, _ := snap.TotalVolume.Float64()
	measures := map[string]float64{
		"market_clearing_price": clearingPrice,
		"total_volume_traded":   totalVolume,
		"total_trades_executed": float64(snap.TradeCount),
		"market_volatility":     snap.Volatility,
		"supply_demand_ratio":   snap.SupplyDemandRatio,
		"price_spread":          snap.Spread,
		"order_flow_rate":       snap.OrderFlowRate,
		"liquidity_score":       snap.LiquidityScore,
		"market_efficiency":     snap.MarketEfficiency,
	}
	for name, value := range measures {
		if _, err := p.pool.Exec(ctx, `
INSERT INTO market_metrics(session_id, measure_name, value, measured_at)
VALUES($1,$2,$3,$4)
`, snap.SessionID, name, value, snap.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// LoadOpenOrders returns live, unexpired orders in submission order (FIFO).
func (p *PgRepo) LoadOpenOrders(ctx context.Context) ([]*domain.Order, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, side, actor_id, quantity_mw, price_per_mwh, priority, created_at, expires_at, filled_quantity, status
FROM orders
WHERE status IN ('ACTIVE','PARTIALLY_FILLED') AND expires_at > NOW()
ORDER BY created_at ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		var o domain.Order
		var side, status string
		if err := rows.Scan(&o.ID, &side, &o.ActorID, &o.Quantity, &o.LimitPrice,
			&o.Priority, &o.CreatedAt, &o.ExpiresAt, &o.FilledQuantity, &status); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		o.Status = domain.OrderStatus(status)
		res = append(res, &o)
	}
	return res, rows.Err()
}
