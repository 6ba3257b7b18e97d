package port

import (
	"context"

	"github.com/gridpool/market-engine/internal/domain"
)

// Repository persists orders, trades and market metrics. All calls from the
// engine are best-effort: a persistence failure is logged, never rolled into
// trade finality.
type Repository interface {
	SaveOrder(ctx context.Context, o *domain.Order) error
	SaveTrade(ctx context.Context, t *domain.Trade) error
	SaveMetrics(ctx context.Context, snap *domain.MarketSnapshot) error
	LoadOpenOrders(ctx context.Context) ([]*domain.Order, error)
	Close(ctx context.Context)
}
