package in_memory

import (
	"context"
	"sync"

	"github.com/gridpool/market-engine/internal/domain"
)

// MemoryRepo keeps orders, trades and metric snapshots in maps. Used in
// tests and for running the server without Postgres.
type MemoryRepo struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	trades  map[string]*domain.Trade
	metrics []*domain.MarketSnapshot
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		orders: make(map[string]*domain.Order),
		trades: make(map[string]*domain.Trade),
	}
}

func (r *MemoryRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *MemoryRepo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades[t.ID] = t
	return nil
}

func (r *MemoryRepo) SaveMetrics(ctx context.Context, snap *domain.MarketSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, snap)
	return nil
}

func (r *MemoryRepo) LoadOpenOrders(ctx context.Context) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for _, o := range r.orders {
		if o.Live() {
			cp := *o
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (r *MemoryRepo) Close(ctx context.Context) {}

// Trades returns all persisted trades; test helper.
func (r *MemoryRepo) Trades() []*domain.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*domain.Trade, 0, len(r.trades))
	for _, t := range r.trades {
		res = append(res, t)
	}
	return res
}

// Metrics returns all persisted metric snapshots; test helper.
func (r *MemoryRepo) Metrics() []*domain.MarketSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.MarketSnapshot(nil), r.metrics...)
}
