package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gridpool/market-engine/internal/domain"
	"github.com/gridpool/market-engine/internal/port"
)

type PricingMode string

const (
	UniformPricing PricingMode = "uniform"
	PayAsBid       PricingMode = "pay_as_bid"
)

// Settings are the engine knobs. Cadences are configuration, not constants,
// but the defaults below are what existing deployments expect.
type Settings struct {
	ClearingInterval time.Duration
	JanitorInterval  time.Duration
	MonitorInterval  time.Duration
	SnapshotInterval time.Duration

	PricingMode  PricingMode
	FeeRate      decimal.Decimal
	MinTradeSize decimal.Decimal

	EmergencyRatio  float64
	VolatilityLimit float64

	SeedPrice decimal.Decimal
}

func DefaultSettings() Settings {
	return Settings{
		ClearingInterval: 60 * time.Second,
		JanitorInterval:  30 * time.Second,
		MonitorInterval:  60 * time.Second,
		SnapshotInterval: 5 * time.Minute,
		PricingMode:      UniformPricing,
		FeeRate:          decimal.NewFromFloat(0.001),
		MinTradeSize:     decimal.NewFromInt(1),
		EmergencyRatio:   0.8,
		VolatilityLimit:  0.5,
		SeedPrice:        decimal.NewFromInt(50),
	}
}

// Engine owns the order book and market state and drives the periodic
// clearing, monitoring and janitor work. Repo and cache ports are optional;
// the notifier is where every engine output leaves the process.
type Engine struct {
	settings Settings
	logger   *zap.Logger

	repo     port.Repository
	cache    port.Cache
	notifier port.Notifier

	mu    sync.Mutex
	book  *Book
	state *domain.MarketState
}

func NewEngine(settings Settings, repo port.Repository, cache port.Cache, notifier port.Notifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		settings: settings,
		logger:   logger,
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		book:     NewBook(),
		state:    domain.NewMarketState(uuid.NewString(), settings.SeedPrice, time.Now().UTC()),
	}
	logger.Info("market engine initialized",
		zap.String("session_id", e.state.SessionID),
		zap.String("pricing_mode", string(settings.PricingMode)),
		zap.String("seed_price", settings.SeedPrice.String()))
	return e
}

// Recover loads open orders from the repository into the book. Called once
// before the loops start.
func (e *Engine) Recover(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	orders, err := e.repo.LoadOpenOrders(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if err := e.book.Submit(o); err != nil {
			e.logger.Warn("skipping unrecoverable order", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	e.logger.Info("open orders recovered", zap.Int("count", len(orders)))
	return nil
}

// Start launches the clearing scheduler, janitor, health monitor and
// snapshot broadcaster. Each is independently cancellable through ctx and
// each tick is atomic with respect to the book.
func (e *Engine) Start(ctx context.Context) {
	go e.loop(ctx, e.settings.ClearingInterval, func() { e.ClearingTick(ctx) })
	go e.loop(ctx, e.settings.JanitorInterval, func() { e.JanitorTick(ctx) })
	go e.loop(ctx, e.settings.MonitorInterval, func() { e.MonitorTick(ctx) })
	go e.loop(ctx, e.settings.SnapshotInterval, func() { e.BroadcastSnapshot(ctx) })
	e.logger.Info("engine loops started",
		zap.Duration("clearing_interval", e.settings.ClearingInterval),
		zap.Duration("janitor_interval", e.settings.JanitorInterval),
		zap.Duration("monitor_interval", e.settings.MonitorInterval))
}

func (e *Engine) loop(ctx context.Context, interval time.Duration, tick func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

// SubmitOrder validates and books a new order. Defaults are applied at this
// boundary: priority 5, expiry creation+30m. The book keeps its own copy;
// the returned order is the submission-time state. Submission is accepted
// while the market is halted; the order simply waits for matching to
// resume. A caller-supplied id that is already booked is rejected.
func (e *Engine) SubmitOrder(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	now := time.Now().UTC()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Priority == 0 {
		o.Priority = domain.DefaultPriority
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.ExpiresAt.IsZero() {
		o.ExpiresAt = o.CreatedAt.Add(domain.DefaultOrderTTL)
	}
	o.FilledQuantity = decimal.Zero
	o.Status = domain.Active

	if err := e.book.Submit(o); err != nil {
		return nil, err
	}
	e.persistOrder(ctx, o)
	e.logger.Info("order received",
		zap.String("order_id", o.ID),
		zap.String("side", string(o.Side)),
		zap.String("actor_id", o.ActorID),
		zap.String("quantity_mw", o.Quantity.String()),
		zap.String("price_per_mwh", o.LimitPrice.String()))
	return o, nil
}

// CancelOrder marks a live order cancelled and evicts it. Cancelling an
// unknown or already-terminal order is an acknowledged no-op.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.book.Cancel(orderID)
	if !ok {
		return false
	}
	e.persistOrder(ctx, o)
	e.logger.Info("order cancelled", zap.String("order_id", orderID))
	return true
}

// GetOrder returns a copy of the booked order for id, safe to read while
// clearing rounds run.
func (e *Engine) GetOrder(orderID string) (*domain.Order, bool) {
	return e.book.Get(orderID)
}

// OrderBook returns ordered, detached views of both sides for the query
// surface.
func (e *Engine) OrderBook() (bids, offers []*domain.Order) {
	return e.book.Snapshot(domain.Bid), e.book.Snapshot(domain.Offer)
}

// JanitorTick expires stale orders, evicts terminal ones, and notifies
// owners of expirations.
func (e *Engine) JanitorTick(ctx context.Context) {
	e.mu.Lock()
	expired := e.book.Sweep(time.Now().UTC())
	e.mu.Unlock()

	for _, o := range expired {
		e.persistOrder(ctx, o)
		e.publish(domain.OrderExpired{OrderID: o.ID, ActorID: o.ActorID, Side: o.Side})
	}
	if len(expired) > 0 {
		e.logger.Info("expired orders swept", zap.Int("count", len(expired)))
	}
}

// BroadcastSnapshot publishes the periodic market-wide status report.
func (e *Engine) BroadcastSnapshot(ctx context.Context) {
	snap := e.buildSnapshot()
	e.publish(domain.MarketSnapshotEvent{Snapshot: snap})
	if e.cache != nil {
		if err := e.cache.SetMarketSnapshot(ctx, snap); err != nil {
			e.logger.Warn("snapshot cache update failed", zap.Error(err))
		}
	}
}

// Snapshot serves the query surface: cached copy when fresh, otherwise the
// live state.
func (e *Engine) Snapshot(ctx context.Context) *domain.MarketSnapshot {
	if e.cache != nil {
		if snap, err := e.cache.GetMarketSnapshot(ctx); err == nil && snap != nil {
			return snap
		}
	}
	return e.buildSnapshot()
}

func (e *Engine) persistOrder(ctx context.Context, o *domain.Order) {
	if e.repo == nil {
		return
	}
	if err := e.repo.SaveOrder(ctx, o); err != nil {
		e.logger.Warn("order persistence failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (e *Engine) publish(ev domain.Event) {
	if e.notifier == nil {
		return
	}
	e.notifier.Publish(ev)
}
