package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gridpool/market-engine/internal/adapter/cache"
	"github.com/gridpool/market-engine/internal/adapter/in_memory"
	"github.com/gridpool/market-engine/internal/adapter/pg"
	httpapi "github.com/gridpool/market-engine/internal/api/http"
	"github.com/gridpool/market-engine/internal/config"
	"github.com/gridpool/market-engine/internal/core"
	"github.com/gridpool/market-engine/internal/domain"
	"github.com/gridpool/market-engine/internal/notify"
	"github.com/gridpool/market-engine/internal/port"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo port.Repository
	if cfg.PostgresDSN != "" {
		pgRepo, err := pg.NewPgRepo(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("failed to connect to Postgres", zap.Error(err))
		}
		defer pgRepo.Close(ctx)
		repo = pgRepo
	} else {
		logger.Info("no Postgres DSN configured, running with in-memory repository")
		repo = in_memory.NewMemoryRepo()
	}

	var snapCache port.Cache
	if cfg.RedisAddr != "" {
		snapCache = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
	}

	bus := notify.NewBus(cfg.EventBuffer, logger)
	defer bus.Close()
	go consumeEvents(ctx, bus.Subscribe("audit"), logger)

	settings := core.Settings{
		ClearingInterval: cfg.ClearingInterval,
		JanitorInterval:  cfg.JanitorInterval,
		MonitorInterval:  cfg.MonitorInterval,
		SnapshotInterval: cfg.SnapshotInterval,
		PricingMode:      core.PricingMode(cfg.PricingMode),
		FeeRate:          decimal.NewFromFloat(cfg.FeeRate),
		MinTradeSize:     decimal.NewFromFloat(cfg.MinTradeSizeMW),
		EmergencyRatio:   cfg.EmergencyRatio,
		VolatilityLimit:  cfg.VolatilityLimit,
		SeedPrice:        decimal.NewFromFloat(cfg.SeedPrice),
	}

	engine := core.NewEngine(settings, repo, snapCache, bus, logger)
	if err := engine.Recover(ctx); err != nil {
		logger.Fatal("failed to recover open orders", zap.Error(err))
	}
	engine.Start(ctx)

	server := httpapi.NewHTTPServer(engine)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		errCh <- server.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
}

// consumeEvents drains the audit subscription, logging every engine output.
// The switch is exhaustive over the event union.
func consumeEvents(ctx context.Context, events <-chan domain.Event, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case domain.OrderExpired:
				logger.Info("order expired",
					zap.String("order_id", e.OrderID),
					zap.String("actor_id", e.ActorID))
			case domain.TradeExecuted:
				logger.Info("trade executed",
					zap.String("recipient", e.Recipient),
					zap.String("trade_id", e.Trade.ID),
					zap.String("quantity_mw", e.Trade.Quantity.String()),
					zap.String("price_per_mwh", e.Trade.Price.String()))
			case domain.MarketHaltedEvent:
				logger.Warn("market halted",
					zap.String("reason", string(e.Reason)),
					zap.Float64("supply_demand_ratio", e.SupplyDemandRatio),
					zap.Float64("volatility", e.Volatility))
			case domain.MarketResumedEvent:
				logger.Info("market resumed")
			case domain.MarketSnapshotEvent:
				logger.Info("market snapshot",
					zap.String("clearing_price", e.Snapshot.ClearingPrice.String()),
					zap.Int64("trade_count", e.Snapshot.TradeCount),
					zap.Bool("halted", e.Snapshot.Halted))
			}
		}
	}
}
