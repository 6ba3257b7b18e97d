package port

import (
	"context"

	"github.com/gridpool/market-engine/internal/domain"
)

type Cache interface {
	SetMarketSnapshot(ctx context.Context, snap *domain.MarketSnapshot) error
	GetMarketSnapshot(ctx context.Context) (*domain.MarketSnapshot, error)
}
