package domain

// EventType tags the engine output variants so collaborators can switch
// exhaustively over them.
type EventType string

const (
	EventOrderExpired   EventType = "order_expired"
	EventTradeExecuted  EventType = "trade_executed"
	EventMarketHalted   EventType = "market_halted"
	EventMarketResumed  EventType = "market_resumed"
	EventMarketSnapshot EventType = "market_snapshot"
)

// BroadcastRecipient marks a trade event addressed to every participant
// rather than one counterparty.
const BroadcastRecipient = "broadcast"

// Event is the closed set of engine outputs. Delivery is fire-and-forget:
// a slow consumer never delays a clearing round.
type Event interface {
	Type() EventType
}

// OrderExpired is emitted by the janitor sweep for each order that passed
// its expiry while still live.
type OrderExpired struct {
	OrderID string `json:"order_id"`
	ActorID string `json:"actor_id"`
	Side    Side   `json:"side"`
}

// TradeExecuted carries one executed trade. The engine emits one per buyer,
// one per seller, and one broadcast copy for market transparency.
type TradeExecuted struct {
	Recipient string `json:"recipient"`
	Trade     *Trade `json:"trade"`
}

// MarketHaltedEvent signals a circuit-breaker engagement with the market
// conditions observed at the triggering tick.
type MarketHaltedEvent struct {
	Reason            HaltReason `json:"reason"`
	SupplyDemandRatio float64    `json:"supply_demand_ratio"`
	Volatility        float64    `json:"volatility"`
	Spread            float64    `json:"price_spread"`
}

// MarketResumedEvent signals that matching has resumed after a halt.
type MarketResumedEvent struct{}

// MarketSnapshotEvent is the periodic market-wide status broadcast.
type MarketSnapshotEvent struct {
	Snapshot *MarketSnapshot `json:"snapshot"`
}

func (OrderExpired) Type() EventType        { return EventOrderExpired }
func (TradeExecuted) Type() EventType       { return EventTradeExecuted }
func (MarketHaltedEvent) Type() EventType   { return EventMarketHalted }
func (MarketResumedEvent) Type() EventType  { return EventMarketResumed }
func (MarketSnapshotEvent) Type() EventType { return EventMarketSnapshot }
