package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridpool/market-engine/internal/domain"
)

func TestBusRoutesTradeToCounterparty(t *testing.T) {
	b := NewBus(4, nil)
	defer b.Close()

	buyer := b.Subscribe("buyer-1")
	seller := b.Subscribe("seller-1")

	trade := &domain.Trade{ID: "t1", BuyerID: "buyer-1", SellerID: "seller-1"}
	b.Publish(domain.TradeExecuted{Recipient: "buyer-1", Trade: trade})

	require.Len(t, buyer, 1)
	assert.Len(t, seller, 0)

	ev := <-buyer
	assert.Equal(t, domain.EventTradeExecuted, ev.Type())
}

func TestBusBroadcast(t *testing.T) {
	b := NewBus(4, nil)
	defer b.Close()

	a := b.Subscribe("actor-a")
	c := b.Subscribe("actor-c")

	b.Publish(domain.TradeExecuted{
		Recipient: domain.BroadcastRecipient,
		Trade:     &domain.Trade{ID: "t1"},
	})
	b.Publish(domain.MarketHaltedEvent{Reason: domain.HaltImbalance})

	assert.Len(t, a, 2)
	assert.Len(t, c, 2)
}

func TestBusUnknownRecipientDropsSilently(t *testing.T) {
	b := NewBus(4, nil)
	defer b.Close()

	sub := b.Subscribe("actor-a")
	b.Publish(domain.TradeExecuted{Recipient: "stranger", Trade: &domain.Trade{ID: "t1"}})

	assert.Len(t, sub, 0)
	assert.Zero(t, b.Dropped())
}

func TestBusPublishNeverBlocks(t *testing.T) {
	b := NewBus(1, nil)
	defer b.Close()

	slow := b.Subscribe("slow")

	// Buffer of one: the second and third deliveries must be dropped, not
	// block the publisher.
	for i := 0; i < 3; i++ {
		b.Publish(domain.MarketResumedEvent{})
	}

	assert.Len(t, slow, 1)
	assert.Equal(t, int64(2), b.Dropped())
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(4, nil)
	ch := b.Subscribe("actor-a")
	b.Unsubscribe("actor-a")

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe goes nowhere.
	b.Publish(domain.MarketResumedEvent{})
	assert.Zero(t, b.Dropped())
}
