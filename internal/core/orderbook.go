package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridpool/market-engine/internal/domain"
)

// ErrInvalidOrder rejects a submission before it reaches the book.
var ErrInvalidOrder = errors.New("invalid order")

// Book holds the live bids and offers, indexed by order id for O(1)
// lookup and removal. Every order present on a side is ACTIVE or
// PARTIALLY_FILLED as of the last sweep. The book owns its entries: it
// stores a private copy on submit and every accessor hands out detached
// copies, so all mutation of a booked order happens under b.mu.
type Book struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	bids   []*domain.Order
	offers []*domain.Order
}

func NewBook() *Book {
	return &Book{orders: make(map[string]*domain.Order)}
}

// Submit validates and inserts a new order. Terms are checked here once;
// nothing downstream revalidates them. The id must be new: re-booking a
// known id would leave a second entry on the side slice that removal
// could never reach.
func (b *Book) Submit(o *domain.Order) error {
	if o.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidOrder, o.Quantity)
	}
	if o.LimitPrice.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: limit price must be positive, got %s", ErrInvalidOrder, o.LimitPrice)
	}
	if !o.ExpiresAt.After(o.CreatedAt) {
		return fmt.Errorf("%w: expiry %s not after creation %s", ErrInvalidOrder, o.ExpiresAt, o.CreatedAt)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[o.ID]; ok {
		return fmt.Errorf("%w: duplicate order id %s", ErrInvalidOrder, o.ID)
	}
	cp := *o
	b.orders[cp.ID] = &cp
	if cp.Side == domain.Bid {
		b.bids = append(b.bids, &cp)
	} else {
		b.offers = append(b.offers, &cp)
	}
	return nil
}

// Remove drops an order from the index and its side. Removing an unknown
// id is a no-op so cancellation stays idempotent.
func (b *Book) Remove(orderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remove(orderID)
}

func (b *Book) remove(orderID string) {
	o, ok := b.orders[orderID]
	if !ok {
		return
	}
	delete(b.orders, orderID)
	if o.Side == domain.Bid {
		b.bids = removeFromSide(b.bids, orderID)
	} else {
		b.offers = removeFromSide(b.offers, orderID)
	}
}

// Get returns a copy of the order for id, if present.
func (b *Book) Get(orderID string) (*domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

// Fill applies a partial or complete execution to the booked order and
// returns a copy of its updated state. ok is false for an unknown or
// terminal order.
func (b *Book) Fill(orderID string, qty decimal.Decimal) (*domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok || !o.Live() {
		return nil, false
	}
	o.Fill(qty)
	cp := *o
	return &cp, true
}

// Cancel marks a live order cancelled, evicts it, and returns a copy of
// its final state. ok is false for an unknown or terminal order, keeping
// cancellation idempotent.
func (b *Book) Cancel(orderID string) (*domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok || !o.Live() {
		return nil, false
	}
	o.Status = domain.Cancelled
	b.remove(orderID)
	cp := *o
	return &cp, true
}

// Snapshot returns the orders for one side in matching priority order:
// priority desc, then price favorability (bids desc, offers asc), then
// creation time asc. Both the slice and the orders are point-in-time
// copies, detached from the live book entries.
func (b *Book) Snapshot(side domain.Side) []*domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.offers
	if side == domain.Bid {
		src = b.bids
	}
	out := make([]*domain.Order, len(src))
	for i, o := range src {
		cp := *o
		out[i] = &cp
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if c := out[i].LimitPrice.Cmp(out[j].LimitPrice); c != 0 {
			if side == domain.Bid {
				return c > 0
			}
			return c < 0
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Sweep expires every live order past its expiry at now, removes it from
// the book, and returns the expired orders for event emission. Orders that
// reached a terminal state elsewhere are evicted as well.
func (b *Book) Sweep(now time.Time) []*domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expired []*domain.Order
	for id, o := range b.orders {
		if o.Live() && o.ExpiredAt(now) {
			o.Status = domain.Expired
			expired = append(expired, o)
			b.remove(id)
			continue
		}
		if !o.Live() {
			b.remove(id)
		}
	}
	return expired
}

// Depth returns the live order count per side.
func (b *Book) Depth() (bids, offers int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bids), len(b.offers)
}

// SupplyDemand sums the remaining quantity of live offers (supply) and
// live bids (demand).
func (b *Book) SupplyDemand() (supply, demand decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.offers {
		if o.Live() {
			supply = supply.Add(o.Remaining())
		}
	}
	for _, o := range b.bids {
		if o.Live() {
			demand = demand.Add(o.Remaining())
		}
	}
	return supply, demand
}

// BestPrices returns the highest live bid and lowest live offer. ok is
// false when either side is empty.
func (b *Book) BestPrices() (bestBid, bestOffer decimal.Decimal, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	haveBid, haveOffer := false, false
	for _, o := range b.bids {
		if !o.Live() {
			continue
		}
		if !haveBid || o.LimitPrice.GreaterThan(bestBid) {
			bestBid = o.LimitPrice
			haveBid = true
		}
	}
	for _, o := range b.offers {
		if !o.Live() {
			continue
		}
		if !haveOffer || o.LimitPrice.LessThan(bestOffer) {
			bestOffer = o.LimitPrice
			haveOffer = true
		}
	}
	return bestBid, bestOffer, haveBid && haveOffer
}

// RecentCount counts orders created within the trailing window, live or not
// yet evicted. Feeds the order-flow-rate metric.
func (b *Book) RecentCount(now time.Time, window time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, o := range b.orders {
		if now.Sub(o.CreatedAt) < window {
			n++
		}
	}
	return n
}

func removeFromSide(side []*domain.Order, orderID string) []*domain.Order {
	for i, o := range side {
		if o.ID == orderID {
			return append(side[:i], side[i+1:]...)
		}
	}
	return side
}
