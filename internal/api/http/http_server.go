package http

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gridpool/market-engine/internal/api/dto"
	"github.com/gridpool/market-engine/internal/core"
	"github.com/gridpool/market-engine/internal/domain"
	"github.com/gridpool/market-engine/internal/middleware"
)

type HTTPServer struct {
	Eng   *core.Engine
	dedup *dedupIndex // client-supplied order ids, for retry deduplication
}

func NewHTTPServer(eng *core.Engine) *HTTPServer {
	return &HTTPServer{Eng: eng, dedup: newDedupIndex(domain.DefaultOrderTTL)}
}

// dedupIndex remembers recently submitted order ids so a client retry does
// not book the same order twice. Entries expire with the order TTL, which
// bounds the index; the book's duplicate-id check backstops any id that is
// still live.
type dedupIndex struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	lastGC time.Time
}

func newDedupIndex(ttl time.Duration) *dedupIndex {
	return &dedupIndex{seen: make(map[string]time.Time), ttl: ttl}
}

// Remember records id at now and reports whether it was already present
// and unexpired. Stale entries are purged at most once per TTL.
func (d *dedupIndex) Remember(id string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if now.Sub(d.lastGC) >= d.ttl {
		for k, at := range d.seen {
			if now.Sub(at) >= d.ttl {
				delete(d.seen, k)
			}
		}
		d.lastGC = now
	}
	if at, ok := d.seen[id]; ok && now.Sub(at) < d.ttl {
		return true
	}
	d.seen[id] = now
	return false
}

// Handler builds the gin router; split out so tests can drive it directly.
func (s *HTTPServer) Handler() *gin.Engine {
	r := gin.Default()

	// Middleware rate-limiting
	rl := middleware.NewRateLimiter(time.Millisecond * 100)
	r.Use(rl.Middleware())

	r.POST("/orders", s.submitOrder)
	r.POST("/orders/cancel", s.cancelOrder)
	r.GET("/orders/:id", s.getOrder)
	r.GET("/orderbook", s.getOrderbook)
	r.GET("/market", s.getMarket)

	return r
}

func (s *HTTPServer) Run(addr string) error {
	return s.Handler().Run(addr)
}

func (s *HTTPServer) submitOrder(c *gin.Context) {
	var req dto.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ValidateSubmit(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// deduplication
	if req.OrderID != "" && s.dedup.Remember(req.OrderID, time.Now().UTC()) {
		c.JSON(http.StatusOK, gin.H{"message": "duplicate order", "order_id": req.OrderID})
		return
	}

	o := &domain.Order{
		ID:         req.OrderID,
		ActorID:    req.ActorID,
		Side:       domain.Side(req.Side),
		Quantity:   req.Quantity,
		LimitPrice: req.Price,
		Priority:   req.Priority,
	}
	if req.ExpiresAt != nil {
		o.ExpiresAt = *req.ExpiresAt
	}

	booked, err := s.Eng.SubmitOrder(c.Request.Context(), o)
	if err != nil {
		if errors.Is(err, core.ErrInvalidOrder) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.SubmitOrderResponse{
		OrderID:   booked.ID,
		Status:    string(booked.Status),
		ExpiresAt: booked.ExpiresAt,
	})
}

func (s *HTTPServer) cancelOrder(c *gin.Context) {
	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cancelled := s.Eng.CancelOrder(c.Request.Context(), req.OrderID)
	c.JSON(http.StatusOK, dto.CancelOrderResponse{
		OrderID:   req.OrderID,
		Cancelled: cancelled,
	})
}

func (s *HTTPServer) getOrder(c *gin.Context) {
	id := c.Param("id")
	o, ok := s.Eng.GetOrder(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, dto.GetOrderResponse{Order: convertOrder(o)})
}

func (s *HTTPServer) getOrderbook(c *gin.Context) {
	bids, offers := s.Eng.OrderBook()
	c.JSON(http.StatusOK, dto.GetOrderbookResponse{
		Bids:      convertOrders(bids),
		Offers:    convertOrders(offers),
		Timestamp: time.Now().UTC(),
	})
}

func (s *HTTPServer) getMarket(c *gin.Context) {
	c.JSON(http.StatusOK, s.Eng.Snapshot(c.Request.Context()))
}

func convertOrder(o *domain.Order) dto.Order {
	return dto.Order{
		ID:             o.ID,
		ActorID:        o.ActorID,
		Side:           dto.Side(o.Side),
		Quantity:       o.Quantity,
		Price:          o.LimitPrice,
		Priority:       o.Priority,
		FilledQuantity: o.FilledQuantity,
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt,
		ExpiresAt:      o.ExpiresAt,
	}
}

func convertOrders(orders []*domain.Order) []dto.Order {
	res := make([]dto.Order, len(orders))
	for i, o := range orders {
		res[i] = convertOrder(o)
	}
	return res
}

func ValidateSubmit(req *dto.SubmitOrderRequest) error {
	switch req.Side {
	case dto.Bid, dto.Offer:
	default:
		return fmt.Errorf("invalid side: %s", req.Side)
	}
	if req.Priority < 0 || req.Priority > 10 {
		return fmt.Errorf("priority must be between 0 and 10")
	}
	return nil
}
