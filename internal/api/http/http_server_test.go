package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridpool/market-engine/internal/api/dto"
	"github.com/gridpool/market-engine/internal/core"
	"github.com/gridpool/market-engine/internal/domain"
)

func newTestServer(t *testing.T) (*gin.Engine, *core.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	eng := core.NewEngine(core.DefaultSettings(), nil, nil, nil, nil)
	return NewHTTPServer(eng).Handler(), eng
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

var actorSeq int

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	actorSeq++
	req.Header.Set("X-Actor-ID", fmt.Sprintf("test-actor-%d", actorSeq))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitOrderEndpoint(t *testing.T) {
	router, eng := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/orders", dto.SubmitOrderRequest{
		ActorID:  "consumer-1",
		Side:     dto.Bid,
		Quantity: mustDecimal("10"),
		Price:    mustDecimal("50"),
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.SubmitOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, string(domain.Active), resp.Status)

	_, ok := eng.GetOrder(resp.OrderID)
	assert.True(t, ok)
}

func TestSubmitOrderEndpointRejectsInvalid(t *testing.T) {
	router, _ := newTestServer(t)

	t.Run("bad side", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/orders", dto.SubmitOrderRequest{
			ActorID:  "consumer-1",
			Side:     "SHORT",
			Quantity: mustDecimal("10"),
			Price:    mustDecimal("50"),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative quantity", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/orders", dto.SubmitOrderRequest{
			ActorID:  "consumer-1",
			Side:     dto.Bid,
			Quantity: mustDecimal("-5"),
			Price:    mustDecimal("50"),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing actor header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{}"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSubmitOrderEndpointDeduplicates(t *testing.T) {
	router, eng := newTestServer(t)

	req := dto.SubmitOrderRequest{
		OrderID:  "client-42",
		ActorID:  "consumer-1",
		Side:     dto.Bid,
		Quantity: mustDecimal("10"),
		Price:    mustDecimal("50"),
	}
	w := doJSON(t, router, http.MethodPost, "/orders", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A retry with the same client id acknowledges without re-booking.
	w = doJSON(t, router, http.MethodPost, "/orders", req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate order")

	bids, _ := eng.OrderBook()
	assert.Len(t, bids, 1)

	// A restarted server starts with an empty dedup index; the book's
	// duplicate-id check still rejects the replay.
	fresh := NewHTTPServer(eng).Handler()
	w = doJSON(t, fresh, http.MethodPost, "/orders", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	bids, _ = eng.OrderBook()
	assert.Len(t, bids, 1)
}

func TestDedupIndexExpiresEntries(t *testing.T) {
	d := newDedupIndex(time.Minute)
	now := time.Now().UTC()

	assert.False(t, d.Remember("o1", now))
	assert.True(t, d.Remember("o1", now.Add(30*time.Second)))

	// Past the TTL the id may be reused and the stale entry is purged, so
	// the index stays bounded.
	assert.False(t, d.Remember("o1", now.Add(2*time.Minute)))
	d.mu.Lock()
	assert.Len(t, d.seen, 1)
	d.mu.Unlock()
}

func TestCancelOrderEndpointIdempotent(t *testing.T) {
	router, eng := newTestServer(t)

	booked, err := eng.SubmitOrder(t.Context(), &domain.Order{
		Side:       domain.Bid,
		ActorID:    "consumer-1",
		Quantity:   mustDecimal("10"),
		LimitPrice: mustDecimal("50"),
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/orders/cancel", dto.CancelOrderRequest{OrderID: booked.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.CancelOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Cancelled)

	// Second cancel and unknown-id cancel both acknowledge without error.
	w = doJSON(t, router, http.MethodPost, "/orders/cancel", dto.CancelOrderRequest{OrderID: booked.ID})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Cancelled)

	w = doJSON(t, router, http.MethodPost, "/orders/cancel", dto.CancelOrderRequest{OrderID: "never-existed"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMarketAndOrderbookEndpoints(t *testing.T) {
	router, eng := newTestServer(t)

	_, err := eng.SubmitOrder(t.Context(), &domain.Order{
		Side:       domain.Offer,
		ActorID:    "producer-1",
		Quantity:   mustDecimal("10"),
		LimitPrice: mustDecimal("40"),
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/orderbook", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ob dto.GetOrderbookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ob))
	assert.Len(t, ob.Offers, 1)
	assert.Empty(t, ob.Bids)

	w = doJSON(t, router, http.MethodGet, "/market", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap domain.MarketSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.ActiveOffers)
	assert.False(t, snap.Halted)
}

func TestGetOrderEndpoint(t *testing.T) {
	router, eng := newTestServer(t)

	booked, err := eng.SubmitOrder(t.Context(), &domain.Order{
		Side:       domain.Bid,
		ActorID:    "consumer-1",
		Quantity:   mustDecimal("10"),
		LimitPrice: mustDecimal("50"),
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/orders/"+booked.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.GetOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, booked.ID, resp.Order.ID)

	w = doJSON(t, router, http.MethodGet, "/orders/never-existed", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
