package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"order_actor/internal/domain"
	"order_actor/internal/engine"
	"order_actor/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryOrders struct {
	orders []domain.ProcessedOrder
}

func (m *memoryOrders) List(_ context.Context, limit int) ([]domain.ProcessedOrder, error) {
	if limit > len(m.orders) {
		limit = len(m.orders)
	}
	return m.orders[:limit], nil
}

func (m *memoryOrders) Count(context.Context) (int64, error) {
	return int64(len(m.orders)), nil
}

func newTestServer(t *testing.T, investmentCap int64, opts Options) (*Server, *engine.BookActor) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if opts.Metrics == nil {
		opts.Metrics = &infra.Metrics{}
	}
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}
	go opts.Hub.Run(ctx)

	inbox, sender := engine.NewInbox(engine.DefaultInboxCapacity)
	actor := engine.NewBookActor(inbox, decimal.NewFromInt(investmentCap), opts.Metrics, opts.Hub)
	go actor.Run(ctx)

	opts.Sender = sender
	opts.Book = actor
	opts.ReplyTimeout = time.Second

	s := NewServer(opts)
	t.Cleanup(func() { s.opts.Sender.Release() })
	return s, actor
}

func postOrder(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_SubmitOrder(t *testing.T) {
	s, _ := newTestServer(t, 20, Options{})
	h := s.Handler()

	steps := []struct {
		body     string
		status   domain.ReplyStatus
		invested int64
	}{
		{`{"kind":"BUY","instrument":"$","amount":"5"}`, domain.ReplySuccess, 5},
		{`{"kind":"buy","instrument":"$","amount":10}`, domain.ReplySuccess, 15},
		{`{"kind":"BUY","instrument":"$","amount":"10"}`, domain.ReplyFail, 15},
	}

	for _, step := range steps {
		rec := postOrder(t, h, step.body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp SubmitOrderResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, step.status, resp.Status)
		assert.True(t, resp.TotalInvested.Equal(decimal.NewFromInt(step.invested)), "got %s", resp.TotalInvested)
	}

	// Sinks see the order right after the reply is sent.
	var snap infra.MetricsSnapshot
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/book", nil))
		if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &snap) != nil {
			return false
		}
		return snap.OrdersProcessed == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), snap.OrdersRejected)
	assert.Equal(t, 15.0, snap.TotalInvested)
}

func TestServer_SubmitOrderInvalid(t *testing.T) {
	s, actor := newTestServer(t, 20, Options{})
	h := s.Handler()

	bodies := []string{
		`{"kind":"HOLD","instrument":"$","amount":"5"}`,
		`{"instrument":"$","amount":"5"}`,
		`{"kind":"BUY","instrument":"  ","amount":"5"}`,
		`{"kind":"SELL","instrument":"$","amount":"-1"}`,
		`not json`,
	}
	for _, body := range bodies {
		rec := postOrder(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Zero(t, actor.Processed())
}

func TestServer_SubmitAfterBookStopped(t *testing.T) {
	metrics := &infra.Metrics{}
	hub := NewHub()
	inbox, sender := engine.NewInbox(1)
	actor := engine.NewBookActor(inbox, decimal.NewFromInt(10), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	go actor.Run(ctx)
	cancel()
	<-actor.Done()

	s := NewServer(Options{Metrics: metrics, Hub: hub, Sender: sender, Book: actor, ReplyTimeout: time.Second})
	defer sender.Release()

	rec := postOrder(t, s.Handler(), `{"kind":"BUY","instrument":"$","amount":"1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "STOPPED", health.Book)
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t, 10, Options{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "RUNNING", health.Book)
}

func TestServer_GetOrders(t *testing.T) {
	repo := &memoryOrders{orders: []domain.ProcessedOrder{
		{ID: "b", Kind: domain.OrderKindSell, Instrument: "$", Amount: decimal.NewFromInt(2), Status: domain.ReplySuccess},
		{ID: "a", Kind: domain.OrderKindBuy, Instrument: "$", Amount: decimal.NewFromInt(1), Status: domain.ReplySuccess},
	}}
	s, _ := newTestServer(t, 10, Options{Orders: repo})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrdersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Total)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "b", resp.Orders[0].ID)
	assert.Equal(t, domain.OrderKindSell, resp.Orders[0].Kind)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetOrdersWithoutJournal(t *testing.T) {
	s, _ := newTestServer(t, 10, Options{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	s, _ := newTestServer(t, 10, Options{})
	h := s.Handler()

	require.Equal(t, http.StatusOK, postOrder(t, h, `{"kind":"BUY","instrument":"$","amount":"4"}`).Code)

	var body string
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body = rec.Body.String()
		return rec.Code == http.StatusOK && strings.Contains(body, "order_actor_orders_processed_total 1")
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, body, `order_actor_orders_total{status="success"} 1`)
	assert.Contains(t, body, "order_actor_total_invested 4")
}

func TestServer_StaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>book</h1>"), 0644))

	s, _ := newTestServer(t, 10, Options{StaticDir: dir})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>book</h1>")
}

func TestServer_CORS(t *testing.T) {
	s, _ := newTestServer(t, 10, Options{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_WebSocketStreamsProcessedOrders(t *testing.T) {
	s, _ := newTestServer(t, 10, Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.opts.Hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	resp, err := http.Post(ts.URL+"/api/v1/orders", "application/json",
		strings.NewReader(`{"kind":"BUY","instrument":"$","amount":"3"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var order domain.ProcessedOrder
	require.NoError(t, conn.ReadJSON(&order))
	assert.Equal(t, domain.OrderKindBuy, order.Kind)
	assert.Equal(t, domain.ReplySuccess, order.Status)
	assert.True(t, order.Amount.Equal(decimal.NewFromInt(3)))
	assert.True(t, order.Delivered)
}
