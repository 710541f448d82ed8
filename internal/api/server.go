package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"order_actor/internal/domain"
	"order_actor/internal/engine"
	"order_actor/internal/infra"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

const defaultOrdersLimit = 50

// StateReporter is satisfied by engine.BookActor.
type StateReporter interface {
	State() engine.ActorState
}

// Options wires the server to the rest of the application.
// Orders, Sender and Book may be nil; the matching endpoints then answer 503.
type Options struct {
	Addr           string
	StaticDir      string
	AllowedOrigins []string
	ReplyTimeout   time.Duration

	Metrics *infra.Metrics
	Orders  domain.OrderRepository
	Sender  *engine.Sender
	Book    StateReporter
	Hub     *Hub
}

// Server handles REST API and WebSocket connections
type Server struct {
	opts       Options
	router     *mux.Router
	registry   *prometheus.Registry
	httpServer *http.Server
}

// NewServer creates a new API server. The server owns opts.Sender and
// releases it on Shutdown.
func NewServer(opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = &infra.Metrics{}
	}
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 5 * time.Second
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(opts.Metrics.Collector())

	s := &Server{
		opts:     opts,
		router:   mux.NewRouter(),
		registry: registry,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")

	s.router.HandleFunc("/ws", s.opts.Hub.ServeWS)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.opts.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.StaticDir)))
	}
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("HTTP server starting", slog.String("addr", s.opts.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and releases the submit sender.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.opts.Sender != nil {
		s.opts.Sender.Release()
	}
	return err
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.opts.Metrics.Snapshot())
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	if s.opts.Orders == nil {
		respondError(w, http.StatusServiceUnavailable, "journal disabled", "")
		return
	}

	limit := defaultOrdersLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = n
	}

	orders, err := s.opts.Orders.List(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list orders", err.Error())
		return
	}
	total, err := s.opts.Orders.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count orders", err.Error())
		return
	}

	if orders == nil {
		orders = []domain.ProcessedOrder{}
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Orders: orders, Total: total})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	if s.opts.Sender == nil {
		respondError(w, http.StatusServiceUnavailable, "order submission disabled", "")
		return
	}

	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ReplyTimeout)
	defer cancel()

	reply, err := engine.Submit(ctx, s.opts.Sender, req.Kind, req.Instrument, req.Amount)
	if err != nil {
		status := submitErrorStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Warn("Order submission failed", slog.Any("error", err))
		}
		respondError(w, status, "order not processed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, SubmitOrderResponse{
		Status:        reply.Status,
		TotalInvested: reply.TotalInvested,
		Available:     reply.Available,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Book: "UNKNOWN", Clients: s.opts.Hub.Clients()}
	code := http.StatusOK
	if s.opts.Book != nil {
		state := s.opts.Book.State()
		resp.Book = state.String()
		if state == engine.StateStopped {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, code, resp)
}

func submitErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidInstrument),
		errors.Is(err, domain.ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
