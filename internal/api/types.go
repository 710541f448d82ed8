package api

import (
	"order_actor/internal/domain"

	"github.com/shopspring/decimal"
)

// SubmitOrderRequest is the body of POST /api/v1/orders
type SubmitOrderRequest struct {
	Kind       domain.OrderKind `json:"kind"`
	Instrument string           `json:"instrument"`
	Amount     decimal.Decimal  `json:"amount"`
}

// SubmitOrderResponse carries the book's reply.
// A rejected Buy is still a 200: the outcome is in Status.
type SubmitOrderResponse struct {
	Status        domain.ReplyStatus `json:"status"`
	TotalInvested decimal.Decimal    `json:"total_invested"`
	Available     decimal.Decimal    `json:"available"`
}

// OrdersResponse lists journaled orders, newest first
type OrdersResponse struct {
	Orders []domain.ProcessedOrder `json:"orders"`
	Total  int64                   `json:"total"`
}

// HealthResponse reports liveness of the book
type HealthResponse struct {
	Status  string `json:"status"`
	Book    string `json:"book"`
	Clients int    `json:"ws_clients"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
