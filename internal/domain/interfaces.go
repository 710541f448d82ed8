package domain

import "context"

// OrderSink receives a copy of every processed order.
// Record is called from the book's loop and must return immediately:
// implementations buffer, drop, or count, but never block or fail the caller.
type OrderSink interface {
	Record(order ProcessedOrder)
}

// OrderSinkFunc adapts a plain function to OrderSink.
type OrderSinkFunc func(order ProcessedOrder)

func (f OrderSinkFunc) Record(order ProcessedOrder) { f(order) }

// OrderRepository defines read access to journaled orders
type OrderRepository interface {
	List(ctx context.Context, limit int) ([]ProcessedOrder, error)
	Count(ctx context.Context) (int64, error)
}
