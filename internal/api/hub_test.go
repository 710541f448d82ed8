package api

import (
	"testing"

	"order_actor/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHub_RecordDropsWhenQueueFull(t *testing.T) {
	hub := NewHub()

	drops := 0
	hub.OnDrop(func() { drops++ })

	order := domain.ProcessedOrder{ID: "x", Kind: domain.OrderKindBuy, Amount: decimal.NewFromInt(1)}
	// Run is not started, so nothing drains the queue.
	for i := 0; i < broadcastQueue+3; i++ {
		hub.Record(order)
	}

	assert.Equal(t, 3, drops)
	assert.Equal(t, uint64(3), hub.dropped.Load())
}

func TestHub_ImplementsOrderSink(t *testing.T) {
	var _ domain.OrderSink = (*Hub)(nil)
}
