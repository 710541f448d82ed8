package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessedOrder is the record emitted after each handled request.
// Observers and the journal receive a copy; the actor never waits on them.
type ProcessedOrder struct {
	ID            string          `gorm:"primaryKey" json:"id"`
	Kind          OrderKind       `json:"kind"`
	Instrument    string          `gorm:"index" json:"instrument"`
	Amount        decimal.Decimal `gorm:"type:text" json:"amount"`
	Status        ReplyStatus     `json:"status"`
	TotalInvested decimal.Decimal `gorm:"type:text" json:"total_invested"`
	Available     decimal.Decimal `gorm:"type:text" json:"available"`
	Delivered     bool            `json:"delivered"` // false if the producer had already gone
	LatencyNs     int64           `json:"latency_ns"`
	ProcessedAt   time.Time       `gorm:"index" json:"processed_at"`
}

// Accepted reports whether the order changed the book.
func (p *ProcessedOrder) Accepted() bool {
	return p.Status == ReplySuccess
}
