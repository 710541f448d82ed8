package event

import (
	"context"
	"fmt"
	"strings"
	"time"

	"order_actor/internal/domain"
	"order_actor/internal/infra/id"

	"github.com/shopspring/decimal"
)

// Request is one intended operation on the book plus the slot its answer goes to.
// It is immutable after construction; the book consumes it exactly once.
type Request struct {
	id         string
	kind       domain.OrderKind
	instrument string
	amount     decimal.Decimal
	createdAt  time.Time
	reply      *ReplySlot
}

// NewRequest validates the order and creates a request with a fresh reply slot.
// A non-positive amount, empty instrument or unknown kind is a caller bug and is
// refused here, before anything reaches the book.
func NewRequest(kind domain.OrderKind, instrument string, amount decimal.Decimal) (*Request, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidKind, int(kind))
	}
	instrument = strings.TrimSpace(instrument)
	if instrument == "" {
		return nil, domain.ErrInvalidInstrument
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
	}

	return &Request{
		id:         id.New(),
		kind:       kind,
		instrument: instrument,
		amount:     amount,
		createdAt:  time.Now(),
		reply:      newReplySlot(),
	}, nil
}

func (r *Request) ID() string { return r.id }
func (r *Request) Kind() domain.OrderKind { return r.kind }
func (r *Request) Instrument() string { return r.instrument }
func (r *Request) Amount() decimal.Decimal { return r.amount }
func (r *Request) CreatedAt() time.Time { return r.createdAt }
func (r *Request) ReplySlot() *ReplySlot { return r.reply }

// Respond writes the reply. Only the first call has any effect.
// It returns false if the reply was dropped (already answered or abandoned).
func (r *Request) Respond(reply domain.Reply) bool {
	if r.reply == nil {
		return false
	}
	return r.reply.Send(reply)
}

// Await blocks until the reply arrives. See ReplySlot.Wait.
func (r *Request) Await(ctx context.Context, stopped <-chan struct{}) (domain.Reply, error) {
	if r.reply == nil {
		return domain.Reply{}, domain.ErrReplyAbandoned
	}
	return r.reply.Wait(ctx, stopped)
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s %s", r.kind, r.instrument, r.amount.StringFixed(2))
}
