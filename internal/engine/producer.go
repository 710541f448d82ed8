package engine

import (
	"context"

	"order_actor/internal/domain"
	"order_actor/internal/event"

	"github.com/shopspring/decimal"
)

// Submit builds one request, enqueues it and waits for the book's reply.
//
// A rejected Buy is a normal Reply with Status fail, not an error. Errors are
// construction failures (bad amount, instrument or kind) or a *domain.SubmitError
// wrapping ErrChannelClosed, ErrActorStopped, ErrReplyAbandoned or ctx.Err().
func Submit(ctx context.Context, s *Sender, kind domain.OrderKind, instrument string, amount decimal.Decimal) (domain.Reply, error) {
	req, err := event.NewRequest(kind, instrument, amount)
	if err != nil {
		return domain.Reply{}, err
	}
	return SubmitRequest(ctx, s, req)
}

// SubmitRequest enqueues an already built request and waits for its reply.
func SubmitRequest(ctx context.Context, s *Sender, req *event.Request) (domain.Reply, error) {
	if err := s.Send(ctx, req); err != nil {
		return domain.Reply{}, domain.NewSubmitError("enqueue", err)
	}

	reply, err := req.Await(ctx, s.Stopped())
	if err != nil {
		return domain.Reply{}, domain.NewSubmitError("await", err)
	}
	return reply, nil
}
