package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"order_actor/internal/domain"
	"order_actor/internal/engine"
	"order_actor/internal/infra"
)

// FeedResult summarizes one feed's run.
type FeedResult struct {
	Name      string `json:"name"`
	Submitted int    `json:"submitted"`
	Accepted  int    `json:"accepted"`
	Rejected  int    `json:"rejected"`
	Errors    int    `json:"errors"`
}

// Feeder is a scripted producer: it submits the same order Count times,
// waiting for each reply before pausing and sending the next.
type Feeder struct {
	feed         infra.FeedConfig
	replyTimeout time.Duration
}

// NewFeeder creates a feeder. A zero replyTimeout waits for replies without limit
// (the wait still ends if the book stops).
func NewFeeder(feed infra.FeedConfig, replyTimeout time.Duration) *Feeder {
	return &Feeder{feed: feed, replyTimeout: replyTimeout}
}

// Run submits the feed's orders through sender and releases it when done.
func (f *Feeder) Run(ctx context.Context, sender *engine.Sender) FeedResult {
	defer sender.Release()

	res := FeedResult{Name: f.feed.Name}
	for i := 0; i < f.feed.Count; i++ {
		if i > 0 && f.feed.Interval > 0 {
			select {
			case <-ctx.Done():
				return res
			case <-time.After(f.feed.Interval):
			}
		}

		reply, err := f.submit(ctx, sender)
		res.Submitted++
		if err != nil {
			res.Errors++
			slog.Warn("Order not answered",
				slog.String("feed", f.feed.Name),
				slog.Any("error", err),
				slog.Bool("retriable", domain.IsRetriable(err)))
			if isTerminal(ctx, err) {
				return res
			}
			continue
		}

		if reply.Accepted() {
			res.Accepted++
		} else {
			res.Rejected++
		}
		slog.Info("Order outcome",
			slog.String("feed", f.feed.Name),
			slog.String("kind", f.feed.Kind.String()),
			slog.String("amount", f.feed.Amount.StringFixed(2)),
			slog.String("outcome", reply.Status.String()),
			slog.String("available", reply.Available.StringFixed(2)))
	}
	return res
}

func (f *Feeder) submit(ctx context.Context, sender *engine.Sender) (domain.Reply, error) {
	if f.replyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.replyTimeout)
		defer cancel()
	}
	return engine.Submit(ctx, sender, f.feed.Kind, f.feed.Instrument, f.feed.Amount)
}

// isTerminal reports whether no later submit from this feed can succeed.
func isTerminal(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, domain.ErrChannelClosed) ||
		errors.Is(err, domain.ErrActorStopped) ||
		errors.Is(err, domain.ErrReplyAbandoned)
}

// RunAll runs every feed concurrently, each on its own clone of root.
// root is released once the clones exist, so the inbox closes as soon as the
// last feed finishes.
func RunAll(ctx context.Context, feeds []infra.FeedConfig, root *engine.Sender, replyTimeout time.Duration) []FeedResult {
	results := make([]FeedResult, len(feeds))

	var wg sync.WaitGroup
	for i, feed := range feeds {
		sender, err := root.Clone()
		if err != nil {
			slog.Error("Feed not started", slog.String("feed", feed.Name), slog.Any("error", err))
			results[i] = FeedResult{Name: feed.Name}
			continue
		}

		wg.Add(1)
		go func(i int, f *Feeder, s *engine.Sender) {
			defer wg.Done()
			results[i] = f.Run(ctx, s)
		}(i, NewFeeder(feed, replyTimeout), sender)
	}
	root.Release()

	wg.Wait()
	return results
}
