package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"order_actor/internal/domain"
	"order_actor/internal/event"

	"github.com/shopspring/decimal"
)

const panicDumpFile = "book_panic_dump.json"

// ActorState is the lifecycle state of a BookActor.
type ActorState int32

const (
	StateRunning ActorState = iota
	StateStopped
)

func (s ActorState) String() string {
	if s == StateStopped {
		return "STOPPED"
	}
	return "RUNNING"
}

// BookActor is the single owner of the book's capital.
// Its state is only touched from the goroutine running Run; everything else
// talks to it through the Inbox.
type BookActor struct {
	inbox   *Inbox
	capital domain.Capital

	// Boundary: processed orders are copied out to observers and the journal
	sinks []domain.OrderSink

	state     atomic.Int32
	started   atomic.Bool
	processed atomic.Uint64
	done      chan struct{}
}

// NewBookActor creates a book with nothing invested and the given cap.
func NewBookActor(inbox *Inbox, investmentCap decimal.Decimal, sinks ...domain.OrderSink) *BookActor {
	return &BookActor{
		inbox:   inbox,
		capital: domain.NewCapital(investmentCap),
		sinks:   sinks,
		done:    make(chan struct{}),
	}
}

// Run consumes requests in arrival order until the inbox is closed and
// drained, or ctx is done. This MUST be run in a single goroutine, once.
func (a *BookActor) Run(ctx context.Context) {
	if !a.started.CompareAndSwap(false, true) {
		slog.Warn("Book actor already started")
		return
	}

	slog.Info("Book actor running",
		slog.String("investment_cap", a.capital.InvestmentCap.StringFixed(2)),
		slog.Int("inbox_capacity", a.inbox.Cap()))

	defer func() {
		a.state.Store(int32(StateStopped))
		a.inbox.stop()
		close(a.done)
	}()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			a.DumpState(panicDumpFile)
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Book actor stopping...", slog.Uint64("processed", a.processed.Load()))
			return
		case req, ok := <-a.inbox.receive():
			if !ok {
				slog.Info("Inbox closed, book actor stopped", slog.Uint64("processed", a.processed.Load()))
				return
			}
			a.process(req)
		}
	}
}

func (a *BookActor) process(req *event.Request) {
	if req == nil {
		return
	}

	reply := a.handle(req)

	delivered := req.Respond(reply)
	if !delivered {
		slog.Warn("Reply dropped, producer gone", slog.String("id", req.ID()))
	}
	a.processed.Add(1)

	a.publish(domain.ProcessedOrder{
		ID:            req.ID(),
		Kind:          req.Kind(),
		Instrument:    req.Instrument(),
		Amount:        req.Amount(),
		Status:        reply.Status,
		TotalInvested: reply.TotalInvested,
		Available:     reply.Available,
		Delivered:     delivered,
		LatencyNs:     time.Since(req.CreatedAt()).Nanoseconds(),
		ProcessedAt:   time.Now(),
	})
}

// handle applies one request to the capital and returns the reply.
// Buy fails when invested + amount would exceed the cap; Sell always succeeds.
func (a *BookActor) handle(req *event.Request) domain.Reply {
	switch req.Kind() {
	case domain.OrderKindBuy:
		if !a.capital.CanCommit(req.Amount()) {
			slog.Info("Buy rejected",
				slog.String("instrument", req.Instrument()),
				slog.String("amount", req.Amount().StringFixed(2)),
				slog.String("available", a.capital.Available().StringFixed(2)))
			return a.reply(domain.ReplyFail)
		}
		a.capital.Commit(req.Amount())
		slog.Info("Buy processed",
			slog.String("instrument", req.Instrument()),
			slog.String("amount", req.Amount().StringFixed(2)))
	case domain.OrderKindSell:
		a.capital.Release(req.Amount())
		slog.Info("Sell processed",
			slog.String("instrument", req.Instrument()),
			slog.String("amount", req.Amount().StringFixed(2)))
	default:
		slog.Warn("Unknown order kind", slog.Any("kind", req.Kind()))
		return a.reply(domain.ReplyFail)
	}

	a.capital.VerifyInvariant()
	slog.Debug("Available balance", slog.String("available", a.capital.Available().StringFixed(2)))

	return a.reply(domain.ReplySuccess)
}

func (a *BookActor) reply(status domain.ReplyStatus) domain.Reply {
	return domain.Reply{
		Status:        status,
		TotalInvested: a.capital.TotalInvested,
		Available:     a.capital.Available(),
	}
}

// publish hands the record to every sink. A misbehaving sink is logged and skipped.
func (a *BookActor) publish(rec domain.ProcessedOrder) {
	for _, sink := range a.sinks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Order sink panicked", slog.Any("panic", r), slog.String("id", rec.ID))
				}
			}()
			sink.Record(rec)
		}()
	}
}

// State returns the lifecycle state.
func (a *BookActor) State() ActorState {
	return ActorState(a.state.Load())
}

// Done is closed after Run has returned.
func (a *BookActor) Done() <-chan struct{} {
	return a.done
}

// Processed returns how many requests have been handled.
func (a *BookActor) Processed() uint64 {
	return a.processed.Load()
}

// DumpState writes the book to a file (for post-mortem).
// Only call it from the actor goroutine or after Done.
func (a *BookActor) DumpState(filename string) {
	slog.Info("Dumping book state...", slog.String("file", filename))

	data := struct {
		Processed uint64         `json:"processed"`
		State     string         `json:"state"`
		Capital   domain.Capital `json:"capital"`
		Available string         `json:"available"`
	}{
		Processed: a.processed.Load(),
		State:     a.State().String(),
		Capital:   a.capital,
		Available: a.capital.Available().String(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
