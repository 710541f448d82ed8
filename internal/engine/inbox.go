package engine

import (
	"context"
	"sync"

	"order_actor/internal/domain"
	"order_actor/internal/event"
)

// DefaultInboxCapacity makes every send a handoff to the book.
const DefaultInboxCapacity = 1

// Inbox is the bounded FIFO queue between many producers and the one book.
//
// Producers hold Sender handles. The queue closes when the last handle is
// released, and the book drains it and stops. A send never panics: released
// handles get ErrChannelClosed and a gone consumer gives ErrActorStopped.
type Inbox struct {
	ch chan *event.Request

	mu      sync.Mutex
	senders int
	closed  bool

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewInbox creates an inbox and its first sender handle.
func NewInbox(capacity int) (*Inbox, *Sender) {
	if capacity < 1 {
		capacity = DefaultInboxCapacity
	}
	in := &Inbox{
		ch:      make(chan *event.Request, capacity),
		senders: 1,
		stopped: make(chan struct{}),
	}
	return in, &Sender{inbox: in}
}

// Cap returns the inbox capacity.
func (in *Inbox) Cap() int {
	return cap(in.ch)
}

// Len returns the number of queued requests.
func (in *Inbox) Len() int {
	return len(in.ch)
}

// Senders returns the number of live sender handles.
func (in *Inbox) Senders() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.senders
}

// Stopped is closed once the consumer has left.
func (in *Inbox) Stopped() <-chan struct{} {
	return in.stopped
}

func (in *Inbox) receive() <-chan *event.Request {
	return in.ch
}

// stop is called by the consumer when its loop exits.
func (in *Inbox) stop() {
	in.stopOnce.Do(func() {
		close(in.stopped)
	})
}

func (in *Inbox) acquire() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return domain.ErrChannelClosed
	}
	in.senders++
	return nil
}

func (in *Inbox) release() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.senders--
	if in.senders == 0 && !in.closed {
		in.closed = true
		close(in.ch)
	}
}

// Sender is one producer-side handle to an Inbox.
// A handle may be used from many goroutines; Release waits for its in-flight sends.
type Sender struct {
	inbox *Inbox

	mu       sync.RWMutex
	released bool
}

// Clone returns a new live handle to the same inbox.
func (s *Sender) Clone() (*Sender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, domain.ErrChannelClosed
	}
	if err := s.inbox.acquire(); err != nil {
		return nil, err
	}
	return &Sender{inbox: s.inbox}, nil
}

// Send enqueues req, waiting while the inbox is full.
func (s *Sender) Send(ctx context.Context, req *event.Request) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return domain.ErrChannelClosed
	}

	select {
	case <-s.inbox.stopped:
		return domain.ErrActorStopped
	default:
	}

	select {
	case s.inbox.ch <- req:
		return nil
	case <-s.inbox.stopped:
		return domain.ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release drops this handle. Safe to call more than once.
func (s *Sender) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.inbox.release()
}

// Stopped is closed once the book is no longer consuming.
func (s *Sender) Stopped() <-chan struct{} {
	return s.inbox.stopped
}
