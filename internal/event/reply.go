package event

import (
	"context"
	"sync"

	"order_actor/internal/domain"
)

// ReplySlot is a single-use handoff from the book back to one producer.
//
// Either side may give up at any time: a second Send, or a Send after the
// reader abandoned the slot, is silently dropped. Nothing here ever blocks the
// writer or panics.
type ReplySlot struct {
	ch          chan domain.Reply // buffered 1: the one allowed write never blocks
	sendOnce    sync.Once
	abandoned   chan struct{}
	abandonOnce sync.Once
}

func newReplySlot() *ReplySlot {
	return &ReplySlot{
		ch:        make(chan domain.Reply, 1),
		abandoned: make(chan struct{}),
	}
}

// Send stores the reply if this is the first write and the reader is still there.
func (s *ReplySlot) Send(reply domain.Reply) (delivered bool) {
	s.sendOnce.Do(func() {
		select {
		case <-s.abandoned:
			return
		default:
		}
		s.ch <- reply
		delivered = true
	})
	return delivered
}

// Abandon marks the reader as gone. Safe to call more than once.
func (s *ReplySlot) Abandon() {
	s.abandonOnce.Do(func() {
		close(s.abandoned)
	})
}

// Abandoned reports whether the reader gave up.
func (s *ReplySlot) Abandoned() bool {
	select {
	case <-s.abandoned:
		return true
	default:
		return false
	}
}

// Wait returns the reply once written. It gives up with ctx.Err() when ctx is
// done, and with ErrReplyAbandoned when stopped is closed before a reply was
// written (the book exited without answering). Either way the slot is
// abandoned so a late write is dropped. Wait must be called by a single reader.
func (s *ReplySlot) Wait(ctx context.Context, stopped <-chan struct{}) (domain.Reply, error) {
	select {
	case reply := <-s.ch:
		return reply, nil
	case <-ctx.Done():
		s.Abandon()
		return domain.Reply{}, ctx.Err()
	case <-stopped:
		// The book may have answered right before exiting.
		select {
		case reply := <-s.ch:
			return reply, nil
		default:
		}
		s.Abandon()
		return domain.Reply{}, domain.ErrReplyAbandoned
	}
}
