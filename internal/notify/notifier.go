// Package notify is the process-wide "cart changed" signal. Broadcasts
// carry no payload; subscribers re-fetch whatever they display.
package notify

import (
	"context"
	"sync"
)

// Broadcaster announces that the cart changed.
type Broadcaster interface {
	Broadcast()
}

type Notifier struct {
	mu     sync.RWMutex
	subs   map[uint64]chan struct{}
	next   uint64
	closed bool
}

func New() *Notifier {
	return &Notifier{subs: make(map[uint64]chan struct{})}
}

// Subscription delivers at most one pending signal at a time; signals that
// arrive while one is pending are merged into it.
type Subscription struct {
	C <-chan struct{}

	id   uint64
	n    *Notifier
	once sync.Once
}

func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{}, 1)
	if n.closed {
		close(ch)
		return &Subscription{C: ch, n: n}
	}
	n.next++
	n.subs[n.next] = ch
	return &Subscription{C: ch, id: n.next, n: n}
}

// Unsubscribe detaches the subscription and closes C. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.n.mu.Lock()
		defer s.n.mu.Unlock()
		if ch, ok := s.n.subs[s.id]; ok {
			delete(s.n.subs, s.id)
			close(ch)
		}
	})
}

// Broadcast signals every subscriber without blocking.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Close closes every subscription. Later subscriptions are born closed.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}

// Listen calls fn for each signal until ctx is done or the subscription
// is closed. It unsubscribes on return.
func Listen(ctx context.Context, sub *Subscription, fn func(ctx context.Context)) {
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			fn(ctx)
		}
	}
}
