// Package transcript is the broadcast channel carrying protocol step events
// from a run to any number of live observers. It is the only structure in
// the daemon mutated concurrently by several goroutines: one producer
// publishing, N consumers receiving, all without external locking.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Role identifies the speaker of a transcript event.
type Role string

const (
	RoleServer   Role = "server"
	RoleProver   Role = "prover"
	RoleVerifier Role = "verifier"
)

// Event describes one protocol step. Events are immutable once published
// and are delivered to every subscriber in publication order.
type Event struct {
	Time    time.Time
	Role    Role
	Message string
}

func (e Event) String() string {
	return fmt.Sprintf("%s: %s", e.Role, e.Message)
}

// DefaultCapacity is the number of events buffered per broadcaster before
// the slowest subscribers start lagging.
const DefaultCapacity = 100

// ErrClosed is returned by Recv once the broadcaster has been closed and
// all buffered events were delivered.
var ErrClosed = errors.New("transcript: closed")

// LagError tells a subscriber it fell behind the buffer and how many events
// it missed. The next Recv resumes from the oldest still-buffered event.
type LagError struct {
	Skipped uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("transcript: subscriber lagged, skipped %d events", e.Skipped)
}

// Broadcaster fans events out to subscribers through a bounded buffer. A
// slow subscriber never blocks the producer: once it falls more than the
// buffer capacity behind it gets a LagError instead of the lost events.
type Broadcaster struct {
	mu       sync.Mutex
	capacity int
	buf      []Event
	first    uint64 // sequence number of buf[0]
	subs     map[uint64]*Subscription
	nextID   uint64
	closed   bool
}

// NewBroadcaster creates a broadcaster buffering up to capacity events;
// DefaultCapacity when capacity is not positive.
func NewBroadcaster(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Broadcaster{
		capacity: capacity,
		subs:     make(map[uint64]*Subscription),
	}
}

// Publish appends the event for all current subscribers. It never blocks
// and never fails: with zero subscribers the event is simply dropped, there
// is no buffering obligation towards future subscribers.
func (b *Broadcaster) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || len(b.subs) == 0 {
		return
	}
	b.buf = append(b.buf, e)
	if trim := len(b.buf) - b.capacity; trim > 0 {
		b.buf = b.buf[trim:]
		b.first += uint64(trim)
	}
	for _, s := range b.subs {
		s.wake()
	}
}

// Subscribe registers a new consumer receiving every event published after
// this call.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &Subscription{
		b:      b,
		id:     b.nextID,
		next:   b.first + uint64(len(b.buf)),
		notify: make(chan struct{}, 1),
	}
	b.nextID++
	if b.closed {
		s.closed = true
		return s
	}
	b.subs[s.id] = s
	return s
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close wakes all subscribers; pending buffered events are still delivered,
// after which Recv returns ErrClosed. Further publishes are dropped.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		s.wake()
	}
}

// Subscription is one consumer's live cursor into the broadcast sequence.
type Subscription struct {
	b      *Broadcaster
	id     uint64
	next   uint64 // sequence of the next event to deliver, guarded by b.mu
	notify chan struct{}
	closed bool // guarded by b.mu
}

func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Recv blocks until the next event is available, the context is done or the
// subscription ends. When the subscriber has fallen behind the buffer, Recv
// returns a *LagError carrying the exact number of skipped events; the
// following call resumes from the oldest buffered event.
func (s *Subscription) Recv(ctx context.Context) (Event, error) {
	b := s.b
	for {
		b.mu.Lock()
		if s.closed {
			b.mu.Unlock()
			return Event{}, ErrClosed
		}
		if s.next < b.first {
			skipped := b.first - s.next
			s.next = b.first
			b.mu.Unlock()
			return Event{}, &LagError{Skipped: skipped}
		}
		if s.next < b.first+uint64(len(b.buf)) {
			e := b.buf[s.next-b.first]
			s.next++
			b.mu.Unlock()
			return e, nil
		}
		if b.closed {
			b.mu.Unlock()
			return Event{}, ErrClosed
		}
		b.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Close drops the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	b := s.b
	b.mu.Lock()
	if !s.closed {
		s.closed = true
		delete(b.subs, s.id)
	}
	b.mu.Unlock()
	s.wake()
}
