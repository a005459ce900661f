// Package notify tells interested parties that a user's transactions or goals
// changed. Notifications are fire and forget.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dvloznov/goaltracker/internal/logger"
)

// Kind identifies which collection changed.
type Kind string

const (
	// KindTransactions signals the transaction list changed.
	KindTransactions Kind = "transactions"
	// KindGoals signals one or more goals changed.
	KindGoals Kind = "goals"
)

// Event is delivered to subscribers.
type Event struct {
	Kind Kind      `json:"kind"`
	UID  string    `json:"uid"`
	At   time.Time `json:"at"`
}

// Notifier is what the ingestion pipeline calls after it changes data.
type Notifier interface {
	TransactionsChanged(ctx context.Context, uid string)
	GoalsChanged(ctx context.Context, uid string)
}

// Broadcaster fans events out to per-user subscribers. A subscriber that is
// not keeping up misses events rather than blocking the publisher.
// It is safe for concurrent use.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	buffer int
	closed bool
}

type subscription struct {
	ch chan Event
}

// NewBroadcaster creates a Broadcaster whose subscriber channels hold up to
// buffer pending events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 1
	}
	return &Broadcaster{
		subs:   make(map[string]map[*subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers for uid's events. The returned cancel func must be
// called to release the subscription; it closes the channel.
func (b *Broadcaster) Subscribe(uid string) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	if b.subs[uid] == nil {
		b.subs[uid] = make(map[*subscription]struct{})
	}
	b.subs[uid][sub] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[uid][sub]; !ok {
				return
			}
			delete(b.subs[uid], sub)
			if len(b.subs[uid]) == 0 {
				delete(b.subs, uid)
			}
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// TransactionsChanged implements Notifier.
func (b *Broadcaster) TransactionsChanged(ctx context.Context, uid string) {
	b.publish(ctx, Event{Kind: KindTransactions, UID: uid, At: time.Now()})
}

// GoalsChanged implements Notifier.
func (b *Broadcaster) GoalsChanged(ctx context.Context, uid string) {
	b.publish(ctx, Event{Kind: KindGoals, UID: uid, At: time.Now()})
}

func (b *Broadcaster) publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[ev.UID] {
		select {
		case sub.ch <- ev:
		default:
			log := logger.FromContext(ctx)
			log.Debug().Str("user_id", ev.UID).Str("kind", string(ev.Kind)).Msg("Dropping event for slow subscriber")
		}
	}
}

// Close closes every subscriber channel. Later publishes are no-ops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for uid, subs := range b.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(b.subs, uid)
	}
}

// Nop is a Notifier that does nothing.
type Nop struct{}

// TransactionsChanged implements Notifier.
func (Nop) TransactionsChanged(ctx context.Context, uid string) {}

// GoalsChanged implements Notifier.
func (Nop) GoalsChanged(ctx context.Context, uid string) {}

// Ensure both types implement Notifier.
var _ Notifier = (*Broadcaster)(nil)
var _ Notifier = Nop{}
