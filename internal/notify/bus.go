// Package notify is a small publish/subscribe bus for user-facing
// notifications. Each channel keeps at most one active notification, which is
// removed after a fixed delay measured on an injected clock. The bus is owned
// by the application and must be closed on shutdown.
package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"cgm/internal/metrics"
)

// Limit is the number of notifications a channel keeps active.
const Limit = 1

const DefaultTTL = 5 * time.Second

var ErrClosed = errors.New("notification bus closed")

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clock abstracts time so removal can be driven deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Subscription receives channel snapshots. Only the latest snapshot is kept
// when the reader falls behind.
type Subscription struct {
	C <-chan []Notification

	ch      chan []Notification
	bus     *Bus
	channel string
	closed  bool
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.bus.detach(s)
}

type Bus struct {
	mu     sync.Mutex
	clock  Clock
	ttl    time.Duration
	active map[string][]Notification
	timers map[string]Timer
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

func NewBus(clock Clock, ttl time.Duration) *Bus {
	if clock == nil {
		clock = RealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Bus{
		clock:  clock,
		ttl:    ttl,
		active: make(map[string][]Notification),
		timers: make(map[string]Timer),
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Publish makes n the active notification of channel, evicting older ones,
// and schedules its removal.
func (b *Bus) Publish(channel string, n Notification) (Notification, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Notification{}, ErrClosed
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Kind == "" {
		n.Kind = KindInfo
	}
	n.CreatedAt = b.clock.Now()

	list := append(b.active[channel], n)
	for len(list) > Limit {
		b.stopTimer(list[0].ID)
		list = list[1:]
	}
	b.active[channel] = list

	id := n.ID
	b.timers[id] = b.clock.AfterFunc(b.ttl, func() {
		b.Dismiss(channel, id)
	})

	metrics.NotificationsPublished.Inc()
	b.broadcast(channel)
	return n, nil
}

// Dismiss removes a notification before its delay expires. It reports
// whether anything was removed.
func (b *Bus) Dismiss(channel, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.active[channel]
	for i, n := range list {
		if n.ID != id {
			continue
		}
		b.stopTimer(id)
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(b.active, channel)
		} else {
			b.active[channel] = list
		}
		b.broadcast(channel)
		return true
	}
	return false
}

// Active returns a copy of the channel's active notifications.
func (b *Bus) Active(channel string) []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot(channel)
}

// Subscribe registers for channel snapshots. The current snapshot is
// delivered immediately. Subscribing to a closed bus yields a closed channel.
func (b *Bus) Subscribe(channel string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan []Notification, 1)
	sub := &Subscription{C: ch, ch: ch, bus: b, channel: channel}
	if b.closed {
		sub.closed = true
		close(ch)
		return sub
	}

	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*Subscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	deliver(sub, b.snapshot(channel))
	return sub
}

// Close stops pending removals and closes every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id := range b.timers {
		b.stopTimer(id)
	}
	for _, set := range b.subs {
		for sub := range set {
			b.detach(sub)
		}
	}
	b.active = make(map[string][]Notification)
}

func (b *Bus) stopTimer(id string) {
	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}
}

func (b *Bus) snapshot(channel string) []Notification {
	return append([]Notification{}, b.active[channel]...)
}

func (b *Bus) broadcast(channel string) {
	snap := b.snapshot(channel)
	for sub := range b.subs[channel] {
		deliver(sub, snap)
	}
}

// detach must be called with b.mu held.
func (b *Bus) detach(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	if set := b.subs[sub.channel]; set != nil {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.channel)
		}
	}
	close(sub.ch)
}

// deliver must be called with b.mu held, which makes it the only sender.
func deliver(sub *Subscription, snap []Notification) {
	select {
	case sub.ch <- snap:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- snap:
	default:
	}
}
