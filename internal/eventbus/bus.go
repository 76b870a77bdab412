// Package eventbus implements a single-process, topic-based pub/sub with
// bounded per-subscriber buffering and a non-blocking, drop-oldest-on-overflow
// publish path over typed models.Event values with per-subscriber topic
// filters.
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/dupeforge/dupeforge/models"
)

// DefaultBufferSize bounds each subscriber's pending-event queue.
const DefaultBufferSize = 64

// Filter decides whether a subscriber wants to receive an event.
type Filter func(models.Event) bool

// AllTopics is a Filter accepting every event.
func AllTopics(models.Event) bool { return true }

// Topics returns a Filter accepting only the named event types.
func Topics(types ...models.EventType) Filter {
	set := make(map[models.EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return func(e models.Event) bool { return set[e.Type] }
}

type subscriber struct {
	ch       chan models.Event
	filter   Filter
	dropped  atomic.Int64
}

// Bus is the process-wide Event Bus. Zero value is not usable; use New.
type Bus struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func New() *Bus {
	return &Bus{subs: make(map[*subscriber]struct{})}
}

// Subscription is a live registration; call Unsubscribe to stop receiving
// and release the channel.
type Subscription struct {
	bus *Bus
	sub *subscriber
	Events <-chan models.Event
}

// Subscribe registers a new subscriber matching filter, with a bounded
// buffer of DefaultBufferSize.
func (b *Bus) Subscribe(filter Filter) *Subscription {
	if filter == nil {
		filter = AllTopics
	}
	s := &subscriber{ch: make(chan models.Event, DefaultBufferSize), filter: filter}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return &Subscription{bus: b, sub: s, Events: s.ch}
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s.sub)
	s.bus.mu.Unlock()
	close(s.sub.ch)
}

// Dropped returns how many events were discarded for this subscriber due to
// a full buffer (drop-oldest policy below).
func (s *Subscription) Dropped() int64 { return s.sub.dropped.Load() }

// Publish fans evt out to every matching subscriber without blocking the
// publisher: a full subscriber buffer has its oldest pending event
// discarded to make room, and the discard is counted against that
// subscriber's Dropped().
func (b *Bus) Publish(evt models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if !s.filter(evt) {
			continue
		}
		publishOne(s, evt)
	}
}

func publishOne(s *subscriber, evt models.Event) {
	select {
	case s.ch <- evt:
		return
	default:
	}
	// Buffer full: drop the oldest pending event, then retry once. If a
	// concurrent receive drained a slot in between, the retry just succeeds.
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.ch <- evt:
	default:
		// Another publisher raced us and refilled the buffer; count this
		// event as dropped rather than blocking the caller.
		s.dropped.Add(1)
	}
}
