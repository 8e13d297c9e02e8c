// ABOUTME: Seen-event tracking for the Matrix transport
// ABOUTME: Drops replayed events on sync restarts within a TTL window

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// Events tracks recently handled event IDs so that a sync restart or
// server replay never processes the same message twice. Entries expire
// after the TTL; the tracker is size-bounded with oldest-first
// eviction. Expired entries are pruned opportunistically on insert, so
// no background goroutine is needed.
type Events struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // entries in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
}

type entry struct {
	id   string
	when time.Time
}

// NewEvents creates an event tracker with the given TTL and capacity.
func NewEvents(ttl time.Duration, maxSize int) *Events {
	return &Events{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Seen atomically checks whether the event ID was already handled and
// records it if not. Returns true for duplicates.
func (e *Events) Seen(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prune()

	if elem, ok := e.seen[id]; ok {
		if time.Since(elem.Value.(*entry).when) < e.ttl {
			return true
		}
		e.remove(elem)
	}

	if e.order.Len() >= e.maxSize {
		e.remove(e.order.Front())
	}
	e.seen[id] = e.order.PushBack(&entry{id: id, when: time.Now()})
	return false
}

// Len reports the number of tracked events.
func (e *Events) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.order.Len()
}

// prune drops expired entries from the front of the order list.
// Must be called with mu held.
func (e *Events) prune() {
	for {
		front := e.order.Front()
		if front == nil || time.Since(front.Value.(*entry).when) < e.ttl {
			return
		}
		e.remove(front)
	}
}

// remove deletes one element. Must be called with mu held.
func (e *Events) remove(elem *list.Element) {
	delete(e.seen, elem.Value.(*entry).id)
	e.order.Remove(elem)
}
