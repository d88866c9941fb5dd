// Package bus fans engine notifications out to views. Components emit a
// kind and a payload; subscribers filter on a kind prefix and re-read
// engine state through the session.
package bus

import (
	"strings"
	"sync"
	"time"
)

type subscriber struct {
	prefix string
	ch     chan Event
}

// Bus delivers events without blocking the publisher: a subscriber whose
// buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	seq    uint64
	closed bool
	onDrop func(kind string)
}

// New creates an open bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]*subscriber)}
}

// OnDrop registers fn to be called with the kind of every event a full
// subscriber missed. Set it before the bus is shared.
func (b *Bus) OnDrop(fn func(kind string)) {
	b.onDrop = fn
}

// Publish delivers evt to every subscriber whose prefix matches evt.Kind.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if !strings.HasPrefix(evt.Kind, s.prefix) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			if b.onDrop != nil {
				b.onDrop(evt.Kind)
			}
		}
	}
}

// Emit publishes payload under kind, stamped with the current time. A nil
// bus discards it.
func (b *Bus) Emit(kind string, payload any) {
	if b == nil {
		return
	}
	b.Publish(Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

// Subscribe returns a channel of events whose kind starts with prefix ("" for
// all) and a function that ends the subscription and closes the channel.
// On a closed bus the channel is already closed.
func (b *Bus) Subscribe(prefix string, buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.seq++
	id := b.seq
	b.subs[id] = &subscriber{prefix: prefix, ch: ch}
	return ch, func() { b.drop(id) }
}

func (b *Bus) drop(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(s.ch)
	}
}

// Close ends every subscription. Publishing afterwards does nothing.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.ch)
	}
}
