// Package events carries zero-payload "something changed, re-read" signals
// between the owners of session state and the views that render it.
package events

import (
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Topic names a change channel.
type Topic string

const (
	// TopicViewedChanged fires after the recently viewed collection changes.
	TopicViewedChanged Topic = "viewed.changed"
	// TopicCartChanged fires after the cart or its visibility changes.
	TopicCartChanged Topic = "cart.changed"
	// TopicFocus fires when the host regains focus; another session may have
	// written the remote store in the meantime.
	TopicFocus Topic = "focus"
)

// Handler reacts to a signal. It receives no data and must re-read state.
type Handler func()

// Subscription is returned by Subscribe and detaches the handler.
type Subscription interface {
	Unsubscribe()
}

// Bus is a publish/subscribe channel for change signals.
type Bus interface {
	Publish(topic Topic)
	Subscribe(topic Topic, handler Handler) Subscription
}

type subscriber struct {
	id      uuid.UUID
	handler Handler
}

// Local dispatches synchronously, in subscription order, on the publishing
// goroutine.
type Local struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscriber
	logger *slog.Logger
}

// NewLocal creates an in-process bus.
func NewLocal(logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Local{subs: make(map[Topic][]subscriber), logger: logger}
}

// Publish notifies every current subscriber of topic. A panicking handler is
// logged and skipped.
func (b *Local) Publish(topic Topic) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.dispatch(topic, sub)
	}
}

func (b *Local) dispatch(topic Topic, sub subscriber) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "topic", topic, "subscription", sub.id, "panic", r)
		}
	}()
	sub.handler()
}

// Subscribe attaches handler to topic.
func (b *Local) Subscribe(topic Topic, handler Handler) Subscription {
	sub := subscriber{id: uuid.New(), handler: handler}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	return &localSubscription{bus: b, topic: topic, id: sub.id}
}

// Subscribers returns the number of handlers attached to topic.
func (b *Local) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *Local) remove(topic Topic, id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}

type localSubscription struct {
	once  sync.Once
	bus   *Local
	topic Topic
	id    uuid.UUID
}

func (s *localSubscription) Unsubscribe() {
	s.once.Do(func() { s.bus.remove(s.topic, s.id) })
}

// Group bundles subscriptions so a view can release them together.
type Group []Subscription

// Unsubscribe releases every subscription in the group.
func (g Group) Unsubscribe() {
	for _, sub := range g {
		sub.Unsubscribe()
	}
}
