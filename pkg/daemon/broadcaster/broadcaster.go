// Package broadcaster manages live subscribers and distributes achievement
// events to them.
package broadcaster

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

// EventType represents the type of achievement event.
type EventType int

const (
	// EventGameRefresh carries a game's recomputed achievement view.
	EventGameRefresh EventType = iota
	// EventNotification carries a user-facing unlock announcement.
	EventNotification
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventGameRefresh:
		return "refresh"
	case EventNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Event is a single broadcast.
type Event struct {
	Type EventType

	// Game is the subject of a refresh, and of single-game notifications.
	Game achievement.GameKey

	// View is set for EventGameRefresh.
	View []achievement.Entry

	// Notification is set for EventNotification.
	Notification *achievement.Notification
}

// subscriberBuffer is the per-subscriber queue length. Events beyond it are
// dropped for that subscriber.
const subscriberBuffer = 100

// Subscriber receives events, optionally for a single game.
type Subscriber struct {
	ID     string
	Game   achievement.GameKey // zero value means every game
	Events chan *Event
}

// Broadcaster manages subscribers and distributes achievement events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New creates a new Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe registers a subscriber. A zero game receives every event.
// It returns nil once the broadcaster is closed.
func (b *Broadcaster) Subscribe(game achievement.GameKey) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Game:   game,
		Events: make(chan *Event, subscriberBuffer),
	}

	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// PublishRefresh sends a game's achievement view to matching subscribers.
func (b *Broadcaster) PublishRefresh(game achievement.GameKey, view []achievement.Entry) {
	b.publish(&Event{Type: EventGameRefresh, Game: game, View: view})
}

// PublishNotification sends a notification. Single-game notifications
// only reach subscribers for that game or for every game.
func (b *Broadcaster) PublishNotification(n achievement.Notification) {
	ev := &Event{Type: EventNotification, Notification: &n}
	if n.Game != nil {
		ev.Game = *n.Game
	}
	b.publish(ev)
}

func (b *Broadcaster) publish(ev *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if !matches(sub, ev) {
			continue
		}
		select {
		case sub.Events <- ev:
		default:
			// Channel full, event dropped
		}
	}
}

func matches(sub *Subscriber, ev *Event) bool {
	if sub.Game == (achievement.GameKey{}) {
		return true
	}
	if ev.Game == (achievement.GameKey{}) {
		// Library-wide events go to everyone.
		return true
	}
	return sub.Game == ev.Game
}

// Close closes the broadcaster and all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
