// package events provides the in-process pub/sub bus that decouples the
// session store and channel lifecycle signals from their consumers.
package events

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Event names the closed set of bus events.
type Event int

const (
	// EventSessionChange fires after every session store mutation.
	EventSessionChange Event = iota
	// EventLogin fires once after a successful authentication.
	EventLogin
	// EventLogout fires once after an explicit logout.
	EventLogout
	// EventUnauthorized fires when any authenticated call is rejected by the backend.
	EventUnauthorized
	// EventStreamStarted fires when a live interaction channel opens.
	EventStreamStarted
	// EventStreamEnded fires when a live_ended frame is observed.
	EventStreamEnded
)

func (e Event) String() string {
	switch e {
	case EventSessionChange:
		return "session_change"
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	case EventUnauthorized:
		return "unauthorized"
	case EventStreamStarted:
		return "stream_started"
	case EventStreamEnded:
		return "stream_ended"
	default:
		return "unknown"
	}
}

// Handler receives the payload passed to [Bus.Publish].
type Handler func(payload any)

// Subscription identifies a registered handler for later removal.
type Subscription int

type registration struct {
	id Subscription
	fn Handler
}

// Bus is a synchronous publish/subscribe bus over the closed [Event] set.
//
// Handlers run in registration order. A panicking handler does not prevent
// the remaining handlers from running. Publish iterates a snapshot of the
// registration list, so handlers may subscribe or unsubscribe reentrantly.
type Bus struct {
	mu     sync.Mutex
	next   Subscription
	subs   map[Event][]registration
	logger *log.Logger
}

// NewBus creates an empty Bus. A nil logger disables handler panic reporting.
func NewBus(logger *log.Logger) *Bus {
	return &Bus{subs: make(map[Event][]registration), logger: logger}
}

// Subscribe registers fn for event and returns a handle for Unsubscribe.
// Registering the same function twice results in two invocations per publish.
func (b *Bus) Subscribe(event Event, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.subs[event] = append(b.subs[event], registration{id: b.next, fn: fn})
	return b.next
}

// Unsubscribe removes the registration identified by id. Unknown ids are a no-op.
func (b *Bus) Unsubscribe(event Event, id Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[event]
	for i, reg := range subs {
		if reg.id == id {
			b.subs[event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish synchronously invokes all handlers registered for event, in
// registration order, passing payload to each.
func (b *Bus) Publish(event Event, payload any) {
	b.mu.Lock()
	snapshot := make([]registration, len(b.subs[event]))
	copy(snapshot, b.subs[event])
	b.mu.Unlock()

	for _, reg := range snapshot {
		b.invoke(event, reg, payload)
	}
}

func (b *Bus) invoke(event Event, reg registration, payload any) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Errorf("handler for %s panicked: %v", event, r)
		}
	}()
	reg.fn(payload)
}
