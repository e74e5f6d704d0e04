// Package events implements the typed notification sink described by
// spec.md §4.5 (component C6).
//
// Bus's Subscribe/lifecycle registration shape is grounded on the
// teacher's WebhookDispatcher (SetWebhookUrl/GetWebhookUrl's guarded map
// mutation pattern), but Publish itself is synchronous: WebhookDispatcher's
// `queue chan WebhookSendCommand` fire-and-forget delivery would violate
// spec.md §4.5/§5's requirement that events are delivered "synchronous with
// reply dispatch" and in the fixed order state mutations occur, since the
// caller (and the "version monotonicity" invariant) depends on an event
// only firing after its state mutation is fully visible. The async
// queue/worker shape is reused one layer down, in protocol.Machine's
// receive loop.
package events

import (
	"sync"

	"github.com/berejant/collabsheet/contracts"
)

// Bus is a single-producer, multi-subscriber sink. Its subscriber list is
// guarded by its own mutex, not by the lock of the rest of the engine's
// state; Publish calls handlers after releasing it.
type Bus struct {
	mu          sync.Mutex
	subscribers []contracts.Subscriber
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers handler to receive every subsequently published
// event, in publish order.
func (b *Bus) Subscribe(handler contracts.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, handler)
}

// Publish delivers event to every subscriber, in registration order,
// synchronously. Subscribers must not call back into the engine
// re-entrantly.
func (b *Bus) Publish(event contracts.Event) {
	b.mu.Lock()
	subscribers := make([]contracts.Subscriber, len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mu.Unlock()

	for _, handler := range subscribers {
		handler(event)
	}
}

// Joined publishes EventJoined.
func (b *Bus) Joined() { b.Publish(contracts.Event{Kind: contracts.EventJoined}) }

// Updated publishes EventUpdated with cells.
func (b *Bus) Updated(cells []contracts.CellName) {
	b.Publish(contracts.Event{Kind: contracts.EventUpdated, Cells: cells})
}

// Failed publishes EventFailed with the full accumulated reply lines.
func (b *Bus) Failed(lines []string) {
	b.Publish(contracts.Event{Kind: contracts.EventFailed, Lines: lines})
}

// UndoEnd publishes EventUndoEnd.
func (b *Bus) UndoEnd() { b.Publish(contracts.Event{Kind: contracts.EventUndoEnd}) }

// ConnectionClosed publishes EventConnectionClosed.
func (b *Bus) ConnectionClosed() {
	b.Publish(contracts.Event{Kind: contracts.EventConnectionClosed})
}

// SocketError publishes EventSocketError with reason.
func (b *Bus) SocketError(reason string) {
	b.Publish(contracts.Event{Kind: contracts.EventSocketError, Reason: reason})
}

// GenericError publishes EventGenericError.
func (b *Bus) GenericError() { b.Publish(contracts.Event{Kind: contracts.EventGenericError}) }
