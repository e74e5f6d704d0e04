package contracts

// EventKind tags which notification an Event carries, per spec.md §4.5.
type EventKind int

const (
	EventJoined EventKind = iota
	EventUpdated
	EventFailed
	EventUndoEnd
	EventConnectionClosed
	EventSocketError
	EventGenericError
)

// Event is the single payload type published on the Bus. Only the fields
// relevant to Kind are meaningful.
type Event struct {
	Kind   EventKind
	Cells  []CellName // EventUpdated: cells whose values changed
	Lines  []string   // EventFailed: full accumulated server reply lines
	Reason string     // EventSocketError: transport failure reason
}

// Subscriber receives events in the order the engine publishes them. A
// subscriber must not call back into the engine re-entrantly; it may
// schedule work for later.
type Subscriber func(Event)
