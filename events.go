package asyncresource

// Observer receives cache lifecycle events. Implementations must be
// safe for concurrent use: settlement events fire on the goroutine
// that ran the operation. Handlers must not call back into the cache;
// deletion events fire while the table lock is held.
type Observer interface {
	On(eventData EventData)
}

// Event represents a cache event type.
type Event int

const (
	// EventHit is emitted when a lookup finds an existing entry.
	EventHit Event = iota
	// EventMiss is emitted when a lookup creates a fresh idle entry.
	EventMiss
	// EventStart is emitted when an entry's operation is invoked.
	EventStart
	// EventResolved is emitted when an operation succeeds.
	EventResolved
	// EventRejected is emitted when an operation fails.
	EventRejected
	// EventDelete is emitted when an entry is removed from its table.
	EventDelete
	// EventClear is emitted once per full table clear, after the
	// per-entry delete events.
	EventClear
	// EventStaleDrop is emitted when a settlement arrives for an
	// entry that was deleted mid-flight and its result is discarded.
	EventStaleDrop
)

func (e Event) String() string {
	switch e {
	case EventHit:
		return "hit"
	case EventMiss:
		return "miss"
	case EventStart:
		return "start"
	case EventResolved:
		return "resolved"
	case EventRejected:
		return "rejected"
	case EventDelete:
		return "delete"
	case EventClear:
		return "clear"
	case EventStaleDrop:
		return "stale-drop"
	}
	return "unknown"
}

// EventData carries the details of a cache event. Key is empty for
// EventClear.
type EventData struct {
	Event    Event
	Function string
	Key      Key
}
