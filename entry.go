package asyncresource

import (
	"context"
	"sync"
)

// State is the lifecycle phase of a cache entry.
type State int

const (
	// Idle means the entry's operation has never been started.
	Idle State = iota
	// Pending means the operation is in flight.
	Pending
	// Resolved means the operation succeeded. Terminal.
	Resolved
	// Rejected means the operation failed. Terminal.
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// entry is the lifecycle record of one asynchronous operation.
// Transitions are monotonic: idle -> pending -> resolved | rejected.
// Retrying requires deleting the entry and creating a fresh one.
type entry[T any] struct {
	key    Key
	invoke func(context.Context) (T, error) // nil for the lazy sentinel

	mu       sync.Mutex
	state    State
	value    T
	err      error
	detached bool
	closed   bool
	done     chan struct{}
}

func newEntry[T any](key Key, invoke func(context.Context) (T, error)) *entry[T] {
	return &entry[T]{key: key, invoke: invoke, done: make(chan struct{})}
}

// snapshot returns the externally visible state. A detached entry
// reports Idle: once removed from its table it reverts to the
// never-started contract.
func (e *entry[T]) snapshot() (State, T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		var zero T
		return Idle, zero, nil
	}
	return e.state, e.value, e.err
}

// tryStart claims the idle -> pending transition. Exactly one caller
// wins; every other caller, concurrent or later, sees false.
func (e *entry[T]) tryStart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invoke == nil || e.detached || e.state != Idle {
		return false
	}
	e.state = Pending
	return true
}

// settle records the operation's outcome and wakes waiters. It
// reports false when the entry was detached before settlement, in
// which case the result is discarded.
func (e *entry[T]) settle(value T, err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached || e.state != Pending {
		return false
	}
	if err != nil {
		e.state = Rejected
		e.err = err
	} else {
		e.state = Resolved
		e.value = value
	}
	e.closeDone()
	return true
}

// detach takes the entry out of circulation after a table delete.
// Waiters are released and any later settlement is dropped, so a
// stale completion can never resurrect the key.
func (e *entry[T]) detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detached = true
	e.closeDone()
}

// closeDone must be called with mu held.
func (e *entry[T]) closeDone() {
	if !e.closed {
		e.closed = true
		close(e.done)
	}
}
