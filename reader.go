package asyncresource

import (
	"context"
	"errors"
)

// ErrPending signals that the entry behind a reader has not settled
// yet. Callers that own a retry loop should wait on [Reader.Done] and
// read again.
var ErrPending = errors.New("asyncresource: operation pending")

// Reader is a read-or-suspend view bound to exactly one cache entry.
// Readers are comparable: two readers are equal exactly when they are
// bound to the same entry, which is what makes cache reuse observable.
// The zero Reader behaves like a reader over a never-started entry.
type Reader[T any] struct {
	e *entry[T]
}

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Read reports the entry's outcome without blocking and without side
// effects.
//
// A never-started entry yields (zero, false, nil). A pending entry
// yields ErrPending. A resolved entry yields (value, true, nil) on
// every read, and a rejected entry replays the captured error
// unmodified until the entry is deleted.
func (r Reader[T]) Read() (T, bool, error) {
	var zero T
	if r.e == nil {
		return zero, false, nil
	}
	state, value, err := r.e.snapshot()
	switch state {
	case Pending:
		return zero, false, ErrPending
	case Resolved:
		return value, true, nil
	case Rejected:
		return zero, false, err
	default:
		return zero, false, nil
	}
}

// State reports the entry's current lifecycle phase.
func (r Reader[T]) State() State {
	if r.e == nil {
		return Idle
	}
	s, _, _ := r.e.snapshot()
	return s
}

// Key returns the cache key the reader is bound to.
func (r Reader[T]) Key() Key {
	if r.e == nil {
		return ""
	}
	return r.e.key
}

// Done returns a channel that is closed once the entry settles or is
// deleted from its table. It is the handle an external scheduler
// waits on before re-invoking Read: a closed channel always means the
// next Read will not report ErrPending. A never-started entry has
// nothing to wait for, so its channel is already closed; if the entry
// is started afterwards, the next Done call hands out the live
// settlement channel.
func (r Reader[T]) Done() <-chan struct{} {
	if r.e == nil || r.State() == Idle {
		return closedDone
	}
	return r.e.done
}

// Await blocks until the entry settles, then reads it. A
// never-started entry returns immediately with (zero, false, nil),
// matching Read. Await returns ctx.Err if ctx expires first; the
// underlying operation keeps running regardless.
func (r Reader[T]) Await(ctx context.Context) (T, bool, error) {
	value, ok, err := r.Read()
	if !errors.Is(err, ErrPending) {
		return value, ok, err
	}
	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case <-r.e.done:
	}
	return r.Read()
}

// Select reads r and applies a pure projection to the resolved value.
// The cached value itself is never modified. Pending and failed reads
// pass through unchanged, with the zero U.
func Select[T, U any](r Reader[T], sel func(T) U) (U, bool, error) {
	value, ok, err := r.Read()
	if err != nil || !ok {
		var zero U
		return zero, ok, err
	}
	return sel(value), true, nil
}
