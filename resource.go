package asyncresource

import (
	"context"
	"sync"
)

// Resource is the per-consumer controller for one source function: it
// holds the consumer's current arguments and the reader bound to the
// matching cache entry. All controllers for the same function share
// one table, so two controllers updated to equal arguments hold equal
// readers.
type Resource[A, T any] struct {
	cache *Cache[A, T]

	mu     sync.Mutex
	args   A
	bound  bool
	reader Reader[T]
}

// NewResource returns a lazy controller for fn: its reader yields
// (zero, false, nil) and nothing is invoked until the first Update.
// The table comes from the default registry, see [CacheFor].
func NewResource[A, T any](fn Func[A, T], opts ...Option) *Resource[A, T] {
	return CacheFor(fn, opts...).NewResource()
}

// NewResourceWith returns a controller already updated to args: the
// matching entry is looked up or created and its operation started.
func NewResourceWith[A, T any](ctx context.Context, fn Func[A, T], args A, opts ...Option) *Resource[A, T] {
	return CacheFor(fn, opts...).NewResourceWith(ctx, args)
}

// NewResource returns a lazy controller bound to this table.
func (c *Cache[A, T]) NewResource() *Resource[A, T] {
	return &Resource[A, T]{cache: c, reader: c.lazyReader()}
}

// NewResourceWith returns a controller bound to this table, already
// updated to args.
func (c *Cache[A, T]) NewResourceWith(ctx context.Context, args A) *Resource[A, T] {
	r := c.NewResource()
	r.Update(ctx, args)
	return r
}

// Reader returns the controller's current reader.
func (r *Resource[A, T]) Reader() Reader[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reader
}

// Args returns the controller's current arguments. The second result
// is false while the controller is still lazy.
func (r *Resource[A, T]) Args() (A, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.args, r.bound
}

// Update switches the controller to args as a single atomic step: the
// matching entry is looked up or created, started if it never ran,
// and the controller's (args, reader) pair is replaced together.
// Repeating arguments whose entry is still cached reuses the existing
// entry verbatim: no new operation, no state change, same reader.
func (r *Resource[A, T]) Update(ctx context.Context, args A) {
	reader := r.cache.Start(ctx, args)
	r.mu.Lock()
	r.args = args
	r.bound = true
	r.reader = reader
	r.mu.Unlock()
}

// Invalidate deletes the entry for the current arguments and runs the
// operation again, leaving the controller bound to the fresh entry.
// On a lazy controller it is a no-op.
func (r *Resource[A, T]) Invalidate(ctx context.Context) {
	r.mu.Lock()
	args, bound := r.args, r.bound
	r.mu.Unlock()
	if !bound {
		return
	}
	r.cache.Delete(args)
	r.Update(ctx, args)
}

// Cache exposes the table the controller is bound to, for inspection
// and invalidation independent of the controller.
func (r *Resource[A, T]) Cache() *Cache[A, T] {
	return r.cache
}
