package asyncresource

import (
	"context"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Func is the source-function collaborator: invoked with one argument
// value, it produces a value or an error exactly once per call. The
// argument type must have a deterministic structural encoding (see
// [KeyFor]).
type Func[A, T any] func(ctx context.Context, args A) (T, error)

// Cache is the memoization table for one source function, mapping
// derived keys to entries. At most one entry exists per key and at
// most one operation is ever in flight per key. Entries leave the
// table only through Delete or Clear.
//
// All methods are safe for concurrent use.
type Cache[A, T any] struct {
	fn   Func[A, T]
	name string

	cfg   config
	log   zerolog.Logger
	table *ttlcache.Cache[string, *entry[T]]
	wg    conc.WaitGroup
	lazy  *entry[T]
}

// NewCache builds a standalone table for fn. Most callers want
// [CacheFor], which shares one table per function process-wide.
func NewCache[A, T any](fn Func[A, T], opts ...Option) *Cache[A, T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Cache[A, T]{
		fn:    fn,
		name:  funcName(fn),
		cfg:   cfg,
		table: ttlcache.New[string, *entry[T]](),
		lazy:  newEntry[T]("", nil),
	}
	c.log = cfg.logger.With().Str("function", c.name).Logger()
	// Entries never expire, so the ttlcache janitor is not started.
	// Deletion is the only way out of the table, and it funnels
	// through this eviction hook.
	c.table.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, *entry[T]]) {
		item.Value().detach()
		c.emit(EventDelete, Key(item.Key()))
		c.log.Debug().Str("key", item.Key()).Msg("entry deleted")
	})
	return c
}

// Get returns the reader for args, creating a fresh idle entry on
// first use. It never starts the underlying operation, which is what
// makes lazy mode possible.
func (c *Cache[A, T]) Get(args A) Reader[T] {
	return Reader[T]{e: c.entryFor(args)}
}

// Start returns the reader for args like Get, and additionally starts
// the entry's operation if it has never run. Start is idempotent: a
// pending or settled entry is left untouched, and it never fails
// synchronously. Failures, including panics in the source function,
// surface only through the reader.
func (c *Cache[A, T]) Start(ctx context.Context, args A) Reader[T] {
	e := c.entryFor(args)
	c.start(ctx, e)
	return Reader[T]{e: e}
}

// Delete removes the entry for args, if present. Readers already
// bound to it revert to the never-started contract, a settlement
// arriving afterwards is discarded, and the next Get for the same
// args creates a fresh idle entry.
func (c *Cache[A, T]) Delete(args A) {
	c.table.Delete(string(KeyFor(args)))
}

// Clear removes every entry in the table.
func (c *Cache[A, T]) Clear() {
	c.table.DeleteAll()
	c.emit(EventClear, "")
}

// Len reports the number of entries currently in the table.
func (c *Cache[A, T]) Len() int {
	return c.table.Len()
}

// Wait blocks until every operation started through this table has
// settled or been discarded. Useful in tests and at shutdown; the
// cache itself never cancels an operation.
func (c *Cache[A, T]) Wait() {
	c.wg.Wait()
}

// entryFor is the atomic lookup-or-create step. The candidate entry
// binds args into its invoke closure so the entry alone carries
// everything needed to run the operation later.
func (c *Cache[A, T]) entryFor(args A) *entry[T] {
	key := KeyFor(args)
	fresh := newEntry(key, func(ctx context.Context) (T, error) {
		return c.fn(ctx, args)
	})
	item, existed := c.table.GetOrSet(string(key), fresh)
	if existed {
		c.emit(EventHit, key)
	} else {
		c.emit(EventMiss, key)
		c.log.Debug().Str("key", string(key)).Msg("cache miss")
	}
	return item.Value()
}

// start runs e's operation on its own goroutine. The entry state
// machine is the single-flight guarantee: only the tryStart winner
// reaches the invoke, and the table holds at most one live entry per
// key, so one key never has two operations in flight.
func (c *Cache[A, T]) start(ctx context.Context, e *entry[T]) {
	if !e.tryStart() {
		return
	}
	c.emit(EventStart, e.key)
	c.log.Debug().Str("key", string(e.key)).Msg("operation started")
	c.wg.Go(func() {
		var (
			value T
			err   error
		)
		recovered := panics.Try(func() {
			value, err = e.invoke(ctx)
		})
		if recovered != nil {
			err = recovered.AsError()
		}
		c.finish(e, value, err)
	})
}

func (c *Cache[A, T]) finish(e *entry[T], value T, err error) {
	if !e.settle(value, err) {
		c.emit(EventStaleDrop, e.key)
		c.log.Debug().Str("key", string(e.key)).Msg("stale settlement dropped")
		return
	}
	if err != nil {
		c.emit(EventRejected, e.key)
		c.log.Debug().Str("key", string(e.key)).Err(err).Msg("entry rejected")
		return
	}
	c.emit(EventResolved, e.key)
	c.log.Debug().Str("key", string(e.key)).Msg("entry resolved")
}

func (c *Cache[A, T]) emit(event Event, key Key) {
	if c.cfg.observer == nil {
		return
	}
	c.cfg.observer.On(EventData{Event: event, Function: c.name, Key: key})
}

// lazyReader returns the table's idle sentinel reader. The sentinel
// lives outside the table and can never be started, so every lazy
// controller for one function shares an equal reader.
func (c *Cache[A, T]) lazyReader() Reader[T] {
	return Reader[T]{e: c.lazy}
}
