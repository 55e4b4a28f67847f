package asyncresource

import "sync"

// Registry owns the process-wide mapping from source functions to
// their tables. Access goes through [CacheIn] (or [CacheFor] for the
// default registry); the registry itself only handles lifecycle.
type Registry struct {
	mu     sync.Mutex
	tables map[string]any
}

// NewRegistry returns an empty registry. Most callers use the package
// default; a private registry keeps tests or subsystems isolated.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]any)}
}

var defaultRegistry = NewRegistry()

// CacheIn returns r's table for fn, creating it on first use. Options
// apply only on creation. This is a package-level function because Go
// methods cannot introduce type parameters.
func CacheIn[A, T any](r *Registry, fn Func[A, T], opts ...Option) *Cache[A, T] {
	id := funcID(fn)
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tables[id]; ok {
		if c, ok := t.(*Cache[A, T]); ok {
			return c
		}
	}
	c := NewCache(fn, opts...)
	r.tables[id] = c
	return c
}

// CacheFor returns the process-wide table for fn. Two controllers
// created for the same function share entries through it, and
// operators or tests can inspect and invalidate cache contents
// independent of any controller.
func CacheFor[A, T any](fn Func[A, T], opts ...Option) *Cache[A, T] {
	return CacheIn(defaultRegistry, fn, opts...)
}

// Purge clears every table and drops it from the registry.
func (r *Registry) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		if c, ok := t.(interface{ Clear() }); ok {
			c.Clear()
		}
	}
	clear(r.tables)
}

// Purge resets the default registry. Intended for test cleanup.
func Purge() {
	defaultRegistry.Purge()
}
