// Package asyncresource provides deduplicated, memoized access to
// asynchronous operations identified by a function and its arguments.
//
// Consumers that re-request the same logical call repeatedly (a render
// loop, a request handler, a poller) get three guarantees: identical
// arguments never trigger redundant concurrent calls, repeated
// arguments reuse the prior result, and invalidation is always
// explicit. Results are exposed through a [Reader], a non-blocking
// view that can be polled before the data is ready.
//
// Each source function owns one process-wide table, shared by every
// controller created for it. Create a controller with [NewResourceWith]
// (or [NewResource] for lazy mode), then poll its reader:
//
//	user := asyncresource.NewResourceWith(ctx, fetchUser, 1)
//
//	v, ok, err := user.Reader().Read()
//	switch {
//	case errors.Is(err, asyncresource.ErrPending):
//		// not ready yet; wait on Reader().Done() and read again
//	case err != nil:
//		// the fetch failed; the error replays until the entry is deleted
//	case ok:
//		// v holds the fetched user
//	}
//
// Switching arguments goes through Update, which reuses a still-cached
// entry verbatim and starts a fetch only for keys it has never seen:
//
//	user.Update(ctx, 2) // new key: fetch starts
//	user.Update(ctx, 1) // cached: same reader as before, no fetch
//
// Invalidation is explicit, through the function's table:
//
//	asyncresource.CacheFor(fetchUser).Delete(1)
//
// An entry's operation runs at most once: a failed fetch stays failed
// until its entry is deleted and recreated. Entries never expire on
// their own, and in-flight operations are never cancelled; a deleted
// in-flight entry simply has its late result discarded.
package asyncresource
