package asyncresource_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	asyncresource "github.com/mmgeorge/use-async-resource"
)

// gatedUserCache returns a cache whose fetches block until release is
// closed, plus the invocation counter.
func gatedUserCache(release <-chan struct{}) (*asyncresource.Cache[int, user], *atomic.Int32) {
	var calls atomic.Int32
	c := asyncresource.NewCache(func(_ context.Context, id int) (user, error) {
		calls.Add(1)
		<-release
		return user{ID: id, Name: "test name"}, nil
	})
	return c, &calls
}

func TestLazyInitialize(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := asyncresource.NewCache(func(_ context.Context, id int) (user, error) {
		calls.Add(1)
		return user{ID: id}, nil
	})

	res := c.NewResource()
	reader := res.Reader()

	value, ok, err := reader.Read()
	require.NoError(t, err, "lazy read must not suspend")
	require.False(t, ok)
	require.Zero(t, value)
	require.Equal(t, int32(0), calls.Load(), "lazy mode must not invoke the function")

	_, bound := res.Args()
	require.False(t, bound)

	// All lazy readers of one table are equal.
	require.True(t, reader == c.NewResource().Reader())
}

func TestScenarioInitializeSuspendThenRead(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	c, calls := gatedUserCache(release)
	ctx := context.Background()

	res := c.NewResourceWith(ctx, 1)
	reader := res.Reader()

	_, _, err := reader.Read()
	require.ErrorIs(t, err, asyncresource.ErrPending)

	close(release)
	value, ok, err := reader.Await(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, user{ID: 1, Name: "test name"}, value)
	require.Equal(t, int32(1), calls.Load())
}

func TestScenarioUpdateThenReturnToCachedArgs(t *testing.T) {
	t.Parallel()
	c := asyncresource.NewCache(func(_ context.Context, id int) (user, error) {
		return user{ID: id, Name: "test name"}, nil
	})
	ctx := context.Background()

	res := c.NewResourceWith(ctx, 1)
	first := res.Reader()
	_, _, err := first.Await(ctx)
	require.NoError(t, err)

	res.Update(ctx, 2)
	second := res.Reader()
	require.True(t, first != second, "new args must produce a new reader")

	value, ok, err := second.Await(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, user{ID: 2, Name: "test name"}, value)

	// Returning to previous args reuses the original entry verbatim:
	// same reader, immediately readable, no new fetch.
	res.Update(ctx, 1)
	require.True(t, res.Reader() == first)

	value, ok, err = res.Reader().Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, user{ID: 1, Name: "test name"}, value)
}

func TestScenarioDeleteForcesFreshEntry(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := asyncresource.NewCache(func(_ context.Context, id int) (user, error) {
		calls.Add(1)
		return user{ID: id, Name: "test name"}, nil
	})
	ctx := context.Background()

	res := c.NewResourceWith(ctx, 1)
	original := res.Reader()
	_, _, err := original.Await(ctx)
	require.NoError(t, err)

	c.Delete(1)
	res.Update(ctx, 1)
	fresh := res.Reader()
	require.True(t, original != fresh, "deleted key must get a newly-created entry")

	value, ok, err := fresh.Await(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, user{ID: 1, Name: "test name"}, value)
	require.Equal(t, int32(2), calls.Load())
}

func TestUpdateReusesRejectedEntry(t *testing.T) {
	t.Parallel()
	errNotFound := errors.New("user not found")
	var calls atomic.Int32
	c := asyncresource.NewCache(func(_ context.Context, id int) (user, error) {
		calls.Add(1)
		if id < 0 {
			return user{}, errNotFound
		}
		return user{ID: id}, nil
	})
	ctx := context.Background()

	res := c.NewResourceWith(ctx, -1)
	failed := res.Reader()
	_, _, err := failed.Await(ctx)
	require.ErrorIs(t, err, errNotFound)

	res.Update(ctx, 2)
	_, _, err = res.Reader().Await(ctx)
	require.NoError(t, err)

	// A rejected entry is terminal and reused like a resolved one.
	res.Update(ctx, -1)
	require.True(t, res.Reader() == failed)
	_, _, err = res.Reader().Read()
	require.ErrorIs(t, err, errNotFound)
	require.Equal(t, int32(2), calls.Load())
}

func TestSequentialUpdatesApplyInOrder(t *testing.T) {
	t.Parallel()
	c := asyncresource.NewCache(func(_ context.Context, id int) (user, error) {
		return user{ID: id}, nil
	})
	ctx := context.Background()

	res := c.NewResource()
	for id := 1; id <= 3; id++ {
		res.Update(ctx, id)
	}

	args, bound := res.Args()
	require.True(t, bound)
	require.Equal(t, 3, args)
	require.Equal(t, asyncresource.KeyFor(3), res.Reader().Key())
}

func TestInvalidate(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := asyncresource.NewCache(func(_ context.Context, id int) (user, error) {
		calls.Add(1)
		return user{ID: id}, nil
	})
	ctx := context.Background()

	res := c.NewResourceWith(ctx, 1)
	stale := res.Reader()
	_, _, err := stale.Await(ctx)
	require.NoError(t, err)

	res.Invalidate(ctx)
	require.True(t, res.Reader() != stale)

	_, ok, err := res.Reader().Await(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(2), calls.Load())
}

func TestInvalidateLazyControllerIsNoop(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := asyncresource.NewCache(func(_ context.Context, id int) (user, error) {
		calls.Add(1)
		return user{ID: id}, nil
	})

	res := c.NewResource()
	res.Invalidate(context.Background())
	c.Wait()

	require.Equal(t, int32(0), calls.Load())
	_, bound := res.Args()
	require.False(t, bound)
}

func TestControllersShareEntries(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	c := asyncresource.NewCache(func(_ context.Context, id int) (user, error) {
		calls.Add(1)
		return user{ID: id}, nil
	})
	ctx := context.Background()

	res1 := c.NewResourceWith(ctx, 1)
	res2 := c.NewResourceWith(ctx, 1)

	require.True(t, res1.Reader() == res2.Reader())
	c.Wait()
	require.Equal(t, int32(1), calls.Load())
}
