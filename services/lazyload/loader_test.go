package lazyload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"furk/models"
	"furk/services/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const limit = 4

func pageOf(prefix string, offset, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, offset+i)
	}
	return out
}

func TestLoadMore_AccumulatesUntilShortPage(t *testing.T) {
	sizes := []int{limit, limit, limit - 1}
	var calls int32
	fetch := func(_ context.Context, lim, offset int, _ string) ([]string, error) {
		n := atomic.AddInt32(&calls, 1)
		require.Equal(t, limit, lim)
		return pageOf("p", offset, sizes[n-1]), nil
	}
	l := New[string](fetch, limit)
	ctx := context.Background()

	assert.True(t, l.LoadMore(ctx))
	assert.True(t, l.LoadMore(ctx))
	assert.True(t, l.LoadMore(ctx))

	st := l.Snapshot()
	assert.Len(t, st.Items, 3*limit-1)
	assert.False(t, st.HasMore)
	assert.Equal(t, 3*limit-1, st.Offset)

	assert.False(t, l.LoadMore(ctx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLoadMore_OffsetsAdvanceByLimit(t *testing.T) {
	var offsets []int
	fetch := func(_ context.Context, _, offset int, _ string) ([]string, error) {
		offsets = append(offsets, offset)
		return pageOf("p", offset, limit), nil
	}
	l := New[string](fetch, limit)
	for i := 0; i < 3; i++ {
		l.LoadMore(context.Background())
	}
	assert.Equal(t, []int{0, limit, 2 * limit}, offsets)
}

func TestLoadMore_BackToBackMakesOneCall(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls int32
	fetch := func(_ context.Context, _, offset int, _ string) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		started <- struct{}{}
		<-release
		return pageOf("p", offset, limit), nil
	}
	l := New[string](fetch, limit)
	ctx := context.Background()

	done := make(chan bool)
	go func() { done <- l.LoadMore(ctx) }()
	<-started

	assert.True(t, l.Snapshot().Loading)
	assert.False(t, l.LoadMore(ctx))

	close(release)
	assert.True(t, <-done)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Len(t, l.Snapshot().Items, limit)
}

func TestSync_KeywordChangeRefetchesFromZero(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	fetch := func(_ context.Context, _, offset int, keyword string) ([]string, error) {
		mu.Lock()
		seen = append(seen, fmt.Sprintf("%s@%d", keyword, offset))
		mu.Unlock()
		return pageOf(keyword, offset, limit), nil
	}
	l := New[string](fetch, limit)
	ctx := context.Background()

	assert.True(t, l.Sync(ctx, "groom"))
	l.LoadMore(ctx)
	assert.Len(t, l.Snapshot().Items, 2*limit)

	assert.False(t, l.Sync(ctx, "groom"), "unchanged keyword must not reset")

	assert.True(t, l.Sync(ctx, "walk"))
	st := l.Snapshot()
	assert.Equal(t, pageOf("walk", 0, limit), st.Items)
	assert.Equal(t, limit, st.Offset)
	assert.Equal(t, "walk", st.Keyword)
	assert.Equal(t, []string{"groom@0", "groom@4", "walk@0"}, seen)
}

func TestSync_DepsChangeResets(t *testing.T) {
	var calls int32
	fetch := func(ctx context.Context, _, offset int, _ string) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return pageOf(Dep(ctx, 0), offset, 1), nil
	}
	l := New[string](fetch, limit)
	ctx := context.Background()

	l.Sync(ctx, "", "PENDING")
	l.Sync(ctx, "", "PENDING")
	l.Sync(ctx, "", "COMPLETED")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	st := l.Snapshot()
	assert.Equal(t, []string{"COMPLETED"}, st.Deps)
	assert.Equal(t, []string{"COMPLETED-0"}, st.Items)
}

func TestReset_DropsStaleInFlightPage(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	fetch := func(_ context.Context, _, offset int, keyword string) ([]string, error) {
		if keyword == "old" && offset > 0 {
			started <- struct{}{}
			<-release
		}
		return pageOf(keyword, offset, limit), nil
	}
	l := New[string](fetch, limit)
	ctx := context.Background()
	l.Sync(ctx, "old")

	done := make(chan bool)
	go func() { done <- l.LoadMore(ctx) }()
	<-started

	l.Sync(ctx, "new")
	close(release)
	assert.False(t, <-done)

	assert.Equal(t, pageOf("new", 0, limit), l.Snapshot().Items)
	assert.False(t, l.Snapshot().Loading)
}

func TestLoadMore_FailureLeavesStateUnchanged(t *testing.T) {
	fail := false
	fetch := func(_ context.Context, _, offset int, _ string) ([]string, error) {
		if fail {
			return nil, errors.New("backend down")
		}
		return pageOf("p", offset, limit), nil
	}
	l := New[string](fetch, limit)
	ctx := context.Background()
	l.LoadMore(ctx)
	before := l.Snapshot()

	fail = true
	assert.False(t, l.LoadMore(ctx))
	after := l.Snapshot()
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Offset, after.Offset)
	assert.Equal(t, before.HasMore, after.HasMore)
	assert.False(t, after.Loading)

	// retry works once the backend recovers
	fail = false
	assert.True(t, l.LoadMore(ctx))
	assert.Len(t, l.Snapshot().Items, 2*limit)
}

func TestRegistry_PerSessionAndDroppedOnClear(t *testing.T) {
	fetch := func(_ context.Context, _, offset int, _ string) ([]string, error) {
		return pageOf("p", offset, 1), nil
	}
	r := NewRegistry()
	a := Get[string](r, "s1", "bookings", fetch, limit)
	assert.Same(t, a, Get[string](r, "s1", "bookings", fetch, limit))
	assert.NotSame(t, a, Get[string](r, "s2", "bookings", fetch, limit))

	store := session.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Watch(ctx, store)
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, store.Save(ctx, &models.Session{ID: "s1", Role: models.RoleUser}))
	require.NoError(t, store.Clear(ctx, "s1"))
	assert.Eventually(t, func() bool { return r.Sessions() == 1 }, time.Second, 5*time.Millisecond)
	assert.NotSame(t, a, Get[string](r, "s1", "bookings", fetch, limit))
}

func TestRegistry_BoundedBySessionCount(t *testing.T) {
	fetch := func(_ context.Context, _, offset int, _ string) ([]string, error) {
		return pageOf("p", offset, 1), nil
	}
	r := NewBoundedRegistry(100, time.Hour)
	first := Get[string](r, "sid-0", "services", fetch, limit)
	for i := 1; i < 500; i++ {
		Get[string](r, fmt.Sprintf("sid-%d", i), "services", fetch, limit)
	}
	assert.Equal(t, 100, r.Sessions())

	// the oldest session was evicted; the newest kept its loader
	assert.NotSame(t, first, Get[string](r, "sid-0", "services", fetch, limit))
	last := Get[string](r, "sid-499", "services", fetch, limit)
	assert.Same(t, last, Get[string](r, "sid-499", "services", fetch, limit))
}

func TestRegistry_IdleSessionsExpire(t *testing.T) {
	fetch := func(_ context.Context, _, offset int, _ string) ([]string, error) {
		return pageOf("p", offset, 1), nil
	}
	r := NewBoundedRegistry(10, 50*time.Millisecond)
	a := Get[string](r, "anon", "services", fetch, limit)
	require.Equal(t, 1, r.Sessions())

	// no clear event is ever published for this session
	assert.Eventually(t, func() bool { return r.Sessions() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NotSame(t, a, Get[string](r, "anon", "services", fetch, limit))
}

func TestLoader_FailedResetLeavesEmptyRetryableList(t *testing.T) {
	fail := false
	fetch := func(_ context.Context, _, offset int, keyword string) ([]string, error) {
		if fail {
			return nil, errors.New("backend down")
		}
		return pageOf(keyword, offset, limit), nil
	}
	l := New[string](fetch, limit)
	ctx := context.Background()
	require.True(t, l.Sync(ctx, "cats"))
	require.Len(t, l.Snapshot().Items, limit)

	fail = true
	l.Sync(ctx, "dogs")
	st := l.Snapshot()
	assert.Empty(t, st.Items)
	assert.Equal(t, 0, st.Offset)
	assert.True(t, st.HasMore)
	assert.False(t, st.Loading)

	fail = false
	require.True(t, l.LoadMore(ctx))
	assert.Equal(t, pageOf("dogs", 0, limit), l.Snapshot().Items)
}
