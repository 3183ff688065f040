// Package lazyload is the paginated fetch-and-accumulate controller behind
// every list view.
package lazyload

import (
	"context"
	"sync"

	"furk/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 10

var fetchFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "furk_lazyload_fetch_failures_total",
	Help: "Page fetches that failed and left list state unchanged.",
})

// FetchFunc loads one page. Pages come back in server order. The loader's
// current deps are available to it through Deps(ctx).
type FetchFunc[T any] func(ctx context.Context, limit, offset int, keyword string) ([]T, error)

type depsKey struct{}

// WithDeps attaches list filter values to ctx.
func WithDeps(ctx context.Context, deps ...string) context.Context {
	return context.WithValue(ctx, depsKey{}, deps)
}

// Deps returns the filter values a loader attached for this fetch.
func Deps(ctx context.Context) []string {
	d, _ := ctx.Value(depsKey{}).([]string)
	return d
}

// Dep returns the i-th filter value, or "" when there is none.
func Dep(ctx context.Context, i int) string {
	d := Deps(ctx)
	if i < 0 || i >= len(d) {
		return ""
	}
	return d[i]
}

// State is a copy of a loader's state at one moment.
type State[T any] struct {
	Items   []T      `json:"items"`
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
	Loading bool     `json:"loading"`
	HasMore bool     `json:"hasMore"`
	Keyword string   `json:"keyword,omitempty"`
	Deps    []string `json:"deps,omitempty"`
}

// Loader accumulates pages for one list view. It is safe for concurrent use;
// a LoadMore that arrives while a fetch is in flight is rejected, not queued.
type Loader[T any] struct {
	mu      sync.Mutex
	fetch   FetchFunc[T]
	limit   int
	items   []T
	offset  int
	loading bool
	hasMore bool
	keyword string
	deps    []string
	synced  bool
	epoch   uint64
	logger  *zap.Logger
}

func New[T any](fetch FetchFunc[T], limit int) *Loader[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Loader[T]{
		fetch:   fetch,
		limit:   limit,
		hasMore: true,
		logger:  utils.GetLogger(),
	}
}

// LoadMore fetches the page at the current offset and appends it. It returns
// false when nothing was appended: already loading, no more pages, a failed
// fetch, or a result made stale by a Reset.
func (l *Loader[T]) LoadMore(ctx context.Context) bool {
	l.mu.Lock()
	if l.loading || !l.hasMore {
		l.mu.Unlock()
		return false
	}
	l.loading = true
	epoch, offset, keyword := l.epoch, l.offset, l.keyword
	deps := append([]string(nil), l.deps...)
	l.mu.Unlock()

	page, err := l.fetch(WithDeps(ctx, deps...), l.limit, offset, keyword)

	l.mu.Lock()
	defer l.mu.Unlock()
	if epoch != l.epoch {
		return false
	}
	l.loading = false
	if err != nil {
		fetchFailures.Inc()
		l.logger.Warn("failed to load page", zap.Int("offset", offset), zap.String("keyword", keyword), zap.Error(err))
		return false
	}
	l.items = append(l.items, page...)
	l.offset += len(page)
	l.hasMore = len(page) == l.limit
	return true
}

// Reset discards accumulated items and loads the first page again. Any fetch
// still in flight from before the reset is ignored when it completes.
// Items are dropped before the fetch, since they belong to the previous
// keyword or filters; if the first page then fails, the list stays empty
// with HasMore set so the next LoadMore retries from offset zero.
func (l *Loader[T]) Reset(ctx context.Context) bool {
	l.mu.Lock()
	l.epoch++
	l.items = nil
	l.offset = 0
	l.hasMore = true
	l.loading = true
	epoch, keyword := l.epoch, l.keyword
	deps := append([]string(nil), l.deps...)
	l.mu.Unlock()

	page, err := l.fetch(WithDeps(ctx, deps...), l.limit, 0, keyword)

	l.mu.Lock()
	defer l.mu.Unlock()
	if epoch != l.epoch {
		return false
	}
	l.loading = false
	if err != nil {
		fetchFailures.Inc()
		l.logger.Warn("failed to load first page", zap.String("keyword", keyword), zap.Error(err))
		return false
	}
	l.items = page
	l.offset = len(page)
	l.hasMore = len(page) == l.limit
	return true
}

// Sync resets the loader on first use and whenever keyword or deps change.
// It reports whether a reset happened.
func (l *Loader[T]) Sync(ctx context.Context, keyword string, deps ...string) bool {
	l.mu.Lock()
	changed := !l.synced || keyword != l.keyword || !sameDeps(l.deps, deps)
	if changed {
		l.synced = true
		l.keyword = keyword
		l.deps = append([]string(nil), deps...)
	}
	l.mu.Unlock()

	if changed {
		l.Reset(ctx)
	}
	return changed
}

// Snapshot returns a copy of the current state.
func (l *Loader[T]) Snapshot() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := make([]T, len(l.items))
	copy(items, l.items)
	return State[T]{
		Items:   items,
		Offset:  l.offset,
		Limit:   l.limit,
		Loading: l.loading,
		HasMore: l.hasMore,
		Keyword: l.keyword,
		Deps:    append([]string(nil), l.deps...),
	}
}

func sameDeps(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
