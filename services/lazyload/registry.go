package lazyload

import (
	"context"
	"sync"
	"time"

	"furk/services/session"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultMaxSessions bounds how many browser sessions hold loaders.
	DefaultMaxSessions = 10000
	// DefaultIdleTTL is how long an untouched session keeps its loaders.
	DefaultIdleTTL = 30 * time.Minute
)

// Registry holds one loader per (browser session, view). Sessions are evicted
// least recently used first once MaxSessions is reached, and after IdleTTL
// without a Get, so anonymous or silently expired sessions do not pile up.
type Registry struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, map[string]any]
}

func NewRegistry() *Registry {
	return NewBoundedRegistry(DefaultMaxSessions, DefaultIdleTTL)
}

// NewBoundedRegistry is NewRegistry with explicit limits. Non-positive values
// fall back to the defaults.
func NewBoundedRegistry(maxSessions int, idleTTL time.Duration) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{sessions: expirable.NewLRU[string, map[string]any](maxSessions, nil, idleTTL)}
}

// Get returns the loader for sid and view, creating it with fetch and limit on
// first use. A view name must always be used with the same item type. Every
// call restarts sid's idle timer.
func Get[T any](r *Registry, sid, view string, fetch FetchFunc[T], limit int) *Loader[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	views, ok := r.sessions.Get(sid)
	if !ok {
		views = make(map[string]any)
	}
	r.sessions.Add(sid, views)
	if l, ok := views[view].(*Loader[T]); ok {
		return l
	}
	l := New(fetch, limit)
	views[view] = l
	return l
}

// Drop forgets every loader of sid.
func (r *Registry) Drop(sid string) {
	r.mu.Lock()
	r.sessions.Remove(sid)
	r.mu.Unlock()
}

// Sessions reports how many sessions currently hold loaders.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Len()
}

// Watch drops a session's loaders when the session is cleared. It returns
// when ctx is done.
func (r *Registry) Watch(ctx context.Context, reader session.Reader) {
	events, unsubscribe := reader.Subscribe(32)
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == session.EventCleared {
				r.Drop(ev.SessionID)
			}
		}
	}
}
