package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"furk/models"
	"furk/services/session"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeClock records scheduled delays; tests fire timers by hand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, 0, len(c.timers))
	for _, t := range c.timers {
		out = append(out, t.d)
	}
	return out
}

// fireLast runs the most recent timer if it is still armed.
func (c *fakeClock) fireLast() bool {
	c.mu.Lock()
	if len(c.timers) == 0 {
		c.mu.Unlock()
		return false
	}
	t := c.timers[len(c.timers)-1]
	if t.stopped {
		c.mu.Unlock()
		return false
	}
	t.stopped = true
	c.mu.Unlock()
	t.f()
	return true
}

type fakeConn struct {
	msgs      chan []byte
	closeErr  chan error
	closeOnce sync.Once
	done      chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgs: make(chan []byte, 8), closeErr: make(chan error, 1), done: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case m := <-c.msgs:
		return websocket.TextMessage, m, nil
	case err := <-c.closeErr:
		return 0, nil, err
	case <-c.done:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	urls  []string
	conns []*fakeConn
	err   error
}

func (d *fakeDialer) Dial(_ context.Context, rawURL string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, rawURL)
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}

type stubSource struct {
	list []models.BookingProgress
	err  error
}

func (s stubSource) InProgress(context.Context) ([]models.BookingProgress, error) {
	return s.list, s.err
}

func newTestWidget(d Dialer, c Clock, src Source) *Widget {
	return NewWidget(Config{
		URL:    "wss://push.furk.test/progress",
		Token:  func() string { return "id-token" },
		Source: src,
		Dialer: d,
		Clock:  c,
	})
}

func TestWidget_AbnormalFailuresBackOffAndGiveUp(t *testing.T) {
	clock := &fakeClock{}
	dialer := &fakeDialer{err: errors.New("connection refused")}
	w := newTestWidget(dialer, clock, nil)
	defer w.Stop()

	w.Start(context.Background())
	for clock.fireLast() {
	}

	assert.Equal(t, []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
	}, clock.delays())
	assert.Equal(t, 6, dialer.dials())

	snap := w.Snapshot()
	assert.True(t, snap.Connection.GaveUp)
	assert.True(t, snap.Reconnecting)
	assert.False(t, w.PendingReconnect())
}

func TestWidget_DialsWithTokenQuery(t *testing.T) {
	dialer := &fakeDialer{}
	w := newTestWidget(dialer, &fakeClock{}, nil)
	defer w.Stop()

	w.Start(context.Background())
	require.Equal(t, 1, dialer.dials())
	assert.Equal(t, "wss://push.furk.test/progress?token=id-token", dialer.urls[0])
	assert.Equal(t, PhaseConnected, w.Snapshot().Connection.Phase)
}

func TestWidget_CleanCloseDoesNotReconnect(t *testing.T) {
	clock := &fakeClock{}
	dialer := &fakeDialer{}
	w := newTestWidget(dialer, clock, nil)
	defer w.Stop()

	w.Start(context.Background())
	dialer.lastConn().closeErr <- &websocket.CloseError{Code: websocket.CloseNormalClosure}

	assert.Eventually(t, func() bool {
		return w.Snapshot().Connection.Phase == PhaseDisconnected
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, clock.delays())
	assert.False(t, w.PendingReconnect())
	assert.False(t, w.Snapshot().Reconnecting)
}

func TestWidget_AbnormalCloseReconnectsAndResets(t *testing.T) {
	clock := &fakeClock{}
	dialer := &fakeDialer{}
	w := newTestWidget(dialer, clock, nil)
	defer w.Stop()

	w.Start(context.Background())
	dialer.lastConn().closeErr <- &websocket.CloseError{Code: websocket.CloseAbnormalClosure}

	assert.Eventually(t, w.PendingReconnect, time.Second, 5*time.Millisecond)
	assert.Equal(t, []time.Duration{time.Second}, clock.delays())

	require.True(t, clock.fireLast())
	assert.Equal(t, 2, dialer.dials())
	assert.Equal(t, PhaseConnected, w.Snapshot().Connection.Phase)
	assert.Zero(t, w.Snapshot().Connection.Attempt)

	// a network drop after a successful open starts again at 1s
	dialer.lastConn().closeErr <- errors.New("connection reset by peer")
	assert.Eventually(t, func() bool { return len(clock.delays()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, time.Second, clock.delays()[1])
}

func TestWidget_UnknownStatusRendersError(t *testing.T) {
	dialer := &fakeDialer{}
	w := newTestWidget(dialer, &fakeClock{}, nil)
	defer w.Stop()

	w.Start(context.Background())
	dialer.lastConn().msgs <- []byte(`{"user_id":"u1","service_id":"s1","service_name":"Bath","booking_status":"unknown_value","modified_at":"2026-03-01T10:00:00Z"}`)

	assert.Eventually(t, func() bool { return w.Snapshot().Progress != nil }, time.Second, 5*time.Millisecond)
	snap := w.Snapshot()
	assert.Equal(t, models.BookingError, snap.Progress.BookingStatus)
	require.NotNil(t, snap.Presentation)
	assert.Equal(t, models.BookingError, snap.Presentation.Status)
	assert.Equal(t, "error", snap.Presentation.Tone)
}

func TestWidget_MessagesReplaceSnapshot(t *testing.T) {
	src := stubSource{list: []models.BookingProgress{
		{ServiceName: "Walk", BookingStatus: models.BookingPending, ModifiedAt: models.Timestamp{Time: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}},
		{ServiceName: "Groom", BookingStatus: models.BookingInProgress, ModifiedAt: models.Timestamp{Time: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}},
	}}
	dialer := &fakeDialer{}
	w := newTestWidget(dialer, &fakeClock{}, src)
	defer w.Stop()

	w.Start(context.Background())
	require.NotNil(t, w.Snapshot().Progress)
	assert.Equal(t, "Groom", w.Snapshot().Progress.ServiceName)

	conn := dialer.lastConn()
	conn.msgs <- []byte(`not json at all`)
	conn.msgs <- []byte(`{"booking_status": 12`)
	conn.msgs <- []byte(`[{"service_name":"Old","booking_status":"COMPLETED","modified_at":"2026-03-01T07:00:00Z"},{"service_name":"Vet","booking_status":"COMPLETED","modified_at":"2026-03-01T11:00:00Z"}]`)

	assert.Eventually(t, func() bool {
		p := w.Snapshot().Progress
		return p != nil && p.ServiceName == "Vet"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, models.BookingCompleted, w.Snapshot().Presentation.Status)

	assert.True(t, w.Dismiss())
	assert.Nil(t, w.Snapshot().Progress)
	assert.False(t, w.Dismiss())
}

func TestWidget_MalformedKeepsSnapshot(t *testing.T) {
	dialer := &fakeDialer{}
	w := newTestWidget(dialer, &fakeClock{}, nil)
	defer w.Stop()

	w.Start(context.Background())
	conn := dialer.lastConn()
	conn.msgs <- []byte(`{"service_name":"Bath","booking_status":"IN_PROGRESS","modified_at":"2026-03-01T10:00:00Z"}`)
	assert.Eventually(t, func() bool { return w.Snapshot().Progress != nil }, time.Second, 5*time.Millisecond)

	conn.msgs <- []byte(`{{{`)
	conn.msgs <- []byte(`[]`)
	// ordering marker: once this lands, the two before it were processed
	conn.msgs <- []byte(`{"service_name":"Bath","booking_status":"IN_PROGRESS","modified_at":"2026-03-01T10:05:00Z"}`)
	assert.Eventually(t, func() bool {
		p := w.Snapshot().Progress
		return p != nil && p.ModifiedAt.Minute() == 5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Bath", w.Snapshot().Progress.ServiceName)
}

func TestWidget_StopTearsDown(t *testing.T) {
	clock := &fakeClock{}
	dialer := &fakeDialer{}
	w := newTestWidget(dialer, clock, nil)

	w.Start(context.Background())
	updates, _ := w.Subscribe()
	<-updates

	dialer.lastConn().closeErr <- &websocket.CloseError{Code: websocket.CloseAbnormalClosure}
	assert.Eventually(t, w.PendingReconnect, time.Second, 5*time.Millisecond)

	w.Stop()
	assert.False(t, w.PendingReconnect())
	assert.Nil(t, w.Snapshot().Progress)
	assert.False(t, clock.fireLast(), "pending timer must be cancelled")
	assert.Equal(t, 1, dialer.dials())

	_, open := <-updates
	for open {
		_, open = <-updates
	}
	w.Stop()
}

func TestManager_FollowsSessionEvents(t *testing.T) {
	store := session.NewMemoryStore()
	dialer := &fakeDialer{}
	m := NewManager(store, ManagerConfig{URL: "wss://push.furk.test/progress", Dialer: dialer, Clock: &fakeClock{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, store.Save(ctx, &models.Session{ID: "s1", IdentityToken: "tok-1", Role: models.RoleUser}))
	assert.Eventually(t, func() bool { return m.Active() == 1 && dialer.dials() == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, dialer.urls[0], "token=tok-1")

	// a refresh saves again but must not start a second widget
	require.NoError(t, store.Save(ctx, &models.Session{ID: "s1", IdentityToken: "tok-2", Role: models.RoleUser}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, m.Active())

	require.NoError(t, store.Clear(ctx, "s1"))
	assert.Eventually(t, func() bool { return m.Active() == 0 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, m.Get("s1"))

	cancel()
	<-done
}
