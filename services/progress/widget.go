// Package progress keeps the real-time booking-progress widget for each
// authenticated browser session: one upstream WebSocket, the latest snapshot,
// and the reconnect policy.
package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"furk/models"
	"furk/services/api"
	"furk/utils"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	reconnectsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "furk_progress_reconnects_scheduled_total",
		Help: "Reconnects scheduled after abnormal closes of the progress socket.",
	})
	reconnectGiveUps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "furk_progress_reconnect_giveups_total",
		Help: "Widgets that exhausted their reconnect attempts.",
	})
	malformedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "furk_progress_malformed_messages_total",
		Help: "Progress messages dropped because they could not be parsed.",
	})
)

// Conn is the receive side of a WebSocket connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens the upstream progress socket.
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
}

func (d WebsocketDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, rawURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Timer is a pending reconnect.
type Timer interface {
	Stop() bool
}

// Clock schedules reconnects.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Source provides the initial list of in-progress bookings.
type Source interface {
	InProgress(ctx context.Context) ([]models.BookingProgress, error)
}

// TokenFunc returns the identity token to dial and fetch with.
type TokenFunc func() string

// Snapshot is what the browser sees.
type Snapshot struct {
	Progress     *models.BookingProgress `json:"progress,omitempty"`
	Presentation *Presentation           `json:"presentation,omitempty"`
	Connection   ReconnectState          `json:"connection"`
	Reconnecting bool                    `json:"reconnecting"`
}

type Config struct {
	URL     string
	Token   TokenFunc
	Source  Source
	Policy  Policy
	Dialer  Dialer
	Clock   Clock
	Timeout time.Duration // per dial
}

// Widget holds one session's progress connection. Inbound messages replace
// the snapshot wholesale; the widget never sends anything upstream.
type Widget struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu      sync.Mutex
	state   ReconnectState
	current *models.BookingProgress
	conn    Conn
	timer   Timer
	gen     uint64
	stopped bool
	subs    map[int]chan Snapshot
	nextSub int

	readers sync.WaitGroup
}

func NewWidget(cfg Config) *Widget {
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy
	}
	if cfg.Dialer == nil {
		cfg.Dialer = WebsocketDialer{}
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Token == nil {
		cfg.Token = func() string { return "" }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Widget{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		logger: utils.GetLogger(),
		state:  InitialState(),
		subs:   make(map[int]chan Snapshot),
	}
}

// Start shows the latest in-progress booking from the backend and then
// connects. ctx only bounds the initial fetch.
func (w *Widget) Start(ctx context.Context) {
	if w.cfg.Source != nil {
		list, err := w.cfg.Source.InProgress(api.WithToken(ctx, w.cfg.Token()))
		if err != nil {
			w.logger.Warn("failed to fetch in-progress bookings", zap.Error(err))
		} else if latest := models.LatestProgress(list); latest != nil {
			w.mu.Lock()
			if !w.stopped {
				w.current = latest
			}
			w.mu.Unlock()
			w.notify()
		}
	}
	w.connect()
}

func (w *Widget) dialURL() (string, error) {
	u, err := url.Parse(w.cfg.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", w.cfg.Token())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (w *Widget) connect() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.state = w.state.Dialing()
	w.gen++
	gen := w.gen
	w.mu.Unlock()
	w.notify()

	var conn Conn
	target, err := w.dialURL()
	if err == nil {
		dctx, cancel := context.WithTimeout(w.ctx, w.cfg.Timeout)
		conn, err = w.cfg.Dialer.Dial(dctx, target)
		cancel()
	}

	w.mu.Lock()
	if w.stopped || gen != w.gen {
		w.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		w.logger.Debug("progress socket dial failed", zap.Int("attempt", w.state.Attempt), zap.Error(err))
		w.closedLocked(false)
		w.mu.Unlock()
		w.notify()
		return
	}
	w.conn = conn
	w.state = w.state.Opened()
	w.readers.Add(1)
	w.mu.Unlock()
	w.notify()

	go w.readLoop(conn, gen)
}

func (w *Widget) readLoop(conn Conn, gen uint64) {
	defer w.readers.Done()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			if w.stopped || gen != w.gen {
				w.mu.Unlock()
				return
			}
			w.conn = nil
			w.closedLocked(wasClean(err))
			w.mu.Unlock()
			conn.Close()
			w.notify()
			return
		}
		w.handleMessage(data)
	}
}

// closedLocked applies a close and schedules the next dial if the state asks
// for one. w.mu must be held.
func (w *Widget) closedLocked(clean bool) {
	w.state = w.state.Closed(w.cfg.Policy, clean)
	switch {
	case w.state.ShouldReconnect():
		reconnectsScheduled.Inc()
		w.logger.Debug("progress socket reconnect scheduled",
			zap.Int("attempt", w.state.Attempt),
			zap.Duration("delay", w.state.Delay))
		w.timer = w.cfg.Clock.AfterFunc(w.state.Delay, w.connect)
	case w.state.GaveUp:
		reconnectGiveUps.Inc()
		w.logger.Warn("progress socket gave up reconnecting", zap.Int("attempts", w.state.Attempt))
	}
}

// wasClean follows browser semantics: only a close handshake that did not
// end in 1006 is clean. Dial and network errors are abnormal.
func wasClean(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code != websocket.CloseAbnormalClosure
	}
	return false
}

func (w *Widget) handleMessage(data []byte) {
	latest, err := parseMessage(data)
	if err != nil {
		malformedMessages.Inc()
		w.logger.Warn("dropping malformed progress message", zap.Error(err), zap.ByteString("payload", truncate(data, 256)))
		return
	}
	if latest == nil {
		return
	}
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.current = latest
	w.mu.Unlock()
	w.notify()
}

// parseMessage accepts one snapshot object or an array of them. An empty
// array yields nil.
func parseMessage(data []byte) (*models.BookingProgress, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty message")
	}
	switch trimmed[0] {
	case '[':
		var list []models.BookingProgress
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return models.LatestProgress(list), nil
	case '{':
		var p models.BookingProgress
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, errors.New("message is neither an object nor an array")
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// Snapshot returns the current view.
func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Widget) snapshotLocked() Snapshot {
	snap := Snapshot{
		Connection:   w.state,
		Reconnecting: w.state.Phase == PhaseBackoff || w.state.GaveUp,
	}
	if w.current != nil {
		p := *w.current
		pres := PresentationFor(p.BookingStatus)
		snap.Progress = &p
		snap.Presentation = &pres
	}
	return snap
}

// Dismiss hides a completed booking. It reports whether anything was hidden.
func (w *Widget) Dismiss() bool {
	w.mu.Lock()
	if w.current == nil || w.current.BookingStatus != models.BookingCompleted {
		w.mu.Unlock()
		return false
	}
	w.current = nil
	w.mu.Unlock()
	w.notify()
	return true
}

// Subscribe delivers every new snapshot; a slow subscriber only sees the latest.
func (w *Widget) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	ch <- w.snapshotLocked()
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			if _, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(ch)
			}
			w.mu.Unlock()
		})
	}
}

func (w *Widget) notify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	snap := w.snapshotLocked()
	for _, ch := range w.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// PendingReconnect reports whether a reconnect timer is armed.
func (w *Widget) PendingReconnect() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timer != nil
}

// Stop closes the socket, cancels any pending reconnect, clears the snapshot
// and waits for the reader goroutine to exit. Safe to call more than once.
func (w *Widget) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.cancel()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	conn := w.conn
	w.conn = nil
	w.current = nil
	w.state = InitialState()
	for id, ch := range w.subs {
		delete(w.subs, id)
		close(ch)
	}
	w.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	w.readers.Wait()
}
