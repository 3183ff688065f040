package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"furk/services/session"
	"furk/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var activeWidgets = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "furk_progress_active_widgets",
	Help: "Browser sessions with a running progress widget.",
})

// ManagerConfig is shared by every widget the manager creates.
type ManagerConfig struct {
	URL    string
	Policy Policy
	Source Source
	Dialer Dialer
	Clock  Clock
	// ReconcileInterval is how often running widgets are checked against the
	// store, catching sessions that expired without a cleared event.
	ReconcileInterval time.Duration
}

// DefaultReconcileInterval is used when ManagerConfig leaves it zero.
const DefaultReconcileInterval = time.Minute

// Manager keeps exactly one widget per authenticated session, started when
// the session is saved and stopped when it is cleared or no longer loads.
type Manager struct {
	cfg    ManagerConfig
	reader session.Reader
	logger *zap.Logger

	mu      sync.Mutex
	widgets map[string]*Widget
}

func NewManager(reader session.Reader, cfg ManagerConfig) *Manager {
	return &Manager{
		cfg:     cfg,
		reader:  reader,
		logger:  utils.GetLogger(),
		widgets: make(map[string]*Widget),
	}
}

// Run follows session events until ctx is done, then stops every widget.
// Between events it periodically reconciles widgets with the store.
func (m *Manager) Run(ctx context.Context) {
	events, unsubscribe := m.reader.Subscribe(64)
	defer unsubscribe()
	defer m.StopAll()

	interval := m.cfg.ReconcileInterval
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reconcile(ctx)
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case session.EventSaved:
				if ev.Role.Valid() {
					m.Ensure(ctx, ev.SessionID)
				}
			case session.EventCleared:
				m.Stop(ev.SessionID)
			}
		}
	}
}

// Ensure starts a widget for sid unless one is already running.
func (m *Manager) Ensure(ctx context.Context, sid string) *Widget {
	m.mu.Lock()
	if w, ok := m.widgets[sid]; ok {
		m.mu.Unlock()
		return w
	}
	w := NewWidget(Config{
		URL:    m.cfg.URL,
		Token:  m.tokenFor(sid),
		Source: m.cfg.Source,
		Policy: m.cfg.Policy,
		Dialer: m.cfg.Dialer,
		Clock:  m.cfg.Clock,
	})
	m.widgets[sid] = w
	m.mu.Unlock()

	activeWidgets.Inc()
	m.logger.Debug("starting progress widget", zap.String("sid", sid))
	go w.Start(context.WithoutCancel(ctx))
	return w
}

// tokenFor reads the current identity token on every dial so reconnects
// pick up refreshed tokens. A session that has gone away stops its widget.
func (m *Manager) tokenFor(sid string) TokenFunc {
	return func() string {
		s, err := m.reader.Load(context.Background(), sid)
		if err != nil || !s.Authenticated() {
			// Stop waits for the widget's reader, which may be our caller.
			go m.reconcileOne(context.Background(), sid)
			return ""
		}
		return s.IdentityToken
	}
}

// Reconcile stops every widget whose session no longer loads or no longer
// carries a login. Store errors other than a missing record leave the
// widget running.
func (m *Manager) Reconcile(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.widgets))
	for id := range m.widgets {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.reconcileOne(ctx, id)
	}
}

func (m *Manager) reconcileOne(ctx context.Context, sid string) {
	s, err := m.reader.Load(ctx, sid)
	switch {
	case errors.Is(err, session.ErrNotFound):
	case err != nil:
		m.logger.Warn("failed to load session for progress widget", zap.String("sid", sid), zap.Error(err))
		return
	case s.Authenticated():
		return
	}
	m.logger.Debug("session gone, stopping progress widget", zap.String("sid", sid))
	m.Stop(sid)
}

// Get returns the widget for sid, or nil.
func (m *Manager) Get(sid string) *Widget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.widgets[sid]
}

// Stop tears down the widget for sid, if any.
func (m *Manager) Stop(sid string) {
	m.mu.Lock()
	w, ok := m.widgets[sid]
	delete(m.widgets, sid)
	m.mu.Unlock()
	if ok {
		w.Stop()
		activeWidgets.Dec()
		m.logger.Debug("stopped progress widget", zap.String("sid", sid))
	}
}

func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.widgets))
	for id := range m.widgets {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Stop(id)
	}
}

// Active reports how many widgets are running.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.widgets)
}
