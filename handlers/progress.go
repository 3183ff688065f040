package handlers

import (
	"net/http"
	"time"

	"furk/middleware"
	"furk/services/progress"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pushWriteWait  = 10 * time.Second
	pushPongWait   = 60 * time.Second
	pushPingPeriod = (pushPongWait * 9) / 10
)

// ProgressHandler exposes the session's progress widget to the browser.
type ProgressHandler struct {
	Manager  *progress.Manager
	Upgrader websocket.Upgrader
}

func NewProgressHandler(m *progress.Manager, allowedOrigins []string) *ProgressHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &ProgressHandler{
		Manager: m,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin] || allowed["*"]
			},
		},
	}
}

func (h *ProgressHandler) widget(c *gin.Context) *progress.Widget {
	return h.Manager.Ensure(c.Request.Context(), middleware.SessionID(c))
}

// Snapshot handles GET /api/progress.
func (h *ProgressHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.widget(c).Snapshot())
}

// Dismiss handles POST /api/progress/dismiss.
func (h *ProgressHandler) Dismiss(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dismissed": h.widget(c).Dismiss()})
}

// Stream handles GET /ws/progress: every snapshot change is pushed to the
// browser until either side goes away or the session ends.
func (h *ProgressHandler) Stream(c *gin.Context) {
	logger := getLogger(c)
	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("progress stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.widget(c).Subscribe()
	defer unsubscribe()

	// reader: only needed to process control frames and notice the close
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pushPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pushPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pushPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			conn.SetWriteDeadline(time.Now().Add(pushWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				logger.Debug("progress stream write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(pushWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
