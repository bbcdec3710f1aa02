package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kjstillabower/infohub/internal/dashboard"
	"github.com/kjstillabower/infohub/internal/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// streamMessage is pushed on every dashboard change. HTML is the rendered
// panel so the page never duplicates the templates.
type streamMessage struct {
	View dashboard.View `json:"view"`
	HTML string         `json:"html"`
}

// Stream handles GET /ws. It sends the current view on connect and again
// after every change until the client leaves, the session ends or the
// server shuts down. Pings keep the session from going idle.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	observability.StreamConnections.Inc()
	defer observability.StreamConnections.Dec()
	logger.Debug("stream opened")

	dirty := make(chan struct{}, 1)
	dirty <- struct{}{}
	unsubscribe := ref.dash.Subscribe(func(dashboard.View) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	gone := make(chan struct{})
	go readPump(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-dirty:
			if err := h.sendView(conn, ref.dash); err != nil {
				logger.Debug("stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if ref.dash.Closed() {
				closeStream(conn, websocket.CloseGoingAway, "session ended")
				return
			}
			h.registry.Touch(ref.id)
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			logger.Debug("stream closed by client")
			return
		case <-h.streams.Done():
			closeStream(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func (h *Handler) sendView(conn *websocket.Conn, d *dashboard.Dashboard) error {
	data := newPageData(d)
	html, err := h.renderPanel(data)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(streamMessage{View: data.View, HTML: html})
}

// readPump drains client frames so pongs and close frames are processed,
// and closes gone when the connection fails.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeStream(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
