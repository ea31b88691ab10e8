package handlers

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/services"
	"github.com/gorilla/websocket"
)

const (
	wsPingInterval = 30 * time.Second
	wsReadTimeout  = 90 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var recoveryUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The bridge only listens on localhost; CORS covers HTTP callers.
		return true
	},
}

// StatusEvent is a message on the /ws/recovery stream.
type StatusEvent struct {
	Type   string                  `json:"type"` // "status"
	Status services.RecoveryStatus `json:"status"`
}

// RecoveryWebSocket streams recovery status changes. The current status is
// sent right after the upgrade.
func (a *API) RecoveryWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := recoveryUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates, unsubscribe := a.App.Recovery.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})

	// Reader loop: only keeps the read deadline moving and notices close
	go func() {
		defer close(done)
		conn.SetReadLimit(4 * 1024)
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(v)
	}

	if err := send(StatusEvent{Type: "status", Status: a.App.Recovery.Status()}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := send(StatusEvent{Type: "status", Status: st}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
