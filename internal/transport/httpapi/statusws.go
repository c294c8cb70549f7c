// Package httpapi exposes the status stream over a transport external
// observers can attach to: one websocket handler that pushes
// AgentStatus snapshots to any connected client, with a keepalive
// ticker and a reader goroutine to detect disconnects.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nstogner/agentrt/internal/statusbus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StatusHandler upgrades to a websocket and streams bus's published
// AgentStatus snapshots until the client disconnects.
func StatusHandler(bus *statusbus.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("status websocket upgrade failed", "error", err)
			return
		}
		defer ws.Close()

		updates, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case status := <-updates:
				if err := ws.WriteJSON(status); err != nil {
					slog.Error("status websocket write failed", "error", err)
					return
				}
			case <-ticker.C:
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
