package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/pkg/log"
)

const liveWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type liveHandler struct {
	feed   core.LiveFeed
	logger log.Logger
}

// follow streams the live telemetry of one vehicle over a websocket, one
// text frame per announcement.
func (h *liveHandler) follow(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Live feed is not enabled")
		return
	}
	vehicleID := mux.Vars(r)["vehicleId"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Debug("Websocket upgrade failed", "vehicleID", vehicleID, "error", err.Error())
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Clients never send data; reading only notices when they go away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	h.logger.Info("Live feed opened", "vehicleID", vehicleID)
	err = h.feed.Follow(ctx, vehicleID, func(payload []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		return conn.WriteMessage(websocket.TextMessage, payload)
	})
	if err != nil && ctx.Err() == nil {
		h.logger.Warn("Live feed stopped", "vehicleID", vehicleID, "error", err.Error())
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	h.logger.Info("Live feed closed", "vehicleID", vehicleID)
}
