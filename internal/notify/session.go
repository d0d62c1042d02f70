package notify

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/internal/logger"
)

// Serve registers ws under userID and blocks until the client goes away.
// The connection is unregistered and closed on return.
func (h *Hub) Serve(userID uint, ws *websocket.Conn) {
	conn := NewWSConn(ws)
	log := logger.WithFields(logrus.Fields{"user_id": userID})

	ws.SetReadLimit(maxMessageSize)
	if err := ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.WithError(err).Warn("Failed to set initial read deadline")
		ws.Close()
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.Register(userID, conn)
	log.Debug("WebSocket connection registered")

	done := make(chan struct{})

	defer func() {
		close(done)
		h.Unregister(userID, conn)
		conn.Close()
		log.Debug("WebSocket connection closed")
	}()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					log.WithError(err).Debug("Ping failed")
					return
				}
			}
		}
	}()

	for {
		// Clients never send anything meaningful; reading drives pong
		// handling and close detection.
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.WithError(err).Info("WebSocket closed unexpectedly")
			}
			return
		}
	}
}
