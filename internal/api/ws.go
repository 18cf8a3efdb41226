package api

import (
	"context"
	"net/http"
	"time"

	"autoservice/internal/console"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The token is checked before the upgrade.
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsMessage struct {
	Type string           `json:"type"`
	Data console.Snapshot `json:"data"`
}

// handleWS pushes the session view whenever its model changes. Client
// messages are read only to notice pongs and disconnects. An open socket
// keeps the session alive, and the socket is closed once the session ends.
func (s *HTTPServer) handleWS(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	changed, stopWatch := session.Model.Watch()
	defer stopWatch()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		session.Touch()
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		session.Touch()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(wsMessage{Type: "snapshot", Data: session.Snapshot()})
	}

	if err := send(); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-session.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
			return
		case <-changed:
			if err := send(); err != nil {
				s.logger.Debug().Err(err).Str("session_id", session.ID).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
