package broadcast

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // overlay pages are served from other origins
	},
}

// wsSubscriber writes snapshots as text frames. The hub serializes calls to Send.
type wsSubscriber struct {
	conn *websocket.Conn
}

func (s *wsSubscriber) Send(payload []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *wsSubscriber) Close() error {
	return s.conn.Close()
}

// Handler upgrades the request and keeps the client subscribed until it disconnects.
// Anything the client sends is ignored.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
			return
		}

		id, err := hub.Subscribe(&wsSubscriber{conn: conn})
		if err != nil {
			hub.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Subscribe failed")
			return
		}
		defer hub.Unsubscribe(id)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
