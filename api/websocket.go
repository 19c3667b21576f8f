package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seenimoa/marketpulse/pkg/models"
	"github.com/seenimoa/marketpulse/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS origins are enforced on the REST routes only
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// selectPayload is the data of a client "select" message.
type selectPayload struct {
	Country string `json:"country"`
	Symbol  string `json:"symbol"`
}

// handleWebSocket upgrades the connection and streams every orchestrator
// notification to it. Clients may send "ping", "refresh" and "select".
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewWSClient(s.wsHub)
	if !client.hub.Register(client) {
		conn.Close()
		return
	}

	replies := make(chan WSMessage, 8)
	go wsWritePump(conn, client, replies)
	go s.wsReadPump(conn, client, replies)
}

// wsReadPump reads client commands until the connection fails.
func (s *Server) wsReadPump(conn *websocket.Conn, client *WSClient, replies chan<- WSMessage) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		client.hub.Unregister(client)
		close(replies)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Str("client", client.id).Msg("websocket read error")
			}
			return
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data,omitempty"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "ping":
			select {
			case replies <- WSMessage{Type: MsgPong}:
			default:
			}
		case "refresh":
			// Results reach every client through the hub.
			go s.orch.Refresh(ctx, true) //nolint:errcheck
		case "select":
			var p selectPayload
			if err := json.Unmarshal(msg.Data, &p); err != nil {
				continue
			}
			country := models.Country(strings.ToUpper(strings.TrimSpace(p.Country)))
			symbol := strings.TrimSpace(p.Symbol)
			if symbol != "" {
				symbol = utils.NormalizeSymbol(symbol)
			}
			go s.orch.Select(ctx, country, symbol) //nolint:errcheck
		}
	}
}

// wsWritePump writes hub broadcasts and direct replies to the connection.
func wsWritePump(conn *websocket.Conn, client *WSClient, replies <-chan WSMessage) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	write := func(msg WSMessage) bool {
		data, err := json.Marshal(msg)
		if err != nil {
			return true
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data) == nil
	}

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !write(msg) {
				return
			}

		case msg, ok := <-replies:
			if !ok {
				return
			}
			if !write(msg) {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
