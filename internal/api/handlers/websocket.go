package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	ws "github.com/fhdsa/eventbridge/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dashboards may be served from another origin; CORS covers the REST API
		return true
	},
}

// WebSocketUpgrade returns a handler that upgrades HTTP connections to WebSocket.
func WebSocketUpgrade(hub *ws.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := ws.NewClient(hub)
		hub.Register(client)

		go writePump(conn, client)
		go readPump(conn, client, hub, logger)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func writePump(conn *websocket.Conn, client *ws.Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client commands until the connection drops.
func readPump(conn *websocket.Conn, client *ws.Client, hub *ws.Hub, logger *zap.Logger) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(65536)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			break
		}
		handleClientMessage(message, client, hub)
	}
}

// handleClientMessage answers pings; other commands get an error reply.
func handleClientMessage(message []byte, client *ws.Client, hub *ws.Hub) {
	var in ws.Message
	reply := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: "bad_request", Message: "invalid message"})
	if err := json.Unmarshal(message, &in); err == nil {
		switch in.Type {
		case ws.TypePing:
			reply = ws.NewMessage(ws.TypePong, nil)
		default:
			reply = ws.NewMessage(ws.TypeError, ws.ErrorPayload{
				Code:         "unknown_type",
				Message:      "unsupported message type",
				OriginalType: string(in.Type),
			})
		}
	}

	data, err := reply.JSON()
	if err != nil {
		return
	}
	hub.SendTo(client, data)
}
