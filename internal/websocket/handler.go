package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a chat socket to sessionID and blocks until it closes.
func ServeWs(ctx context.Context, hub *Hub, conn *websocket.Conn, sessionID string, handle TurnFunc) {
	client := &Client{hub: hub, conn: conn, sessionID: sessionID, send: make(chan []byte, 16), closed: make(chan struct{})}
	if !hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump(ctx, handle) // Run readPump in current goroutine (handler)
}
