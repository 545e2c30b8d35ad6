package websocket

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// TurnFunc answers one text frame of a session with the frame to send back.
type TurnFunc func(ctx context.Context, sessionID, text string) []byte

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	sessionID string

	// Buffered channel of outbound messages. Never closed; closed signals the end.
	send   chan []byte
	closed chan struct{}
}

// readPump turns every text frame into a conversation turn. Turns of one
// socket run one after another.
func (c *Client) readPump(ctx context.Context, handle TurnFunc) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WS", "Unexpected close", map[string]interface{}{
					"session_id": c.sessionID,
					"error":      err.Error(),
				})
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		reply := handle(ctx, c.sessionID, string(data))
		// pongs are not read while a turn runs
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case c.send <- reply:
		case <-c.closed:
			return
		default:
			c.hub.logger.Warn("WS", "Client send buffer full, dropping reply", map[string]interface{}{"session_id": c.sessionID})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			// one JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
