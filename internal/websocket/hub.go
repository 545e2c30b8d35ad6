package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hmo-assistant-be/internal/pkg/logger"
)

const clusterChannel = "hmo:session_events"

// Frame is every message the server writes to a chat socket.
type Frame struct {
	Type string      `json:"type"` // "reply", "error" or "session_closed"
	Data interface{} `json:"data"`
}

type clusterMessage struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

// Hub tracks chat sockets by session so server-side events (expiry, deletion)
// reach every socket of that session, on this instance or, through Redis, on others.
type Hub struct {
	// Registered clients map: SessionID -> sockets (several tabs may share a session)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb      redis.UniversalClient
	instance string

	logger logger.ILogger
}

func NewHub(rdb redis.UniversalClient, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instance:   uuid.NewString(),
		logger:     log,
	}
}

// Run serves registrations until ctx is done, then closes every socket.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.clients {
				for _, c := range clients {
					close(c.closed)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = append(h.clients[client.sessionID], client)
			h.mu.Unlock()
			h.logger.Info("WS", "Client registered", map[string]interface{}{"session_id": client.sessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.sessionID]
			for i, c := range clients {
				if c == client {
					h.clients[client.sessionID] = append(clients[:i], clients[i+1:]...)
					close(client.closed)
					break
				}
			}
			if len(h.clients[client.sessionID]) == 0 {
				delete(h.clients, client.sessionID)
			}
			h.mu.Unlock()
			h.logger.Info("WS", "Client unregistered", map[string]interface{}{"session_id": client.sessionID})
		}
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Clients returns how many sockets are attached to sessionID on this instance.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// CloseSession tells every socket of the session that it is gone.
func (h *Hub) CloseSession(ctx context.Context, sessionID, reason string) {
	data, err := json.Marshal(Frame{Type: "session_closed", Data: map[string]string{"session_id": sessionID, "reason": reason}})
	if err != nil {
		return
	}
	h.deliver(sessionID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.instance, SessionID: sessionID, Message: data})
		if err := h.rdb.Publish(ctx, clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("WS", "Failed to publish to cluster", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliver(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[sessionID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("WS", "Client send buffer full, dropping frame", map[string]interface{}{"session_id": sessionID})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("WS", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			// our own publish, already delivered locally
			if payload.Origin == h.instance {
				continue
			}
			h.deliver(payload.SessionID, payload.Message)
		}
	}
}
