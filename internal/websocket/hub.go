package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"prior-auth-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Frame is the typed envelope pushed to case watchers.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Hub struct {
	// Registered clients map: CaseID -> watchers (a case may be open in
	// several review sessions at once)
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance fan-out
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.CaseID] = append(h.clients[client.CaseID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Watcher attached", map[string]interface{}{
				"case_id": client.CaseID, "user_id": client.UserID,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.CaseID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.CaseID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.CaseID]) == 0 {
					delete(h.clients, client.CaseID)
					h.logger.Info("Hub", "Case has no watchers left", map[string]interface{}{"case_id": client.CaseID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send pushes a frame to every watcher of the case, locally and (via Redis)
// on any other instance holding watchers for it.
func (h *Hub) Send(caseID uuid.UUID, frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Hub", "Frame marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliverLocal(caseID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_case_id": caseID.String(),
			"message":        json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), "cluster_events", payload)
	}
}

// Broadcast pushes a frame to every connected watcher regardless of case.
func (h *Hub) Broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Hub", "Frame marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	for _, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				close(client.Send)
				h.unregister <- client
			}
		}
	}
	h.mu.RUnlock()

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_case_id": "*",
			"message":        json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), "cluster_events", payload)
	}
}

func (h *Hub) deliverLocal(caseID uuid.UUID, data []byte) {
	h.mu.RLock()
	clients, found := h.clients[caseID]
	h.mu.RUnlock()
	if !found {
		return
	}

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Watcher buffer full, dropping connection", map[string]interface{}{
				"case_id": caseID, "user_id": client.UserID,
			})
			close(client.Send)
			h.unregister <- client
		}
	}
}

// subscribeToRedis delivers frames published by other instances. Every
// instance listens on the shared channel and filters for cases it holds
// watchers for locally.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetCaseID string          `json:"target_case_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		if payload.TargetCaseID == "*" {
			h.mu.RLock()
			for _, clients := range h.clients {
				for _, client := range clients {
					select {
					case client.Send <- payload.Message:
					default:
						close(client.Send)
						h.unregister <- client
					}
				}
			}
			h.mu.RUnlock()
			continue
		}

		caseID, err := uuid.Parse(payload.TargetCaseID)
		if err != nil {
			continue
		}
		h.deliverLocal(caseID, payload.Message)
	}
}
