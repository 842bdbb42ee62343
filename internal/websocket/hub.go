package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ontology-chat/internal/dto"
	"ontology-chat/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

// Hub owns the session rooms. A room is the set of sockets that joined one
// session id; push events for a session are delivered only to its room.
type Hub struct {
	// rooms map: session id -> sockets joined to that session
	rooms map[string][]*Client

	// Unregister requests from client pumps.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance room fan-out. May be nil.
	rdb *redis.Client

	// instanceID lets the Redis subscriber skip messages this instance
	// already delivered locally.
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		unregister: make(chan *Client),
		rooms:      make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for client := range h.unregister {
		h.leaveRoom(client)
		client.closeSendOnce()
	}
}

// Join binds client to the room for sessionID, leaving any previous room
// first. Called from the client's read loop on join_room, and again on
// rebind after a session reset.
func (h *Hub) Join(client *Client, sessionID string) {
	h.leaveRoom(client)
	client.setRoom(sessionID)

	h.mu.Lock()
	h.rooms[sessionID] = append(h.rooms[sessionID], client)
	h.mu.Unlock()

	h.logger.Info("Hub", "Client joined room", map[string]interface{}{"session_id": sessionID})
}

func (h *Hub) leaveRoom(client *Client) {
	room := client.Room()
	if room == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[room]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.rooms[room] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
		h.logger.Info("Hub", "Room emptied", map[string]interface{}{"session_id": room})
	}
}

// EmitToRoom delivers a named event to every socket joined to sessionID,
// locally and via Redis to other instances.
func (h *Hub) EmitToRoom(sessionID string, event string, payload interface{}) {
	data, err := encodeEnvelope(event, payload)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode event", map[string]interface{}{"event": event, "error": err.Error()})
		return
	}

	h.deliverLocal(sessionID, data)

	if h.rdb != nil {
		wrapped, _ := json.Marshal(map[string]interface{}{
			"origin":  h.instanceID,
			"room":    sessionID,
			"message": json.RawMessage(data),
		})
		if err := h.rdb.Publish(context.Background(), clusterChannel, wrapped).Err(); err != nil {
			h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliverLocal(room string, data []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.rooms[room]...)
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.trySend(data) {
			h.logger.Warn("Hub", "Client send buffer full, dropping socket", map[string]interface{}{"session_id": room})
			h.leaveRoom(client)
			client.closeSendOnce()
		}
	}
}

// RoomSize reports how many sockets are joined to sessionID.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			Origin  string          `json:"origin"`
			Room    string          `json:"room"`
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instanceID {
			continue
		}
		h.deliverLocal(payload.Room, payload.Message)
	}
}

func encodeEnvelope(event string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dto.Envelope{Event: event, Payload: raw})
}
