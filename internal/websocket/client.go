package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ontology-chat/internal/dto"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// MessageHandler processes inbound send_message events. Implemented by the
// chat service; the hub stays transport-only.
type MessageHandler interface {
	HandleSendMessage(ctx context.Context, payload dto.SendMessagePayload)
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Inbound event routing target.
	Handler MessageHandler

	// Buffered channel of outbound messages.
	send chan []byte

	// room is the session id this socket joined, "" before join_room.
	roomMu sync.RWMutex
	room   string

	closeOnce sync.Once
}

func (c *Client) Room() string {
	c.roomMu.RLock()
	defer c.roomMu.RUnlock()
	return c.room
}

func (c *Client) setRoom(room string) {
	c.roomMu.Lock()
	c.room = room
	c.roomMu.Unlock()
}

func (c *Client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSendOnce() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Emit sends one event to this socket only (join acks, per-client errors).
func (c *Client) Emit(event string, payload interface{}) {
	data, err := encodeEnvelope(event, payload)
	if err != nil {
		return
	}
	c.trySend(data)
}

// readPump pumps inbound events from the websocket connection into the hub
// and the message handler.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.Hub.logger.Warn("WSClient", "Unexpected close", map[string]interface{}{"error": err.Error()})
			}
			break
		}
		c.route(data)
	}
}

func (c *Client) route(data []byte) {
	var env dto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.Emit(dto.EventChatError, dto.ErrorPayload{Error: "malformed event frame"})
		return
	}

	switch env.Event {
	case dto.EventJoinRoom:
		var payload dto.JoinRoomPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil || payload.SessionId == "" {
			c.Emit(dto.EventChatError, dto.ErrorPayload{Error: "join_room requires session_id"})
			return
		}
		c.Hub.Join(c, payload.SessionId)

	case dto.EventSendMessage:
		var payload dto.SendMessagePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			c.Emit(dto.EventChatError, dto.ErrorPayload{Error: "malformed send_message payload"})
			return
		}
		if payload.SessionId != c.Room() {
			// The socket may only speak for the session it joined.
			c.Emit(dto.EventChatError, dto.ErrorPayload{
				SessionId: payload.SessionId,
				Error:     "session_id does not match joined room",
			})
			return
		}
		if c.Handler != nil {
			go c.Handler.HandleSendMessage(context.Background(), payload)
		}

	default:
		// Unknown inbound events are ignored, mirroring the handler
		// contract on the client side.
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
