package client

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ChannelState tracks the push connection lifecycle.
type ChannelState string

const (
	StateDisconnected ChannelState = "disconnected"
	StateConnecting   ChannelState = "connecting"
	StateJoined       ChannelState = "joined"
	StateRebinding    ChannelState = "rebinding"
)

// envelope is the wire frame for push events, both directions.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Channel maintains at most one live push connection bound to one
// session-scoped room and routes named server events to registered handlers.
//
// The join request is sent only after the transport dial completes: the room
// identity is session data the raw transport knows nothing about, and
// joining on the transport's ready signal keeps sends from racing ahead of
// room registration.
type Channel struct {
	wsURL  string
	dialer *websocket.Dialer

	mu         sync.Mutex
	state      ChannelState
	conn       *websocket.Conn
	room       string
	generation int

	writeMu sync.Mutex

	events       *dispatcher
	onDisconnect func(error)
}

// NewChannel builds a push channel against wsURL (ws:// or wss://). jar may
// be nil; when set, the session cookie rides along on the handshake.
func NewChannel(wsURL string, jar http.CookieJar) *Channel {
	return &Channel{
		wsURL: wsURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Jar:              jar,
		},
		state:  StateDisconnected,
		events: newDispatcher(),
	}
}

// WebsocketURL derives the push endpoint from the HTTP base address.
func WebsocketURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/ws"
}

// State returns the current connection state.
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Room returns the session id this binding joined, or "" when unbound.
func (c *Channel) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateJoined && c.state != StateRebinding {
		return ""
	}
	return c.room
}

// OnDisconnect registers fn to run when the transport drops unexpectedly.
func (c *Channel) OnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// Connect opens the transport and joins the room for sessionID. An existing
// connection is torn down first, so two live connections can never coexist.
// handlers replaces any previous registration set.
func (c *Channel) Connect(sessionID string, handlers EventHandlers) error {
	c.mu.Lock()
	if c.conn != nil {
		c.teardownLocked()
	}
	c.state = StateConnecting
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	conn, resp, err := c.dialer.Dial(c.wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		return &NetworkError{Op: "push channel dial", Err: err}
	}

	c.mu.Lock()
	if c.generation != gen {
		// A competing Connect or Disconnect superseded this dial.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.room = sessionID
	c.events.clear()
	for kind, h := range handlers {
		c.events.subscribe(kind, h)
	}
	c.mu.Unlock()

	// Transport is up; bind the room before anything may be sent.
	if err := c.writeEnvelope(conn, eventJoinRoom, map[string]string{"session_id": sessionID}); err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.teardownLocked()
		}
		c.mu.Unlock()
		return &NetworkError{Op: "join room", Err: err}
	}

	c.mu.Lock()
	if c.generation == gen {
		c.state = StateJoined
	}
	c.mu.Unlock()

	go c.readLoop(conn, gen)
	return nil
}

// Subscribe adds a handler for kind on top of the connect-time set and
// returns its removal function.
func (c *Channel) Subscribe(kind EventKind, h EventHandler) func() {
	return c.events.subscribe(kind, h)
}

// SendChatMessage emits a send_message event for sessionID. The connection
// must be joined; otherwise ErrNotConnected is returned and the transport is
// left untouched.
func (c *Channel) SendChatMessage(text, mode, sessionID string) error {
	c.mu.Lock()
	if c.state != StateJoined || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	if err := c.writeEnvelope(conn, eventSendMessage, map[string]string{
		"session_id": sessionID,
		"message":    text,
		"mode":       mode,
	}); err != nil {
		return &NetworkError{Op: "send message", Err: err}
	}
	return nil
}

// Rebind moves a joined binding to a new session room without re-dialing.
func (c *Channel) Rebind(newSessionID string) error {
	c.mu.Lock()
	if c.state != StateJoined || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.state = StateRebinding
	conn := c.conn
	c.mu.Unlock()

	if err := c.writeEnvelope(conn, eventJoinRoom, map[string]string{"session_id": newSessionID}); err != nil {
		c.mu.Lock()
		c.teardownLocked()
		c.mu.Unlock()
		return &NetworkError{Op: "rebind room", Err: err}
	}

	c.mu.Lock()
	c.room = newSessionID
	c.state = StateJoined
	c.mu.Unlock()
	return nil
}

// Disconnect closes the transport and releases every handler registration.
// Safe to call when already disconnected.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.teardownLocked()
}

// teardownLocked requires c.mu held.
func (c *Channel) teardownLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.room = ""
	c.state = StateDisconnected
	c.events.clear()
}

func (c *Channel) writeEnvelope(conn *websocket.Conn, event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(envelope{Event: event, Payload: raw})
}

func (c *Channel) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			current := c.generation == gen
			var onDisconnect func(error)
			if current {
				c.conn = nil
				c.room = ""
				c.state = StateDisconnected
				onDisconnect = c.onDisconnect
			}
			c.mu.Unlock()

			if onDisconnect != nil {
				onDisconnect(err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		c.events.dispatch(EventKind(env.Event), env.Payload)
	}
}
