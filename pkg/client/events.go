package client

import (
	"encoding/json"
	"sync"
)

// EventKind names a server-pushed event.
type EventKind string

const (
	EventNewMessage       EventKind = "new_message"
	EventOntologyProgress EventKind = "ontology_progress"
	EventOntologyComplete EventKind = "ontology_complete"
	EventOntologyError    EventKind = "ontology_error"
	EventChatError        EventKind = "chat_error"
)

// Client-to-server event names.
const (
	eventJoinRoom    = "join_room"
	eventSendMessage = "send_message"
)

// EventHandler receives the event payload verbatim. Payload schemas are not
// validated here; routing is by event name only.
type EventHandler func(payload json.RawMessage)

// EventHandlers is the handler set registered at connect time.
type EventHandlers map[EventKind]EventHandler

// dispatcher maps event kinds to handler sets. Registration and removal are
// explicit, so wiring is testable without a live transport.
type dispatcher struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventKind]map[int]EventHandler
}

func newDispatcher() *dispatcher {
	return &dispatcher{handlers: make(map[EventKind]map[int]EventHandler)}
}

// subscribe registers h for kind and returns a removal function.
func (d *dispatcher) subscribe(kind EventKind, h EventHandler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handlers[kind] == nil {
		d.handlers[kind] = make(map[int]EventHandler)
	}
	id := d.nextID
	d.nextID++
	d.handlers[kind][id] = h

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers[kind], id)
	}
}

// dispatch invokes every handler registered for kind. Unregistered kinds are
// ignored, not an error.
func (d *dispatcher) dispatch(kind EventKind, payload json.RawMessage) {
	d.mu.RLock()
	handlers := make([]EventHandler, 0, len(d.handlers[kind]))
	for _, h := range d.handlers[kind] {
		handlers = append(handlers, h)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}

// clear drops every registration.
func (d *dispatcher) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = make(map[EventKind]map[int]EventHandler)
}
