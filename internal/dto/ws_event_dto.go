package dto

import "encoding/json"

// Push-channel event names. Client to server.
const (
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
)

// Server to client.
const (
	EventNewMessage       = "new_message"
	EventOntologyProgress = "ontology_progress"
	EventOntologyComplete = "ontology_complete"
	EventOntologyError    = "ontology_error"
	EventChatError        = "chat_error"
)

// Chat modes carried by send_message.
const (
	ModeDefaultOntology = "default-ontology"
	ModeNewOntology     = "new-ontology"
)

// Envelope is the wire frame for every push-channel event, both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type JoinRoomPayload struct {
	SessionId string `json:"session_id"`
}

type SendMessagePayload struct {
	SessionId string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
	Mode      string `json:"mode" validate:"required,oneof=default-ontology new-ontology"`
}

type NewMessagePayload struct {
	SessionId string `json:"session_id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type OntologyProgressPayload struct {
	SessionId string `json:"session_id"`
	Percent   int    `json:"percent"`
	Stage     string `json:"stage"`
	Message   string `json:"message,omitempty"`
}

type OntologyCompletePayload struct {
	SessionId    string `json:"session_id"`
	OntologyPath string `json:"ontology_path"`
}

type ErrorPayload struct {
	SessionId string `json:"session_id,omitempty"`
	Error     string `json:"error"`
}
