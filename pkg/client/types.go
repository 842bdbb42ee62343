// Package client is the session-synchronization core for the ontology chat
// service. It reconciles state obtained over request/response calls with
// state delivered on the push channel, keeping one logical session
// consistently addressed across both.
package client

import "time"

// Ontology status values mirrored from the server.
const (
	OntologyStatusNone       = "none"
	OntologyStatusProcessing = "processing"
	OntologyStatusReady      = "ready"
	OntologyStatusError      = "error"
)

// Chat modes accepted by send_message.
const (
	ModeDefaultOntology = "default-ontology"
	ModeNewOntology     = "new-ontology"
)

// Session is the client's view of the server-tracked session. ID is opaque:
// it is forwarded, never parsed.
type Session struct {
	ID             string `json:"session_id"`
	HasNewOntology bool   `json:"has_new_ontology"`
	OntologyStatus string `json:"ontology_status"`
	OntologyPath   string `json:"ontology_path,omitempty"`
}

// ChatMessage is one entry of the server-authoritative history.
type ChatMessage struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// OntologyRef names a prebuilt ontology offered by the server.
type OntologyRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// OntologyProgress is the decoded shape of ontology_progress payloads.
// Percent is 0..100 as sent by the server.
type OntologyProgress struct {
	SessionID string `json:"session_id"`
	Percent   int    `json:"percent"`
	Stage     string `json:"stage"`
	Message   string `json:"message,omitempty"`
}

// UploadResult acknowledges an accepted document upload. Completion is only
// observable on the push channel.
type UploadResult struct {
	Accepted  bool   `json:"accepted"`
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
}
