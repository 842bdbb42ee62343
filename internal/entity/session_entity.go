package entity

import "time"

// Ontology lifecycle status for a session.
const (
	OntologyStatusNone       = "none"
	OntologyStatusProcessing = "processing"
	OntologyStatusReady      = "ready"
	OntologyStatusError      = "error"
)

// Session correlates a browser tab's uploads, chat history and ontology state.
// The Id is an opaque token: clients forward it, never parse it.
type Session struct {
	Id             string `json:"session_id"`
	HasNewOntology bool   `json:"has_new_ontology"`
	OntologyStatus string `json:"ontology_status"`
	OntologyPath   string `json:"ontology_path,omitempty"`
	CreatedAt      time.Time
}

// OntologyState is the per-session processing state kept in Redis.
type OntologyState struct {
	Status    string `json:"status"`
	Path      string `json:"path,omitempty"`
	JobId     string `json:"job_id,omitempty"`
	Error     string `json:"error,omitempty"`
	UpdatedAt int64  `json:"updated_at"`
}

// OntologyRef points at a prebuilt ontology available to every session.
type OntologyRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}
