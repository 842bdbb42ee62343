package dto

import "ontology-chat/internal/entity"

type GetSessionResponse struct {
	SessionId      string `json:"session_id"`
	HasNewOntology bool   `json:"has_new_ontology"`
	OntologyStatus string `json:"ontology_status"`
	Message        string `json:"message,omitempty"`
}

type ResetSessionResponse struct {
	SessionId string `json:"session_id"`
}

type SessionInfoResponse struct {
	SessionId      string `json:"session_id"`
	HasNewOntology bool   `json:"has_new_ontology"`
	OntologyStatus string `json:"ontology_status"`
	OntologyPath   string `json:"ontology_path,omitempty"`
}

type ChatHistoryResponse struct {
	SessionId string               `json:"session_id"`
	History   []entity.ChatMessage `json:"history"`
}

type AvailableMindmapResponse struct {
	Mindmaps []entity.OntologyRef `json:"mindmaps"`
}
