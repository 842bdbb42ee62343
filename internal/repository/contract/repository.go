package contract

import (
	"context"

	"ontology-chat/internal/entity"
)

// ChatHistoryRepository keeps the append-only message history per session.
type ChatHistoryRepository interface {
	Append(sessionID string, msg entity.ChatMessage)
	Get(sessionID string) []entity.ChatMessage
	Clear(sessionID string)
	Delete(sessionID string)
}

// OntologyStateRepository tracks the per-session ontology build state.
type OntologyStateRepository interface {
	Get(ctx context.Context, sessionID string) (*entity.OntologyState, error)
	Set(ctx context.Context, sessionID string, state *entity.OntologyState) error
	Delete(ctx context.Context, sessionID string) error
}
