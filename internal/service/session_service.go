package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ontology-chat/internal/dto"
	"ontology-chat/internal/entity"
	"ontology-chat/internal/pkg/logger"
	"ontology-chat/internal/repository/contract"
	"ontology-chat/pkg/events"
	pktNats "ontology-chat/pkg/nats"
	"ontology-chat/pkg/ontology"

	"github.com/google/uuid"
)

// ISessionService owns the server side of the session lifecycle: bootstrap,
// reset, info, history and the available-ontology listing.
type ISessionService interface {
	GetOrCreate(ctx context.Context, sessionID string) (*dto.GetSessionResponse, error)
	Reset(ctx context.Context, oldSessionID string) (*dto.ResetSessionResponse, error)
	Info(ctx context.Context, sessionID string) (*dto.SessionInfoResponse, error)
	History(ctx context.Context, sessionID string) (*dto.ChatHistoryResponse, error)
	ClearHistory(ctx context.Context, sessionID string) error
	AvailableMindmaps(ctx context.Context) (*dto.AvailableMindmapResponse, error)
}

type sessionService struct {
	historyRepo  contract.ChatHistoryRepository
	stateRepo    contract.OntologyStateRepository
	publisher    *pktNats.Publisher
	generatedDir string
	defaultDir   string
	logger       logger.ILogger
}

func NewSessionService(
	historyRepo contract.ChatHistoryRepository,
	stateRepo contract.OntologyStateRepository,
	publisher *pktNats.Publisher,
	generatedDir string,
	defaultDir string,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		historyRepo:  historyRepo,
		stateRepo:    stateRepo,
		publisher:    publisher,
		generatedDir: generatedDir,
		defaultDir:   defaultDir,
		logger:       log,
	}
}

func (s *sessionService) GetOrCreate(ctx context.Context, sessionID string) (*dto.GetSessionResponse, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
		s.logger.Info("SessionService", "Created session", map[string]interface{}{"session_id": sessionID})
	}

	state, err := s.stateRepo.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("SessionService", "Ontology state unavailable", map[string]interface{}{"error": err.Error()})
	}

	status, hasNew := statusOf(state)
	return &dto.GetSessionResponse{
		SessionId:      sessionID,
		HasNewOntology: hasNew,
		OntologyStatus: status,
	}, nil
}

func (s *sessionService) Reset(ctx context.Context, oldSessionID string) (*dto.ResetSessionResponse, error) {
	newSessionID := uuid.NewString()

	if oldSessionID != "" {
		s.cleanup(ctx, oldSessionID)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewSessionReset(oldSessionID, newSessionID)); err != nil {
			s.logger.Warn("SessionService", "Failed to publish reset event", map[string]interface{}{"error": err.Error()})
		}
	}

	s.logger.Info("SessionService", "Session reset", map[string]interface{}{
		"old_session_id": oldSessionID,
		"new_session_id": newSessionID,
	})
	return &dto.ResetSessionResponse{SessionId: newSessionID}, nil
}

// cleanup discards everything the old session accumulated: history, ontology
// state and generated ontology files.
func (s *sessionService) cleanup(ctx context.Context, sessionID string) {
	s.historyRepo.Delete(sessionID)

	if err := s.stateRepo.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("SessionService", "Failed to delete ontology state", map[string]interface{}{"error": err.Error()})
	}

	pattern := filepath.Join(s.generatedDir, sessionID+"_*.owl")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			s.logger.Warn("SessionService", "Failed to remove generated ontology", map[string]interface{}{"path": m, "error": err.Error()})
		}
	}
}

func (s *sessionService) Info(ctx context.Context, sessionID string) (*dto.SessionInfoResponse, error) {
	state, err := s.stateRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read ontology state: %w", err)
	}

	status, hasNew := statusOf(state)
	resp := &dto.SessionInfoResponse{
		SessionId:      sessionID,
		HasNewOntology: hasNew,
		OntologyStatus: status,
	}
	if state != nil {
		resp.OntologyPath = state.Path
	}
	return resp, nil
}

func (s *sessionService) History(_ context.Context, sessionID string) (*dto.ChatHistoryResponse, error) {
	history := s.historyRepo.Get(sessionID)
	if history == nil {
		history = []entity.ChatMessage{}
	}
	return &dto.ChatHistoryResponse{SessionId: sessionID, History: history}, nil
}

func (s *sessionService) ClearHistory(_ context.Context, sessionID string) error {
	s.historyRepo.Clear(sessionID)
	return nil
}

func (s *sessionService) AvailableMindmaps(_ context.Context) (*dto.AvailableMindmapResponse, error) {
	refs, err := ontology.ListAvailable(s.defaultDir)
	if err != nil {
		return nil, fmt.Errorf("list available ontologies: %w", err)
	}

	mindmaps := make([]entity.OntologyRef, 0, len(refs))
	for _, r := range refs {
		mindmaps = append(mindmaps, entity.OntologyRef{Name: r.Name, Path: r.Path})
	}
	return &dto.AvailableMindmapResponse{Mindmaps: mindmaps}, nil
}

func statusOf(state *entity.OntologyState) (status string, hasNew bool) {
	if state == nil {
		return entity.OntologyStatusNone, false
	}
	return state.Status, state.Status == entity.OntologyStatusReady
}
