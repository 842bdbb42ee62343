package service

import (
	"context"
	"time"

	"ontology-chat/internal/dto"
	"ontology-chat/internal/entity"
	"ontology-chat/internal/pkg/logger"
	"ontology-chat/internal/repository/contract"
	"ontology-chat/pkg/llm"
	"ontology-chat/pkg/ontology"
)

const answerSystemPrompt = `You are a study assistant. Answer strictly from the
mindmap outline below. When the outline does not cover the question, say so
briefly instead of inventing an answer.

Mindmap outline:
`

// Number of trailing history messages replayed to the model.
const historyWindow = 10

// IChatService answers send_message events arriving on the push channel.
// It implements websocket.MessageHandler.
type IChatService interface {
	HandleSendMessage(ctx context.Context, payload dto.SendMessagePayload)
}

type chatService struct {
	historyRepo     contract.ChatHistoryRepository
	stateRepo       contract.OntologyStateRepository
	llmProvider     llm.LLMProvider
	emitter         RoomEmitter
	defaultOntology string
	logger          logger.ILogger
}

func NewChatService(
	historyRepo contract.ChatHistoryRepository,
	stateRepo contract.OntologyStateRepository,
	llmProvider llm.LLMProvider,
	emitter RoomEmitter,
	defaultOntology string,
	log logger.ILogger,
) IChatService {
	return &chatService{
		historyRepo:     historyRepo,
		stateRepo:       stateRepo,
		llmProvider:     llmProvider,
		emitter:         emitter,
		defaultOntology: defaultOntology,
		logger:          log,
	}
}

func (s *chatService) HandleSendMessage(ctx context.Context, payload dto.SendMessagePayload) {
	sessionID := payload.SessionId

	ontoPath, err := s.resolveOntology(ctx, sessionID, payload.Mode)
	if err != nil {
		s.chatError(sessionID, err.Error())
		return
	}

	userMsg := entity.ChatMessage{
		Role:      entity.ChatRoleUser,
		Text:      payload.Message,
		Timestamp: time.Now(),
	}
	s.historyRepo.Append(sessionID, userMsg)
	s.emitNewMessage(sessionID, userMsg)

	answer, err := s.answer(ctx, sessionID, ontoPath, payload.Message)
	if err != nil {
		s.logger.Error("ChatService", "Answer generation failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		s.chatError(sessionID, "failed to generate an answer")
		return
	}

	assistantMsg := entity.ChatMessage{
		Role:      entity.ChatRoleAssistant,
		Text:      answer,
		Timestamp: time.Now(),
	}
	s.historyRepo.Append(sessionID, assistantMsg)
	s.emitNewMessage(sessionID, assistantMsg)
}

// resolveOntology maps the chat mode to an ontology file. new-ontology is
// only usable once the session's build reached ready.
func (s *chatService) resolveOntology(ctx context.Context, sessionID, mode string) (string, error) {
	switch mode {
	case dto.ModeDefaultOntology:
		return s.defaultOntology, nil

	case dto.ModeNewOntology:
		state, err := s.stateRepo.Get(ctx, sessionID)
		if err != nil {
			return "", err
		}
		if state == nil || state.Status != entity.OntologyStatusReady {
			return "", errNoReadyOntology
		}
		return state.Path, nil

	default:
		return "", errUnknownMode
	}
}

func (s *chatService) answer(ctx context.Context, sessionID, ontoPath, question string) (string, error) {
	onto, err := ontology.Load(ontoPath)
	if err != nil {
		return "", err
	}

	history := s.historyRepo.Get(sessionID)
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := []llm.Message{{
		Role:    "system",
		Content: answerSystemPrompt + onto.Explication(),
	}}
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Text})
	}

	return s.llmProvider.Chat(ctx, messages, llm.WithTemperature(0.3))
}

func (s *chatService) emitNewMessage(sessionID string, msg entity.ChatMessage) {
	s.emitter.EmitToRoom(sessionID, dto.EventNewMessage, dto.NewMessagePayload{
		SessionId: sessionID,
		Role:      msg.Role,
		Text:      msg.Text,
		Timestamp: msg.Timestamp.Format(time.RFC3339),
	})
}

func (s *chatService) chatError(sessionID, msg string) {
	s.emitter.EmitToRoom(sessionID, dto.EventChatError, dto.ErrorPayload{
		SessionId: sessionID,
		Error:     msg,
	})
}
