package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"ontology-chat/internal/dto"
	"ontology-chat/internal/entity"
	"ontology-chat/internal/pkg/logger"
	"ontology-chat/internal/pkg/serverutils"
	"ontology-chat/internal/repository/contract"
	"ontology-chat/pkg/events"
	pktNats "ontology-chat/pkg/nats"
	"ontology-chat/pkg/ontology"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const buildTopic = "BUILD_ONTOLOGY"

// RoomEmitter delivers a named event into a session room.
type RoomEmitter interface {
	EmitToRoom(sessionID string, event string, payload interface{})
}

// IOntologyService enqueues uploaded documents for background ontology
// construction and runs the worker that processes them.
type IOntologyService interface {
	Enqueue(ctx context.Context, sessionID, filePath, fileName string) (*dto.UploadPdfResponse, error)
	RunWorker(ctx context.Context) error
}

type ontologyService struct {
	pubSub       *gochannel.GoChannel
	builder      ontology.Builder
	stateRepo    contract.OntologyStateRepository
	emitter      RoomEmitter
	publisher    *pktNats.Publisher
	generatedDir string
	logger       logger.ILogger
}

func NewOntologyService(
	pubSub *gochannel.GoChannel,
	builder ontology.Builder,
	stateRepo contract.OntologyStateRepository,
	emitter RoomEmitter,
	publisher *pktNats.Publisher,
	generatedDir string,
	log logger.ILogger,
) IOntologyService {
	return &ontologyService{
		pubSub:       pubSub,
		builder:      builder,
		stateRepo:    stateRepo,
		emitter:      emitter,
		publisher:    publisher,
		generatedDir: generatedDir,
		logger:       log,
	}
}

// Enqueue validates the upload, records the processing state and queues the
// build job. It never blocks on the build itself; completion is observable
// only on the push channel.
func (s *ontologyService) Enqueue(ctx context.Context, sessionID, filePath, fileName string) (*dto.UploadPdfResponse, error) {
	if sessionID == "" {
		return nil, serverutils.NewBadRequest("session_id is required")
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return nil, serverutils.NewBadRequest("only .pdf files are accepted")
	}

	jobID := uuid.NewString()
	job := dto.BuildOntologyJob{
		JobId:     jobID,
		SessionId: sessionID,
		FilePath:  filePath,
		FileName:  fileName,
	}

	if err := s.stateRepo.Set(ctx, sessionID, &entity.OntologyState{
		Status:    entity.OntologyStatusProcessing,
		JobId:     jobID,
		UpdatedAt: time.Now().Unix(),
	}); err != nil {
		return nil, fmt.Errorf("record processing state: %w", err)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode build job: %w", err)
	}
	if err := s.pubSub.Publish(buildTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return nil, fmt.Errorf("enqueue build job: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewOntologyBuildStarted(sessionID, jobID, fileName)); err != nil {
			s.logger.Warn("OntologyService", "Failed to publish build-started event", map[string]interface{}{"error": err.Error()})
		}
	}

	s.logger.Info("OntologyService", "Build job enqueued", map[string]interface{}{
		"session_id": sessionID,
		"job_id":     jobID,
		"file_name":  fileName,
	})
	return &dto.UploadPdfResponse{Accepted: true, JobId: jobID, SessionId: sessionID}, nil
}

// RunWorker consumes build jobs until ctx is cancelled. Run from main in a
// background goroutine.
func (s *ontologyService) RunWorker(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, buildTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processJob(ctx, msg)
		}
	}()

	return nil
}

func (s *ontologyService) processJob(ctx context.Context, msg *message.Message) {
	var job dto.BuildOntologyJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		s.logger.Error("OntologyService", "Malformed build job", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	s.logger.Info("OntologyService", "Processing build job", map[string]interface{}{
		"session_id": job.SessionId,
		"job_id":     job.JobId,
	})

	outputPath := filepath.Join(s.generatedDir, job.SessionId+"_ontology.owl")
	iri := "http://www.semanticweb.org/" + job.SessionId + "_MINDMAP"

	progress := func(stage string, percent int, message string) {
		s.emitter.EmitToRoom(job.SessionId, dto.EventOntologyProgress, dto.OntologyProgressPayload{
			SessionId: job.SessionId,
			Percent:   percent,
			Stage:     stage,
			Message:   message,
		})
	}

	result, err := s.builder.Build(ctx, ontology.BuildRequest{
		SourcePath: job.FilePath,
		OutputPath: outputPath,
		IRI:        iri,
	}, progress)
	if err != nil {
		s.failJob(ctx, job, err)
		msg.Ack()
		return
	}

	if err := s.stateRepo.Set(ctx, job.SessionId, &entity.OntologyState{
		Status:    entity.OntologyStatusReady,
		Path:      result.OutputPath,
		JobId:     job.JobId,
		UpdatedAt: time.Now().Unix(),
	}); err != nil {
		s.failJob(ctx, job, fmt.Errorf("record ready state: %w", err))
		msg.Ack()
		return
	}

	s.emitter.EmitToRoom(job.SessionId, dto.EventOntologyComplete, dto.OntologyCompletePayload{
		SessionId:    job.SessionId,
		OntologyPath: result.OutputPath,
	})

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewOntologyBuildDone(job.SessionId, job.JobId, result.OutputPath)); err != nil {
			s.logger.Warn("OntologyService", "Failed to publish build-done event", map[string]interface{}{"error": err.Error()})
		}
	}

	s.logger.Info("OntologyService", "Build job done", map[string]interface{}{
		"session_id":  job.SessionId,
		"job_id":      job.JobId,
		"class_count": result.ClassCount,
	})
	msg.Ack()
}

func (s *ontologyService) failJob(ctx context.Context, job dto.BuildOntologyJob, buildErr error) {
	s.logger.Error("OntologyService", "Build job failed", map[string]interface{}{
		"session_id": job.SessionId,
		"job_id":     job.JobId,
		"error":      buildErr.Error(),
	})

	if err := s.stateRepo.Set(ctx, job.SessionId, &entity.OntologyState{
		Status:    entity.OntologyStatusError,
		JobId:     job.JobId,
		Error:     buildErr.Error(),
		UpdatedAt: time.Now().Unix(),
	}); err != nil {
		s.logger.Warn("OntologyService", "Failed to record error state", map[string]interface{}{"error": err.Error()})
	}

	s.emitter.EmitToRoom(job.SessionId, dto.EventOntologyError, dto.ErrorPayload{
		SessionId: job.SessionId,
		Error:     buildErr.Error(),
	})

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewOntologyBuildFailed(job.SessionId, job.JobId, buildErr.Error())); err != nil {
			s.logger.Warn("OntologyService", "Failed to publish build-failed event", map[string]interface{}{"error": err.Error()})
		}
	}
}
