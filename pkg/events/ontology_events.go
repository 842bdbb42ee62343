package events

import "time"

// Ontology lifecycle event types, published for out-of-process consumers
// (audit, metrics). The push channel remains the delivery path to browsers.
const (
	TypeOntologyBuildStarted = "ONTOLOGY_BUILD_STARTED"
	TypeOntologyBuildDone    = "ONTOLOGY_BUILD_DONE"
	TypeOntologyBuildFailed  = "ONTOLOGY_BUILD_FAILED"
	TypeSessionReset         = "SESSION_RESET"
)

func NewOntologyBuildStarted(sessionID, jobID, fileName string) Event {
	return BaseEvent{
		Type: TypeOntologyBuildStarted,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"job_id":     jobID,
			"file_name":  fileName,
		},
		OccurredAt: time.Now(),
	}
}

func NewOntologyBuildDone(sessionID, jobID, path string) Event {
	return BaseEvent{
		Type: TypeOntologyBuildDone,
		Data: map[string]interface{}{
			"session_id":    sessionID,
			"job_id":        jobID,
			"ontology_path": path,
		},
		OccurredAt: time.Now(),
	}
}

func NewOntologyBuildFailed(sessionID, jobID, reason string) Event {
	return BaseEvent{
		Type: TypeOntologyBuildFailed,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"job_id":     jobID,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionReset(oldSessionID, newSessionID string) Event {
	return BaseEvent{
		Type: TypeSessionReset,
		Data: map[string]interface{}{
			"old_session_id": oldSessionID,
			"new_session_id": newSessionID,
		},
		OccurredAt: time.Now(),
	}
}
