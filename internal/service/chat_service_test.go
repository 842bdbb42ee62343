package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontology-chat/internal/dto"
	"ontology-chat/internal/entity"
	"ontology-chat/internal/repository/memory"
	"ontology-chat/pkg/llm/stub"
	"ontology-chat/pkg/ontology"
)

// buildTestOntology runs the tree builder over a synthetic document and
// returns the resulting ontology path.
func buildTestOntology(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	source := filepath.Join(dir, "doc.txt")
	paragraph := strings.Repeat("Neural networks learn hierarchical feature representations from data. ", 3)
	content := paragraph + "\n\n" + paragraph + "\n\n" + paragraph
	require.NoError(t, os.WriteFile(source, []byte(content), 0o644))

	output := filepath.Join(dir, "test_ontology.owl")
	_, err := ontology.NewTreeBuilder().Build(context.Background(), ontology.BuildRequest{
		SourcePath: source,
		OutputPath: output,
		IRI:        "http://www.semanticweb.org/test_MINDMAP",
	}, nil)
	require.NoError(t, err)
	return output
}

type chatFixture struct {
	service IChatService
	history *memory.HistoryRepository
	states  *memory.OntologyStateRepository
	emitter *fakeEmitter
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		history: memory.NewHistoryRepository(),
		states:  memory.NewOntologyStateRepository(),
		emitter: newFakeEmitter(),
	}
	f.service = NewChatService(f.history, f.states, stub.New(), f.emitter, buildTestOntology(t), nopLogger{})
	return f
}

func TestHandleSendMessageDefaultMode(t *testing.T) {
	f := newChatFixture(t)

	f.service.HandleSendMessage(context.Background(), sendPayload("sess-1", "What are neural networks?", dto.ModeDefaultOntology))

	history := f.history.Get("sess-1")
	require.Len(t, history, 2)
	assert.Equal(t, entity.ChatRoleUser, history[0].Role)
	assert.Equal(t, "What are neural networks?", history[0].Text)
	assert.Equal(t, entity.ChatRoleAssistant, history[1].Role)
	assert.NotEmpty(t, history[1].Text)

	emitted := f.emitter.byEvent(dto.EventNewMessage)
	require.Len(t, emitted, 2)
	assert.Equal(t, "sess-1", emitted[0].sessionID)
}

func TestNewOntologyModeRequiresReadyBuild(t *testing.T) {
	f := newChatFixture(t)

	f.service.HandleSendMessage(context.Background(), sendPayload("sess-1", "hello", dto.ModeNewOntology))

	assert.Empty(t, f.history.Get("sess-1"))
	require.Len(t, f.emitter.byEvent(dto.EventChatError), 1)
}

func TestNewOntologyModeUsesSessionOntology(t *testing.T) {
	f := newChatFixture(t)
	require.NoError(t, f.states.Set(context.Background(), "sess-1", &entity.OntologyState{
		Status: entity.OntologyStatusReady,
		Path:   buildTestOntology(t),
	}))

	f.service.HandleSendMessage(context.Background(), sendPayload("sess-1", "hello", dto.ModeNewOntology))

	assert.Len(t, f.history.Get("sess-1"), 2)
	assert.Empty(t, f.emitter.byEvent(dto.EventChatError))
}

func TestNewOntologyModeWithProcessingBuildFails(t *testing.T) {
	f := newChatFixture(t)
	require.NoError(t, f.states.Set(context.Background(), "sess-1", &entity.OntologyState{
		Status: entity.OntologyStatusProcessing,
	}))

	f.service.HandleSendMessage(context.Background(), sendPayload("sess-1", "hello", dto.ModeNewOntology))

	assert.Empty(t, f.history.Get("sess-1"))
	require.Len(t, f.emitter.byEvent(dto.EventChatError), 1)
}

func TestUnknownModeIsRejected(t *testing.T) {
	f := newChatFixture(t)

	f.service.HandleSendMessage(context.Background(), sendPayload("sess-1", "hello", "telepathy"))

	assert.Empty(t, f.history.Get("sess-1"))
	require.Len(t, f.emitter.byEvent(dto.EventChatError), 1)
}

func TestHistoriesAreIsolatedPerSession(t *testing.T) {
	f := newChatFixture(t)

	f.service.HandleSendMessage(context.Background(), sendPayload("sess-1", "first", dto.ModeDefaultOntology))
	f.service.HandleSendMessage(context.Background(), sendPayload("sess-2", "second", dto.ModeDefaultOntology))

	assert.Len(t, f.history.Get("sess-1"), 2)
	assert.Len(t, f.history.Get("sess-2"), 2)
	assert.Equal(t, "first", f.history.Get("sess-1")[0].Text)
	assert.Equal(t, "second", f.history.Get("sess-2")[0].Text)
}
