package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callLog records cross-collaborator call ordering.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeRest struct {
	log *callLog

	mu           sync.Mutex
	nextSession  int
	bootstrapped string

	uploadHook func()
	infoHook   func()
	uploadErr  error
	historyErr error
}

func (f *fakeRest) BootstrapSession(ctx context.Context) (Session, error) {
	f.log.add("rest.bootstrap")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bootstrapped == "" {
		f.nextSession++
		f.bootstrapped = sessionName(f.nextSession)
	}
	return Session{ID: f.bootstrapped, OntologyStatus: OntologyStatusNone}, nil
}

func (f *fakeRest) ResetSession(ctx context.Context) (Session, error) {
	f.log.add("rest.reset")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSession++
	f.bootstrapped = sessionName(f.nextSession)
	return Session{ID: f.bootstrapped, OntologyStatus: OntologyStatusNone}, nil
}

func (f *fakeRest) GetSessionInfo(ctx context.Context) (Session, error) {
	f.mu.Lock()
	id := f.bootstrapped
	f.mu.Unlock()
	if f.infoHook != nil {
		f.infoHook()
	}
	return Session{ID: id, OntologyStatus: OntologyStatusNone}, nil
}

func (f *fakeRest) GetChatHistory(ctx context.Context) ([]ChatMessage, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return []ChatMessage{{Role: "user", Text: "hi"}}, nil
}

func (f *fakeRest) ClearChatHistory(ctx context.Context) error { return nil }

func (f *fakeRest) ListAvailableOntologies(ctx context.Context) ([]OntologyRef, error) {
	return []OntologyRef{{Name: "base", Path: "ontologies/base.owl"}}, nil
}

func (f *fakeRest) UploadDocument(ctx context.Context, fileName string, file io.Reader, sessionID string) (UploadResult, error) {
	if f.uploadHook != nil {
		f.uploadHook()
	}
	if f.uploadErr != nil {
		return UploadResult{}, f.uploadErr
	}
	return UploadResult{Accepted: true, JobID: "job-1", SessionID: sessionID}, nil
}

func sessionName(n int) string {
	return "sess-" + strings.Repeat("x", n)
}

type sentMessage struct {
	text, mode, sessionID string
}

type fakeChannel struct {
	log *callLog

	mu       sync.Mutex
	state    ChannelState
	room     string
	handlers EventHandlers
	sent     []sentMessage

	connectErr error
	rebindErr  error
}

func (f *fakeChannel) Connect(sessionID string, handlers EventHandlers) error {
	f.log.add("channel.connect")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.state = StateJoined
	f.room = sessionID
	f.handlers = handlers
	return nil
}

func (f *fakeChannel) SendChatMessage(text, mode, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateJoined {
		return ErrNotConnected
	}
	f.sent = append(f.sent, sentMessage{text, mode, sessionID})
	return nil
}

func (f *fakeChannel) Rebind(newSessionID string) error {
	f.log.add("channel.rebind")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rebindErr != nil {
		return f.rebindErr
	}
	if f.state != StateJoined {
		return ErrNotConnected
	}
	f.room = newSessionID
	return nil
}

func (f *fakeChannel) Disconnect() {
	f.log.add("channel.disconnect")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateDisconnected
	f.room = ""
	f.handlers = nil
}

func (f *fakeChannel) OnDisconnect(fn func(error)) {}

func (f *fakeChannel) State() ChannelState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) Room() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.room
}

func (f *fakeChannel) deliver(t *testing.T, kind EventKind, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	f.mu.Lock()
	h := f.handlers[kind]
	f.mu.Unlock()
	require.NotNil(t, h, "no handler registered for %s", kind)
	h(raw)
}

func newTestOrchestrator() (*Orchestrator, *fakeRest, *fakeChannel) {
	log := &callLog{}
	rest := &fakeRest{log: log}
	channel := &fakeChannel{log: log, state: StateDisconnected}
	return NewOrchestrator(rest, channel, NewStore()), rest, channel
}

func TestInitializeBindsStoreAndRoom(t *testing.T) {
	orch, _, channel := newTestOrchestrator()

	session, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, session.ID, orch.Store().CurrentID())
	assert.Equal(t, session.ID, channel.Room())
	assert.Equal(t, StateJoined, channel.State())
}

func TestInitializeIsIdempotent(t *testing.T) {
	orch, _, channel := newTestOrchestrator()

	first, err := orch.Initialize(context.Background())
	require.NoError(t, err)
	second, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ID, channel.Room())
}

func TestResetResolvesBeforeRebind(t *testing.T) {
	orch, rest, channel := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	session, err := orch.ResetAndRebind(context.Background())
	require.NoError(t, err)

	calls := rest.log.all()
	resetAt, rebindAt := -1, -1
	for i, call := range calls {
		switch call {
		case "rest.reset":
			resetAt = i
		case "channel.rebind":
			rebindAt = i
		}
	}
	require.GreaterOrEqual(t, resetAt, 0)
	require.GreaterOrEqual(t, rebindAt, 0)
	assert.Less(t, resetAt, rebindAt)

	assert.Equal(t, session.ID, orch.Store().CurrentID())
	assert.Equal(t, session.ID, channel.Room())
}

func TestRepeatedResetsKeepRoomAndStoreInAgreement(t *testing.T) {
	orch, _, channel := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		session, err := orch.ResetAndRebind(context.Background())
		require.NoError(t, err)
		assert.Equal(t, session.ID, orch.Store().CurrentID())
		assert.Equal(t, session.ID, channel.Room())
	}
}

func TestResetFallsBackToConnectWhenUnbound(t *testing.T) {
	orch, _, channel := newTestOrchestrator()

	session, err := orch.ResetAndRebind(context.Background())
	require.NoError(t, err)

	assert.Equal(t, session.ID, channel.Room())
	assert.Equal(t, StateJoined, channel.State())
}

func TestConcurrentInitializeYieldsOneBinding(t *testing.T) {
	orch, _, channel := newTestOrchestrator()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			orch.Initialize(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, orch.Store().CurrentID(), channel.Room())
	assert.Equal(t, StateJoined, channel.State())
}

func TestUploadDiscardedWhenSessionChangesMidFlight(t *testing.T) {
	orch, rest, _ := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	rest.uploadHook = func() {
		orch.Store().Set(Session{ID: "replacement"})
	}

	_, err = orch.UploadDocument(context.Background(), "paper.pdf", strings.NewReader("%PDF"))

	assert.True(t, IsStale(err))
	current, ok := orch.Store().Current()
	require.True(t, ok)
	assert.NotEqual(t, OntologyStatusProcessing, current.OntologyStatus)
}

func TestUploadMarksSessionProcessing(t *testing.T) {
	orch, _, _ := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	result, err := orch.UploadDocument(context.Background(), "paper.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.True(t, result.Accepted)

	current, _ := orch.Store().Current()
	assert.Equal(t, OntologyStatusProcessing, current.OntologyStatus)
}

func TestSessionInfoRacingResetCannotOverwriteStore(t *testing.T) {
	orch, rest, _ := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	// The session is swapped after the info response is produced but before
	// it is folded back into the store.
	rest.infoHook = func() {
		orch.Store().Set(Session{ID: "replacement", OntologyStatus: OntologyStatusReady})
	}

	_, err = orch.RefreshSessionInfo(context.Background())

	assert.True(t, IsStale(err))
	current, ok := orch.Store().Current()
	require.True(t, ok)
	assert.Equal(t, "replacement", current.ID)
	assert.Equal(t, OntologyStatusReady, current.OntologyStatus)
}

func TestSendWithoutSessionFails(t *testing.T) {
	orch, _, channel := newTestOrchestrator()

	err := orch.SendChatMessage("hello", ModeDefaultOntology)

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, channel.sent)
}

func TestSendReconnectsAfterDrop(t *testing.T) {
	orch, _, channel := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	channel.Disconnect()

	require.NoError(t, orch.SendChatMessage("hello", ModeDefaultOntology))
	require.Len(t, channel.sent, 1)
	assert.Equal(t, orch.Store().CurrentID(), channel.sent[0].sessionID)
}

func TestSendFailsWhenReconnectFails(t *testing.T) {
	orch, _, channel := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	channel.Disconnect()
	channel.connectErr = errors.New("dial refused")

	err = orch.SendChatMessage("hello", ModeDefaultOntology)
	assert.Error(t, err)
	assert.Empty(t, channel.sent)
}

func TestEventsForOtherSessionsAreDropped(t *testing.T) {
	orch, _, channel := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	var got []string
	orch.On(EventNewMessage, func(payload json.RawMessage) {
		got = append(got, string(payload))
	})

	channel.deliver(t, EventNewMessage, map[string]string{"session_id": "someone-else", "text": "stale"})
	channel.deliver(t, EventNewMessage, map[string]string{"session_id": orch.Store().CurrentID(), "text": "current"})

	require.Len(t, got, 1)
	assert.Contains(t, got[0], "current")
}

func TestOntologyCompleteUpdatesStore(t *testing.T) {
	orch, _, channel := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	done := false
	orch.On(EventOntologyComplete, func(json.RawMessage) { done = true })

	channel.deliver(t, EventOntologyComplete, map[string]string{
		"session_id":    orch.Store().CurrentID(),
		"ontology_path": "generated/sess_ontology.owl",
	})

	assert.True(t, done)
	current, _ := orch.Store().Current()
	assert.Equal(t, OntologyStatusReady, current.OntologyStatus)
	assert.True(t, current.HasNewOntology)
	assert.Equal(t, "generated/sess_ontology.owl", current.OntologyPath)
}

func TestOntologyErrorUpdatesStore(t *testing.T) {
	orch, _, channel := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	channel.deliver(t, EventOntologyError, map[string]string{
		"session_id": orch.Store().CurrentID(),
		"error":      "no extractable text",
	})

	current, _ := orch.Store().Current()
	assert.Equal(t, OntologyStatusError, current.OntologyStatus)
}

func TestChatHistoryStaleDiscard(t *testing.T) {
	orch, _, _ := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	_, err = orch.ChatHistory(context.Background())
	require.NoError(t, err)

	orch.Store().Invalidate()

	_, err = orch.ChatHistory(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestTeardownDisconnectsAndInvalidates(t *testing.T) {
	orch, _, channel := newTestOrchestrator()
	_, err := orch.Initialize(context.Background())
	require.NoError(t, err)

	orch.Teardown()

	assert.Equal(t, StateDisconnected, channel.State())
	_, ok := orch.Store().Current()
	assert.False(t, ok)
}
