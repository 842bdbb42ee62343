package client

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// restAPI is the session management surface the orchestrator drives.
type restAPI interface {
	BootstrapSession(ctx context.Context) (Session, error)
	ResetSession(ctx context.Context) (Session, error)
	GetSessionInfo(ctx context.Context) (Session, error)
	GetChatHistory(ctx context.Context) ([]ChatMessage, error)
	ClearChatHistory(ctx context.Context) error
	ListAvailableOntologies(ctx context.Context) ([]OntologyRef, error)
	UploadDocument(ctx context.Context, fileName string, file io.Reader, sessionID string) (UploadResult, error)
}

// pushChannel is the event surface the orchestrator drives.
type pushChannel interface {
	Connect(sessionID string, handlers EventHandlers) error
	SendChatMessage(text, mode, sessionID string) error
	Rebind(newSessionID string) error
	Disconnect()
	OnDisconnect(fn func(error))
	State() ChannelState
	Room() string
}

// sessionScoped is the common shape of pushed payloads that carry the
// session they belong to.
type sessionScoped struct {
	SessionID string `json:"session_id"`
}

// Orchestrator sequences the session store, the request client, and the push
// channel so that callers see one coherent session. It owns the ordering
// rules: reset fully resolves before the channel rebinds, responses tagged
// with a superseded session are discarded, and events for rooms other than
// the current session never reach subscribers.
type Orchestrator struct {
	rest    restAPI
	channel pushChannel
	store   *Store

	mu sync.Mutex

	subMu sync.RWMutex
	subs  map[EventKind][]EventHandler
}

// NewOrchestrator wires the three collaborators. Use NewRestClient and
// NewChannel for production; tests substitute fakes.
func NewOrchestrator(rest restAPI, channel pushChannel, store *Store) *Orchestrator {
	o := &Orchestrator{
		rest:    rest,
		channel: channel,
		store:   store,
		subs:    make(map[EventKind][]EventHandler),
	}
	channel.OnDisconnect(func(err error) {
		// The binding is gone; the next user action reconnects on demand.
	})
	return o
}

// Store exposes the session store for read access and change subscriptions.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// On registers a handler for pushed events of the given kind. Handlers only
// see events whose session tag matches the current session at delivery time.
func (o *Orchestrator) On(kind EventKind, h EventHandler) {
	o.subMu.Lock()
	o.subs[kind] = append(o.subs[kind], h)
	o.subMu.Unlock()
}

// Initialize bootstraps the session and opens the push binding. Calling it
// again on an already-initialized orchestrator converges on the same
// session and binding rather than stacking a second one.
func (o *Orchestrator) Initialize(ctx context.Context) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	session, err := o.rest.BootstrapSession(ctx)
	if err != nil {
		return Session{}, err
	}
	o.store.Set(session)

	if err := o.channel.Connect(session.ID, o.handlerSet()); err != nil {
		return session, err
	}
	return session, nil
}

// ResetAndRebind asks the server for a fresh session, then moves the push
// binding to it. The reset must resolve first; until it does, the old room
// keeps receiving, and stale events are filtered by session tag.
func (o *Orchestrator) ResetAndRebind(ctx context.Context) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	session, err := o.rest.ResetSession(ctx)
	if err != nil {
		return Session{}, err
	}
	o.store.Set(session)

	if o.channel.State() == StateJoined {
		if err := o.channel.Rebind(session.ID); err == nil {
			return session, nil
		}
	}
	if err := o.channel.Connect(session.ID, o.handlerSet()); err != nil {
		return session, err
	}
	return session, nil
}

// SendChatMessage sends text in the given mode on behalf of the current
// session. If the binding dropped since the last action it is reopened
// first, so an intervening disconnect costs one reconnect, not an error.
func (o *Orchestrator) SendChatMessage(text, mode string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.store.CurrentID()
	if id == "" {
		return ErrNotConnected
	}
	if o.channel.State() != StateJoined {
		if err := o.channel.Connect(id, o.handlerSet()); err != nil {
			return err
		}
	}
	return o.channel.SendChatMessage(text, mode, id)
}

// UploadDocument uploads a document for ontology building under the current
// session. The result is discarded with ErrStaleResponse when the session
// changed while the upload was in flight.
func (o *Orchestrator) UploadDocument(ctx context.Context, fileName string, file io.Reader) (UploadResult, error) {
	tag := o.store.CurrentID()
	if tag == "" {
		return UploadResult{}, ErrNotConnected
	}

	result, err := o.rest.UploadDocument(ctx, fileName, file, tag)
	if err != nil {
		return UploadResult{}, err
	}

	current, ok := o.store.Current()
	if !ok {
		return UploadResult{}, ErrStaleResponse
	}
	current.OntologyStatus = OntologyStatusProcessing
	if !o.store.CompareAndSet(tag, current) {
		return UploadResult{}, ErrStaleResponse
	}
	return result, nil
}

// ChatHistory fetches the transcript for the current session, discarding the
// response when the session changed mid-flight.
func (o *Orchestrator) ChatHistory(ctx context.Context) ([]ChatMessage, error) {
	tag := o.store.CurrentID()
	if tag == "" {
		return nil, ErrNotConnected
	}

	history, err := o.rest.GetChatHistory(ctx)
	if err != nil {
		return nil, err
	}
	if o.store.CurrentID() != tag {
		return nil, ErrStaleResponse
	}
	return history, nil
}

// ClearChatHistory clears the server-side transcript of the current session.
func (o *Orchestrator) ClearChatHistory(ctx context.Context) error {
	tag := o.store.CurrentID()
	if tag == "" {
		return ErrNotConnected
	}
	if err := o.rest.ClearChatHistory(ctx); err != nil {
		return err
	}
	if o.store.CurrentID() != tag {
		return ErrStaleResponse
	}
	return nil
}

// AvailableOntologies lists ontologies the current session may chat against.
func (o *Orchestrator) AvailableOntologies(ctx context.Context) ([]OntologyRef, error) {
	return o.rest.ListAvailableOntologies(ctx)
}

// RefreshSessionInfo re-reads session state from the server and folds it
// into the store, subject to the stale-tag rule.
func (o *Orchestrator) RefreshSessionInfo(ctx context.Context) (Session, error) {
	tag := o.store.CurrentID()
	if tag == "" {
		return Session{}, ErrNotConnected
	}

	session, err := o.rest.GetSessionInfo(ctx)
	if err != nil {
		return Session{}, err
	}
	if !o.store.CompareAndSet(tag, session) {
		return Session{}, ErrStaleResponse
	}
	return session, nil
}

// Teardown closes the push binding and invalidates the local session view.
// The server-side session is left intact.
func (o *Orchestrator) Teardown() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.channel.Disconnect()
	o.store.Invalidate()
}

// handlerSet builds the connect-time handler registration: every inbound
// event is gated on its session tag matching the current session, then
// forwarded verbatim to subscribers. Completion and failure events also
// fold ontology status into the store.
func (o *Orchestrator) handlerSet() EventHandlers {
	return EventHandlers{
		EventNewMessage:       o.gated(EventNewMessage, nil),
		EventOntologyProgress: o.gated(EventOntologyProgress, nil),
		EventChatError:        o.gated(EventChatError, nil),
		EventOntologyComplete: o.gated(EventOntologyComplete, func(payload json.RawMessage) {
			session, ok := o.store.Current()
			if !ok {
				return
			}
			tag := session.ID
			session.OntologyStatus = OntologyStatusReady
			session.HasNewOntology = true
			var detail struct {
				sessionScoped
				OntologyPath string `json:"ontology_path"`
			}
			if json.Unmarshal(payload, &detail) == nil && detail.OntologyPath != "" {
				session.OntologyPath = detail.OntologyPath
			}
			o.store.CompareAndSet(tag, session)
		}),
		EventOntologyError: o.gated(EventOntologyError, func(payload json.RawMessage) {
			session, ok := o.store.Current()
			if !ok {
				return
			}
			tag := session.ID
			session.OntologyStatus = OntologyStatusError
			o.store.CompareAndSet(tag, session)
		}),
	}
}

// gated wraps delivery for kind: drop events tagged with another session,
// apply the optional store side effect, then fan out to subscribers.
func (o *Orchestrator) gated(kind EventKind, apply EventHandler) EventHandler {
	return func(payload json.RawMessage) {
		var scoped sessionScoped
		if err := json.Unmarshal(payload, &scoped); err != nil {
			return
		}
		if scoped.SessionID != "" && scoped.SessionID != o.store.CurrentID() {
			return
		}

		if apply != nil {
			apply(payload)
		}

		o.subMu.RLock()
		handlers := append([]EventHandler(nil), o.subs[kind]...)
		o.subMu.RUnlock()
		for _, h := range handlers {
			h(payload)
		}
	}
}
