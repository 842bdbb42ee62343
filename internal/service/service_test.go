package service

import (
	"sync"

	"ontology-chat/internal/dto"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type emission struct {
	sessionID string
	event     string
	payload   interface{}
}

// fakeEmitter records everything emitted into rooms and signals arrival so
// tests can wait on asynchronous worker output.
type fakeEmitter struct {
	mu        sync.Mutex
	emissions []emission
	arrived   chan emission
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{arrived: make(chan emission, 32)}
}

func (f *fakeEmitter) EmitToRoom(sessionID string, event string, payload interface{}) {
	e := emission{sessionID, event, payload}
	f.mu.Lock()
	f.emissions = append(f.emissions, e)
	f.mu.Unlock()
	f.arrived <- e
}

func (f *fakeEmitter) byEvent(event string) []emission {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emission
	for _, e := range f.emissions {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

var _ RoomEmitter = &fakeEmitter{}

// sendPayload is a small helper for building inbound chat events.
func sendPayload(sessionID, message, mode string) dto.SendMessagePayload {
	return dto.SendMessagePayload{SessionId: sessionID, Message: message, Mode: mode}
}
