package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontology-chat/internal/dto"
	"ontology-chat/internal/entity"
	"ontology-chat/internal/pkg/serverutils"
)

type fakeSessionService struct {
	resetCalls int
	cleared    []string
}

func (f *fakeSessionService) GetOrCreate(_ context.Context, sessionID string) (*dto.GetSessionResponse, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &dto.GetSessionResponse{SessionId: sessionID, OntologyStatus: entity.OntologyStatusNone}, nil
}

func (f *fakeSessionService) Reset(_ context.Context, _ string) (*dto.ResetSessionResponse, error) {
	f.resetCalls++
	return &dto.ResetSessionResponse{SessionId: uuid.NewString()}, nil
}

func (f *fakeSessionService) Info(_ context.Context, sessionID string) (*dto.SessionInfoResponse, error) {
	return &dto.SessionInfoResponse{SessionId: sessionID, OntologyStatus: entity.OntologyStatusNone}, nil
}

func (f *fakeSessionService) History(_ context.Context, sessionID string) (*dto.ChatHistoryResponse, error) {
	return &dto.ChatHistoryResponse{SessionId: sessionID, History: []entity.ChatMessage{}}, nil
}

func (f *fakeSessionService) ClearHistory(_ context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func (f *fakeSessionService) AvailableMindmaps(_ context.Context) (*dto.AvailableMindmapResponse, error) {
	return &dto.AvailableMindmapResponse{Mindmaps: []entity.OntologyRef{{Name: "base", Path: "ontologies/base.owl"}}}, nil
}

func newSessionApp(t *testing.T) (*fiber.App, *fakeSessionService, *serverutils.SessionCookie) {
	t.Helper()
	svc := &fakeSessionService{}
	cookie := serverutils.NewSessionCookie("test-secret", "chat_session")

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewSessionController(svc, cookie).RegisterRoutes(app.Group("/api"))
	return app, svc, cookie
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func sessionCookieOf(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "chat_session" {
			return c
		}
	}
	return nil
}

func TestGetSessionMintsCookie(t *testing.T) {
	app, _, _ := newSessionApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/get-session", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body dto.GetSessionResponse
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.SessionId)

	cookie := sessionCookieOf(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
}

func TestGetSessionIsIdempotentWithCookie(t *testing.T) {
	app, _, _ := newSessionApp(t)

	first := httptest.NewRequest(http.MethodGet, "/api/get-session", nil)
	resp, err := app.Test(first)
	require.NoError(t, err)
	var bootstrap dto.GetSessionResponse
	decodeBody(t, resp, &bootstrap)
	cookie := sessionCookieOf(resp)
	require.NotNil(t, cookie)

	second := httptest.NewRequest(http.MethodGet, "/api/get-session", nil)
	second.AddCookie(cookie)
	resp, err = app.Test(second)
	require.NoError(t, err)

	var repeat dto.GetSessionResponse
	decodeBody(t, resp, &repeat)
	assert.Equal(t, bootstrap.SessionId, repeat.SessionId)
}

func TestResetSessionRotatesCookie(t *testing.T) {
	app, svc, _ := newSessionApp(t)

	first := httptest.NewRequest(http.MethodGet, "/api/get-session", nil)
	resp, err := app.Test(first)
	require.NoError(t, err)
	oldCookie := sessionCookieOf(resp)
	require.NotNil(t, oldCookie)

	reset := httptest.NewRequest(http.MethodPost, "/api/reset-session", nil)
	reset.AddCookie(oldCookie)
	resp, err = app.Test(reset)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, svc.resetCalls)

	newCookie := sessionCookieOf(resp)
	require.NotNil(t, newCookie)
	assert.NotEqual(t, oldCookie.Value, newCookie.Value)
}

func TestSessionInfoWithoutCookieIs404(t *testing.T) {
	app, _, _ := newSessionApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/session-info", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionInfoWithForgedCookieIs404(t *testing.T) {
	app, _, _ := newSessionApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/session-info", nil)
	req.AddCookie(&http.Cookie{Name: "chat_session", Value: "not-a-signed-token"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearChatHistory(t *testing.T) {
	app, svc, _ := newSessionApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/get-session", nil))
	require.NoError(t, err)
	cookie := sessionCookieOf(resp)
	require.NotNil(t, cookie)

	clear := httptest.NewRequest(http.MethodPost, "/api/clear-chat-history", nil)
	clear.AddCookie(cookie)
	resp, err = app.Test(clear)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, svc.cleared, 1)
}

func TestAvailableMindmaps(t *testing.T) {
	app, _, _ := newSessionApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/get_available_mindmap", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body dto.AvailableMindmapResponse
	decodeBody(t, resp, &body)
	require.Len(t, body.Mindmaps, 1)
	assert.Equal(t, "base", body.Mindmaps[0].Name)
}
