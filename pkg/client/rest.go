package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// RestClient is a stateless facade over the request/response surface of the
// backend. Session credentials live in the cookie jar and are attached
// automatically; callers update the session store themselves.
type RestClient struct {
	baseURL string
	http    *http.Client
}

// NewRestClient builds a client against baseURL (no trailing slash
// required). The cookie jar carries the signed session cookie across calls.
func NewRestClient(baseURL string) (*RestClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &RestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// HTTPClient exposes the underlying client so the push channel can share the
// cookie jar during the websocket handshake.
func (c *RestClient) HTTPClient() *http.Client {
	return c.http
}

// BootstrapSession is idempotent: calling it twice without a reset returns
// the same session id.
func (c *RestClient) BootstrapSession(ctx context.Context) (Session, error) {
	var res struct {
		SessionId      string `json:"session_id"`
		HasNewOntology bool   `json:"has_new_ontology"`
		OntologyStatus string `json:"ontology_status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/get-session", nil, &res); err != nil {
		return Session{}, err
	}
	return Session{
		ID:             res.SessionId,
		HasNewOntology: res.HasNewOntology,
		OntologyStatus: res.OntologyStatus,
	}, nil
}

// ResetSession discards server-side session state and returns the
// replacement session. Callers must rebind their push channel afterwards.
func (c *RestClient) ResetSession(ctx context.Context) (Session, error) {
	var res struct {
		SessionId string `json:"session_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/reset-session", nil, &res); err != nil {
		return Session{}, err
	}
	return Session{ID: res.SessionId, OntologyStatus: OntologyStatusNone}, nil
}

func (c *RestClient) GetSessionInfo(ctx context.Context) (Session, error) {
	var res struct {
		SessionId      string `json:"session_id"`
		HasNewOntology bool   `json:"has_new_ontology"`
		OntologyStatus string `json:"ontology_status"`
		OntologyPath   string `json:"ontology_path"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/session-info", nil, &res); err != nil {
		return Session{}, err
	}
	return Session{
		ID:             res.SessionId,
		HasNewOntology: res.HasNewOntology,
		OntologyStatus: res.OntologyStatus,
		OntologyPath:   res.OntologyPath,
	}, nil
}

func (c *RestClient) GetChatHistory(ctx context.Context) ([]ChatMessage, error) {
	var res struct {
		History []ChatMessage `json:"history"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/get-chat-history", nil, &res); err != nil {
		return nil, err
	}
	return res.History, nil
}

func (c *RestClient) ClearChatHistory(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/clear-chat-history", nil, nil)
}

func (c *RestClient) ListAvailableOntologies(ctx context.Context) ([]OntologyRef, error) {
	var res struct {
		Mindmaps []OntologyRef `json:"mindmaps"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/get_available_mindmap", nil, &res); err != nil {
		return nil, err
	}
	return res.Mindmaps, nil
}

// UploadDocument enqueues background processing of the document and returns
// immediately. Build progress and completion arrive on the push channel.
func (c *RestClient) UploadDocument(ctx context.Context, fileName string, file io.Reader, sessionID string) (UploadResult, error) {
	body := &strings.Builder{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("pdf_file", fileName)
	if err != nil {
		return UploadResult{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{}, fmt.Errorf("read document: %w", err)
	}
	if err := writer.WriteField("session_id", sessionID); err != nil {
		return UploadResult{}, fmt.Errorf("build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-pdf", strings.NewReader(body.String()))
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return UploadResult{}, &NetworkError{Op: "upload-pdf", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return UploadResult{}, &ValidationError{Message: readErrorMessage(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UploadResult{}, &ServerError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var res UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return UploadResult{}, &ServerError{StatusCode: resp.StatusCode, Message: "malformed upload response"}
	}
	return res, nil
}

func (c *RestClient) doJSON(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServerError{StatusCode: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(data))
}
