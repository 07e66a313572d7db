package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/voice"
)

const (
	vapiRequestTimeout = 15 * time.Second
	vapiMaxResponse    = 1 << 20
	vapiCallType       = "webCall"
	vapiModelProvider  = "google"
	vapiVoiceProvider  = "11labs"
	vapiTranscriber    = "deepgram"
	vapiTranscriberMdl = "nova-2"
)

var vapiServerMessages = []string{"status-update", "transcript", "speech-update", "end-of-call-report"}

type VapiConfig struct {
	APIKey     string
	BaseURL    string
	WorkflowID string
	VoiceID    string
	Model      string
}

// VapiTransport places web calls through the Vapi REST API and receives
// call events on the server URL webhook. Calls are correlated with local
// sessions through metadata.sessionId.
type VapiTransport struct {
	cfg    VapiConfig
	client *http.Client

	mu       sync.Mutex
	sessions map[string]*vapiCall
	calls    map[string]*vapiCall
}

func NewVapiTransport(cfg VapiConfig) *VapiTransport {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &VapiTransport{
		cfg:      cfg,
		client:   &http.Client{Timeout: vapiRequestTimeout},
		sessions: make(map[string]*vapiCall),
		calls:    make(map[string]*vapiCall),
	}
}

type vapiCall struct {
	transport *VapiTransport
	sessionID string
	listener  voice.Listener

	mu         sync.Mutex
	callID     string
	controlURL string
	joinURL    string
	stopOnce   sync.Once
	stopErr    error
}

type vapiCreateCallResponse struct {
	ID         string `json:"id"`
	WebCallURL string `json:"webCallUrl"`
	Monitor struct {
		ControlURL string `json:"controlUrl"`
	} `json:"monitor"`
}

func (t *VapiTransport) Start(ctx context.Context, req voice.StartRequest, listener voice.Listener) (voice.Call, error) {
	if req.SessionID == "" {
		return nil, errors.New("vapi call needs a session id")
	}
	body, err := t.createCallBody(req)
	if err != nil {
		return nil, err
	}

	c := &vapiCall{transport: t, sessionID: req.SessionID, listener: listener}
	t.mu.Lock()
	t.sessions[req.SessionID] = c
	t.mu.Unlock()
	listener.Track(func() { t.forget(c) })

	status, raw, err := t.post(ctx, t.cfg.BaseURL+"/call", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create vapi call: %w", err)
	}
	if !isHTTPSuccessStatus(status) {
		return nil, fmt.Errorf("vapi create call returned status %d: %s", status, truncate(raw, 200))
	}
	var created vapiCreateCallResponse
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("failed to decode vapi call: %w", err)
	}
	c.mu.Lock()
	c.callID = created.ID
	c.controlURL = created.Monitor.ControlURL
	c.joinURL = created.WebCallURL
	c.mu.Unlock()
	if created.ID != "" {
		t.mu.Lock()
		if _, ok := t.sessions[req.SessionID]; ok {
			t.calls[created.ID] = c
		}
		t.mu.Unlock()
	}
	if created.WebCallURL == "" {
		slog.Warn("vapi call has no web call url", "session_id", req.SessionID, "call_id", created.ID)
	}
	slog.Info("vapi call created", "session_id", req.SessionID, "call_id", created.ID)
	return c, nil
}

func (t *VapiTransport) createCallBody(req voice.StartRequest) (map[string]any, error) {
	body := map[string]any{
		"type": vapiCallType,
		"metadata": map[string]any{
			"sessionId": req.SessionID,
			"userId":    req.UserID,
		},
	}
	switch {
	case req.Assistant != nil:
		body["assistant"] = t.inlineAssistant(*req.Assistant)
	case req.WorkflowID != "":
		body["workflowId"] = req.WorkflowID
		body["workflowOverrides"] = map[string]any{"variableValues": req.Variables}
	default:
		return nil, errors.New("vapi call needs an assistant or a workflow id")
	}
	return body, nil
}

func (t *VapiTransport) inlineAssistant(a voice.Assistant) map[string]any {
	assistant := map[string]any{
		"name":         a.Name,
		"firstMessage": a.FirstMessage,
		"model": map[string]any{
			"provider": vapiModelProvider,
			"model":    t.cfg.Model,
			"messages": []map[string]string{
				{"role": "system", "content": a.SystemPrompt},
			},
		},
		"transcriber": map[string]any{
			"provider": vapiTranscriber,
			"model":    vapiTranscriberMdl,
			"language": "en",
		},
		"serverMessages": vapiServerMessages,
	}
	if a.ClosingMessage != "" {
		assistant["endCallMessage"] = a.ClosingMessage
	}
	if t.cfg.VoiceID != "" {
		assistant["voice"] = map[string]any{"provider": vapiVoiceProvider, "voiceId": t.cfg.VoiceID}
	}
	return assistant
}

func (t *VapiTransport) forget(c *vapiCall) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessions[c.sessionID] == c {
		delete(t.sessions, c.sessionID)
	}
	c.mu.Lock()
	callID := c.callID
	c.mu.Unlock()
	if callID != "" && t.calls[callID] == c {
		delete(t.calls, callID)
	}
}

func (t *VapiTransport) lookup(sessionID, callID string) *vapiCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.sessions[sessionID]; ok && sessionID != "" {
		return c
	}
	if c, ok := t.calls[callID]; ok && callID != "" {
		return c
	}
	return nil
}

func (c *vapiCall) JoinURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joinURL
}

// Stop asks Vapi to hang up through the call's control URL. Later calls
// return the first result.
func (c *vapiCall) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		controlURL := c.controlURL
		c.mu.Unlock()
		if controlURL == "" {
			return
		}
		status, raw, err := c.transport.post(ctx, controlURL, map[string]any{"type": "end-call"})
		if err != nil {
			c.stopErr = fmt.Errorf("failed to end vapi call: %w", err)
			return
		}
		if !isHTTPSuccessStatus(status) {
			c.stopErr = fmt.Errorf("vapi end-call returned status %d: %s", status, truncate(raw, 200))
		}
	})
	return c.stopErr
}

type vapiWebhook struct {
	Message vapiMessage `json:"message"`
}

type vapiMessage struct {
	Type           string `json:"type"`
	Status         string `json:"status"`
	EndedReason    string `json:"endedReason"`
	Role           string `json:"role"`
	TranscriptType string `json:"transcriptType"`
	Transcript     string `json:"transcript"`
	Call           struct {
		ID       string         `json:"id"`
		Metadata map[string]any `json:"metadata"`
	} `json:"call"`
}

func (m vapiMessage) sessionID() string {
	if s, ok := m.Call.Metadata["sessionId"].(string); ok {
		return s
	}
	return ""
}

// HandleWebhook routes one server message to the listener of its call.
// Messages for calls that are no longer tracked are dropped.
func (t *VapiTransport) HandleWebhook(_ context.Context, body []byte) error {
	var wh vapiWebhook
	if err := json.Unmarshal(body, &wh); err != nil {
		return apperr.E(apperr.CodeInvalidArgument, "voice.HandleWebhook", "invalid webhook payload", err)
	}
	msg := wh.Message
	c := t.lookup(msg.sessionID(), msg.Call.ID)
	if c == nil {
		slog.Debug("ignoring vapi message for unknown call", "type", msg.Type, "call_id", msg.Call.ID)
		return nil
	}
	c.dispatch(msg)
	return nil
}

func (c *vapiCall) dispatch(msg vapiMessage) {
	switch msg.Type {
	case "status-update":
		switch msg.Status {
		case "in-progress":
			c.mu.Lock()
			if c.callID == "" {
				c.callID = msg.Call.ID
			}
			callID := c.callID
			c.mu.Unlock()
			c.listener.OnConnected(callID)
		case "ended":
			c.ended(msg.EndedReason)
		}
	case "end-of-call-report":
		c.ended(msg.EndedReason)
	case "transcript":
		c.listener.OnTranscript(voice.Speaker(msg.Role), msg.Transcript, msg.TranscriptType == "final")
	case "speech-update":
		if msg.Role != string(voice.SpeakerAssistant) {
			return
		}
		switch msg.Status {
		case "started":
			c.listener.OnSpeechStarted()
		case "stopped":
			c.listener.OnSpeechStopped()
		}
	default:
		slog.Debug("ignoring vapi message", "type", msg.Type, "session_id", c.sessionID)
	}
}

func (c *vapiCall) ended(reason string) {
	if strings.Contains(strings.ToLower(reason), "error") {
		c.listener.OnError(fmt.Errorf("vapi call ended: %s", reason))
		return
	}
	c.listener.OnDisconnected()
}

// StartWorkflow places a workflow call on behalf of a client and returns
// Vapi's response unchanged.
func (t *VapiTransport) StartWorkflow(ctx context.Context, variables map[string]any) (int, []byte, error) {
	if t.cfg.WorkflowID == "" || t.cfg.APIKey == "" {
		return 0, nil, apperr.E(apperr.CodeConfiguration, "voice.StartWorkflow", "VAPI credentials not configured", nil)
	}
	slog.Info("starting vapi workflow", "workflow_id", t.cfg.WorkflowID)
	status, raw, err := t.post(ctx, t.cfg.BaseURL+"/call", map[string]any{
		"workflowId":        t.cfg.WorkflowID,
		"type":              vapiCallType,
		"workflowOverrides": map[string]any{"variableValues": variables},
	})
	if err != nil {
		return 0, nil, apperr.E(apperr.CodeTransport, "voice.StartWorkflow", "Failed to start workflow", err)
	}
	slog.Info("vapi workflow response", "status", status)
	return status, raw, nil
}

func (t *VapiTransport) post(ctx context.Context, url string, payload any) (int, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, vapiMaxResponse))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
