package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/webhook"
)

const (
	sendTimeout         = 15 * time.Second
	errorBodyLimit      = 512
	schemaVersionHeader = "X-Mensetsu-Schema-Version"
)

// StatusError is returned when the receiver answers a feedback delivery
// with a non-2xx status. Body holds the start of the response.
type StatusError struct {
	FeedbackID string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("feedback %s: webhook returned status %d", e.FeedbackID, e.StatusCode)
	}
	return fmt.Sprintf("feedback %s: webhook returned status %d: %s", e.FeedbackID, e.StatusCode, e.Body)
}

// HTTPSender posts scored feedback to an operator-configured URL.
type HTTPSender struct {
	url    string
	client *http.Client
}

func NewHTTPSender(url string) webhook.Sender {
	return &HTTPSender{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: sendTimeout},
	}
}

func (s *HTTPSender) SendFeedback(ctx context.Context, payload webhook.FeedbackWebhookPayload) error {
	const op = "webhook.SendFeedback"
	if s.url == "" {
		slog.Debug("feedback webhook disabled", "feedback_id", payload.FeedbackID)
		return nil
	}

	req, err := s.newRequest(ctx, payload)
	if err != nil {
		return apperr.E(apperr.CodeInternal, op, "", err)
	}
	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		slog.Warn("feedback webhook unreachable", "error", err, "feedback_id", payload.FeedbackID, "interview_id", payload.InterviewID)
		return apperr.E(apperr.CodeTransport, op, "", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		statusErr := &StatusError{
			FeedbackID: payload.FeedbackID,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
		slog.Warn("feedback webhook rejected delivery", "status", resp.StatusCode, "feedback_id", payload.FeedbackID, "interview_id", payload.InterviewID)
		return apperr.E(apperr.CodeTransport, op, "", statusErr)
	}
	slog.Info("feedback webhook delivered", "status", resp.StatusCode, "feedback_id", payload.FeedbackID, "interview_id", payload.InterviewID, "elapsed_ms", time.Since(started).Milliseconds())
	return nil
}

func (s *HTTPSender) newRequest(ctx context.Context, payload webhook.FeedbackWebhookPayload) (*http.Request, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(schemaVersionHeader, payload.SchemaVersion)
	return req, nil
}
