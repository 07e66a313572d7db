package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/webhook"
)

func TestSendFeedback_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendFeedback(context.Background(), webhook.FeedbackWebhookPayload{FeedbackID: "fb-1"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendFeedback_Success(t *testing.T) {
	var got webhook.FeedbackWebhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if v := r.Header.Get(schemaVersionHeader); v != webhook.FeedbackWebhookSchemaVersion {
			t.Errorf("unexpected schema version header: %q", v)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	payload := webhook.FeedbackWebhookPayload{
		SchemaVersion: webhook.FeedbackWebhookSchemaVersion,
		FeedbackID:    "fb-1",
		InterviewID:   "iv-1",
		UserID:        "user-1",
		TotalScore:    72,
		CategoryScores: []webhook.FeedbackWebhookCategory{
			{Name: "Communication Skills", Score: 80, Comment: "clear"},
		},
		Strengths: []string{"structured answers"},
	}
	sender := NewHTTPSender(server.URL)
	if err := sender.SendFeedback(context.Background(), payload); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.FeedbackID != "fb-1" || got.InterviewID != "iv-1" || got.TotalScore != 72 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if len(got.CategoryScores) != 1 || got.CategoryScores[0].Name != "Communication Skills" {
		t.Fatalf("unexpected category scores: %+v", got.CategoryScores)
	}
}

func TestSendFeedback_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("unknown schema_version\n" + strings.Repeat("x", 2*errorBodyLimit)))
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	err := sender.SendFeedback(context.Background(), webhook.FeedbackWebhookPayload{FeedbackID: "fb-1"})
	if !apperr.IsCode(err, apperr.CodeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.FeedbackID != "fb-1" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if !strings.HasPrefix(statusErr.Body, "unknown schema_version") || len(statusErr.Body) > errorBodyLimit {
		t.Fatalf("unexpected body snippet (%d bytes): %q", len(statusErr.Body), statusErr.Body)
	}
}

func TestSendFeedback_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewHTTPSender(url).SendFeedback(context.Background(), webhook.FeedbackWebhookPayload{FeedbackID: "fb-1"})
	if !apperr.IsCode(err, apperr.CodeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Fatal("connection failure must not look like a status error")
	}
}
