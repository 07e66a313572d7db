package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/auth"
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/foxseedlab/mensetsu/internal/voice"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	generateAPIVersion = "1.0.0"
	maxWebhookBody     = 1 << 20
	vapiSecretHeader   = "x-vapi-secret"
)

type SessionService interface {
	Start(ctx context.Context, in session.StartInput) (session.StartResult, error)
	End(ctx context.Context, sessionID string, user *auth.User) (session.Snapshot, error)
	Snapshot(sessionID string, user *auth.User) (session.Snapshot, error)
}

type InterviewService interface {
	Generate(ctx context.Context, in interview.GenerateInput) (*repository.Interview, error)
	Get(ctx context.Context, id string) (*repository.Interview, error)
	ListByUser(ctx context.Context, userID string) ([]repository.Interview, error)
	ListLatest(ctx context.Context, excludeUserID string, limit int) ([]repository.Interview, error)
}

type FeedbackReader interface {
	GetByInterview(ctx context.Context, interviewID, userID string) (*repository.Feedback, error)
	ListByUser(ctx context.Context, userID string) ([]repository.Feedback, error)
}

type Handler struct {
	cfg        *config.Config
	sessions   SessionService
	interviews InterviewService
	feedback   FeedbackReader
	auth       auth.Authenticator
	hub        *Hub
	// Set only when the hosted voice transport is in use.
	webhook  voice.WebhookReceiver
	workflow voice.WorkflowStarter
	upgrader websocket.Upgrader
}

type HandlerDeps struct {
	Sessions   SessionService
	Interviews InterviewService
	Feedback   FeedbackReader
	Auth       auth.Authenticator
	Hub        *Hub
	Webhook    voice.WebhookReceiver
	Workflow   voice.WorkflowStarter
}

func NewHandler(cfg *config.Config, d HandlerDeps) *Handler {
	return &Handler{
		cfg:        cfg,
		sessions:   d.Sessions,
		interviews: d.Interviews,
		feedback:   d.Feedback,
		auth:       d.Auth,
		hub:        d.Hub,
		webhook:    d.Webhook,
		workflow:   d.Workflow,
		upgrader:   newUpgrader(),
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "voice_transport": h.cfg.VoiceTransport})
}

type startSessionRequest struct {
	Mode        string `json:"mode"`
	InterviewID string `json:"interviewId"`
}

func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.E(apperr.CodeInvalidArgument, "api.StartSession", "invalid request body", err))
		return
	}
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.sessions.Start(c.Request.Context(), session.StartInput{
		Mode:        mode,
		InterviewID: req.InterviewID,
		User:        currentUser(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "sessionId": res.SessionID, "joinUrl": res.JoinURL, "snapshot": res.Snapshot})
}

func (h *Handler) EndSession(c *gin.Context) {
	snap, err := h.sessions.End(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "snapshot": snap})
}

func (h *Handler) GetSession(c *gin.Context) {
	snap, err := h.sessions.Snapshot(c.Param("id"), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "snapshot": snap})
}

type generateRequest struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	Level     string `json:"level"`
	TechStack string `json:"techstack"`
	Amount    any    `json:"amount"`
	UserID    string `json:"userid"`
}

// GenerateInterview is the tool endpoint the intake workflow calls once it
// has collected role, level, tech stack and question count.
func (h *Handler) GenerateInterview(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.E(apperr.CodeInvalidArgument, "api.GenerateInterview", "invalid request body", err))
		return
	}
	iv, err := h.interviews.Generate(c.Request.Context(), interview.GenerateInput{
		Type:      req.Type,
		Role:      req.Role,
		Level:     req.Level,
		TechStack: req.TechStack,
		Amount:    parseAmount(req.Amount),
		UserID:    req.UserID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"interviewId":    iv.ID,
		"questionsCount": len(iv.Questions),
	})
}

func (h *Handler) GenerateHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Interview generation API is running",
		"version": generateAPIVersion,
	})
}

// parseAmount accepts the question count as a JSON number or a numeric
// string, since workflow tools send either.
func parseAmount(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func (h *Handler) VapiEvents(c *gin.Context) {
	if h.webhook == nil {
		writeError(c, apperr.E(apperr.CodeNotFound, "api.VapiEvents", "hosted voice transport is not enabled", nil))
		return
	}
	if !h.validVapiSecret(c.GetHeader(vapiSecretHeader)) {
		writeError(c, apperr.E(apperr.CodeUnauthenticated, "api.VapiEvents", "invalid webhook secret", nil))
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		writeError(c, apperr.E(apperr.CodeInvalidArgument, "api.VapiEvents", "failed to read body", err))
		return
	}
	if err := h.webhook.HandleWebhook(c.Request.Context(), body); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) validVapiSecret(got string) bool {
	want := h.cfg.VapiWebhookSecret
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

type workflowStartRequest struct {
	Input map[string]any `json:"input"`
}

// StartWorkflow proxies a workflow call so the provider secret never leaves
// the server.
func (h *Handler) StartWorkflow(c *gin.Context) {
	if h.workflow == nil {
		writeError(c, apperr.E(apperr.CodeConfiguration, "api.StartWorkflow", "VAPI credentials not configured", nil))
		return
	}
	var req workflowStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.E(apperr.CodeInvalidArgument, "api.StartWorkflow", "invalid request body", err))
		return
	}
	if req.Input == nil {
		req.Input = map[string]any{}
	}
	status, body, err := h.workflow.StartWorkflow(c.Request.Context(), req.Input)
	if err != nil {
		writeError(c, err)
		return
	}
	if !json.Valid(body) {
		slog.Warn("workflow start returned non-json body", "status", status, "body_bytes", len(body))
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Failed to start workflow"})
		return
	}
	c.Data(status, "application/json", body)
}

func (h *Handler) ListInterviews(c *gin.Context) {
	list, err := h.interviews.ListByUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "interviews": toInterviewViews(list)})
}

func (h *Handler) ListLatestInterviews(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.interviews.ListLatest(c.Request.Context(), currentUser(c).ID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "interviews": toInterviewViews(list)})
}

func (h *Handler) GetInterview(c *gin.Context) {
	iv, err := h.interviews.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "interview": toInterviewView(*iv)})
}

func (h *Handler) GetInterviewFeedback(c *gin.Context) {
	fb, err := h.feedback.GetByInterview(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "feedback": toFeedbackView(*fb)})
}

func (h *Handler) ListFeedback(c *gin.Context) {
	list, err := h.feedback.ListByUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "feedback": toFeedbackViews(list)})
}
