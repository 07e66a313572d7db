package feedback

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/foxseedlab/mensetsu/internal/prompt"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/webhook"
)

// Service turns a finished interview transcript into a persisted feedback
// record: prompt assembly, schema-constrained scoring, upsert.
type Service struct {
	generator llm.Generator
	gateway   *Gateway
	repo      repository.FeedbackRepository
	webhook   webhook.Sender
}

func NewService(generator llm.Generator, repo repository.FeedbackRepository, wh webhook.Sender) *Service {
	return &Service{
		generator: generator,
		gateway:   NewGateway(repo),
		repo:      repo,
		webhook:   wh,
	}
}

func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	const op = "feedback.Service.Generate"

	if req.InterviewID == "" || req.UserID == "" {
		return Result{}, apperr.E(apperr.CodeInvalidArgument, op, "interview id and user id are required", nil)
	}
	if len(req.Transcript) == 0 {
		return Result{}, apperr.E(apperr.CodeInvalidArgument, op, "transcript is empty", nil)
	}

	p := prompt.BuildFeedbackPrompt(req.TranscriptText())
	started := time.Now()
	assessment, err := llm.GenerateObject[Assessment](ctx, s.generator, llm.StructuredRequest{
		System: p.System,
		Prompt: p.User,
		Schema: prompt.FeedbackSchema(),
	})
	if err != nil {
		return Result{}, apperr.E(apperr.CodeFeedbackGeneration, op, "feedback is unavailable", err)
	}
	if err := assessment.Validate(); err != nil {
		return Result{}, apperr.E(apperr.CodeFeedbackGeneration, op, "feedback is unavailable", err)
	}
	slog.Info("feedback scored", "interview_id", req.InterviewID, "user_id", req.UserID, "total_score", assessment.TotalScore, "elapsed_ms", time.Since(started).Milliseconds())

	res, err := s.gateway.Upsert(ctx, req, assessment)
	if err != nil {
		return Result{}, err
	}
	slog.Info("feedback saved", "feedback_id", res.FeedbackID, "interview_id", req.InterviewID, "overwrite", req.FeedbackID != "")

	if err := s.webhook.SendFeedback(ctx, buildWebhookPayload(res.Record, len(req.Transcript))); err != nil {
		slog.Error("failed to send feedback webhook", "error", err, "feedback_id", res.FeedbackID)
	}
	return res, nil
}

// ExistingID returns the id of the feedback already stored for the
// interview and user, or "" when there is none.
func (s *Service) ExistingID(ctx context.Context, interviewID, userID string) (string, error) {
	fb, err := s.repo.GetFeedbackByInterview(ctx, interviewID, userID)
	if err != nil {
		return "", apperr.E(apperr.CodePersistence, "feedback.Service.ExistingID", "failed to look up feedback", err)
	}
	if fb == nil {
		return "", nil
	}
	return fb.ID, nil
}

func (s *Service) GetByInterview(ctx context.Context, interviewID, userID string) (*repository.Feedback, error) {
	const op = "feedback.Service.GetByInterview"

	if interviewID == "" || userID == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, op, "interview id and user id are required", nil)
	}
	fb, err := s.repo.GetFeedbackByInterview(ctx, interviewID, userID)
	if err != nil {
		return nil, apperr.E(apperr.CodePersistence, op, "failed to get feedback", err)
	}
	if fb == nil {
		return nil, apperr.E(apperr.CodeNotFound, op, "feedback not found", nil)
	}
	return fb, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]repository.Feedback, error) {
	const op = "feedback.Service.ListByUser"

	if userID == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, op, "user id is required", nil)
	}
	list, err := s.repo.ListFeedbackByUser(ctx, userID)
	if err != nil {
		return nil, apperr.E(apperr.CodePersistence, op, "failed to list feedback", err)
	}
	return list, nil
}

func buildWebhookPayload(fb *repository.Feedback, lineCount int) webhook.FeedbackWebhookPayload {
	categories := make([]webhook.FeedbackWebhookCategory, 0, len(fb.CategoryScores))
	for _, cs := range fb.CategoryScores {
		categories = append(categories, webhook.FeedbackWebhookCategory{Name: cs.Name, Score: cs.Score, Comment: cs.Comment})
	}
	return webhook.FeedbackWebhookPayload{
		SchemaVersion:       webhook.FeedbackWebhookSchemaVersion,
		FeedbackID:          fb.ID,
		InterviewID:         fb.InterviewID,
		UserID:              fb.UserID,
		TotalScore:          fb.TotalScore,
		CategoryScores:      categories,
		Strengths:           fb.Strengths,
		AreasForImprovement: fb.AreasForImprovement,
		FinalAssessment:     fb.FinalAssessment,
		CreatedAt:           fb.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           fb.UpdatedAt.UTC().Format(time.RFC3339),
		TranscriptLineCount: lineCount,
	}
}
