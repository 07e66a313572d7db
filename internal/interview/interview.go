package interview

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/foxseedlab/mensetsu/internal/prompt"
	"github.com/foxseedlab/mensetsu/internal/repository"
)

const (
	DefaultLatestLimit = 10
	maxLatestLimit     = 50
	maxQuestionAmount  = 20
)

var coverImages = []string{
	"/adobe.png",
	"/amazon.png",
	"/facebook.png",
	"/hostinger.png",
	"/pinterest.png",
	"/quora.png",
	"/reddit.png",
	"/skype.png",
	"/spotify.png",
	"/telegram.png",
	"/tiktok.png",
	"/yahoo.png",
}

type GenerateInput struct {
	Type      string
	Role      string
	Level     string
	TechStack string
	Amount    int
	UserID    string
}

type Service struct {
	generator llm.Generator
	repo      repository.InterviewRepository
	now       func() time.Time
	cover     func() string
}

func NewService(generator llm.Generator, repo repository.InterviewRepository) *Service {
	return &Service{
		generator: generator,
		repo:      repo,
		now:       time.Now,
		cover:     randomCover,
	}
}

func randomCover() string {
	return "/covers" + coverImages[rand.IntN(len(coverImages))]
}

// Generate asks the model for a question set and stores it as a finalized
// interview owned by in.UserID.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*repository.Interview, error) {
	const op = "interview.Service.Generate"

	if strings.TrimSpace(in.Type) == "" || strings.TrimSpace(in.Role) == "" || strings.TrimSpace(in.Level) == "" ||
		strings.TrimSpace(in.TechStack) == "" || in.Amount <= 0 || strings.TrimSpace(in.UserID) == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, op, "Missing required fields", nil)
	}
	if in.Amount > maxQuestionAmount {
		return nil, apperr.E(apperr.CodeInvalidArgument, op, "too many questions requested", nil)
	}

	raw, err := s.generator.GenerateText(ctx, prompt.BuildQuestionPrompt(prompt.QuestionPromptInput{
		Role:      in.Role,
		Level:     in.Level,
		TechStack: in.TechStack,
		Type:      in.Type,
		Amount:    in.Amount,
	}))
	if err != nil {
		return nil, apperr.E(apperr.CodeInternal, op, "Failed to generate interview", err)
	}
	questions, err := prompt.ParseQuestions(raw)
	if err != nil {
		slog.Warn("failed to parse generated questions", "error", err, "user_id", in.UserID, "raw_chars", len(raw))
		return nil, err
	}

	iv, err := s.repo.CreateInterview(ctx, repository.CreateInterviewInput{
		UserID:     in.UserID,
		Role:       strings.TrimSpace(in.Role),
		Level:      strings.TrimSpace(in.Level),
		Type:       strings.TrimSpace(in.Type),
		TechStack:  SplitTechStack(in.TechStack),
		Questions:  questions,
		Finalized:  true,
		CoverImage: s.cover(),
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		return nil, apperr.E(apperr.CodePersistence, op, "Failed to generate interview", err)
	}
	slog.Info("interview generated", "interview_id", iv.ID, "user_id", in.UserID, "questions", len(questions))
	return iv, nil
}

// SplitTechStack turns "React, Go ,  SQL" into ["React", "Go", "SQL"].
func SplitTechStack(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) Get(ctx context.Context, id string) (*repository.Interview, error) {
	const op = "interview.Service.Get"

	if id == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, op, "interview id is required", nil)
	}
	iv, err := s.repo.GetInterview(ctx, id)
	if err != nil {
		return nil, apperr.E(apperr.CodePersistence, op, "failed to get interview", err)
	}
	if iv == nil {
		return nil, apperr.E(apperr.CodeNotFound, op, "interview not found", nil)
	}
	return iv, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]repository.Interview, error) {
	if userID == "" {
		return []repository.Interview{}, nil
	}
	list, err := s.repo.ListInterviewsByUser(ctx, userID)
	if err != nil {
		return nil, apperr.E(apperr.CodePersistence, "interview.Service.ListByUser", "failed to list interviews", err)
	}
	return list, nil
}

// ListLatest returns other users' finalized interviews, newest first.
func (s *Service) ListLatest(ctx context.Context, excludeUserID string, limit int) ([]repository.Interview, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	limit = min(limit, maxLatestLimit)
	list, err := s.repo.ListLatestInterviews(ctx, excludeUserID, limit)
	if err != nil {
		return nil, apperr.E(apperr.CodePersistence, "interview.Service.ListLatest", "failed to list interviews", err)
	}
	return list, nil
}
