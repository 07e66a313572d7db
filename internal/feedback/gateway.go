package feedback

import (
	"context"
	"time"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/google/uuid"
)

// Gateway writes scored assessments as feedback records, keyed by an
// explicit feedback id so repeated writes overwrite instead of duplicating.
type Gateway struct {
	repo  repository.FeedbackRepository
	newID func() string
	now   func() time.Time
}

func NewGateway(repo repository.FeedbackRepository) *Gateway {
	return &Gateway{
		repo:  repo,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func (g *Gateway) Upsert(ctx context.Context, req Request, a Assessment) (Result, error) {
	const op = "feedback.Gateway.Upsert"

	if req.InterviewID == "" || req.UserID == "" {
		return Result{}, apperr.E(apperr.CodeInvalidArgument, op, "interview id and user id are required", nil)
	}
	if err := a.Validate(); err != nil {
		return Result{}, apperr.E(apperr.CodeFeedbackGeneration, op, "feedback is unavailable", err)
	}

	id := req.FeedbackID
	if id == "" {
		id = g.newID()
	}
	rec, err := g.repo.SaveFeedback(ctx, repository.SaveFeedbackInput{
		ID:                  id,
		InterviewID:         req.InterviewID,
		UserID:              req.UserID,
		TotalScore:          a.TotalScore,
		CategoryScores:      a.ordered(),
		Strengths:           nonNil(a.Strengths),
		AreasForImprovement: nonNil(a.AreasForImprovement),
		FinalAssessment:     a.FinalAssessment,
		WrittenAt:           g.now().UTC(),
	})
	if err != nil {
		return Result{}, apperr.E(apperr.CodePersistence, op, "failed to save feedback", err)
	}
	return Result{FeedbackID: rec.ID, Success: true, Record: rec}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
