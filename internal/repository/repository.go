package repository

import (
	"context"
	"time"
)

type CreateInterviewInput struct {
	UserID     string
	Role       string
	Level      string
	Type       string
	TechStack  []string
	Questions  []string
	Finalized  bool
	CoverImage string
	CreatedAt  time.Time
}

// SaveFeedbackInput is a complete feedback document. Saving it replaces
// any record with the same ID in one atomic write; CreatedAt is kept from
// the existing record and only taken from WrittenAt on first insert.
type SaveFeedbackInput struct {
	ID                  string
	InterviewID         string
	UserID              string
	TotalScore          int
	CategoryScores      []CategoryScore
	Strengths           []string
	AreasForImprovement []string
	FinalAssessment     string
	WrittenAt           time.Time
}

// Lookups return (nil, nil) when nothing matches.
type InterviewRepository interface {
	CreateInterview(ctx context.Context, input CreateInterviewInput) (*Interview, error)
	GetInterview(ctx context.Context, id string) (*Interview, error)
	ListInterviewsByUser(ctx context.Context, userID string) ([]Interview, error)
	ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]Interview, error)
}

type FeedbackRepository interface {
	SaveFeedback(ctx context.Context, input SaveFeedbackInput) (*Feedback, error)
	GetFeedbackByInterview(ctx context.Context, interviewID, userID string) (*Feedback, error)
	ListFeedbackByUser(ctx context.Context, userID string) ([]Feedback, error)
}

type Repository interface {
	InterviewRepository
	FeedbackRepository
}
