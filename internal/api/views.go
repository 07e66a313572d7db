package api

import (
	"time"

	"github.com/foxseedlab/mensetsu/internal/repository"
)

type interviewView struct {
	ID         string   `json:"id"`
	UserID     string   `json:"userId"`
	Role       string   `json:"role"`
	Level      string   `json:"level"`
	Type       string   `json:"type"`
	TechStack  []string `json:"techstack"`
	Questions  []string `json:"questions"`
	Finalized  bool     `json:"finalized"`
	CoverImage string   `json:"coverImage,omitempty"`
	CreatedAt  string   `json:"createdAt"`
}

type feedbackView struct {
	ID                  string                     `json:"id"`
	InterviewID         string                     `json:"interviewId"`
	UserID              string                     `json:"userId"`
	TotalScore          int                        `json:"totalScore"`
	CategoryScores      []repository.CategoryScore `json:"categoryScores"`
	Strengths           []string                   `json:"strengths"`
	AreasForImprovement []string                   `json:"areasForImprovement"`
	FinalAssessment     string                     `json:"finalAssessment"`
	CreatedAt           string                     `json:"createdAt"`
	UpdatedAt           string                     `json:"updatedAt"`
}

func toInterviewView(iv repository.Interview) interviewView {
	return interviewView{
		ID:         iv.ID,
		UserID:     iv.UserID,
		Role:       iv.Role,
		Level:      iv.Level,
		Type:       iv.Type,
		TechStack:  nonNilStrings(iv.TechStack),
		Questions:  nonNilStrings(iv.Questions),
		Finalized:  iv.Finalized,
		CoverImage: iv.CoverImage,
		CreatedAt:  iv.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toInterviewViews(list []repository.Interview) []interviewView {
	out := make([]interviewView, 0, len(list))
	for _, iv := range list {
		out = append(out, toInterviewView(iv))
	}
	return out
}

func toFeedbackViews(list []repository.Feedback) []feedbackView {
	out := make([]feedbackView, 0, len(list))
	for _, fb := range list {
		out = append(out, toFeedbackView(fb))
	}
	return out
}

func toFeedbackView(fb repository.Feedback) feedbackView {
	scores := fb.CategoryScores
	if scores == nil {
		scores = []repository.CategoryScore{}
	}
	return feedbackView{
		ID:                  fb.ID,
		InterviewID:         fb.InterviewID,
		UserID:              fb.UserID,
		TotalScore:          fb.TotalScore,
		CategoryScores:      scores,
		Strengths:           nonNilStrings(fb.Strengths),
		AreasForImprovement: nonNilStrings(fb.AreasForImprovement),
		FinalAssessment:     fb.FinalAssessment,
		CreatedAt:           fb.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           fb.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
