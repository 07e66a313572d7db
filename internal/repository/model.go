package repository

import "time"

type Interview struct {
	ID         string
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

type CategoryScore struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

type Feedback struct {
	ID                  string
	InterviewID         string
	UserID              string
	TotalScore          int
	CategoryScores      []CategoryScore
	Strengths           []string
	AreasForImprovement []string
	FinalAssessment     string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
