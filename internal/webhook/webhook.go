package webhook

import "context"

const FeedbackWebhookSchemaVersion = "2026-10-01"

type FeedbackWebhookCategory struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

type FeedbackWebhookPayload struct {
	SchemaVersion       string                    `json:"schema_version"`
	FeedbackID          string                    `json:"feedback_id"`
	InterviewID         string                    `json:"interview_id"`
	UserID              string                    `json:"user_id"`
	TotalScore          int                       `json:"total_score"`
	CategoryScores      []FeedbackWebhookCategory `json:"category_scores"`
	Strengths           []string                  `json:"strengths"`
	AreasForImprovement []string                  `json:"areas_for_improvement"`
	FinalAssessment     string                    `json:"final_assessment"`
	CreatedAt           string                    `json:"created_at"`
	UpdatedAt           string                    `json:"updated_at"`
	TranscriptLineCount int                       `json:"transcript_line_count"`
}

type Sender interface {
	SendFeedback(ctx context.Context, payload FeedbackWebhookPayload) error
}
