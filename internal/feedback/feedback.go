package feedback

import (
	"fmt"
	"slices"

	"github.com/foxseedlab/mensetsu/internal/prompt"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/voice"
)

type Request struct {
	InterviewID string
	UserID      string
	Transcript  []voice.Line
	// FeedbackID names an existing record to overwrite; empty allocates a
	// new one.
	FeedbackID string
}

func (r Request) TranscriptText() string {
	return prompt.RenderTranscript(r.Transcript)
}

// Assessment is the structured scoring object returned by the model.
type Assessment struct {
	TotalScore          int                        `json:"totalScore"`
	CategoryScores      []repository.CategoryScore `json:"categoryScores"`
	Strengths           []string                   `json:"strengths"`
	AreasForImprovement []string                   `json:"areasForImprovement"`
	FinalAssessment     string                     `json:"finalAssessment"`
}

// Validate checks that every fixed category is scored exactly once and all
// scores lie in 0..100.
func (a Assessment) Validate() error {
	if a.TotalScore < 0 || a.TotalScore > 100 {
		return fmt.Errorf("total score %d is out of range", a.TotalScore)
	}
	categories := prompt.Categories()
	if len(a.CategoryScores) != len(categories) {
		return fmt.Errorf("expected %d category scores, got %d", len(categories), len(a.CategoryScores))
	}
	seen := make(map[string]struct{}, len(categories))
	for _, cs := range a.CategoryScores {
		if !slices.Contains(categories, cs.Name) {
			return fmt.Errorf("unknown category %q", cs.Name)
		}
		if _, dup := seen[cs.Name]; dup {
			return fmt.Errorf("category %q scored twice", cs.Name)
		}
		seen[cs.Name] = struct{}{}
		if cs.Score < 0 || cs.Score > 100 {
			return fmt.Errorf("category %q score %d is out of range", cs.Name, cs.Score)
		}
	}
	return nil
}

// ordered returns the category scores in the fixed presentation order.
func (a Assessment) ordered() []repository.CategoryScore {
	byName := make(map[string]repository.CategoryScore, len(a.CategoryScores))
	for _, cs := range a.CategoryScores {
		byName[cs.Name] = cs
	}
	out := make([]repository.CategoryScore, 0, len(byName))
	for _, name := range prompt.Categories() {
		if cs, ok := byName[name]; ok {
			out = append(out, cs)
		}
	}
	return out
}

type Result struct {
	FeedbackID string
	Success    bool
	Record     *repository.Feedback
}
