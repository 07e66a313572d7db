package prompt

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/foxseedlab/mensetsu/internal/voice"
)

const (
	CategoryCommunication   = "Communication Skills"
	CategoryTechnical       = "Technical Knowledge"
	CategoryProblemSolving  = "Problem-Solving"
	CategoryCulturalFit     = "Cultural & Role Fit"
	CategoryConfidence      = "Confidence & Clarity"
	feedbackSystemPrompt    = "You are a strict professional interviewer analyzing a mock interview. Your task is to evaluate the candidate based on structured categories."
	feedbackCategoryHeading = "Please score the candidate from 0 to 100 in the following areas. Do not add categories other than the ones provided:"
)

var categoryGuidance = []struct {
	name     string
	guidance string
}{
	{CategoryCommunication, "Clarity, articulation, structured responses."},
	{CategoryTechnical, "Understanding of key concepts for the role."},
	{CategoryProblemSolving, "Ability to analyze problems and propose solutions."},
	{CategoryCulturalFit, "Alignment with company values and job role."},
	{CategoryConfidence, "Confidence in responses, engagement, and clarity."},
}

// Categories returns the fixed scoring categories in presentation order.
func Categories() []string {
	out := make([]string, 0, len(categoryGuidance))
	for _, c := range categoryGuidance {
		out = append(out, c.name)
	}
	return out
}

type FeedbackPrompt struct {
	System string
	User   string
}

// RenderTranscript flattens transcript lines into "- <speaker>: <text>"
// rows joined by newlines.
func RenderTranscript(lines []voice.Line) string {
	rows := make([]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, fmt.Sprintf("- %s: %s", l.Speaker, l.Text))
	}
	return strings.Join(rows, "\n")
}

func BuildFeedbackPrompt(transcriptText string) FeedbackPrompt {
	var b strings.Builder
	b.WriteString("You are an AI interviewer analyzing a mock interview. Your task is to evaluate the candidate based on structured categories. ")
	b.WriteString("Be thorough and detailed in your analysis. Don't be lenient with the candidate. If there are mistakes or areas for improvement, point them out.\n")
	b.WriteString("Transcript:\n")
	b.WriteString(transcriptText)
	b.WriteString("\n")
	b.WriteString(feedbackCategoryHeading)
	b.WriteString("\n")
	for _, c := range categoryGuidance {
		fmt.Fprintf(&b, "- **%s**: %s\n", c.name, c.guidance)
	}
	b.WriteString("Also list the candidate's strengths, the areas for improvement, and a final assessment. totalScore is the overall score from 0 to 100.")
	return FeedbackPrompt{System: feedbackSystemPrompt, User: b.String()}
}

// FeedbackSchema is the structured-output contract for scoring: exactly one
// entry per fixed category, integer scores within 0..100.
func FeedbackSchema() *llm.Schema {
	score := func() *llm.Schema {
		return &llm.Schema{Type: llm.TypeInteger, Minimum: llm.Float(0), Maximum: llm.Float(100)}
	}
	categories := Categories()
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"totalScore": score(),
			"categoryScores": {
				Type:     llm.TypeArray,
				MinItems: len(categories),
				MaxItems: len(categories),
				Items: &llm.Schema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.Schema{
						"name":    {Type: llm.TypeString, Enum: categories},
						"score":   score(),
						"comment": {Type: llm.TypeString},
					},
					Required: []string{"name", "score", "comment"},
				},
			},
			"strengths":           {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
			"areasForImprovement": {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
			"finalAssessment":     {Type: llm.TypeString},
		},
		Required: []string{"totalScore", "categoryScores", "strengths", "areasForImprovement", "finalAssessment"},
	}
}
