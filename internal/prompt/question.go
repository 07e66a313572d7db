package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/llm"
)

type QuestionPromptInput struct {
	Role      string
	Level     string
	TechStack string
	Type      string
	Amount    int
}

func BuildQuestionPrompt(in QuestionPromptInput) string {
	return fmt.Sprintf(`Generate %d interview questions for a %s position.

Experience Level: %s
Tech Stack: %s
Question Type Focus: %s

Requirements:
- Return ONLY a JSON array of questions, no markdown formatting
- No code blocks, no backticks, no extra text
- No special characters (/, *, etc.) that break voice assistants
- Questions should be clear and conversational
- Format: ["Question 1", "Question 2", "Question 3"]

Important: Return the raw JSON array directly, not wrapped in `+"```json"+` blocks.`,
		in.Amount, in.Role, in.Level, in.TechStack, in.Type)
}

// ParseQuestions cleans a raw question-generation response and decodes it
// as a list of non-empty strings.
func ParseQuestions(raw string) ([]string, error) {
	const op = "prompt.ParseQuestions"

	cleaned := llm.StripCodeFence(raw)
	if cleaned == "" {
		return nil, apperr.E(apperr.CodeParse, op, "generated questions are empty", nil)
	}
	var questions []string
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, apperr.E(apperr.CodeParse, op, "generated questions are not in array format", err)
	}
	out := make([]string, 0, len(questions))
	for i, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, apperr.E(apperr.CodeParse, op, fmt.Sprintf("generated question %d is empty", i), nil)
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, apperr.E(apperr.CodeParse, op, "generated question list is empty", nil)
	}
	return out, nil
}
