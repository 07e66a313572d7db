package prompt

import (
	"strings"

	"github.com/foxseedlab/mensetsu/internal/voice"
)

const interviewerSystemPrompt = `You are a professional job interviewer conducting a real-time voice interview with a candidate. Your goal is to assess their qualifications, motivation, and fit for the role.

Interview Guidelines:
Follow the structured question flow:
{{questions}}

Engage naturally and react appropriately:
- Listen actively to responses and acknowledge them before moving forward.
- Ask brief follow-up questions if a response is vague or requires more detail.
- Keep the conversation flowing smoothly while maintaining control.

Be professional, yet warm and welcoming. Keep responses short and to the point, as in a real voice interview. Do not ramble.

Conclude the interview properly: thank the candidate for their time and let them know the company will reach out soon with feedback.`

// FormatQuestions renders a question list as "- q" rows for the
// interviewer persona.
func FormatQuestions(questions []string) string {
	rows := make([]string, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, "- "+q)
	}
	return strings.Join(rows, "\n")
}

func InterviewerAssistant(userName string, questions []string) voice.Assistant {
	formatted := FormatQuestions(questions)
	greeting := "Hello"
	if userName != "" {
		greeting += " " + userName
	}
	return voice.Assistant{
		Name:               "Interviewer",
		SystemPrompt:       strings.ReplaceAll(interviewerSystemPrompt, "{{questions}}", formatted),
		FirstMessage:       greeting + "! Thank you for taking the time to speak with me today. I'm excited to learn more about you and your experience.",
		ClosingMessage:     "Thank you for your time today. We will reach out soon with feedback.",
		Questions:          append([]string(nil), questions...),
		FormattedQuestions: formatted,
	}
}
