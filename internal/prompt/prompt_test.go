package prompt

import (
	"strings"
	"testing"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/voice"
)

func TestBuildQuestionPrompt_ContainsInputsAndVoiceContract(t *testing.T) {
	p := BuildQuestionPrompt(QuestionPromptInput{
		Role:      "Backend Engineer",
		Level:     "Senior",
		TechStack: "Go, PostgreSQL",
		Type:      "technical",
		Amount:    5,
	})
	for _, want := range []string{
		"Generate 5 interview questions for a Backend Engineer position.",
		"Experience Level: Senior",
		"Tech Stack: Go, PostgreSQL",
		"Question Type Focus: technical",
		"No special characters (/, *, etc.)",
		"Return ONLY a JSON array",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("expected prompt to contain %q:\n%s", want, p)
		}
	}
}

func TestParseQuestions_StripsFences(t *testing.T) {
	got, err := ParseQuestions("```json\n[\"Tell me about yourself\", \" Why Go? \"]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "Tell me about yourself" || got[1] != "Why Go?" {
		t.Fatalf("unexpected questions: %#v", got)
	}
}

func TestParseQuestions_SingleLineFence(t *testing.T) {
	for _, raw := range []string{
		"```json[\"a\",\"b\"]```",
		"```json [\"a\",\"b\"]```",
	} {
		got, err := ParseQuestions(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Fatalf("unexpected questions for %q: %#v", raw, got)
		}
	}
}

func TestParseQuestions_RejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"Question 1, Question 2",
		`{"questions":["a"]}`,
		`[1, 2]`,
		`[]`,
		`["a", "  "]`,
	} {
		if _, err := ParseQuestions(raw); !apperr.IsCode(err, apperr.CodeParse) {
			t.Fatalf("expected parse error for %q, got %v", raw, err)
		}
	}
}

func TestRenderTranscript(t *testing.T) {
	got := RenderTranscript([]voice.Line{
		{Speaker: voice.SpeakerAssistant, Text: "Hi there"},
		{Speaker: voice.SpeakerUser, Text: "Hello"},
	})
	want := "- assistant: Hi there\n- user: Hello"
	if got != want {
		t.Fatalf("unexpected transcript:\n%s", got)
	}
	if RenderTranscript(nil) != "" {
		t.Fatal("expected empty transcript for no lines")
	}
}

func TestBuildFeedbackPrompt_NamesEveryCategory(t *testing.T) {
	p := BuildFeedbackPrompt("- user: hello")
	if !strings.Contains(p.System, "strict professional interviewer") {
		t.Fatalf("unexpected system prompt: %s", p.System)
	}
	if !strings.Contains(p.User, "Transcript:\n- user: hello") {
		t.Fatalf("transcript not embedded: %s", p.User)
	}
	for _, c := range Categories() {
		if !strings.Contains(p.User, "**"+c+"**") {
			t.Fatalf("category %q missing from prompt", c)
		}
	}
	if !strings.Contains(p.User, "Do not add categories other than the ones provided") {
		t.Fatal("expected category restriction in prompt")
	}
}

func TestFeedbackSchema_AcceptsExactCategories(t *testing.T) {
	valid := `{
		"totalScore": 72,
		"categoryScores": [
			{"name": "Communication Skills", "score": 80, "comment": "clear"},
			{"name": "Technical Knowledge", "score": 70, "comment": "ok"},
			{"name": "Problem-Solving", "score": 65, "comment": "ok"},
			{"name": "Cultural & Role Fit", "score": 75, "comment": "good"},
			{"name": "Confidence & Clarity", "score": 70, "comment": "fine"}
		],
		"strengths": ["structure"],
		"areasForImprovement": ["depth"],
		"finalAssessment": "solid"
	}`
	if err := FeedbackSchema().Validate([]byte(valid)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	extra := strings.Replace(valid, `"Problem-Solving"`, `"Humor"`, 1)
	if err := FeedbackSchema().Validate([]byte(extra)); err == nil {
		t.Fatal("expected unknown category to be rejected")
	}
	outOfRange := strings.Replace(valid, `"score": 80`, `"score": 180`, 1)
	if err := FeedbackSchema().Validate([]byte(outOfRange)); err == nil {
		t.Fatal("expected out of range score to be rejected")
	}
}

func TestInterviewerAssistant(t *testing.T) {
	a := InterviewerAssistant("Aki", []string{"Why Go?", "Tell me about channels"})
	if a.FormattedQuestions != "- Why Go?\n- Tell me about channels" {
		t.Fatalf("unexpected formatted questions: %q", a.FormattedQuestions)
	}
	if strings.Contains(a.SystemPrompt, "{{questions}}") || !strings.Contains(a.SystemPrompt, a.FormattedQuestions) {
		t.Fatal("expected questions to be substituted into the persona")
	}
	if !strings.HasPrefix(a.FirstMessage, "Hello Aki!") {
		t.Fatalf("unexpected first message: %q", a.FirstMessage)
	}
	if len(a.Questions) != 2 {
		t.Fatalf("unexpected questions: %v", a.Questions)
	}
}
