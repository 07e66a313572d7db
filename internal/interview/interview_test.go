package interview

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/foxseedlab/mensetsu/internal/repository"
)

type mockGenerator struct {
	text   string
	err    error
	prompt string
}

func (m *mockGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.text, m.err
}

func (m *mockGenerator) GenerateStructured(context.Context, llm.StructuredRequest) ([]byte, error) {
	return nil, errors.New("not used")
}

type mockRepository struct {
	created     []repository.CreateInterviewInput
	createErr   error
	latestLimit int
	latestUser  string
}

func (m *mockRepository) CreateInterview(_ context.Context, in repository.CreateInterviewInput) (*repository.Interview, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, in)
	return &repository.Interview{
		ID:         "iv-1",
		UserID:     in.UserID,
		Role:       in.Role,
		Level:      in.Level,
		Type:       in.Type,
		TechStack:  in.TechStack,
		Questions:  in.Questions,
		Finalized:  in.Finalized,
		CoverImage: in.CoverImage,
		CreatedAt:  in.CreatedAt,
	}, nil
}

func (m *mockRepository) GetInterview(_ context.Context, id string) (*repository.Interview, error) {
	if id == "iv-1" {
		return &repository.Interview{ID: "iv-1"}, nil
	}
	return nil, nil
}

func (m *mockRepository) ListInterviewsByUser(context.Context, string) ([]repository.Interview, error) {
	return []repository.Interview{{ID: "iv-1"}}, nil
}

func (m *mockRepository) ListLatestInterviews(_ context.Context, excludeUserID string, limit int) ([]repository.Interview, error) {
	m.latestUser = excludeUserID
	m.latestLimit = limit
	return nil, nil
}

func validInput() GenerateInput {
	return GenerateInput{
		Type:      "Technical",
		Role:      "Backend Engineer",
		Level:     "Senior",
		TechStack: "Go, PostgreSQL ,, Kubernetes",
		Amount:    3,
		UserID:    "u-1",
	}
}

func TestGenerate_StoresFinalizedInterview(t *testing.T) {
	gen := &mockGenerator{text: "```json\n[\"What is a goroutine?\", \"Explain MVCC.\", \"Describe a pod.\"]\n```"}
	repo := &mockRepository{}
	svc := NewService(gen, repo)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	svc.cover = func() string { return "/covers/amazon.png" }

	iv, err := svc.Generate(context.Background(), validInput())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(iv.Questions) != 3 || iv.Questions[1] != "Explain MVCC." {
		t.Fatalf("unexpected questions: %v", iv.Questions)
	}
	if !iv.Finalized || iv.CoverImage != "/covers/amazon.png" || !iv.CreatedAt.Equal(now) {
		t.Fatalf("unexpected interview: %+v", iv)
	}
	want := []string{"Go", "PostgreSQL", "Kubernetes"}
	if strings.Join(iv.TechStack, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected tech stack: %v", iv.TechStack)
	}
	if !strings.Contains(gen.prompt, "Generate 3 interview questions for a Backend Engineer position.") {
		t.Fatalf("unexpected prompt: %q", gen.prompt)
	}
}

func TestGenerate_MissingFields(t *testing.T) {
	svc := NewService(&mockGenerator{}, &mockRepository{})
	in := validInput()
	in.Role = "  "
	_, err := svc.Generate(context.Background(), in)
	if !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	in = validInput()
	in.Amount = 0
	if _, err := svc.Generate(context.Background(), in); !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument for zero amount, got %v", err)
	}
}

func TestGenerate_ParseErrorWritesNothing(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(&mockGenerator{text: "Here are your questions: 1. Why Go?"}, repo)

	_, err := svc.Generate(context.Background(), validInput())
	if !apperr.IsCode(err, apperr.CodeParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatal("expected no interview to be stored")
	}
}

func TestGenerate_PersistenceError(t *testing.T) {
	repo := &mockRepository{createErr: errors.New("db down")}
	svc := NewService(&mockGenerator{text: `["Why Go?"]`}, repo)

	_, err := svc.Generate(context.Background(), validInput())
	if !apperr.IsCode(err, apperr.CodePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestGet(t *testing.T) {
	svc := NewService(&mockGenerator{}, &mockRepository{})
	if _, err := svc.Get(context.Background(), "iv-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(context.Background(), "missing"); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListLatest_ClampsLimit(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(&mockGenerator{}, repo)

	if _, err := svc.ListLatest(context.Background(), "u-1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.latestLimit != DefaultLatestLimit || repo.latestUser != "u-1" {
		t.Fatalf("unexpected query: limit=%d user=%q", repo.latestLimit, repo.latestUser)
	}
	if _, err := svc.ListLatest(context.Background(), "", 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.latestLimit != maxLatestLimit {
		t.Fatalf("expected clamp to %d, got %d", maxLatestLimit, repo.latestLimit)
	}
}

func TestRandomCover(t *testing.T) {
	for range 20 {
		c := randomCover()
		if !strings.HasPrefix(c, "/covers/") || !strings.HasSuffix(c, ".png") {
			t.Fatalf("unexpected cover: %q", c)
		}
	}
}
