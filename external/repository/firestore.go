package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	interviewsCollection = "interviews"
	feedbackCollection   = "feedback"
)

type interviewDoc struct {
	UserID     string    `firestore:"userId"`
	Role       string    `firestore:"role"`
	Level      string    `firestore:"level"`
	Type       string    `firestore:"type"`
	TechStack  []string  `firestore:"techstack"`
	Questions  []string  `firestore:"questions"`
	Finalized  bool      `firestore:"finalized"`
	CoverImage string    `firestore:"coverImage"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

type categoryScoreDoc struct {
	Name    string `firestore:"name"`
	Score   int    `firestore:"score"`
	Comment string `firestore:"comment"`
}

type feedbackDoc struct {
	InterviewID         string             `firestore:"interviewId"`
	UserID              string             `firestore:"userId"`
	TotalScore          int                `firestore:"totalScore"`
	CategoryScores      []categoryScoreDoc `firestore:"categoryScores"`
	Strengths           []string           `firestore:"strengths"`
	AreasForImprovement []string           `firestore:"areasForImprovement"`
	FinalAssessment     string             `firestore:"finalAssessment"`
	CreatedAt           time.Time          `firestore:"createdAt"`
	UpdatedAt           time.Time          `firestore:"updatedAt"`
}

type FirestoreRepository struct {
	client *firestore.Client
}

func NewFirestoreRepository(client *firestore.Client) repository.Repository {
	return &FirestoreRepository{client: client}
}

func (d interviewDoc) toModel(id string) repository.Interview {
	return repository.Interview{
		ID:         id,
		UserID:     d.UserID,
		Role:       d.Role,
		Level:      d.Level,
		Type:       d.Type,
		TechStack:  d.TechStack,
		Questions:  d.Questions,
		Finalized:  d.Finalized,
		CoverImage: d.CoverImage,
		CreatedAt:  d.CreatedAt,
	}
}

func (d feedbackDoc) toModel(id string) repository.Feedback {
	scores := make([]repository.CategoryScore, 0, len(d.CategoryScores))
	for _, c := range d.CategoryScores {
		scores = append(scores, repository.CategoryScore{Name: c.Name, Score: c.Score, Comment: c.Comment})
	}
	return repository.Feedback{
		ID:                  id,
		InterviewID:         d.InterviewID,
		UserID:              d.UserID,
		TotalScore:          d.TotalScore,
		CategoryScores:      scores,
		Strengths:           d.Strengths,
		AreasForImprovement: d.AreasForImprovement,
		FinalAssessment:     d.FinalAssessment,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

func (r *FirestoreRepository) CreateInterview(ctx context.Context, input repository.CreateInterviewInput) (*repository.Interview, error) {
	doc := interviewDoc{
		UserID:     input.UserID,
		Role:       input.Role,
		Level:      input.Level,
		Type:       input.Type,
		TechStack:  input.TechStack,
		Questions:  input.Questions,
		Finalized:  input.Finalized,
		CoverImage: input.CoverImage,
		CreatedAt:  input.CreatedAt,
	}
	ref := r.client.Collection(interviewsCollection).NewDoc()
	if _, err := ref.Create(ctx, doc); err != nil {
		return nil, err
	}
	iv := doc.toModel(ref.ID)
	return &iv, nil
}

func (r *FirestoreRepository) GetInterview(ctx context.Context, id string) (*repository.Interview, error) {
	snap, err := r.client.Collection(interviewsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc interviewDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	iv := doc.toModel(snap.Ref.ID)
	return &iv, nil
}

func (r *FirestoreRepository) ListInterviewsByUser(ctx context.Context, userID string) ([]repository.Interview, error) {
	q := r.client.Collection(interviewsCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)
	return r.queryInterviews(ctx, q)
}

// ListLatestInterviews needs an inequality on userId, which Firestore only
// allows when userId is the first sort key; results are re-sorted by
// creation time afterwards.
func (r *FirestoreRepository) ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]repository.Interview, error) {
	q := r.client.Collection(interviewsCollection).Where("finalized", "==", true)
	if excludeUserID != "" {
		q = q.OrderBy("userId", firestore.Asc).Where("userId", "!=", excludeUserID)
	}
	q = q.OrderBy("createdAt", firestore.Desc).Limit(limit)
	list, err := r.queryInterviews(ctx, q)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *FirestoreRepository) queryInterviews(ctx context.Context, q firestore.Query) ([]repository.Interview, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	list := make([]repository.Interview, 0, len(snaps))
	for _, snap := range snaps {
		var doc interviewDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		list = append(list, doc.toModel(snap.Ref.ID))
	}
	return list, nil
}

// SaveFeedback replaces the document with input.ID inside a transaction so
// the read of the previous createdAt and the write are atomic.
func (r *FirestoreRepository) SaveFeedback(ctx context.Context, input repository.SaveFeedbackInput) (*repository.Feedback, error) {
	ref := r.client.Collection(feedbackCollection).Doc(input.ID)
	scores := make([]categoryScoreDoc, 0, len(input.CategoryScores))
	for _, c := range input.CategoryScores {
		scores = append(scores, categoryScoreDoc{Name: c.Name, Score: c.Score, Comment: c.Comment})
	}
	var saved feedbackDoc
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		createdAt := input.WrittenAt
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var existing feedbackDoc
			if err := snap.DataTo(&existing); err == nil && !existing.CreatedAt.IsZero() {
				createdAt = existing.CreatedAt
			}
		case status.Code(err) != codes.NotFound:
			return err
		}
		saved = feedbackDoc{
			InterviewID:         input.InterviewID,
			UserID:              input.UserID,
			TotalScore:          input.TotalScore,
			CategoryScores:      scores,
			Strengths:           input.Strengths,
			AreasForImprovement: input.AreasForImprovement,
			FinalAssessment:     input.FinalAssessment,
			CreatedAt:           createdAt,
			UpdatedAt:           input.WrittenAt,
		}
		return tx.Set(ref, saved)
	})
	if err != nil {
		return nil, err
	}
	fb := saved.toModel(input.ID)
	return &fb, nil
}

func (r *FirestoreRepository) GetFeedbackByInterview(ctx context.Context, interviewID, userID string) (*repository.Feedback, error) {
	snaps, err := r.client.Collection(feedbackCollection).
		Where("interviewId", "==", interviewID).
		Where("userId", "==", userID).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	var doc feedbackDoc
	if err := snaps[0].DataTo(&doc); err != nil {
		return nil, err
	}
	fb := doc.toModel(snaps[0].Ref.ID)
	return &fb, nil
}

func (r *FirestoreRepository) ListFeedbackByUser(ctx context.Context, userID string) ([]repository.Feedback, error) {
	snaps, err := r.client.Collection(feedbackCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	list := make([]repository.Feedback, 0, len(snaps))
	for _, snap := range snaps {
		var doc feedbackDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		list = append(list, doc.toModel(snap.Ref.ID))
	}
	return list, nil
}
