package repository

import (
	"context"
	"errors"

	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

const interviewColumns = `id, user_id, role, level, type, tech_stack, questions, finalized, cover_image, created_at`

const feedbackColumns = `id, interview_id, user_id, total_score, category_scores, strengths, areas_for_improvement, final_assessment, created_at, updated_at`

func scanInterview(row pgx.Row) (*repository.Interview, error) {
	var iv repository.Interview
	err := row.Scan(&iv.ID, &iv.UserID, &iv.Role, &iv.Level, &iv.Type, &iv.TechStack, &iv.Questions, &iv.Finalized, &iv.CoverImage, &iv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

func scanFeedback(row pgx.Row) (*repository.Feedback, error) {
	var fb repository.Feedback
	err := row.Scan(&fb.ID, &fb.InterviewID, &fb.UserID, &fb.TotalScore, &fb.CategoryScores, &fb.Strengths, &fb.AreasForImprovement, &fb.FinalAssessment, &fb.CreatedAt, &fb.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *PostgresRepository) CreateInterview(ctx context.Context, input repository.CreateInterviewInput) (*repository.Interview, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO interviews (user_id, role, level, type, tech_stack, questions, finalized, cover_image, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+interviewColumns,
		input.UserID, input.Role, input.Level, input.Type, input.TechStack, input.Questions, input.Finalized, input.CoverImage, input.CreatedAt)
	return scanInterview(row)
}

func (r *PostgresRepository) GetInterview(ctx context.Context, id string) (*repository.Interview, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id)
	iv, err := scanInterview(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return iv, err
}

func (r *PostgresRepository) ListInterviewsByUser(ctx context.Context, userID string) ([]repository.Interview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	return collectInterviews(rows)
}

func (r *PostgresRepository) ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]repository.Interview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE finalized AND ($1 = '' OR user_id <> $1)
		 ORDER BY created_at DESC
		 LIMIT $2`,
		excludeUserID, limit)
	if err != nil {
		return nil, err
	}
	return collectInterviews(rows)
}

func collectInterviews(rows pgx.Rows) ([]repository.Interview, error) {
	defer rows.Close()
	list := []repository.Interview{}
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *iv)
	}
	return list, rows.Err()
}

// SaveFeedback replaces the record with input.ID in one statement. An
// existing row keeps its created_at; only updated_at moves.
func (r *PostgresRepository) SaveFeedback(ctx context.Context, input repository.SaveFeedbackInput) (*repository.Feedback, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO feedback (id, interview_id, user_id, total_score, category_scores, strengths, areas_for_improvement, final_assessment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 ON CONFLICT (id) DO UPDATE SET
			interview_id = EXCLUDED.interview_id,
			user_id = EXCLUDED.user_id,
			total_score = EXCLUDED.total_score,
			category_scores = EXCLUDED.category_scores,
			strengths = EXCLUDED.strengths,
			areas_for_improvement = EXCLUDED.areas_for_improvement,
			final_assessment = EXCLUDED.final_assessment,
			updated_at = EXCLUDED.updated_at
		 RETURNING `+feedbackColumns,
		input.ID, input.InterviewID, input.UserID, input.TotalScore, input.CategoryScores, input.Strengths, input.AreasForImprovement, input.FinalAssessment, input.WrittenAt)
	return scanFeedback(row)
}

func (r *PostgresRepository) GetFeedbackByInterview(ctx context.Context, interviewID, userID string) (*repository.Feedback, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM feedback
		 WHERE interview_id = $1 AND user_id = $2
		 ORDER BY created_at ASC
		 LIMIT 1`,
		interviewID, userID)
	fb, err := scanFeedback(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return fb, err
}

func (r *PostgresRepository) ListFeedbackByUser(ctx context.Context, userID string) ([]repository.Feedback, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []repository.Feedback{}
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *fb)
	}
	return list, rows.Err()
}
