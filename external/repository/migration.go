package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS interviews (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		level TEXT NOT NULL,
		type TEXT NOT NULL,
		tech_stack TEXT[] NOT NULL DEFAULT '{}',
		questions TEXT[] NOT NULL DEFAULT '{}',
		finalized BOOLEAN NOT NULL DEFAULT FALSE,
		cover_image TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interviews_user ON interviews (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_interviews_finalized ON interviews (created_at DESC) WHERE finalized`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		interview_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		total_score INTEGER NOT NULL CHECK (total_score BETWEEN 0 AND 100),
		category_scores JSONB NOT NULL,
		strengths TEXT[] NOT NULL DEFAULT '{}',
		areas_for_improvement TEXT[] NOT NULL DEFAULT '{}',
		final_assessment TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_interview_user ON feedback (interview_id, user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_user ON feedback (user_id, created_at DESC)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
