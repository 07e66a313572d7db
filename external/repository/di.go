package repository

import (
	"context"
	"fmt"
	"time"

	fb "firebase.google.com/go/v4"
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

const databaseInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (repository.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()

		switch cfg.RepositoryBackend {
		case config.RepositoryBackendFirestore:
			return newFirestore(ctx, do.MustInvoke[*fb.App](i))
		case config.RepositoryBackendPostgres:
			return newPostgres(ctx, cfg.DatabaseURL)
		default:
			return nil, fmt.Errorf("unknown repository backend %q", cfg.RepositoryBackend)
		}
	})
}

func newPostgres(ctx context.Context, databaseURL string) (repository.Repository, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := RunMigration(ctx, p); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to run migration: %w", err)
	}
	return NewPostgresRepository(p), nil
}

func newFirestore(ctx context.Context, app *fb.App) (repository.Repository, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect firestore: %w", err)
	}
	return NewFirestoreRepository(client), nil
}
