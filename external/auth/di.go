package auth

import (
	"context"
	"fmt"
	"time"

	fb "firebase.google.com/go/v4"
	"github.com/foxseedlab/mensetsu/internal/auth"
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/samber/do/v2"
)

const clientInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (auth.Authenticator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.AuthProvider {
		case config.AuthProviderJWT:
			return NewJWTAuthenticator(cfg.AuthJWTSecret), nil
		case config.AuthProviderFirebase:
			app := do.MustInvoke[*fb.App](i)
			ctx, cancel := context.WithTimeout(context.Background(), clientInitTimeout)
			defer cancel()
			authClient, err := app.Auth(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
			}
			store, err := app.Firestore(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to connect firestore: %w", err)
			}
			return NewFirebaseAuthenticator(authClient, store), nil
		default:
			return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
		}
	})
}
