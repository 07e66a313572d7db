package firebase

import (
	"context"
	"time"

	fb "firebase.google.com/go/v4"
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/samber/do/v2"
)

const appInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*fb.App, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), appInitTimeout)
		defer cancel()
		return NewApp(ctx, cfg.GoogleCloudProjectID, cfg.GoogleCloudCredentialsJSON)
	})
}
