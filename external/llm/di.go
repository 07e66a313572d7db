package llm

import (
	"context"
	"time"

	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/samber/do/v2"
)

const clientInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (llm.Generator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), clientInitTimeout)
		defer cancel()
		return NewVertexGemini(ctx, cfg.GoogleCloudProjectID, cfg.VertexLocation, cfg.LLMModel, cfg.GoogleCloudCredentialsJSON)
	})
}
