package session

import (
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/feedback"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/voice"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		fb := do.MustInvoke[*feedback.Service](i)
		transport := do.MustInvoke[voice.Transport](i)
		observer := do.MustInvoke[Observer](i)
		return NewManager(cfg, repo, fb, transport, observer), nil
	})
}
