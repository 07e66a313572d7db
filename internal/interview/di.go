package interview

import (
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		gen := do.MustInvoke[llm.Generator](i)
		repo := do.MustInvoke[repository.Repository](i)
		return NewService(gen, repo), nil
	})
}
