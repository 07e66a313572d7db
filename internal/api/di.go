package api

import (
	"github.com/foxseedlab/mensetsu/internal/auth"
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/feedback"
	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/foxseedlab/mensetsu/internal/voice"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Hub, error) {
		return NewHub(), nil
	})
	do.Provide(injector, func(i do.Injector) (session.Observer, error) {
		return do.MustInvoke[*Hub](i), nil
	})
	do.Provide(injector, func(i do.Injector) (*Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		// Only the hosted transport provides these.
		var (
			wh voice.WebhookReceiver
			wf voice.WorkflowStarter
		)
		if r, err := do.Invoke[voice.WebhookReceiver](i); err == nil {
			wh = r
		}
		if s, err := do.Invoke[voice.WorkflowStarter](i); err == nil {
			wf = s
		}
		return NewHandler(cfg, HandlerDeps{
			Sessions:   do.MustInvoke[*session.Manager](i),
			Interviews: do.MustInvoke[*interview.Service](i),
			Feedback:   do.MustInvoke[*feedback.Service](i),
			Auth:       do.MustInvoke[auth.Authenticator](i),
			Hub:        do.MustInvoke[*Hub](i),
			Webhook:    wh,
			Workflow:   wf,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		return NewServer(do.MustInvoke[*config.Config](i), do.MustInvoke[*Handler](i)), nil
	})
}
