package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foxseedlab/mensetsu/internal/audio"
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/discord"
	"github.com/foxseedlab/mensetsu/internal/transcriber"
	"github.com/foxseedlab/mensetsu/internal/voice"
	"github.com/samber/do/v2"
)

const discordConnectTimeout = 20 * time.Second

var errNotVapi = errors.New("hosted voice transport is not enabled")

// RegisterDI provides voice.Transport for the configured transport. The
// webhook receiver and workflow starter resolve only for Vapi.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*VapiTransport, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.VoiceTransport != config.VoiceTransportVapi {
			return nil, errNotVapi
		}
		return NewVapiTransport(VapiConfig{
			APIKey:     cfg.VapiAPIKey,
			BaseURL:    cfg.VapiBaseURL,
			WorkflowID: cfg.VapiWorkflowID,
			VoiceID:    cfg.VapiVoiceID,
			Model:      cfg.LLMModel,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (voice.Transport, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.VoiceTransport {
		case config.VoiceTransportDiscord:
			return newDiscordTransport(i, cfg)
		case config.VoiceTransportVapi:
			return do.Invoke[*VapiTransport](i)
		default:
			return nil, fmt.Errorf("unknown voice transport %q", cfg.VoiceTransport)
		}
	})
	do.Provide(injector, func(i do.Injector) (voice.WebhookReceiver, error) {
		return do.Invoke[*VapiTransport](i)
	})
	do.Provide(injector, func(i do.Injector) (voice.WorkflowStarter, error) {
		return do.Invoke[*VapiTransport](i)
	})
}

func newDiscordTransport(i do.Injector, cfg *config.Config) (voice.Transport, error) {
	dc := do.MustInvoke[discord.Client](i)
	ctx, cancel := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancel()
	if err := dc.Connect(ctx); err != nil {
		return nil, fmt.Errorf("discord connect failed: %w", err)
	}
	return NewDiscordTransport(DiscordConfig{
		GuildID:     cfg.DiscordGuildID,
		ChannelID:   cfg.DiscordInterviewVCID,
		Language:    cfg.DefaultTranscribeLanguage,
		AnswerGrace: cfg.DiscordAnswerGrace(),
	}, dc, do.MustInvoke[transcriber.Transcriber](i), do.MustInvoke[audio.MixerFactory](i)), nil
}
