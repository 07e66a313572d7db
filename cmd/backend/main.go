package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/mensetsu/external/audio"
	authimpl "github.com/foxseedlab/mensetsu/external/auth"
	configloader "github.com/foxseedlab/mensetsu/external/config"
	"github.com/foxseedlab/mensetsu/external/discord"
	"github.com/foxseedlab/mensetsu/external/firebase"
	llmimpl "github.com/foxseedlab/mensetsu/external/llm"
	repositoryimpl "github.com/foxseedlab/mensetsu/external/repository"
	transcriberimpl "github.com/foxseedlab/mensetsu/external/transcriber"
	voiceimpl "github.com/foxseedlab/mensetsu/external/voice"
	webhookimpl "github.com/foxseedlab/mensetsu/external/webhook"
	"github.com/foxseedlab/mensetsu/internal/api"
	"github.com/foxseedlab/mensetsu/internal/config"
	discordpkg "github.com/foxseedlab/mensetsu/internal/discord"
	"github.com/foxseedlab/mensetsu/internal/feedback"
	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/samber/do/v2"
)

const shutdownTimeout = 30 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "voice_transport", cfg.VoiceTransport, "repository_backend", cfg.RepositoryBackend)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching http server")
	runServer(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	firebase.RegisterDI(injector)
	repositoryimpl.RegisterDI(injector)
	authimpl.RegisterDI(injector)
	llmimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	voiceimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	feedback.RegisterDI(injector)
	interview.RegisterDI(injector)
	session.RegisterDI(injector)
	api.RegisterDI(injector)

	return injector
}

func runServer(cfg *config.Config, injector do.Injector) {
	server, err := do.Invoke[*api.Server](injector)
	if err != nil {
		slog.Error("failed to resolve http server", "error", err)
		os.Exit(1)
	}
	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve session manager", "error", err)
		os.Exit(1)
	}
	if cfg.VoiceTransport == config.VoiceTransportDiscord {
		dc := do.MustInvoke[discordpkg.Client](injector)
		defer func() {
			if err := dc.Close(); err != nil {
				slog.Error("discord close failed", "error", err)
			}
		}()
	}

	done := make(chan error, 1)
	go func() {
		done <- server.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case err := <-done:
		if err != nil {
			slog.Error("http server failed", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	if err := manager.Shutdown(ctx); err != nil {
		slog.Error("session manager shutdown incomplete", "error", err)
	}
	slog.Info("shutdown complete")
}
