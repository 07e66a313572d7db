package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/mensetsu/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env      string `env:"ENV" envDefault:"production"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	RepositoryBackend string `env:"REPOSITORY_BACKEND" envDefault:"postgres"`
	DatabaseURL       string `env:"DATABASE_URL"`

	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"us-central1"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	DefaultTranscribeLanguage  string `env:"DEFAULT_TRANSCRIBE_LANGUAGE" envDefault:"en-US"`
	VertexLocation             string `env:"VERTEX_LOCATION" envDefault:"us-central1"`
	LLMModel                   string `env:"LLM_MODEL" envDefault:"gemini-2.0-flash-001"`

	VoiceTransport    string `env:"VOICE_TRANSPORT" envDefault:"vapi"`
	VapiAPIKey        string `env:"VAPI_API_KEY"`
	VapiBaseURL       string `env:"VAPI_BASE_URL" envDefault:"https://api.vapi.ai"`
	VapiWorkflowID    string `env:"VAPI_WORKFLOW_ID"`
	VapiWebhookSecret string `env:"VAPI_WEBHOOK_SECRET"`
	VapiVoiceID       string `env:"VAPI_VOICE_ID" envDefault:"sarah"`

	DiscordToken          string `env:"DISCORD_TOKEN"`
	DiscordGuildID        string `env:"DISCORD_GUILD_ID"`
	DiscordInterviewVCID  string `env:"DISCORD_INTERVIEW_VC_ID"`
	DiscordAnswerGraceSec int    `env:"DISCORD_ANSWER_GRACE_SEC" envDefault:"3"`

	AuthProvider      string `env:"AUTH_PROVIDER" envDefault:"firebase"`
	AuthJWTSecret     string `env:"AUTH_JWT_SECRET"`
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"session"`

	FeedbackWebhookURL  string `env:"FEEDBACK_WEBHOOK_URL"`
	HomeRedirectDelayMS int    `env:"HOME_REDIRECT_DELAY_MS" envDefault:"1000"`
}

func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded; using process environment", "reason", err.Error())
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		HTTPAddr:                   raw.HTTPAddr,
		RepositoryBackend:          raw.RepositoryBackend,
		DatabaseURL:                raw.DatabaseURL,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		VertexLocation:             raw.VertexLocation,
		LLMModel:                   raw.LLMModel,
		VoiceTransport:             raw.VoiceTransport,
		VapiAPIKey:                 raw.VapiAPIKey,
		VapiBaseURL:                raw.VapiBaseURL,
		VapiWorkflowID:             raw.VapiWorkflowID,
		VapiWebhookSecret:          raw.VapiWebhookSecret,
		VapiVoiceID:                raw.VapiVoiceID,
		DiscordToken:               raw.DiscordToken,
		DiscordGuildID:             raw.DiscordGuildID,
		DiscordInterviewVCID:       raw.DiscordInterviewVCID,
		DiscordAnswerGraceSec:      raw.DiscordAnswerGraceSec,
		AuthProvider:               raw.AuthProvider,
		AuthJWTSecret:              raw.AuthJWTSecret,
		SessionCookieName:          raw.SessionCookieName,
		FeedbackWebhookURL:         raw.FeedbackWebhookURL,
		HomeRedirectDelayMS:        raw.HomeRedirectDelayMS,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
