package config

import (
	"fmt"
	"time"
)

const (
	RepositoryBackendPostgres  = "postgres"
	RepositoryBackendFirestore = "firestore"

	VoiceTransportVapi    = "vapi"
	VoiceTransportDiscord = "discord"

	AuthProviderFirebase = "firebase"
	AuthProviderJWT      = "jwt"
)

type Config struct {
	Env      string
	HTTPAddr string

	RepositoryBackend string
	DatabaseURL       string

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	DefaultTranscribeLanguage  string
	VertexLocation             string
	LLMModel                   string

	VoiceTransport    string
	VapiAPIKey        string
	VapiBaseURL       string
	VapiWorkflowID    string
	VapiWebhookSecret string
	VapiVoiceID       string

	DiscordToken          string
	DiscordGuildID        string
	DiscordInterviewVCID  string
	DiscordAnswerGraceSec int

	AuthProvider      string
	AuthJWTSecret     string
	SessionCookieName string

	FeedbackWebhookURL  string
	HomeRedirectDelayMS int
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.HomeRedirectDelayMS < 0 {
		return fmt.Errorf("HOME_REDIRECT_DELAY_MS must not be negative, got %d", c.HomeRedirectDelayMS)
	}
	switch c.RepositoryBackend {
	case RepositoryBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when REPOSITORY_BACKEND=postgres")
		}
	case RepositoryBackendFirestore:
	default:
		return fmt.Errorf("REPOSITORY_BACKEND must be postgres or firestore, got %q", c.RepositoryBackend)
	}
	switch c.VoiceTransport {
	case VoiceTransportVapi:
		if c.VapiAPIKey == "" {
			return fmt.Errorf("VAPI_API_KEY is required when VOICE_TRANSPORT=vapi")
		}
		if c.VapiWebhookSecret == "" {
			return fmt.Errorf("VAPI_WEBHOOK_SECRET is required when VOICE_TRANSPORT=vapi")
		}
	case VoiceTransportDiscord:
		if c.DiscordToken == "" || c.DiscordGuildID == "" || c.DiscordInterviewVCID == "" {
			return fmt.Errorf("DISCORD_TOKEN, DISCORD_GUILD_ID and DISCORD_INTERVIEW_VC_ID are required when VOICE_TRANSPORT=discord")
		}
		if c.DiscordAnswerGraceSec <= 0 {
			return fmt.Errorf("DISCORD_ANSWER_GRACE_SEC must be positive, got %d", c.DiscordAnswerGraceSec)
		}
	default:
		return fmt.Errorf("VOICE_TRANSPORT must be vapi or discord, got %q", c.VoiceTransport)
	}
	switch c.AuthProvider {
	case AuthProviderFirebase:
	case AuthProviderJWT:
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_PROVIDER=jwt")
		}
	default:
		return fmt.Errorf("AUTH_PROVIDER must be firebase or jwt, got %q", c.AuthProvider)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "VERTEX_LOCATION", value: c.VertexLocation},
		{name: "LLM_MODEL", value: c.LLMModel},
		{name: "SESSION_COOKIE_NAME", value: c.SessionCookieName},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) HomeRedirectDelay() time.Duration {
	return time.Duration(c.HomeRedirectDelayMS) * time.Millisecond
}

func (c *Config) DiscordAnswerGrace() time.Duration {
	return time.Duration(c.DiscordAnswerGraceSec) * time.Second
}
