package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/audio"
	"github.com/foxseedlab/mensetsu/internal/discord"
	"github.com/foxseedlab/mensetsu/internal/transcriber"
	"github.com/foxseedlab/mensetsu/internal/voice"
	"github.com/google/uuid"
)

const discordChannelURLFormat = "https://discord.com/channels/%s/%s"

var (
	errInterviewOnly      = apperr.E(apperr.CodeConfiguration, "voice.DiscordTransport.Start", "Discord interviews need a question list", nil)
	errVoiceChannelBusy   = apperr.E(apperr.CodeConflict, "voice.DiscordTransport.Start", "The interview voice channel is in use. Please try again shortly.", nil)
	errNoCandidatePresent = apperr.E(apperr.CodeConflict, "voice.DiscordTransport.Start", "Join the interview voice channel before starting", nil)
)

type DiscordConfig struct {
	GuildID     string
	ChannelID   string
	Language    string
	AnswerGrace time.Duration
}

// DiscordTransport runs a scripted interview in one Discord voice channel.
// The interviewer speaks through the channel chat and the candidate's
// voice is transcribed with the speech stream. One call at a time.
type DiscordTransport struct {
	cfg         DiscordConfig
	client      discord.Client
	transcriber transcriber.Transcriber
	newMixer    audio.MixerFactory

	mu   sync.Mutex
	busy bool
}

func NewDiscordTransport(cfg DiscordConfig, client discord.Client, stt transcriber.Transcriber, newMixer audio.MixerFactory) *DiscordTransport {
	return &DiscordTransport{
		cfg:         cfg,
		client:      client,
		transcriber: stt,
		newMixer:    newMixer,
	}
}

func (t *DiscordTransport) Start(ctx context.Context, req voice.StartRequest, listener voice.Listener) (voice.Call, error) {
	if req.Assistant == nil || len(req.Assistant.Questions) == 0 {
		return nil, errInterviewOnly
	}
	if !t.acquire() {
		return nil, errVoiceChannelBusy
	}

	botUserID, err := t.client.GetBotUserID()
	if err != nil {
		t.release()
		return nil, fmt.Errorf("failed to resolve bot user: %w", err)
	}
	if !t.candidatePresent() {
		t.release()
		return nil, errNoCandidatePresent
	}

	vc, err := t.client.JoinVoiceChannel(t.cfg.GuildID, t.cfg.ChannelID)
	if err != nil {
		t.release()
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	slog.Info("joined interview voice channel", "session_id", req.SessionID, "guild_id", t.cfg.GuildID, "channel_id", t.cfg.ChannelID)

	callCtx, cancel := context.WithCancel(context.Background())
	c := &discordCall{
		transport: t,
		id:        uuid.NewString(),
		sessionID: req.SessionID,
		listener:  listener,
		assistant: *req.Assistant,
		voice:     vc,
		mixer:     t.newMixer(),
		cancel:    cancel,
		heard:     make(chan bool, 16),
	}
	writer, err := t.transcriber.StartStreaming(callCtx, req.SessionID, t.cfg.Language, c)
	if err != nil {
		cancel()
		c.mixer.Close()
		_ = vc.Disconnect()
		t.release()
		return nil, fmt.Errorf("failed to start speech stream: %w", err)
	}
	c.writer = writer
	c.removeHandler = t.client.OnVoiceStateUpdate(c.handleVoiceState)
	listener.Track(c.teardown)

	go vc.ReceiveAudio(func(userID string, opusPacket []byte) {
		if userID == botUserID {
			return
		}
		n := c.receivedPackets.Add(1)
		if n == 1 || n%500 == 0 {
			slog.Debug("received opus packet", "session_id", c.sessionID, "user_id", userID, "total_packets", n)
		}
		c.mixer.WriteOpusPacket(userID, opusPacket)
	})
	go c.streamMixedAudio(callCtx)
	go c.runScript(callCtx)
	return c, nil
}

func (t *DiscordTransport) acquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.busy {
		return false
	}
	t.busy = true
	return true
}

func (t *DiscordTransport) release() {
	t.mu.Lock()
	t.busy = false
	t.mu.Unlock()
}

func (t *DiscordTransport) candidatePresent() bool {
	participants, err := t.client.ListVoiceChannelParticipants(t.cfg.GuildID, t.cfg.ChannelID)
	if err != nil {
		slog.Warn("failed to list voice channel participants", "error", err, "channel_id", t.cfg.ChannelID)
		return false
	}
	for _, p := range participants {
		if !p.IsBot {
			return true
		}
	}
	return false
}

type discordCall struct {
	transport *DiscordTransport
	id        string
	sessionID string
	listener  voice.Listener
	assistant voice.Assistant

	voice         discord.VoiceConnection
	mixer         audio.Mixer
	writer        transcriber.StreamWriter
	cancel        context.CancelFunc
	removeHandler func()

	// heard carries isFinal for every candidate utterance.
	heard           chan bool
	receivedPackets atomic.Int64
	teardownOnce    sync.Once
}

// JoinURL links to the interview voice channel.
func (c *discordCall) JoinURL() string {
	return fmt.Sprintf(discordChannelURLFormat, c.transport.cfg.GuildID, c.transport.cfg.ChannelID)
}

func (c *discordCall) Stop(_ context.Context) error {
	c.teardown()
	return nil
}

// teardown leaves the channel and closes the speech stream. It runs once,
// either from Stop or when the session releases its subscriptions.
func (c *discordCall) teardown() {
	c.teardownOnce.Do(func() {
		slog.Info("tearing down discord call", "session_id", c.sessionID, "call_id", c.id)
		c.cancel()
		if c.removeHandler != nil {
			c.removeHandler()
		}
		if c.writer != nil {
			_ = c.writer.Close()
		}
		c.mixer.Close()
		if err := c.voice.Disconnect(); err != nil {
			slog.Warn("failed to leave voice channel", "error", err, "session_id", c.sessionID)
		}
		c.transport.release()
	})
}

func (c *discordCall) runScript(ctx context.Context) {
	slog.Info("interview script started", "session_id", c.sessionID, "questions", len(c.assistant.Questions))
	defer slog.Info("interview script stopped", "session_id", c.sessionID)

	c.listener.OnConnected(c.id)
	c.say(c.assistant.FirstMessage)
	for i, q := range c.assistant.Questions {
		if ctx.Err() != nil {
			return
		}
		c.drainHeard()
		c.say(q)
		if !c.waitForAnswer(ctx) {
			return
		}
		slog.Debug("answer received", "session_id", c.sessionID, "question", i+1)
	}
	c.say(c.assistant.ClosingMessage)
	c.listener.OnDisconnected()
}

func (c *discordCall) say(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.listener.OnSpeechStarted()
	if err := c.transport.client.SendChannelMessage(c.transport.cfg.ChannelID, text); err != nil {
		slog.Error("failed to post interviewer line", "error", err, "session_id", c.sessionID)
	}
	c.listener.OnTranscript(voice.SpeakerAssistant, text, true)
	c.listener.OnSpeechStopped()
}

func (c *discordCall) drainHeard() {
	for {
		select {
		case <-c.heard:
		default:
			return
		}
	}
}

// waitForAnswer blocks until the candidate has finished at least one
// utterance and then stayed quiet for the answer grace period.
func (c *discordCall) waitForAnswer(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case final := <-c.heard:
			if final {
				return c.waitForQuiet(ctx)
			}
		}
	}
}

func (c *discordCall) waitForQuiet(ctx context.Context) bool {
	timer := time.NewTimer(c.transport.cfg.AnswerGrace)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-c.heard:
			timer.Reset(c.transport.cfg.AnswerGrace)
		case <-timer.C:
			return true
		}
	}
}

func (c *discordCall) OnResult(r transcriber.Result) {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return
	}
	c.listener.OnTranscript(voice.SpeakerUser, text, r.IsFinal)
	select {
	case c.heard <- r.IsFinal:
	default:
	}
}

func (c *discordCall) OnError(err error) {
	if errors.Is(err, context.Canceled) {
		slog.Info("speech stream canceled", "session_id", c.sessionID)
		return
	}
	slog.Error("speech stream error", "error", err, "session_id", c.sessionID)
	c.listener.OnError(fmt.Errorf("speech stream: %w", err))
}

func (c *discordCall) handleVoiceState(ev discord.VoiceStateEvent) {
	if ev.GuildID != c.transport.cfg.GuildID || ev.UserIsBot {
		return
	}
	if ev.Left(c.transport.cfg.ChannelID) {
		slog.Info("candidate left interview voice channel", "session_id", c.sessionID, "user_id", ev.UserID)
		c.listener.OnDisconnected()
	}
}

func (c *discordCall) streamMixedAudio(ctx context.Context) {
	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()
	buf := make([]byte, audio.FrameBytes)
	var written int64
	slog.Info("audio mixer loop started", "session_id", c.sessionID)
	for {
		select {
		case <-ctx.Done():
			slog.Info("audio mixer loop stopped",
				"session_id", c.sessionID,
				"received_opus_packets", c.receivedPackets.Load(),
				"written_frames", written)
			return
		case <-ticker.C:
			n, err := c.mixer.ReadMixedPCM(buf)
			if err != nil {
				slog.Warn("failed to read mixed pcm", "error", err, "session_id", c.sessionID)
				continue
			}
			if n == 0 {
				continue
			}
			if err := c.writer.Write(buf[:n]); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("failed to write pcm to speech stream", "error", err, "session_id", c.sessionID)
				c.listener.OnError(fmt.Errorf("speech stream write: %w", err))
				return
			}
			written++
		}
	}
}
