package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/mensetsu/internal/audio"
	"github.com/foxseedlab/mensetsu/internal/discord"
	"github.com/foxseedlab/mensetsu/internal/transcriber"
	"github.com/foxseedlab/mensetsu/internal/voice"
)

type mockVoiceConnection struct {
	mu           sync.Mutex
	disconnected int
	closed       chan struct{}
}

func newMockVoiceConnection() *mockVoiceConnection {
	return &mockVoiceConnection{closed: make(chan struct{})}
}

func (m *mockVoiceConnection) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected++
	if m.disconnected == 1 {
		close(m.closed)
	}
	return nil
}

func (m *mockVoiceConnection) ReceiveAudio(_ func(userID string, opusPacket []byte)) {
	<-m.closed
}

func (m *mockVoiceConnection) disconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnected
}

type mockDiscordClient struct {
	mu           sync.Mutex
	participants []discord.VoiceParticipant
	joinErr      error
	conn         *mockVoiceConnection
	messages     []string
	handler      func(discord.VoiceStateEvent)
	removed      bool
}

func (m *mockDiscordClient) Connect(context.Context) error { return nil }
func (m *mockDiscordClient) Close() error { return nil }

func (m *mockDiscordClient) JoinVoiceChannel(_, _ string) (discord.VoiceConnection, error) {
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = newMockVoiceConnection()
	return m.conn, nil
}

func (m *mockDiscordClient) SendChannelMessage(_, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, content)
	return nil
}

func (m *mockDiscordClient) OnVoiceStateUpdate(handler func(discord.VoiceStateEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.removed = true
	}
}

func (m *mockDiscordClient) ListVoiceChannelParticipants(_, _ string) ([]discord.VoiceParticipant, error) {
	return m.participants, nil
}

func (m *mockDiscordClient) GetBotUserID() (string, error) { return "bot-1", nil }

func (m *mockDiscordClient) emit(ev discord.VoiceStateEvent) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	h(ev)
}

type mockStreamWriter struct {
	mu     sync.Mutex
	closed bool
}

func (w *mockStreamWriter) Write(_ []byte) error { return nil }

func (w *mockStreamWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *mockStreamWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

type mockTranscriber struct {
	mu       sync.Mutex
	receiver transcriber.ResultReceiver
	writer   *mockStreamWriter
	err      error
}

func (m *mockTranscriber) StartStreaming(_ context.Context, _, _ string, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiver = receiver
	m.writer = &mockStreamWriter{}
	return m.writer, nil
}

func (m *mockTranscriber) say(text string, final bool) {
	m.mu.Lock()
	r := m.receiver
	m.mu.Unlock()
	r.OnResult(transcriber.Result{Text: text, IsFinal: final})
}

type mockMixer struct{}

func (mockMixer) WriteOpusPacket(string, []byte) {}
func (mockMixer) ReadMixedPCM([]byte) (int, error) { return 0, nil }
func (mockMixer) Close() {}

func newDiscordFixture() (*DiscordTransport, *mockDiscordClient, *mockTranscriber) {
	dc := &mockDiscordClient{participants: []discord.VoiceParticipant{{UserID: "bot-1", IsBot: true}, {UserID: "cand-1"}}}
	stt := &mockTranscriber{}
	tr := NewDiscordTransport(DiscordConfig{
		GuildID:     "guild-1",
		ChannelID:   "vc-1",
		Language:    "en-US",
		AnswerGrace: 20 * time.Millisecond,
	}, dc, stt, audio.MixerFactory(func() audio.Mixer { return mockMixer{} }))
	return tr, dc, stt
}

func interviewRequest() voice.StartRequest {
	return voice.StartRequest{
		SessionID: "sess-1",
		Assistant: &voice.Assistant{
			FirstMessage:   "Hello Aiko!",
			ClosingMessage: "Thank you for your time.",
			Questions:      []string{"Why Go?", "Describe a hard bug."},
		},
	}
}

func TestDiscordTransportRunsScriptedInterview(t *testing.T) {
	tr, dc, stt := newDiscordFixture()
	l := &recordingListener{}

	if _, err := tr.Start(context.Background(), interviewRequest(), l); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitUntil(t, time.Second, func() bool { return len(l.finalLines(voice.SpeakerAssistant)) == 2 })
	if l.count(voice.EventConnected) != 1 {
		t.Fatalf("expected connected event, got %+v", l.snapshot())
	}

	stt.say("Because", false)
	stt.say("Because it is simple", true)
	waitUntil(t, time.Second, func() bool { return len(l.finalLines(voice.SpeakerAssistant)) == 3 })

	stt.say("A race in a cache", true)
	waitUntil(t, time.Second, func() bool { return l.count(voice.EventDisconnected) == 1 })
	l.releaseAll()

	want := []string{"Hello Aiko!", "Why Go?", "Describe a hard bug.", "Thank you for your time."}
	got := l.finalLines(voice.SpeakerAssistant)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	user := l.finalLines(voice.SpeakerUser)
	if len(user) != 2 || user[0] != "Because it is simple" {
		t.Fatalf("unexpected user lines %v", user)
	}
	if l.count(voice.EventSpeechStarted) != 4 || l.count(voice.EventSpeechStopped) != 4 {
		t.Fatalf("expected speech toggles around every interviewer line, got %+v", l.snapshot())
	}
	dc.mu.Lock()
	posted := len(dc.messages)
	dc.mu.Unlock()
	if posted != 4 {
		t.Fatalf("expected 4 channel messages, got %d", posted)
	}
}

func TestDiscordTransportWaitsForFinalAnswer(t *testing.T) {
	tr, _, stt := newDiscordFixture()
	l := &recordingListener{}
	if _, err := tr.Start(context.Background(), interviewRequest(), l); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitUntil(t, time.Second, func() bool { return len(l.finalLines(voice.SpeakerAssistant)) == 2 })

	stt.say("um", false)
	time.Sleep(80 * time.Millisecond)
	if n := len(l.finalLines(voice.SpeakerAssistant)); n != 2 {
		t.Fatalf("interim speech must not advance the script, got %d interviewer lines", n)
	}
	l.releaseAll()
}

func TestDiscordTransportRejectsWorkflowCalls(t *testing.T) {
	tr, _, _ := newDiscordFixture()
	_, err := tr.Start(context.Background(), voice.StartRequest{SessionID: "s", WorkflowID: "wf"}, &recordingListener{})
	if !errors.Is(err, errInterviewOnly) {
		t.Fatalf("expected errInterviewOnly, got %v", err)
	}
}

func TestDiscordTransportRequiresCandidate(t *testing.T) {
	tr, dc, _ := newDiscordFixture()
	dc.participants = []discord.VoiceParticipant{{UserID: "bot-1", IsBot: true}}
	_, err := tr.Start(context.Background(), interviewRequest(), &recordingListener{})
	if !errors.Is(err, errNoCandidatePresent) {
		t.Fatalf("expected errNoCandidatePresent, got %v", err)
	}
	if !tr.acquire() {
		t.Fatal("failed start must free the channel")
	}
}

func TestDiscordTransportOneCallAtATime(t *testing.T) {
	tr, _, _ := newDiscordFixture()
	l := &recordingListener{}
	call, err := tr.Start(context.Background(), interviewRequest(), l)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if got := call.JoinURL(); got != "https://discord.com/channels/guild-1/vc-1" {
		t.Fatalf("unexpected join url %q", got)
	}
	if _, err := tr.Start(context.Background(), interviewRequest(), &recordingListener{}); !errors.Is(err, errVoiceChannelBusy) {
		t.Fatalf("expected errVoiceChannelBusy, got %v", err)
	}
	if err := call.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	second := &recordingListener{}
	if _, err := tr.Start(context.Background(), interviewRequest(), second); err != nil {
		t.Fatalf("Start after Stop returned error: %v", err)
	}
	second.releaseAll()
}

func TestDiscordTransportJoinFailure(t *testing.T) {
	tr, dc, _ := newDiscordFixture()
	dc.joinErr = errors.New("missing permission")
	if _, err := tr.Start(context.Background(), interviewRequest(), &recordingListener{}); err == nil {
		t.Fatal("expected join error")
	}
	if !tr.acquire() {
		t.Fatal("failed start must free the channel")
	}
}

func TestDiscordTransportCandidateLeaving(t *testing.T) {
	tr, dc, _ := newDiscordFixture()
	l := &recordingListener{}
	if _, err := tr.Start(context.Background(), interviewRequest(), l); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	dc.emit(discord.VoiceStateEvent{GuildID: "guild-1", UserID: "other-bot", UserIsBot: true, BeforeChannelID: "vc-1"})
	dc.emit(discord.VoiceStateEvent{GuildID: "guild-1", UserID: "cand-1", BeforeChannelID: "vc-1"})
	waitUntil(t, time.Second, func() bool { return l.count(voice.EventDisconnected) == 1 })
	l.releaseAll()
}

func TestDiscordTransportReleaseTearsDown(t *testing.T) {
	tr, dc, stt := newDiscordFixture()
	l := &recordingListener{}
	call, err := tr.Start(context.Background(), interviewRequest(), l)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	l.releaseAll()
	if err := call.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	if dc.conn.disconnects() != 1 {
		t.Fatalf("expected exactly one disconnect, got %d", dc.conn.disconnects())
	}
	if !stt.writer.isClosed() {
		t.Fatal("expected speech stream to be closed")
	}
	dc.mu.Lock()
	removed := dc.removed
	dc.mu.Unlock()
	if !removed {
		t.Fatal("expected voice state handler to be removed")
	}
}

func TestDiscordTransportSpeechErrorIsReported(t *testing.T) {
	tr, _, stt := newDiscordFixture()
	l := &recordingListener{}
	if _, err := tr.Start(context.Background(), interviewRequest(), l); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	stt.mu.Lock()
	r := stt.receiver
	stt.mu.Unlock()

	r.OnError(context.Canceled)
	r.OnError(errors.New("quota exceeded"))
	waitUntil(t, time.Second, func() bool { return l.count(voice.EventTransportError) == 1 })
	l.releaseAll()
}
