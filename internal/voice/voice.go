package voice

import "context"

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

func (s Speaker) Valid() bool {
	switch s {
	case SpeakerUser, SpeakerAssistant, SpeakerSystem:
		return true
	default:
		return false
	}
}

type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventDisconnected
	EventTranscriptFragment
	EventSpeechStarted
	EventSpeechStopped
	EventTransportError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventTranscriptFragment:
		return "transcript_fragment"
	case EventSpeechStarted:
		return "speech_started"
	case EventSpeechStopped:
		return "speech_stopped"
	case EventTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind    EventKind
	CallID  string
	Speaker Speaker
	Text    string
	IsFinal bool
	Err     error
}

// Listener is the callback surface a Transport drives for one call.
// Track registers a release function (listener removal, registry cleanup)
// that the listener runs exactly once when the session is torn down.
type Listener interface {
	OnConnected(callID string)
	OnDisconnected()
	OnTranscript(speaker Speaker, text string, isFinal bool)
	OnSpeechStarted()
	OnSpeechStopped()
	OnError(err error)
	Track(release func())
}

// Assistant is the interviewer persona handed to the transport in
// interview mode.
type Assistant struct {
	Name               string
	SystemPrompt       string
	FirstMessage       string
	ClosingMessage     string
	Questions          []string
	FormattedQuestions string
}

type StartRequest struct {
	SessionID string
	UserID    string
	UserName  string

	// Exactly one of Assistant or WorkflowID is set.
	Assistant  *Assistant
	WorkflowID string
	Variables  map[string]string
}

type Call interface {
	// JoinURL is where the candidate joins the call.
	JoinURL() string
	Stop(ctx context.Context) error
}

type Transport interface {
	Start(ctx context.Context, req StartRequest, listener Listener) (Call, error)
}

// Line is one finalized utterance of a call transcript.
type Line struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// WebhookReceiver accepts server-side event callbacks from a hosted
// transport and routes them to the listener of the matching call.
type WebhookReceiver interface {
	HandleWebhook(ctx context.Context, body []byte) error
}

// WorkflowStarter places a workflow call with the server-held credentials
// and returns the provider's raw response.
type WorkflowStarter interface {
	StartWorkflow(ctx context.Context, variables map[string]any) (status int, body []byte, err error)
}
