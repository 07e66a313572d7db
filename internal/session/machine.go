package session

import (
	"strings"
	"sync"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/voice"
)

type Status int

const (
	StatusInactive Status = iota
	StatusConnecting
	StatusActive
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "INACTIVE"
	case StatusConnecting:
		return "CONNECTING"
	case StatusActive:
		return "ACTIVE"
	case StatusFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Mode int

const (
	ModeInterview Mode = iota + 1
	ModeGenerate
)

func (m Mode) String() string {
	switch m {
	case ModeInterview:
		return "interview"
	case ModeGenerate:
		return "generate"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interview":
		return ModeInterview, nil
	case "generate":
		return ModeGenerate, nil
	default:
		return 0, apperr.E(apperr.CodeInvalidArgument, "session.ParseMode", "mode must be interview or generate", nil)
	}
}

// StartPayload carries what a mode needs before dialing: the question set
// for an interview, the workflow id and intake variables for generation.
type StartPayload struct {
	Questions  []string
	WorkflowID string
	Variables  map[string]string
}

// Transition describes the effect of one input on the machine.
type Transition struct {
	From     Status
	To       Status
	Appended bool
	Changed  bool
	// Terminal is true only for the single transition that first reaches
	// FINISHED.
	Terminal bool
	Aborted  bool
}

type Snapshot struct {
	Status   Status      `json:"status"`
	Mode     Mode        `json:"mode"`
	CallID   string      `json:"call_id,omitempty"`
	Speaking bool        `json:"speaking"`
	LastLine *voice.Line `json:"last_line,omitempty"`
	Preview  string      `json:"preview,omitempty"`
	Lines    int         `json:"lines"`
}

// Machine is the authoritative state of one call. It is safe for
// concurrent use; a finished or abandoned machine is never restarted.
type Machine struct {
	mu         sync.Mutex
	mode       Mode
	status     Status
	callID     string
	transcript []voice.Line
	speaking   bool
	preview    string
	started    bool
	finalized  bool
}

func NewMachine() *Machine {
	return &Machine{status: StatusInactive}
}

func (m *Machine) Start(mode Mode, p StartPayload) error {
	const op = "session.Machine.Start"

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.status != StatusInactive {
		return apperr.E(apperr.CodeConflict, op, "session has already been started", nil)
	}
	switch mode {
	case ModeInterview:
		if len(p.Questions) == 0 {
			return apperr.E(apperr.CodeConfiguration, op, "interview has no questions", nil)
		}
	case ModeGenerate:
		if strings.TrimSpace(p.WorkflowID) == "" {
			return apperr.E(apperr.CodeConfiguration, op, "workflow id is not configured", nil)
		}
		if len(p.Variables) == 0 {
			return apperr.E(apperr.CodeConfiguration, op, "intake variables are missing", nil)
		}
	default:
		return apperr.E(apperr.CodeConfiguration, op, "unknown session mode", nil)
	}
	m.mode = mode
	m.status = StatusConnecting
	m.started = true
	return nil
}

// Abort returns a session that failed to dial to INACTIVE.
func (m *Machine) Abort() Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.abortLocked()
}

func (m *Machine) abortLocked() Transition {
	t := Transition{From: m.status, To: m.status}
	if m.status == StatusFinished || m.status == StatusInactive {
		return t
	}
	m.status = StatusInactive
	m.speaking = false
	m.preview = ""
	m.finalized = true
	t.To = StatusInactive
	t.Changed = true
	t.Aborted = true
	return t
}

// End is the user-initiated hang-up. Ending an already finished session is
// a no-op so a racing disconnect and End converge on one terminal
// transition.
func (m *Machine) End() (Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.status {
	case StatusActive:
		return m.finishLocked(), nil
	case StatusFinished:
		return Transition{From: m.status, To: m.status}, nil
	case StatusInactive, StatusConnecting:
		return Transition{From: m.status, To: m.status}, apperr.E(apperr.CodeConflict, "session.Machine.End", "call is not active", nil)
	default:
		return Transition{From: m.status, To: m.status}, apperr.E(apperr.CodeInternal, "session.Machine.End", "unknown session status", nil)
	}
}

func (m *Machine) finishLocked() Transition {
	t := Transition{From: m.status, To: StatusFinished, Changed: true}
	m.status = StatusFinished
	m.speaking = false
	m.preview = ""
	if !m.finalized {
		m.finalized = true
		t.Terminal = true
	}
	return t
}

func (m *Machine) Apply(e voice.Event) Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := Transition{From: m.status, To: m.status}
	if m.status == StatusFinished {
		return t
	}

	switch e.Kind {
	case voice.EventConnected:
		if m.status == StatusConnecting {
			m.status = StatusActive
			m.callID = e.CallID
			t.To = StatusActive
			t.Changed = true
		}
	case voice.EventDisconnected:
		if m.status == StatusConnecting || m.status == StatusActive {
			return m.finishLocked()
		}
	case voice.EventTranscriptFragment:
		if m.status != StatusActive || !e.Speaker.Valid() {
			return t
		}
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return t
		}
		if !e.IsFinal {
			if m.preview != text {
				m.preview = text
				t.Changed = true
			}
			return t
		}
		m.transcript = append(m.transcript, voice.Line{Speaker: e.Speaker, Text: text})
		m.preview = ""
		t.Appended = true
		t.Changed = true
	case voice.EventSpeechStarted, voice.EventSpeechStopped:
		if m.status == StatusInactive {
			return t
		}
		speaking := e.Kind == voice.EventSpeechStarted
		if m.speaking != speaking {
			m.speaking = speaking
			t.Changed = true
		}
	case voice.EventTransportError:
		return m.abortLocked()
	}
	return t
}

func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Transcript returns a copy of the finalized lines in conversation order.
func (m *Machine) Transcript() []voice.Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]voice.Line, len(m.transcript))
	copy(out, m.transcript)
	return out
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		Status:   m.status,
		Mode:     m.mode,
		CallID:   m.callID,
		Speaking: m.speaking,
		Preview:  m.preview,
		Lines:    len(m.transcript),
	}
	if n := len(m.transcript); n > 0 {
		last := m.transcript[n-1]
		s.LastLine = &last
	}
	return s
}
