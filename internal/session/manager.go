package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/mensetsu/internal/apperr"
	"github.com/foxseedlab/mensetsu/internal/auth"
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/feedback"
	"github.com/foxseedlab/mensetsu/internal/prompt"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/voice"
	"github.com/google/uuid"
)

const stopCallTimeout = 10 * time.Second

// FeedbackService scores a finished transcript and persists the result.
type FeedbackService interface {
	ExistingID(ctx context.Context, interviewID, userID string) (string, error)
	Generate(ctx context.Context, req feedback.Request) (feedback.Result, error)
}

type StartInput struct {
	Mode        Mode
	InterviewID string
	User        *auth.User
}

type StartResult struct {
	SessionID string   `json:"session_id"`
	JoinURL   string   `json:"join_url,omitempty"`
	Snapshot  Snapshot `json:"snapshot"`
}

type Manager struct {
	cfg        *config.Config
	interviews repository.InterviewRepository
	feedback   FeedbackService
	transport  voice.Transport
	observer   Observer
	newID      func() string
	homeDelay  time.Duration

	mu       sync.Mutex
	sessions map[string]*runningSession
	closing  bool
	wg       sync.WaitGroup
}

type runningSession struct {
	id          string
	mode        Mode
	interviewID string
	user        auth.User
	machine     *Machine
	adapter     *voice.Adapter

	mu            sync.Mutex
	call          voice.Call
	stopRequested bool
	navigateOnce  sync.Once
}

func NewManager(cfg *config.Config, interviews repository.InterviewRepository, fb FeedbackService, transport voice.Transport, observer Observer) *Manager {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Manager{
		cfg:        cfg,
		interviews: interviews,
		feedback:   fb,
		transport:  transport,
		observer:   observer,
		newID:      uuid.NewString,
		homeDelay:  cfg.HomeRedirectDelay(),
		sessions:   make(map[string]*runningSession),
	}
}

func (m *Manager) Start(ctx context.Context, in StartInput) (StartResult, error) {
	const op = "session.Manager.Start"

	if in.User == nil || in.User.ID == "" {
		slog.Warn("session start rejected: unauthenticated", "mode", in.Mode.String())
		return StartResult{}, apperr.E(apperr.CodeUnauthenticated, op, messageNotAuthenticated, nil)
	}
	m.mu.Lock()
	closing := m.closing
	m.mu.Unlock()
	if closing {
		return StartResult{}, apperr.E(apperr.CodeConflict, op, messageServerShutdown, nil)
	}

	payload, req, err := m.prepare(ctx, in)
	if err != nil {
		slog.Warn("session start rejected", "error", err, "mode", in.Mode.String(), "user_id", in.User.ID, "interview_id", in.InterviewID)
		return StartResult{}, err
	}

	machine := NewMachine()
	if err := machine.Start(in.Mode, payload); err != nil {
		slog.Warn("session start rejected", "error", err, "mode", in.Mode.String(), "user_id", in.User.ID, "interview_id", in.InterviewID)
		return StartResult{}, err
	}

	rs := &runningSession{
		id:          m.newID(),
		mode:        in.Mode,
		interviewID: in.InterviewID,
		user:        *in.User,
		machine:     machine,
	}
	rs.adapter = voice.NewAdapter(func(e voice.Event) { m.handleEvent(rs, e) })
	m.mu.Lock()
	m.sessions[rs.id] = rs
	m.mu.Unlock()
	slog.Info("session connecting", "session_id", rs.id, "mode", rs.mode.String(), "user_id", rs.user.ID, "interview_id", rs.interviewID)

	req.SessionID = rs.id
	call, err := m.transport.Start(ctx, req, rs.adapter)
	if err != nil {
		rs.adapter.Close()
		machine.Abort()
		m.remove(rs.id)
		message := startFailureMessage(err)
		slog.Error("failed to start voice call", "error", err, "session_id", rs.id, "code", string(apperr.CodeOf(err)))
		m.observer.OnNotice(rs.id, Notice{Level: NoticeError, Message: message})
		m.observer.OnClosed(rs.id)
		return StartResult{}, apperr.E(apperr.CodeTransport, op, message, err)
	}
	rs.setCall(call)

	snap := machine.Snapshot()
	m.observer.OnState(rs.id, snap)
	return StartResult{SessionID: rs.id, JoinURL: call.JoinURL(), Snapshot: snap}, nil
}

func (m *Manager) prepare(ctx context.Context, in StartInput) (StartPayload, voice.StartRequest, error) {
	const op = "session.Manager.prepare"

	req := voice.StartRequest{UserID: in.User.ID, UserName: in.User.Name}
	var payload StartPayload
	switch in.Mode {
	case ModeInterview:
		if in.InterviewID == "" {
			return payload, req, apperr.E(apperr.CodeInvalidArgument, op, "interview id is required", nil)
		}
		iv, err := m.interviews.GetInterview(ctx, in.InterviewID)
		if err != nil {
			return payload, req, apperr.E(apperr.CodePersistence, op, "failed to load interview", err)
		}
		if iv == nil {
			return payload, req, apperr.E(apperr.CodeNotFound, op, "interview not found", nil)
		}
		assistant := prompt.InterviewerAssistant(in.User.Name, iv.Questions)
		req.Assistant = &assistant
		payload.Questions = iv.Questions
	case ModeGenerate:
		vars := map[string]string{
			"username": in.User.Name,
			"userid":   in.User.ID,
		}
		req.WorkflowID = m.cfg.VapiWorkflowID
		req.Variables = vars
		payload.WorkflowID = m.cfg.VapiWorkflowID
		payload.Variables = vars
	}
	return payload, req, nil
}

// End is the user-initiated hang-up for a session owned by user.
func (m *Manager) End(ctx context.Context, sessionID string, user *auth.User) (Snapshot, error) {
	const op = "session.Manager.End"

	rs, err := m.owned(op, sessionID, user)
	if err != nil {
		return Snapshot{}, err
	}
	// Let fragments the transport already delivered reach the transcript.
	if err := rs.adapter.Flush(ctx); err != nil {
		slog.Warn("ending session before queued events were handled", "error", err, "session_id", rs.id)
	}
	tr, err := rs.machine.End()
	if err != nil {
		return rs.machine.Snapshot(), err
	}
	if tr.Terminal {
		slog.Info("session ended by user", "session_id", rs.id)
		m.finish(rs)
		m.stopCall(ctx, rs)
	}
	return rs.machine.Snapshot(), nil
}

func (m *Manager) Snapshot(sessionID string, user *auth.User) (Snapshot, error) {
	rs, err := m.owned("session.Manager.Snapshot", sessionID, user)
	if err != nil {
		return Snapshot{}, err
	}
	return rs.machine.Snapshot(), nil
}

func (m *Manager) owned(op, sessionID string, user *auth.User) (*runningSession, error) {
	if user == nil || user.ID == "" {
		return nil, apperr.E(apperr.CodeUnauthenticated, op, messageNotAuthenticated, nil)
	}
	m.mu.Lock()
	rs, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok || rs.user.ID != user.ID {
		return nil, apperr.E(apperr.CodeNotFound, op, "session not found", nil)
	}
	return rs, nil
}

func (m *Manager) handleEvent(rs *runningSession, e voice.Event) {
	tr := rs.machine.Apply(e)
	switch e.Kind {
	case voice.EventTranscriptFragment:
		if tr.Appended {
			slog.Debug("transcript line appended", "session_id", rs.id, "speaker", string(e.Speaker), "chars", len(e.Text))
		}
	case voice.EventTransportError:
		slog.Error("voice transport error", "error", e.Err, "session_id", rs.id, "status", tr.From.String())
	case voice.EventSpeechStarted, voice.EventSpeechStopped:
	default:
		slog.Info("voice event received", "session_id", rs.id, "event", e.Kind.String(), "from", tr.From.String(), "to", tr.To.String())
	}

	if tr.Changed && !tr.Terminal {
		m.observer.OnState(rs.id, rs.machine.Snapshot())
	}
	if tr.From == StatusConnecting && tr.To == StatusActive {
		m.observer.OnNotice(rs.id, Notice{Level: NoticeSuccess, Message: messageCallConnected})
	}
	switch {
	case tr.Aborted:
		m.abort(rs, messageCallError)
	case tr.Terminal:
		m.finish(rs)
	}
}

// abort tears down a session that will never produce feedback.
func (m *Manager) abort(rs *runningSession, message string) {
	rs.adapter.Close()
	m.remove(rs.id)
	m.observer.OnNotice(rs.id, Notice{Level: NoticeError, Message: message})
	m.observer.OnClosed(rs.id)
	slog.Info("session aborted", "session_id", rs.id)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), stopCallTimeout)
		defer cancel()
		m.stopCall(ctx, rs)
	}()
}

// finish runs once per session, on the transition that first reaches
// FINISHED.
func (m *Manager) finish(rs *runningSession) {
	rs.adapter.Close()
	m.observer.OnState(rs.id, rs.machine.Snapshot())
	m.observer.OnNotice(rs.id, Notice{Level: NoticeInfo, Message: messageCallEnded})

	transcript := rs.machine.Transcript()
	slog.Info("session finished", "session_id", rs.id, "mode", rs.mode.String(), "lines", len(transcript))
	m.wg.Add(1)
	go m.finalizeSession(rs, transcript)
}

func (m *Manager) finalizeSession(rs *runningSession, transcript []voice.Line) {
	defer m.wg.Done()
	defer m.remove(rs.id)
	defer m.observer.OnClosed(rs.id)

	if rs.mode != ModeInterview || len(transcript) == 0 {
		timer := time.NewTimer(m.homeDelay)
		<-timer.C
		m.navigate(rs, navigateHome)
		return
	}

	ctx := context.Background()
	existingID, err := m.feedback.ExistingID(ctx, rs.interviewID, rs.user.ID)
	if err != nil {
		slog.Warn("failed to look up existing feedback; creating a new record", "error", err, "session_id", rs.id)
		existingID = ""
	}
	res, err := m.feedback.Generate(ctx, feedback.Request{
		InterviewID: rs.interviewID,
		UserID:      rs.user.ID,
		Transcript:  transcript,
		FeedbackID:  existingID,
	})
	if err != nil {
		slog.Error("failed to generate feedback", "error", err, "code", string(apperr.CodeOf(err)), "session_id", rs.id, "interview_id", rs.interviewID)
		m.observer.OnNotice(rs.id, Notice{Level: NoticeError, Message: messageFeedbackFailed})
		m.navigate(rs, navigateHome)
		return
	}
	slog.Info("feedback generated", "session_id", rs.id, "feedback_id", res.FeedbackID, "interview_id", rs.interviewID)
	m.observer.OnNotice(rs.id, Notice{Level: NoticeSuccess, Message: messageFeedbackSaved})
	m.navigate(rs, feedbackPath(rs.interviewID))
}

func (m *Manager) navigate(rs *runningSession, target string) {
	rs.navigateOnce.Do(func() {
		slog.Info("session navigation", "session_id", rs.id, "target", target)
		m.observer.OnNavigate(rs.id, Navigation{Target: target})
	})
}

func (m *Manager) stopCall(ctx context.Context, rs *runningSession) {
	rs.mu.Lock()
	call := rs.call
	rs.stopRequested = true
	rs.mu.Unlock()
	if call == nil {
		return
	}
	if err := call.Stop(ctx); err != nil {
		slog.Warn("failed to stop voice call", "error", err, "session_id", rs.id)
	}
}

// setCall records the dialed call, stopping it right away if the session
// was torn down while the transport was still dialing.
func (rs *runningSession) setCall(call voice.Call) {
	rs.mu.Lock()
	rs.call = call
	stop := rs.stopRequested
	rs.mu.Unlock()
	if !stop || call == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), stopCallTimeout)
		defer cancel()
		if err := call.Stop(ctx); err != nil {
			slog.Warn("failed to stop voice call", "error", err, "session_id", rs.id)
		}
	}()
}

func (m *Manager) remove(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// Shutdown ends every live call, aborts calls still dialing and waits for
// pending feedback work until ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	running := make([]*runningSession, 0, len(m.sessions))
	for _, rs := range m.sessions {
		running = append(running, rs)
	}
	m.mu.Unlock()
	slog.Info("shutting down session manager", "sessions", len(running))

	for _, rs := range running {
		switch rs.machine.Status() {
		case StatusActive:
			if err := rs.adapter.Flush(ctx); err != nil {
				slog.Warn("ending session before queued events were handled", "error", err, "session_id", rs.id)
			}
			tr, err := rs.machine.End()
			if err == nil && tr.Terminal {
				m.finish(rs)
				m.stopCall(ctx, rs)
			}
		case StatusConnecting:
			if tr := rs.machine.Abort(); tr.Aborted {
				slog.Warn("aborting dialing session", "session_id", rs.id, "reason", "server shutting down")
				m.abort(rs, messageServerShutdown)
			}
		case StatusInactive, StatusFinished:
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
