package session

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

type Navigation struct {
	Target string `json:"target"`
}

// Observer receives everything the UI layer renders for a session. The
// manager delivers OnNavigate at most once per session, and OnClosed once
// after the last update for a session that was registered.
type Observer interface {
	OnState(sessionID string, snapshot Snapshot)
	OnNotice(sessionID string, notice Notice)
	OnNavigate(sessionID string, nav Navigation)
	OnClosed(sessionID string)
}

type nopObserver struct{}

func (nopObserver) OnState(string, Snapshot) {}
func (nopObserver) OnNotice(string, Notice) {}
func (nopObserver) OnNavigate(string, Navigation) {}
func (nopObserver) OnClosed(string) {}
