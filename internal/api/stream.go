package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer  = 64
	closedRetain      = time.Minute
	streamWriteWait   = 10 * time.Second
	streamPongWait    = 60 * time.Second
	streamPingPeriod  = 30 * time.Second
	streamReadLimit   = 4096
	frameTypeState    = "state"
	frameTypeNotice   = "notice"
	frameTypeNavigate = "navigate"
)

type frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type subscriber struct {
	ch chan []byte
}

// Hub fans session updates out to websocket subscribers. It keeps the
// latest state and the navigation decision per session so a client that
// subscribes late still converges.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	state  map[string][]byte
	nav    map[string][]byte
	retain time.Duration
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		state:  make(map[string][]byte),
		nav:    make(map[string][]byte),
		retain: closedRetain,
	}
}

func (h *Hub) OnState(sessionID string, snapshot session.Snapshot) {
	b := encodeFrame(frameTypeState, snapshot)
	h.mu.Lock()
	h.state[sessionID] = b
	h.mu.Unlock()
	h.broadcast(sessionID, b)
}

func (h *Hub) OnNotice(sessionID string, notice session.Notice) {
	h.broadcast(sessionID, encodeFrame(frameTypeNotice, notice))
}

func (h *Hub) OnNavigate(sessionID string, nav session.Navigation) {
	b := encodeFrame(frameTypeNavigate, nav)
	h.mu.Lock()
	h.nav[sessionID] = b
	h.mu.Unlock()
	h.broadcast(sessionID, b)
}

// OnClosed drops the retained frames of a session once late subscribers
// have had a chance to read them. Aborted sessions never navigate, so this
// is the only release they get.
func (h *Hub) OnClosed(sessionID string) {
	time.AfterFunc(h.retain, func() { h.forget(sessionID) })
}

// Subscribe returns a channel of encoded frames for sessionID, primed with
// the retained state and navigation. cancel must be called once.
func (h *Hub) Subscribe(sessionID string) (<-chan []byte, func()) {
	s := &subscriber{ch: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	if st, ok := h.state[sessionID]; ok {
		s.ch <- st
	}
	if nv, ok := h.nav[sessionID]; ok {
		s.ch <- nv
	}
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	h.subs[sessionID][s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[sessionID], s)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			h.mu.Unlock()
		})
	}
}

func (h *Hub) broadcast(sessionID string, b []byte) {
	if b == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[sessionID] {
		select {
		case s.ch <- b:
		default:
			slog.Warn("dropping stream frame for slow subscriber", "session_id", sessionID)
		}
	}
}

func (h *Hub) forget(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.state, sessionID)
	delete(h.nav, sessionID)
}

func encodeFrame(kind string, data any) []byte {
	b, err := json.Marshal(frame{Type: kind, Data: data})
	if err != nil {
		slog.Error("failed to encode stream frame", "error", err, "type", kind)
		return nil
	}
	return b
}

type clientMessage struct {
	Type string `json:"type"`
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// Stream upgrades to a websocket that pushes state, notice and navigate
// frames for one session. The client may send {"type":"end"} to hang up.
func (h *Handler) Stream(c *gin.Context) {
	user := currentUser(c)
	sessionID := c.Param("id")
	if _, err := h.sessions.Snapshot(sessionID, user); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("failed to upgrade stream", "error", err, "session_id", sessionID)
		return
	}
	defer conn.Close()

	frames, cancel := h.hub.Subscribe(sessionID)
	defer cancel()
	slog.Info("stream subscriber connected", "session_id", sessionID, "user_id", user.ID)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(streamReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type == "end" {
				if _, err := h.sessions.End(c.Request.Context(), sessionID, user); err != nil {
					slog.Warn("failed to end session from stream", "error", err, "session_id", sessionID)
				}
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-readDone:
			slog.Info("stream subscriber disconnected", "session_id", sessionID)
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case b := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
			if isNavigateFrame(b) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session complete"),
					time.Now().Add(streamWriteWait))
				return
			}
		}
	}
}

func isNavigateFrame(b []byte) bool {
	var f struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(b, &f) == nil && f.Type == frameTypeNavigate
}
