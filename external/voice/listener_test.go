package voice

import (
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/mensetsu/internal/voice"
)

type recordingListener struct {
	mu       sync.Mutex
	events   []voice.Event
	releases []func()
}

func (l *recordingListener) record(e voice.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *recordingListener) OnConnected(callID string) {
	l.record(voice.Event{Kind: voice.EventConnected, CallID: callID})
}

func (l *recordingListener) OnDisconnected() {
	l.record(voice.Event{Kind: voice.EventDisconnected})
}

func (l *recordingListener) OnTranscript(speaker voice.Speaker, text string, isFinal bool) {
	l.record(voice.Event{Kind: voice.EventTranscriptFragment, Speaker: speaker, Text: text, IsFinal: isFinal})
}

func (l *recordingListener) OnSpeechStarted() {
	l.record(voice.Event{Kind: voice.EventSpeechStarted})
}

func (l *recordingListener) OnSpeechStopped() {
	l.record(voice.Event{Kind: voice.EventSpeechStopped})
}

func (l *recordingListener) OnError(err error) {
	l.record(voice.Event{Kind: voice.EventTransportError, Err: err})
}

func (l *recordingListener) Track(release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releases = append(l.releases, release)
}

func (l *recordingListener) releaseAll() {
	l.mu.Lock()
	releases := l.releases
	l.releases = nil
	l.mu.Unlock()
	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}

func (l *recordingListener) snapshot() []voice.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]voice.Event(nil), l.events...)
}

func (l *recordingListener) count(kind voice.EventKind) int {
	n := 0
	for _, e := range l.snapshot() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (l *recordingListener) finalLines(speaker voice.Speaker) []string {
	var out []string
	for _, e := range l.snapshot() {
		if e.Kind == voice.EventTranscriptFragment && e.IsFinal && e.Speaker == speaker {
			out = append(out, e.Text)
		}
	}
	return out
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
