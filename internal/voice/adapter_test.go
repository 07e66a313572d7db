package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func TestAdapter_RepublishesAllKindsInOrder(t *testing.T) {
	rec := &recorder{}
	a := NewAdapter(rec.handle)
	defer a.Close()

	boom := errors.New("boom")
	a.OnConnected("call-1")
	a.OnSpeechStarted()
	a.OnTranscript(SpeakerAssistant, "hello", false)
	a.OnTranscript(SpeakerAssistant, "hello there", true)
	a.OnSpeechStopped()
	a.OnError(boom)
	a.OnDisconnected()

	waitUntil(t, time.Second, func() bool { return len(rec.snapshot()) == 7 }, "expected seven events")
	got := rec.snapshot()
	want := []EventKind{
		EventConnected,
		EventSpeechStarted,
		EventTranscriptFragment,
		EventTranscriptFragment,
		EventSpeechStopped,
		EventTransportError,
		EventDisconnected,
	}
	for i, kind := range want {
		if got[i].Kind != kind {
			t.Fatalf("event %d: expected %s, got %s", i, kind, got[i].Kind)
		}
	}
	if got[0].CallID != "call-1" {
		t.Fatalf("unexpected call id: %q", got[0].CallID)
	}
	if got[2].IsFinal || !got[3].IsFinal || got[3].Text != "hello there" || got[3].Speaker != SpeakerAssistant {
		t.Fatalf("unexpected transcript events: %+v %+v", got[2], got[3])
	}
	if !errors.Is(got[5].Err, boom) {
		t.Fatalf("unexpected error payload: %v", got[5].Err)
	}
}

func TestAdapter_CloseReleasesExactlyOnce(t *testing.T) {
	a := NewAdapter(func(Event) {})
	var calls []string
	a.Track(func() { calls = append(calls, "first") })
	a.Track(func() { calls = append(calls, "second") })

	a.Close()
	a.Close()

	if len(calls) != 2 || calls[0] != "second" || calls[1] != "first" {
		t.Fatalf("unexpected release calls: %v", calls)
	}
	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("expected pump goroutine to exit after close")
	}
}

func TestAdapter_TrackAfterCloseReleasesImmediately(t *testing.T) {
	a := NewAdapter(func(Event) {})
	a.Close()

	released := false
	a.Track(func() { released = true })
	if !released {
		t.Fatal("expected late subscription to be released immediately")
	}
}

func TestAdapter_DropsEventsAfterClose(t *testing.T) {
	rec := &recorder{}
	a := NewAdapter(rec.handle)
	a.Close()

	a.OnConnected("call-1")
	a.OnTranscript(SpeakerUser, "late", true)
	time.Sleep(50 * time.Millisecond)

	if n := len(rec.snapshot()); n != 0 {
		t.Fatalf("expected no events after close, got %d", n)
	}
}

func TestAdapter_HandlerMayPublishAndClose(t *testing.T) {
	rec := &recorder{}
	var a *Adapter
	a = NewAdapter(func(e Event) {
		rec.handle(e)
		switch e.Kind {
		case EventConnected:
			a.OnDisconnected()
		case EventDisconnected:
			a.Close()
		}
	})

	a.OnConnected("call-1")

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("expected adapter to close from inside the handler")
	}
	got := rec.snapshot()
	if len(got) != 2 || got[1].Kind != EventDisconnected {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestAdapter_FlushWaitsForQueuedFinals(t *testing.T) {
	rec := &recorder{}
	gate := make(chan struct{})
	a := NewAdapter(func(e Event) {
		if e.Kind == EventConnected {
			<-gate
		}
		rec.handle(e)
	})
	defer a.Close()

	a.OnConnected("call-1")
	a.OnTranscript(SpeakerUser, "my last answer", true)

	flushed := make(chan error, 1)
	go func() { flushed <- a.Flush(context.Background()) }()
	select {
	case <-flushed:
		t.Fatal("flush returned before queued events were handled")
	case <-time.After(30 * time.Millisecond):
	}

	close(gate)
	select {
	case err := <-flushed:
		if err != nil {
			t.Fatalf("flush failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("flush did not return")
	}
	got := rec.snapshot()
	if len(got) != 2 || got[1].Text != "my last answer" {
		t.Fatalf("expected final fragment handled before flush returned, got %+v", got)
	}
}

func TestAdapter_FlushReturnsOnCloseAndContext(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	a := NewAdapter(func(Event) { <-gate })
	a.OnConnected("call-1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	a.Close()
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush on closed adapter should return nil, got %v", err)
	}
}

func TestSpeakerValid(t *testing.T) {
	for _, s := range []Speaker{SpeakerUser, SpeakerAssistant, SpeakerSystem} {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if Speaker("narrator").Valid() {
		t.Fatal("expected unknown speaker to be invalid")
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}
