package voice

import (
	"context"
	"sync"
)

// Adapter turns transport callbacks into an ordered event stream for one
// session. Events are queued and handed to the handler by a single pump
// goroutine, so the handler never runs concurrently with itself and may
// safely trigger further callbacks (e.g. stopping the call) while handling
// an event.
type Adapter struct {
	handler func(Event)

	mu       sync.Mutex
	queue    []queued
	closed   bool
	releases []func()

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// queued is either an event or a flush marker.
type queued struct {
	event   Event
	flushed chan struct{}
}

func NewAdapter(handler func(Event)) *Adapter {
	a := &Adapter{
		handler: handler,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Adapter) OnConnected(callID string) {
	a.publish(Event{Kind: EventConnected, CallID: callID})
}

func (a *Adapter) OnDisconnected() {
	a.publish(Event{Kind: EventDisconnected})
}

func (a *Adapter) OnTranscript(speaker Speaker, text string, isFinal bool) {
	a.publish(Event{Kind: EventTranscriptFragment, Speaker: speaker, Text: text, IsFinal: isFinal})
}

func (a *Adapter) OnSpeechStarted() {
	a.publish(Event{Kind: EventSpeechStarted})
}

func (a *Adapter) OnSpeechStopped() {
	a.publish(Event{Kind: EventSpeechStopped})
}

func (a *Adapter) OnError(err error) {
	a.publish(Event{Kind: EventTransportError, Err: err})
}

func (a *Adapter) Track(release func()) {
	if release == nil {
		return
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		release()
		return
	}
	a.releases = append(a.releases, release)
	a.mu.Unlock()
}

// Close drops queued events, stops the pump and runs every tracked release
// in reverse registration order. Only the first call has any effect.
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.queue = nil
	releases := a.releases
	a.releases = nil
	a.mu.Unlock()

	close(a.stop)
	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}

func (a *Adapter) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Done is closed once the pump goroutine has exited.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Flush waits until every event queued before the call has been handled,
// the adapter is closed, or ctx is done. It must not be called from the
// handler.
func (a *Adapter) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	if !a.enqueue(queued{flushed: flushed}) {
		return nil
	}
	select {
	case <-flushed:
		return nil
	case <-a.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) publish(e Event) {
	a.enqueue(queued{event: e})
}

func (a *Adapter) enqueue(q queued) bool {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}
	a.queue = append(a.queue, q)
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return true
}

func (a *Adapter) next() (queued, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || len(a.queue) == 0 {
		return queued{}, false
	}
	q := a.queue[0]
	a.queue = a.queue[1:]
	return q, true
}

func (a *Adapter) run() {
	defer close(a.done)
	for {
		select {
		case <-a.stop:
			return
		case <-a.wake:
		}
		for {
			q, ok := a.next()
			if !ok {
				break
			}
			if q.flushed != nil {
				close(q.flushed)
				continue
			}
			a.handler(q.event)
		}
	}
}
