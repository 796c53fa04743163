package providers

import (
	"context"
	"sync"
	"sync/atomic"
)

// Stream is the cancellation handle of one running completion
type Stream struct {
	// delivery is held while a callback runs
	delivery  sync.Mutex
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
}

// Cancel aborts the completion and releases its transport. It waits for a
// callback already running; once it returns no callback fires, including
// the terminal one. It must not be called from a callback, nor while
// holding a lock the callbacks take.
func (s *Stream) Cancel() {
	s.cancelled.Store(true)
	s.cancel()
	s.delivery.Lock()
	s.delivery.Unlock()
}

// Cancelled reports whether Cancel was called.
func (s *Stream) Cancelled() bool {
	return s.cancelled.Load()
}

// Done is closed once the stream goroutine has returned.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Emitter delivers stream events to a Handler, enforcing that at most one
// terminal event is delivered and nothing follows it or a cancellation.
type Emitter struct {
	stream   *Stream
	handler  Handler
	finished bool
}

// Token delivers a progress event. It returns false once the stream should stop.
func (e *Emitter) Token(markup string) bool {
	return e.deliver(false, func() {
		if e.handler.OnToken != nil {
			e.handler.OnToken(markup)
		}
	})
}

// Complete delivers the successful terminal event.
func (e *Emitter) Complete(markup, text string) {
	e.deliver(true, func() {
		if e.handler.OnComplete != nil {
			e.handler.OnComplete(markup, text)
		}
	})
}

// Fail delivers the failed terminal event.
func (e *Emitter) Fail(err error) {
	e.deliver(true, func() {
		if e.handler.OnError != nil {
			e.handler.OnError(err)
		}
	})
}

// deliver runs fn unless the stream finished or was cancelled. The check and
// the call share the delivery lock so Cancel cannot slip in between.
func (e *Emitter) deliver(terminal bool, fn func()) bool {
	e.stream.delivery.Lock()
	defer e.stream.delivery.Unlock()
	if e.finished || e.stream.Cancelled() {
		return false
	}
	if terminal {
		e.finished = true
	}
	fn()
	return true
}

// Run starts fn on its own goroutine and returns the handle controlling it.
// The context passed to fn is cancelled by Stream.Cancel and when fn returns.
func Run(ctx context.Context, h Handler, fn func(ctx context.Context, e *Emitter)) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{cancel: cancel, done: make(chan struct{})}
	e := &Emitter{stream: s, handler: h}

	go func() {
		defer close(s.done)
		defer cancel()
		fn(ctx, e)
	}()
	return s
}
