package adapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/samber/ro"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/providers"
	"github.com/omarluq/playground-relay/internal/transport"
)

// Stream is the normalized event stream of one upstream response. It is read
// by a single consumer. Every stream ends with exactly one terminal event
// (done or error) and releases the upstream connection right after it.
type Stream struct {
	ctx        context.Context
	body       io.Closer
	framer     providers.Framer
	normalizer providers.Normalizer
	stopWatch  func() bool
	provider   chat.ProviderKind
	pending    []chat.Event
	closeOnce  sync.Once
	closeErr   error
	closed     atomic.Bool
	finished   bool
}

func newStream(ctx context.Context, provider providers.Provider, req *chat.Request, body io.ReadCloser) *Stream {
	s := &Stream{
		ctx:        ctx,
		body:       body,
		framer:     provider.NewFramer(body),
		normalizer: provider.NewNormalizer(req),
		provider:   provider.Kind(),
	}
	// A consumer that goes away must not leave the upstream connection open.
	s.stopWatch = context.AfterFunc(ctx, func() {
		_ = s.Close()
	})
	return s
}

// Provider returns the provider family the stream comes from.
func (s *Stream) Provider() chat.ProviderKind {
	return s.provider
}

// Next blocks until the next event is available. It returns false once the
// terminal event has been delivered.
func (s *Stream) Next() (chat.Event, bool) {
	if s.finished {
		return chat.Event{}, false
	}

	for len(s.pending) == 0 {
		if s.closed.Load() || s.ctx.Err() != nil {
			return s.finish(canceled())
		}

		frame, err := s.framer.Next()
		if err != nil {
			return s.finish(s.readFailure(err))
		}
		s.pending = s.normalizer.Normalize(frame)
	}

	ev := s.pending[0]
	s.pending = s.pending[1:]
	if ev.IsTerminal() {
		return s.finish(ev)
	}
	return ev, true
}

func (s *Stream) finish(ev chat.Event) (chat.Event, bool) {
	s.finished = true
	s.pending = nil
	_ = s.Close()
	return ev, true
}

// readFailure maps a framer error to the terminal event.
func (s *Stream) readFailure(err error) chat.Event {
	switch {
	case errors.Is(err, io.EOF):
		return s.normalizer.Finish()
	case s.closed.Load() || s.ctx.Err() != nil:
		return canceled()
	}

	var ce *chat.Error
	if errors.As(err, &ce) {
		return chat.ErrorEventFrom(ce)
	}
	return chat.ErrorEventFrom(transport.Classify(s.ctx, err))
}

func canceled() chat.Event {
	return chat.ErrorEvent(chat.KindTransportFailure, "stream canceled", http.StatusInternalServerError)
}

// Close releases the upstream connection. Reads after Close end the stream
// with a canceled error event. It is safe to call more than once and from
// another goroutine than the consumer.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.stopWatch != nil {
			s.stopWatch()
		}
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// Collect drains the stream. The terminal event is the last element.
func (s *Stream) Collect() []chat.Event {
	var events []chat.Event
	for {
		ev, ok := s.Next()
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

// Observable exposes the stream to samber/ro pipelines. Subscribing drains
// the stream; the observable completes after the terminal event. Error events
// are delivered as values, not as observable errors.
func (s *Stream) Observable() ro.Observable[chat.Event] {
	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[chat.Event]) ro.Teardown {
		for {
			ev, ok := s.Next()
			if !ok {
				break
			}
			observer.NextWithContext(ctx, ev)
		}
		observer.CompleteWithContext(ctx)

		return func() {
			_ = s.Close()
		}
	})
}
