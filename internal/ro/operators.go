package ro

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/samber/ro"

	"github.com/omarluq/playground-relay/internal/chat"
)

// LogEvents logs each event's metadata without modifying the stream. Delta
// text is never logged, only its length. Error events log at Warn, everything
// else at Debug.
//
// Example:
//
//	events := ro.Pipe1(stream.Observable(), LogEvents(&logger, "anthropic"))
func LogEvents(logger *zerolog.Logger, name string) func(ro.Observable[chat.Event]) ro.Observable[chat.Event] {
	return ro.DoOnNext(func(ev chat.Event) {
		entry := logger.Debug()
		if ev.Type == chat.EventError {
			entry = logger.Warn().
				Str("kind", string(ev.ErrorKind)).
				Int("http_status", ev.HTTPStatus)
		}
		if ev.IsDelta() {
			entry = entry.Int("len", len(ev.Text))
		}
		if ev.Type == chat.EventDone {
			entry = entry.Str("finish_reason", string(ev.FinishReason))
		}
		entry.Str("stream", name).
			Str("type", string(ev.Type)).
			Msg("stream event")
	})
}

// OnlyTypes keeps events whose type is listed.
func OnlyTypes(types ...chat.EventType) func(ro.Observable[chat.Event]) ro.Observable[chat.Event] {
	return ro.Filter(func(ev chat.Event) bool {
		return lo.Contains(types, ev.Type)
	})
}

// DeltaText maps delta events to their text.
//
// Example:
//
//	answer := ro.Pipe2(events, OnlyTypes(chat.EventTextDelta), DeltaText())
func DeltaText() func(ro.Observable[chat.Event]) ro.Observable[string] {
	return ro.Map(func(ev chat.Event) string {
		return ev.Text
	})
}

// DoOnEvent runs action for each event without modifying the stream.
func DoOnEvent(action func(chat.Event)) func(ro.Observable[chat.Event]) ro.Observable[chat.Event] {
	return ro.DoOnNext(action)
}
