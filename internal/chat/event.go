package chat

// EventType discriminates the normalized event union.
type EventType string

// Normalized event types.
const (
	EventTextDelta     EventType = "text_delta"
	EventThinkingDelta EventType = "thinking_delta"
	EventDone          EventType = "done"
	EventError         EventType = "error"
)

// FinishReason is the normalized reason a response ended.
type FinishReason string

// Normalized finish reasons.
const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishToolUse       FinishReason = "tool_use"
	FinishOther         FinishReason = "other"
	// FinishUnknown is used when the upstream ended without a finish signal.
	FinishUnknown FinishReason = "unknown"
)

// Usage carries token counters reported by the upstream, passed through as-is.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// IsZero reports whether no counters were reported.
func (u Usage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0
}

// Event is one normalized stream event. Only the fields relevant to Type are set:
//
//	text_delta      Text
//	thinking_delta  Text
//	done            FinishReason, Usage (optional)
//	error           ErrorKind, Message, HTTPStatus
//
// All deltas of a stream precede exactly one terminal event (done or error).
type Event struct {
	Usage        *Usage       `json:"usage,omitempty"`
	Type         EventType    `json:"type"`
	Text         string       `json:"text,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	ErrorKind    ErrorKind    `json:"kind,omitempty"`
	Message      string       `json:"message,omitempty"`
	HTTPStatus   int          `json:"http_status,omitempty"`
}

// TextDelta returns an answer text fragment event.
func TextDelta(text string) Event {
	return Event{Type: EventTextDelta, Text: text}
}

// ThinkingDelta returns a reasoning text fragment event.
func ThinkingDelta(text string) Event {
	return Event{Type: EventThinkingDelta, Text: text}
}

// Done returns a successful terminal event. A nil or empty usage is omitted.
func Done(reason FinishReason, usage *Usage) Event {
	if reason == "" {
		reason = FinishUnknown
	}
	if usage != nil && usage.IsZero() {
		usage = nil
	}
	return Event{Type: EventDone, FinishReason: reason, Usage: usage}
}

// ErrorEvent returns a failed terminal event.
func ErrorEvent(kind ErrorKind, message string, httpStatus int) Event {
	return Event{Type: EventError, ErrorKind: kind, Message: message, HTTPStatus: httpStatus}
}

// ErrorEventFrom converts err into a terminal error event.
func ErrorEventFrom(err error) Event {
	ce := AsError(err)
	return ErrorEvent(ce.Kind, ce.Message, ce.StatusCode())
}

// IsTerminal reports whether the event ends a stream.
func (e Event) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// IsDelta reports whether the event carries a text fragment.
func (e Event) IsDelta() bool {
	return e.Type == EventTextDelta || e.Type == EventThinkingDelta
}

// Err returns the event as an *Error for error events and nil otherwise.
func (e Event) Err() error {
	if e.Type != EventError {
		return nil
	}
	return &Error{Kind: e.ErrorKind, Message: e.Message, HTTPStatus: e.HTTPStatus}
}
