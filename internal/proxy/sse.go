package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/sse"
)

// Every normalized event is written as one SSE event named after its type.
// The data line is the JSON encoding of chat.Event and always carries the
// "type" discriminator:
//
//	event: text_delta
//	data: {"type":"text_delta","text":"Hel"}
//
//	event: thinking_delta
//	data: {"type":"thinking_delta","text":"Let me see"}
//
//	event: done
//	data: {"type":"done","finish_reason":"stop","usage":{"input_tokens":3,"output_tokens":2}}
//
//	event: error
//	data: {"type":"error","kind":"upstream_stream_error","message":"Overloaded","http_status":529}
//
// A stream ends with exactly one done or error event.

// isEventStream reports whether a Content-Type header value is SSE.
func isEventStream(contentType string) bool {
	return strings.HasPrefix(contentType, "text/event-stream")
}

// encodeEvent renders ev in SSE wire form.
func encodeEvent(ev chat.Event) (sse.Event, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return sse.Event{}, fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return sse.Event{Event: string(ev.Type), Data: data}, nil
}

// writeChatEvent writes ev and flushes it to the client.
func writeChatEvent(w http.ResponseWriter, ev chat.Event) error {
	encoded, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return sse.WriteEvent(w, encoded)
}
