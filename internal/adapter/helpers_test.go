package adapter_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/config"
	"github.com/omarluq/playground-relay/internal/transport"
)

// trackedBody counts Close calls on an upstream body.
type trackedBody struct {
	io.Reader
	onClose func()
	closes  atomic.Int32
}

func (b *trackedBody) Close() error {
	if b.closes.Add(1) == 1 && b.onClose != nil {
		b.onClose()
	}
	return nil
}

// stubTransport records every call and answers with a canned response.
type stubTransport struct {
	respond func(req *transport.Request) (*transport.Response, error)
	mu      sync.Mutex
	seen    []*transport.Request
}

func (s *stubTransport) Send(_ context.Context, req *transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	s.seen = append(s.seen, req)
	s.mu.Unlock()
	return s.respond(req)
}

func (s *stubTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func respondWith(status int, body string) (*stubTransport, *trackedBody) {
	tb := &trackedBody{Reader: strings.NewReader(body)}
	return &stubTransport{
		respond: func(*transport.Request) (*transport.Response, error) {
			return &transport.Response{StatusCode: status, Header: http.Header{}, Body: tb}, nil
		},
	}, tb
}

func newRequest(kind chat.ProviderKind) *chat.Request {
	return &chat.Request{
		Provider:   kind,
		Model:      "m-1",
		Credential: "cred-123",
		Messages:   []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
	}
}

const anthropicStream = "event: message_start\n" +
	`data: {"type":"message_start","message":{"usage":{"input_tokens":3,"output_tokens":0}}}` + "\n\n" +
	"event: ping\n" +
	`data: {"type":"ping"}` + "\n\n" +
	"event: content_block_delta\n" +
	`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}` + "\n\n" +
	"event: content_block_delta\n" +
	`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}` + "\n\n" +
	"event: message_delta\n" +
	`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}` + "\n\n" +
	"event: message_stop\n" +
	`data: {"type":"message_stop"}` + "\n\n"

func testConfig() *config.Config {
	return &config.Config{}
}
