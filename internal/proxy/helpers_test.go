package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/omarluq/playground-relay/internal/adapter"
	"github.com/omarluq/playground-relay/internal/config"
	"github.com/omarluq/playground-relay/internal/providers"
	"github.com/omarluq/playground-relay/internal/ratelimit"
	"github.com/omarluq/playground-relay/internal/sse"
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

// fakeUpstream answers every call with the same status and body.
type fakeUpstream struct {
	body   *trackedBody
	seen   []*transport.Request
	status int
	mu     sync.Mutex
}

func newFakeUpstream(status int, body string) *fakeUpstream {
	return &fakeUpstream{status: status, body: &trackedBody{Reader: strings.NewReader(body)}}
}

func (f *fakeUpstream) Send(_ context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.seen = append(f.seen, req)
	f.mu.Unlock()
	return &transport.Response{StatusCode: f.status, Header: http.Header{}, Body: f.body}, nil
}

func (f *fakeUpstream) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func (f *fakeUpstream) lastURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seen) == 0 {
		return ""
	}
	return f.seen[len(f.seen)-1].URL
}

func newBackend(tr transport.Transport) *adapter.Adapter {
	registry := providers.NewRegistry(
		providers.NewAnthropicProvider(providers.Settings{BaseURL: "https://anthropic.test"}),
		providers.NewGeminiProvider(providers.Settings{BaseURL: "https://gemini.test"}),
		providers.NewOpenAICompatibleProvider(providers.Settings{BaseURL: "https://router.test/v1"}),
	)
	return adapter.NewWithRegistry(registry, nil, tr)
}

func newTestRoutes(t *testing.T, cfg *config.Config, tr transport.Transport) http.Handler {
	t.Helper()
	limiter := ratelimit.NewKeyedLimiter(cfg.Server.RateLimit.GetRequestsPerMinute(), cfg.Server.RateLimit.GetBurst())
	return SetupRoutes(config.NewRuntime(cfg), newBackend(tr), limiter)
}

const chatBody = `{"model":"m-1","messages":[{"role":"user","content":"hi"}]}`

func postChat(handler http.Handler, path, body, credential string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// decodeEvents parses an SSE response body.
func decodeEvents(t *testing.T, body io.Reader) []sse.Event {
	t.Helper()
	dec := sse.NewDecoder(body, 0)
	var events []sse.Event
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("decode SSE: %v", err)
		}
		events = append(events, ev)
	}
}

const anthropicStream = "event: message_start\n" +
	`data: {"type":"message_start","message":{"usage":{"input_tokens":3,"output_tokens":0}}}` + "\n\n" +
	"event: content_block_delta\n" +
	`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}` + "\n\n" +
	"event: content_block_delta\n" +
	`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}` + "\n\n" +
	"event: message_delta\n" +
	`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}` + "\n\n" +
	"event: message_stop\n" +
	`data: {"type":"message_stop"}` + "\n\n"

const openAIStream = `data: {"choices":[{"index":0,"delta":{"content":"Hi"}}]}` + "\n\n" +
	`data: {"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}` + "\n\n" +
	"data: [DONE]\n\n"
