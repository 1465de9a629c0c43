package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/playground-relay/internal/adapter"
	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/di"
)

const thinkingStream = "event: content_block_delta\n" +
	`data: {"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"hmm"}}` + "\n\n" +
	"event: content_block_delta\n" +
	`data: {"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"Hel"}}` + "\n\n" +
	"event: content_block_delta\n" +
	`data: {"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"lo"}}` + "\n\n" +
	"event: message_delta\n" +
	`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}` + "\n\n" +
	"event: message_stop\n" +
	`data: {"type":"message_stop"}` + "\n\n"

func fakeEnv(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestBuildChatRequest(t *testing.T) {
	t.Parallel()

	opts := chatOptions{
		provider:    "openrouter",
		model:       "meta/llama",
		system:      "be brief",
		maxTokens:   64,
		temperature: 0.2,
		thinking:    true,
	}
	req, err := buildChatRequest(opts, "hi", fakeEnv(map[string]string{"OPENROUTER_API_KEY": " sk-or "}))
	require.NoError(t, err)

	assert.Equal(t, chat.ProviderOpenAICompatible, req.Provider)
	assert.Equal(t, "sk-or", req.Credential)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, chat.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, chat.Message{Role: chat.RoleUser, Content: "hi"}, req.Messages[1])
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 64, *req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.True(t, req.WantsThinking())
}

func TestBuildChatRequestDefaults(t *testing.T) {
	t.Parallel()

	opts := chatOptions{provider: "anthropic", model: "claude", temperature: -1}
	req, err := buildChatRequest(opts, "hi", fakeEnv(map[string]string{"ANTHROPIC_API_KEY": "sk-ant"}))
	require.NoError(t, err)

	assert.Len(t, req.Messages, 1)
	assert.Nil(t, req.MaxTokens)
	assert.Nil(t, req.Temperature)
	assert.Nil(t, req.ThinkingEnabled)
}

func TestBuildChatRequestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    chatOptions
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown provider",
			opts:    chatOptions{provider: "cohere"},
			wantErr: `unsupported provider "cohere"`,
		},
		{
			name:    "missing default credential",
			opts:    chatOptions{provider: "gemini"},
			wantErr: "set GEMINI_API_KEY",
		},
		{
			name:    "custom env name",
			opts:    chatOptions{provider: "gemini", credentialEnv: "MY_KEY"},
			env:     map[string]string{"GEMINI_API_KEY": "unused"},
			wantErr: "set MY_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := buildChatRequest(tt.opts, "hi", fakeEnv(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func newChatAdapter(t *testing.T, handler http.HandlerFunc) *adapter.Adapter {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	path := writeConfigFile(t, t.TempDir(), fmt.Sprintf(`
providers:
  anthropic:
    base_url: %s
  gemini:
    enabled: false
  openai_compatible:
    enabled: false
logging:
  level: error
  output: stderr
`, upstream.URL))

	container, err := di.NewContainer(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Shutdown() })

	return di.MustInvoke[*di.AdapterService](container).Adapter
}

func anthropicRequest(thinking bool) *chat.Request {
	return &chat.Request{
		ThinkingEnabled: lo.ToPtr(thinking),
		Provider:        chat.ProviderAnthropic,
		Model:           "claude-test",
		Credential:      "sk-ant-secret",
		Messages:        []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
	}
}

func TestStreamChatWritesDeltas(t *testing.T) {
	keys := make(chan string, 1)
	a := newChatAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(thinkingStream))
	})

	var out, thinking bytes.Buffer
	logger := zerolog.Nop()
	transcript, err := streamChat(context.Background(), a, anthropicRequest(true), &logger, &out, &thinking)
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-secret", <-keys)
	assert.Equal(t, "Hello\n", out.String())
	assert.Equal(t, "hmm", thinking.String())
	assert.True(t, transcript.Completed())
	assert.Equal(t, chat.FinishReason("stop"), transcript.Terminal.FinishReason)
}

func TestStreamChatHidesThinkingByDefault(t *testing.T) {
	a := newChatAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(thinkingStream))
	})

	var out bytes.Buffer
	logger := zerolog.Nop()
	transcript, err := streamChat(context.Background(), a, anthropicRequest(true), &logger, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", out.String())
	assert.Equal(t, "hmm", transcript.Thinking)
}

func TestStreamChatUpstreamRejection(t *testing.T) {
	a := newChatAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid x-api-key"}}`))
	})

	var out bytes.Buffer
	logger := zerolog.Nop()
	_, err := streamChat(context.Background(), a, anthropicRequest(false), &logger, &out, nil)
	require.Error(t, err)

	var ce *chat.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, chat.KindUpstreamRejected, ce.Kind)
	assert.Equal(t, http.StatusUnauthorized, ce.HTTPStatus)
	assert.NotContains(t, err.Error(), "sk-ant-secret")
	assert.Empty(t, out.String())
}

func TestStreamChatMidStreamError(t *testing.T) {
	a := newChatAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: content_block_delta\n" +
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"par"}}` + "\n\n" +
			"event: error\n" +
			`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}` + "\n\n"))
	})

	var out bytes.Buffer
	logger := zerolog.Nop()
	transcript, err := streamChat(context.Background(), a, anthropicRequest(false), &logger, &out, nil)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "par"))
	assert.Equal(t, chat.EventError, transcript.Terminal.Type)
}

func TestPrintEventsWritesJSONLines(t *testing.T) {
	a := newChatAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(thinkingStream))
	})

	req := anthropicRequest(true)

	var out bytes.Buffer
	transcript, err := printEvents(context.Background(), a, req, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"type":"thinking_delta","text":"hmm"}`, lines[0])
	assert.JSONEq(t, `{"type":"text_delta","text":"Hel"}`, lines[1])
	assert.Contains(t, lines[3], `"type":"done"`)
	assert.Contains(t, lines[3], `"finish_reason":"stop"`)
	assert.Equal(t, "Hello", transcript.Text)
	assert.NotContains(t, out.String(), "sk-ant-secret")
}

// signalWriter closes first on its first write.
type signalWriter struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	first chan struct{}
	once  sync.Once
}

func (w *signalWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.once.Do(func() { close(w.first) })
	return w.buf.Write(p)
}

func (w *signalWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestPrintEventsWritesBeforeStreamEnds(t *testing.T) {
	release := make(chan struct{})
	var releaseOnce sync.Once
	a := newChatAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: content_block_delta\n" +
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"early"}}` + "\n\n"))
		w.(http.Flusher).Flush()

		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte("event: message_stop\n" + `data: {"type":"message_stop"}` + "\n\n"))
	})
	t.Cleanup(func() { releaseOnce.Do(func() { close(release) }) })

	out := &signalWriter{first: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := printEvents(context.Background(), a, anthropicRequest(false), out)
		done <- err
	}()

	select {
	case <-out.first:
	case <-time.After(5 * time.Second):
		t.Fatal("no event written while the upstream was still open")
	}
	assert.JSONEq(t, `{"type":"text_delta","text":"early"}`, strings.TrimSpace(out.String()))

	releaseOnce.Do(func() { close(release) })
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("printEvents did not return after the upstream finished")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"type":"done"`)
}
