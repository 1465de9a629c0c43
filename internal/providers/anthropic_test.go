package providers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/providers"
)

func TestAnthropicBuildRequest(t *testing.T) {
	t.Parallel()

	p := providers.NewAnthropicProvider(providers.Settings{BaseURL: "https://example.test/"})
	req := newRequest(chat.ProviderAnthropic)
	req.Messages = []chat.Message{
		{Role: chat.RoleSystem, Content: "be brief"},
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleSystem, Content: "no emoji"},
		{Role: chat.RoleAssistant, Content: "hello"},
	}
	req.Temperature = ptr(0.3)

	out, err := p.BuildRequest(req)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, out.Method)
	assert.Equal(t, "https://example.test/v1/messages", out.URL)
	assert.Equal(t, "cred-123", out.Header.Get("x-api-key"))
	assert.Equal(t, providers.DefaultAnthropicVersion, out.Header.Get("anthropic-version"))
	assert.Equal(t, "text/event-stream", out.Header.Get("Accept"))

	body := gjson.ParseBytes(out.Body)
	assert.Equal(t, "m-1", body.Get("model").String())
	assert.Equal(t, "be brief\n\nno emoji", body.Get("system").String())
	assert.True(t, body.Get("stream").Bool())
	assert.InDelta(t, 0.3, body.Get("temperature").Float(), 1e-9)
	assert.False(t, body.Get("thinking").Exists())

	msgs := body.Get("messages").Array()
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Get("role").String())
	assert.Equal(t, "assistant", msgs[1].Get("role").String())
}

func TestAnthropicDefaultsMaxTokens(t *testing.T) {
	t.Parallel()

	p := providers.NewAnthropicProvider(providers.Settings{})
	out, err := p.BuildRequest(newRequest(chat.ProviderAnthropic))
	require.NoError(t, err)

	maxTokens := gjson.GetBytes(out.Body, "max_tokens")
	assert.Equal(t, gjson.Number, maxTokens.Type)
	assert.Equal(t, int64(providers.DefaultMaxTokens), maxTokens.Int())
	assert.False(t, gjson.GetBytes(out.Body, "system").Exists())
	assert.False(t, gjson.GetBytes(out.Body, "temperature").Exists())
}

func TestAnthropicThinking(t *testing.T) {
	t.Parallel()

	p := providers.NewAnthropicProvider(providers.Settings{ThinkingBudgetTokens: 1024})

	req := newRequest(chat.ProviderAnthropic)
	req.ThinkingEnabled = ptr(true)
	req.Temperature = ptr(0.9)
	req.MaxTokens = ptr(500)

	out, err := p.BuildRequest(req)
	require.NoError(t, err)

	body := gjson.ParseBytes(out.Body)
	assert.Equal(t, "enabled", body.Get("thinking.type").String())
	assert.Equal(t, int64(1024), body.Get("thinking.budget_tokens").Int())
	assert.Equal(t, int64(1524), body.Get("max_tokens").Int())
	assert.False(t, body.Get("temperature").Exists())

	req.MaxTokens = ptr(8000)
	out, err = p.BuildRequest(req)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), gjson.GetBytes(out.Body, "max_tokens").Int())
}

const anthropicStream = `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","usage":{"input_tokens":12,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"let me see"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"signature_delta","signature":"abc"}}

event: ping
data: {"type":"ping"}

event: content_block_delta
data: {"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"Hel"}}

event: content_block_delta
data: {"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"lo"}}

event: content_block_stop
data: {"type":"content_block_stop","index":1}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":9}}

event: message_stop
data: {"type":"message_stop"}

`

func TestAnthropicNormalizer(t *testing.T) {
	t.Parallel()

	p := providers.NewAnthropicProvider(providers.Settings{})

	t.Run("with thinking", func(t *testing.T) {
		t.Parallel()
		req := newRequest(chat.ProviderAnthropic)
		req.ThinkingEnabled = ptr(true)

		events := driveString(p, req, anthropicStream)
		require.Len(t, events, 4)
		assert.Equal(t, chat.ThinkingDelta("let me see"), events[0])
		assert.Equal(t, chat.TextDelta("Hel"), events[1])
		assert.Equal(t, chat.TextDelta("lo"), events[2])

		done := events[3]
		assert.Equal(t, chat.EventDone, done.Type)
		assert.Equal(t, chat.FinishStop, done.FinishReason)
		require.NotNil(t, done.Usage)
		assert.Equal(t, chat.Usage{InputTokens: 12, OutputTokens: 9}, *done.Usage)
	})

	t.Run("without thinking", func(t *testing.T) {
		t.Parallel()
		events := driveString(p, newRequest(chat.ProviderAnthropic), anthropicStream)
		assert.Empty(t, texts(events, chat.EventThinkingDelta))
		assert.Equal(t, "Hello", texts(events, chat.EventTextDelta))
		assert.Equal(t, 1, terminalCount(events))
	})
}

func TestAnthropicStreamError(t *testing.T) {
	t.Parallel()

	p := providers.NewAnthropicProvider(providers.Settings{})
	body := sseData(
		`{"type":"content_block_delta","delta":{"type":"text_delta","text":"par"}}`,
		`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
		`{"type":"content_block_delta","delta":{"type":"text_delta","text":"never"}}`,
	)

	events := driveString(p, newRequest(chat.ProviderAnthropic), body)
	require.Len(t, events, 2)
	assert.Equal(t, chat.TextDelta("par"), events[0])
	assert.Equal(t, chat.EventError, events[1].Type)
	assert.Equal(t, chat.KindUpstreamStreamError, events[1].ErrorKind)
	assert.Equal(t, "Overloaded", events[1].Message)
	assert.Equal(t, 529, events[1].HTTPStatus)
}

func TestAnthropicAbruptEnd(t *testing.T) {
	t.Parallel()

	p := providers.NewAnthropicProvider(providers.Settings{})
	body := sseData(`{"type":"content_block_delta","delta":{"type":"text_delta","text":"cut"}}`) +
		"data: {\"type\":\"content_block_delta\",\"del"

	events := driveString(p, newRequest(chat.ProviderAnthropic), body)
	require.Len(t, events, 2)
	assert.Equal(t, chat.TextDelta("cut"), events[0])
	assert.Equal(t, chat.EventDone, events[1].Type)
	assert.Equal(t, chat.FinishUnknown, events[1].FinishReason)
}

func TestAnthropicMalformedFrame(t *testing.T) {
	t.Parallel()

	p := providers.NewAnthropicProvider(providers.Settings{})
	events := driveString(p, newRequest(chat.ProviderAnthropic), sseData(`{"type":`, `{"type":"message_stop"}`))
	require.Len(t, events, 1)
	assert.Equal(t, chat.KindMalformedUpstreamFrame, events[0].ErrorKind)
}

func TestAnthropicFinishReasons(t *testing.T) {
	t.Parallel()

	tests := map[string]chat.FinishReason{
		"end_turn":      chat.FinishStop,
		"stop_sequence": chat.FinishStop,
		"max_tokens":    chat.FinishLength,
		"tool_use":      chat.FinishToolUse,
		"refusal":       chat.FinishContentFilter,
		"pause_turn":    chat.FinishOther,
	}

	p := providers.NewAnthropicProvider(providers.Settings{})
	for stop, want := range tests {
		t.Run(stop, func(t *testing.T) {
			t.Parallel()
			body := sseData(
				`{"type":"message_delta","delta":{"stop_reason":"`+stop+`"}}`,
				`{"type":"message_stop"}`,
			)
			events := driveString(p, newRequest(chat.ProviderAnthropic), body)
			require.Len(t, events, 1)
			assert.Equal(t, want, events[0].FinishReason)
		})
	}
}
