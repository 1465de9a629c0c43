package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/transport"
)

const (
	// DefaultAnthropicBaseURL is the default Anthropic API base URL.
	DefaultAnthropicBaseURL = "https://api.anthropic.com"

	// DefaultAnthropicVersion is sent as the anthropic-version header.
	DefaultAnthropicVersion = "2023-06-01"

	// DefaultMaxTokens is used when the caller does not set maxTokens.
	// Anthropic rejects requests without max_tokens.
	DefaultMaxTokens = 4096

	// DefaultThinkingBudgetTokens is the extended thinking budget.
	DefaultThinkingBudgetTokens = 2048
)

// AnthropicProvider implements the Anthropic Messages API variant.
type AnthropicProvider struct {
	settings Settings
}

// NewAnthropicProvider creates an Anthropic variant. Zero settings select the
// package defaults.
func NewAnthropicProvider(s Settings) *AnthropicProvider {
	if s.Name == "" {
		s.Name = string(chat.ProviderAnthropic)
	}
	if s.BaseURL == "" {
		s.BaseURL = DefaultAnthropicBaseURL
	}
	if s.AnthropicVersion == "" {
		s.AnthropicVersion = DefaultAnthropicVersion
	}
	if s.DefaultMaxTokens <= 0 {
		s.DefaultMaxTokens = DefaultMaxTokens
	}
	if s.ThinkingBudgetTokens <= 0 {
		s.ThinkingBudgetTokens = DefaultThinkingBudgetTokens
	}
	return &AnthropicProvider{settings: s}
}

// Kind returns chat.ProviderAnthropic.
func (p *AnthropicProvider) Kind() chat.ProviderKind { return chat.ProviderAnthropic }

// Name returns the provider name.
func (p *AnthropicProvider) Name() string { return p.settings.Name }

// BaseURL returns the upstream base URL.
func (p *AnthropicProvider) BaseURL() string { return p.settings.BaseURL }

// SupportsThinking returns true: extended thinking is native.
func (p *AnthropicProvider) SupportsThinking() bool { return true }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicRequest struct {
	Temperature *float64           `json:"temperature,omitempty"`
	Thinking    *anthropicThinking `json:"thinking,omitempty"`
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Stream      bool               `json:"stream"`
}

// BuildRequest maps req onto POST /v1/messages.
func (p *AnthropicProvider) BuildRequest(req *chat.Request) (*transport.Request, error) {
	system := lo.FilterMap(req.Messages, func(m chat.Message, _ int) (string, bool) {
		return m.Content, m.Role == chat.RoleSystem
	})
	messages := lo.FilterMap(req.Messages, func(m chat.Message, _ int) (anthropicMessage, bool) {
		return anthropicMessage{Role: string(m.Role), Content: m.Content}, m.Role != chat.RoleSystem
	})

	body := anthropicRequest{
		Model:       req.Model,
		System:      strings.Join(system, "\n\n"),
		Messages:    messages,
		MaxTokens:   lo.FromPtrOr(req.MaxTokens, p.settings.DefaultMaxTokens),
		Temperature: req.Temperature,
		Stream:      true,
	}

	if req.WantsThinking() {
		budget := p.settings.ThinkingBudgetTokens
		body.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: budget}
		// max_tokens must exceed the thinking budget.
		if body.MaxTokens <= budget {
			body.MaxTokens += budget
		}
		// Extended thinking only accepts the default temperature.
		body.Temperature = nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("providers: encode anthropic request: %w", err)
	}

	header := jsonHeaders()
	header.Set("x-api-key", req.Credential)
	header.Set("anthropic-version", p.settings.AnthropicVersion)

	return &transport.Request{
		Method: http.MethodPost,
		URL:    strings.TrimRight(p.settings.BaseURL, "/") + "/v1/messages",
		Header: header,
		Body:   payload,
	}, nil
}

// NewFramer frames the SSE response body.
func (p *AnthropicProvider) NewFramer(body io.Reader) Framer {
	return NewSSEFramer(body, p.settings.maxFrameBytes())
}

// NewNormalizer returns a normalizer for one Anthropic stream.
func (p *AnthropicProvider) NewNormalizer(req *chat.Request) Normalizer {
	return &anthropicNormalizer{thinking: req.WantsThinking()}
}

type anthropicNormalizer struct {
	reason   chat.FinishReason
	usage    chat.Usage
	thinking bool
}

func (n *anthropicNormalizer) Normalize(frame []byte) []chat.Event {
	if !gjson.ValidBytes(frame) {
		return malformed(chat.ProviderAnthropic, frame)
	}
	root := gjson.ParseBytes(frame)

	switch root.Get("type").String() {
	case "content_block_delta":
		return n.delta(root.Get("delta"))

	case "message_start":
		usage := root.Get("message.usage")
		n.usage.InputTokens = int(usage.Get("input_tokens").Int())
		n.usage.OutputTokens = int(usage.Get("output_tokens").Int())

	case "message_delta":
		if reason := mapAnthropicStop(root.Get("delta.stop_reason").String()); reason != "" {
			n.reason = reason
		}
		if v := root.Get("usage.output_tokens"); v.Exists() {
			n.usage.OutputTokens = int(v.Int())
		}
		if v := root.Get("usage.input_tokens"); v.Exists() && v.Int() > 0 {
			n.usage.InputTokens = int(v.Int())
		}

	case "message_stop":
		return []chat.Event{n.Finish()}

	case "error":
		errType := root.Get("error.type").String()
		message := root.Get("error.message").String()
		if message == "" {
			message = lo.CoalesceOrEmpty(errType, "anthropic stream error")
		}
		return []chat.Event{chat.ErrorEvent(chat.KindUpstreamStreamError, message, anthropicErrorStatus(errType))}

	case "":
		return malformed(chat.ProviderAnthropic, frame)
	}

	// ping, content_block_start, content_block_stop and unknown event types
	// carry nothing to emit.
	return nil
}

func (n *anthropicNormalizer) delta(delta gjson.Result) []chat.Event {
	switch delta.Get("type").String() {
	case "text_delta":
		if text := delta.Get("text").String(); text != "" {
			return []chat.Event{chat.TextDelta(text)}
		}
	case "thinking_delta":
		if text := delta.Get("thinking").String(); n.thinking && text != "" {
			return []chat.Event{chat.ThinkingDelta(text)}
		}
	}
	// signature_delta and input_json_delta are dropped.
	return nil
}

func (n *anthropicNormalizer) Finish() chat.Event {
	usage := n.usage
	return chat.Done(n.reason, &usage)
}

func anthropicErrorStatus(errType string) int {
	switch errType {
	case "invalid_request_error":
		return http.StatusBadRequest
	case "authentication_error":
		return http.StatusUnauthorized
	case "permission_error":
		return http.StatusForbidden
	case "not_found_error":
		return http.StatusNotFound
	case "request_too_large":
		return http.StatusRequestEntityTooLarge
	case "rate_limit_error":
		return http.StatusTooManyRequests
	case "overloaded_error":
		return 529
	default:
		return http.StatusInternalServerError
	}
}
