package providers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/transport"
)

// DefaultOpenAICompatibleBaseURL is the default routing proxy base URL.
const DefaultOpenAICompatibleBaseURL = "https://openrouter.ai/api/v1"

var doneSentinel = []byte("[DONE]")

// OpenAICompatibleProvider implements the OpenAI chat completions variant
// served through a routing proxy.
type OpenAICompatibleProvider struct {
	settings Settings
}

// NewOpenAICompatibleProvider creates an OpenAI-compatible variant.
func NewOpenAICompatibleProvider(s Settings) *OpenAICompatibleProvider {
	if s.Name == "" {
		s.Name = string(chat.ProviderOpenAICompatible)
	}
	if s.BaseURL == "" {
		s.BaseURL = DefaultOpenAICompatibleBaseURL
	}
	return &OpenAICompatibleProvider{settings: s}
}

// Kind returns chat.ProviderOpenAICompatible.
func (p *OpenAICompatibleProvider) Kind() chat.ProviderKind { return chat.ProviderOpenAICompatible }

// Name returns the provider name.
func (p *OpenAICompatibleProvider) Name() string { return p.settings.Name }

// BaseURL returns the upstream base URL.
func (p *OpenAICompatibleProvider) BaseURL() string { return p.settings.BaseURL }

// SupportsThinking returns true: the routing proxy exposes reasoning tokens.
func (p *OpenAICompatibleProvider) SupportsThinking() bool { return true }

// BuildRequest maps req onto POST /chat/completions. Optional fields the
// caller did not supply are left out of the body entirely.
func (p *OpenAICompatibleProvider) BuildRequest(req *chat.Request) (*transport.Request, error) {
	type field struct {
		value any
		path  string
	}

	fields := []field{
		{path: "model", value: req.Model},
		{path: "messages", value: req.Messages},
		{path: "stream", value: true},
	}
	if req.Temperature != nil {
		fields = append(fields, field{path: "temperature", value: *req.Temperature})
	}
	if req.MaxTokens != nil {
		fields = append(fields, field{path: "max_tokens", value: *req.MaxTokens})
	}
	if req.WantsThinking() {
		fields = append(fields, field{path: "reasoning.enabled", value: true})
	}

	body := []byte(`{}`)
	for _, f := range fields {
		var err error
		if body, err = sjson.SetBytes(body, f.path, f.value); err != nil {
			return nil, fmt.Errorf("providers: encode openai-compatible %s: %w", f.path, err)
		}
	}

	header := jsonHeaders()
	header.Set("Authorization", "Bearer "+req.Credential)
	if p.settings.Referer != "" {
		header.Set("HTTP-Referer", p.settings.Referer)
	}
	if p.settings.Title != "" {
		header.Set("X-Title", p.settings.Title)
	}

	return &transport.Request{
		Method: http.MethodPost,
		URL:    strings.TrimRight(p.settings.BaseURL, "/") + "/chat/completions",
		Header: header,
		Body:   body,
	}, nil
}

// NewFramer frames the SSE response body.
func (p *OpenAICompatibleProvider) NewFramer(body io.Reader) Framer {
	return NewSSEFramer(body, p.settings.maxFrameBytes())
}

// NewNormalizer returns a normalizer for one chat completions stream.
func (p *OpenAICompatibleProvider) NewNormalizer(req *chat.Request) Normalizer {
	return &openAINormalizer{thinking: req.WantsThinking()}
}

type openAINormalizer struct {
	reason   chat.FinishReason
	usage    chat.Usage
	thinking bool
}

func (n *openAINormalizer) Normalize(frame []byte) []chat.Event {
	if bytes.Equal(bytes.TrimSpace(frame), doneSentinel) {
		return []chat.Event{n.Finish()}
	}
	if !gjson.ValidBytes(frame) {
		return malformed(chat.ProviderOpenAICompatible, frame)
	}
	root := gjson.ParseBytes(frame)

	if e := root.Get("error"); e.Exists() {
		return []chat.Event{openAIError(e, "upstream stream error")}
	}

	if u := root.Get("usage"); u.IsObject() {
		n.usage.InputTokens = int(u.Get("prompt_tokens").Int())
		n.usage.OutputTokens = int(u.Get("completion_tokens").Int())
	}

	choice := root.Get("choices.0")
	if !choice.Exists() {
		return nil
	}

	var events []chat.Event
	if n.thinking {
		reasoning := lo.CoalesceOrEmpty(
			choice.Get("delta.reasoning").String(),
			choice.Get("delta.reasoning_content").String(),
		)
		if reasoning != "" {
			events = append(events, chat.ThinkingDelta(reasoning))
		}
	}
	if content := choice.Get("delta.content").String(); content != "" {
		events = append(events, chat.TextDelta(content))
	}

	switch finish := choice.Get("finish_reason").String(); finish {
	case "":
	case "error":
		events = append(events, openAIError(choice.Get("error"), "upstream finished with an error"))
	default:
		n.reason = mapOpenAIFinish(finish)
	}
	return events
}

func (n *openAINormalizer) Finish() chat.Event {
	usage := n.usage
	return chat.Done(n.reason, &usage)
}

func openAIError(e gjson.Result, fallback string) chat.Event {
	message := fallback
	if m := e.Get("message").String(); m != "" {
		message = m
	}
	status := http.StatusInternalServerError
	if code := e.Get("code"); code.Type == gjson.Number && code.Int() >= 400 {
		status = int(code.Int())
	}
	return chat.ErrorEvent(chat.KindUpstreamStreamError, message, status)
}
