package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/transport"
)

// DefaultGeminiBaseURL is the default Generative Language API base URL.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiProvider implements the Gemini streamGenerateContent variant.
type GeminiProvider struct {
	settings Settings
}

// NewGeminiProvider creates a Gemini variant.
func NewGeminiProvider(s Settings) *GeminiProvider {
	if s.Name == "" {
		s.Name = string(chat.ProviderGemini)
	}
	if s.BaseURL == "" {
		s.BaseURL = DefaultGeminiBaseURL
	}
	return &GeminiProvider{settings: s}
}

// Kind returns chat.ProviderGemini.
func (p *GeminiProvider) Kind() chat.ProviderKind { return chat.ProviderGemini }

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return p.settings.Name }

// BaseURL returns the upstream base URL.
func (p *GeminiProvider) BaseURL() string { return p.settings.BaseURL }

// SupportsThinking returns false.
func (p *GeminiProvider) SupportsThinking() bool { return false }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	Contents          []geminiContent         `json:"contents"`
}

// BuildRequest maps req onto POST /v1beta/models/{model}:streamGenerateContent.
// The credential travels in the x-goog-api-key header, never in the URL.
func (p *GeminiProvider) BuildRequest(req *chat.Request) (*transport.Request, error) {
	body := geminiRequest{
		Contents: lo.FilterMap(req.Messages, func(m chat.Message, _ int) (geminiContent, bool) {
			return geminiContent{Role: geminiRole(m.Role), Parts: []geminiPart{{Text: m.Content}}},
				m.Role != chat.RoleSystem
		}),
	}

	system := lo.FilterMap(req.Messages, func(m chat.Message, _ int) (geminiPart, bool) {
		return geminiPart{Text: m.Content}, m.Role == chat.RoleSystem
	})
	if len(system) > 0 {
		body.SystemInstruction = &geminiContent{Parts: system}
	}

	if req.Temperature != nil || req.MaxTokens != nil {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("providers: encode gemini request: %w", err)
	}

	model := strings.TrimPrefix(req.Model, "models/")
	header := jsonHeaders()
	header.Set("x-goog-api-key", req.Credential)

	return &transport.Request{
		Method: http.MethodPost,
		URL: strings.TrimRight(p.settings.BaseURL, "/") +
			"/v1beta/models/" + url.PathEscape(model) + ":streamGenerateContent",
		Header: header,
		Body:   payload,
	}, nil
}

func geminiRole(r chat.Role) string {
	if r == chat.RoleAssistant {
		return "model"
	}
	return "user"
}

// NewFramer frames the streamed JSON array body.
func (p *GeminiProvider) NewFramer(body io.Reader) Framer {
	return NewObjectFramer(body, p.settings.maxFrameBytes())
}

// NewNormalizer returns a normalizer for one Gemini stream.
func (p *GeminiProvider) NewNormalizer(_ *chat.Request) Normalizer {
	return &geminiNormalizer{style: p.settings.streamStyle()}
}

// geminiNormalizer turns Gemini chunks into deltas according to the
// configured stream style.
type geminiNormalizer struct {
	style   StreamStyle
	emitted string
	reason  chat.FinishReason
	usage   chat.Usage
}

func (n *geminiNormalizer) Normalize(frame []byte) []chat.Event {
	if !gjson.ValidBytes(frame) {
		return malformed(chat.ProviderGemini, frame)
	}
	root := gjson.ParseBytes(frame)

	if e := root.Get("error"); e.Exists() {
		message := lo.CoalesceOrEmpty(e.Get("message").String(), e.Get("status").String(), "gemini stream error")
		status := int(e.Get("code").Int())
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return []chat.Event{chat.ErrorEvent(chat.KindUpstreamStreamError, message, status)}
	}

	if u := root.Get("usageMetadata"); u.Exists() {
		n.usage.InputTokens = int(u.Get("promptTokenCount").Int())
		n.usage.OutputTokens = int(u.Get("candidatesTokenCount").Int())
	}

	candidate := root.Get("candidates.0")
	if !candidate.Exists() {
		if root.Get("promptFeedback.blockReason").String() != "" {
			usage := n.usage
			return []chat.Event{chat.Done(chat.FinishContentFilter, &usage)}
		}
		return nil
	}

	if reason := mapGeminiFinish(candidate.Get("finishReason").String()); reason != "" {
		n.reason = reason
	}

	var text strings.Builder
	candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		text.WriteString(part.Get("text").String())
		return true
	})

	if delta := n.diff(text.String()); delta != "" {
		return []chat.Event{chat.TextDelta(delta)}
	}
	return nil
}

// diff returns the part of chunk that has not been emitted yet.
func (n *geminiNormalizer) diff(chunk string) string {
	if chunk == "" {
		return ""
	}
	switch n.style {
	case StreamStyleSnapshot:
		if strings.HasPrefix(chunk, n.emitted) {
			delta := chunk[len(n.emitted):]
			n.emitted = chunk
			return delta
		}
		// A snapshot that does not extend the previous one restarts the baseline.
		n.emitted = chunk
		return chunk
	case StreamStyleAuto:
		// Ambiguous when a real increment repeats everything emitted so far.
		if strings.HasPrefix(chunk, n.emitted) {
			delta := chunk[len(n.emitted):]
			n.emitted = chunk
			return delta
		}
		n.emitted += chunk
		return chunk
	default:
		return chunk
	}
}

func (n *geminiNormalizer) Finish() chat.Event {
	usage := n.usage
	return chat.Done(n.reason, &usage)
}
