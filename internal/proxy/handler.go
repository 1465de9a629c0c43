// Package proxy implements the playground HTTP boundary: it decodes chat
// requests, hands them to the adapter and relays the normalized events to the
// browser as Server-Sent Events.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/omarluq/playground-relay/internal/adapter"
	"github.com/omarluq/playground-relay/internal/auth"
	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/sse"
)

// Runner starts a normalized chat stream.
type Runner interface {
	Run(ctx context.Context, req *chat.Request) (*adapter.Stream, error)
}

// playgroundBody is the inbound JSON body.
type playgroundBody struct {
	Temperature *float64       `json:"temperature"`
	MaxTokens   *int           `json:"maxTokens"`
	Thinking    *bool          `json:"thinking"`
	Model       string         `json:"model"`
	Messages    []chat.Message `json:"messages"`
}

// PlaygroundHandler serves one chat request as an SSE stream.
type PlaygroundHandler struct {
	runner    Runner
	extractor auth.Extractor
	kind      chat.ProviderKind
}

// NewPlaygroundHandler creates a handler bound to kind. An empty kind takes
// the provider from the {provider} path segment.
func NewPlaygroundHandler(runner Runner, kind chat.ProviderKind) *PlaygroundHandler {
	return &PlaygroundHandler{
		runner:    runner,
		extractor: auth.DefaultChain(),
		kind:      kind,
	}
}

// ServeHTTP handles POST /api/playground/{provider}.
func (h *PlaygroundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	credential := h.extractor.Extract(r)
	if strings.TrimSpace(credential.Token) == "" {
		WriteChatError(w, chat.NewError(chat.KindUnauthorized, "missing credential"))
		return
	}

	var body playgroundBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if IsBodyTooLargeError(err) {
			WriteBodyTooLargeError(w)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, ok := w.(http.Flusher); !ok {
		WriteError(w, http.StatusInternalServerError, "streaming is not supported")
		return
	}

	req := &chat.Request{
		Provider:        h.providerKind(r),
		Model:           body.Model,
		Messages:        body.Messages,
		Temperature:     body.Temperature,
		MaxTokens:       body.MaxTokens,
		ThinkingEnabled: body.Thinking,
		Credential:      credential.Token,
	}

	stream, err := h.runner.Run(r.Context(), req)
	if err != nil {
		ce := chat.AsError(err)
		logger.Warn().
			Str("kind", string(ce.Kind)).
			Str("caller", credential.Fingerprint()).
			Str("provider", string(req.Provider)).
			Int("status", ce.StatusCode()).
			Msg("playground request rejected")
		WriteChatError(w, ce)
		return
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			logger.Debug().Err(closeErr).Msg("upstream body close error")
		}
	}()

	relay(r.Context(), w, stream)
}

func (h *PlaygroundHandler) providerKind(r *http.Request) chat.ProviderKind {
	if h.kind != "" {
		return h.kind
	}
	kind, _ := chat.ParseProviderKind(r.PathValue("provider"))
	return kind
}

// eventSource is the pull side of a normalized stream.
type eventSource interface {
	Next() (chat.Event, bool)
}

// relay copies events to w until the terminal event or a failed write.
func relay(ctx context.Context, w http.ResponseWriter, stream eventSource) {
	logger := zerolog.Ctx(ctx)

	sse.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	for {
		ev, ok := stream.Next()
		if !ok {
			return
		}
		if err := writeChatEvent(w, ev); err != nil {
			if !errors.Is(ctx.Err(), context.Canceled) {
				logger.Debug().Err(err).Msg("client write failed, abandoning stream")
			}
			return
		}
		if ev.Type == chat.EventError {
			logger.Warn().
				Str("kind", string(ev.ErrorKind)).
				Int("http_status", ev.HTTPStatus).
				Msg("stream ended with error event")
		}
	}
}
