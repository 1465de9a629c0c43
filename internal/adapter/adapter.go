// Package adapter is the single entry point that turns a normalized chat
// request into a stream of normalized events from one of the upstream
// providers.
//
// Run fails fast with a *chat.Error for everything that goes wrong before the
// upstream starts streaming: missing credential, unknown provider, invalid
// request, open circuit, connection failure and non-2xx upstream answers.
// Failures after that point arrive as the terminal error event of the Stream.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/config"
	"github.com/omarluq/playground-relay/internal/health"
	"github.com/omarluq/playground-relay/internal/providers"
	"github.com/omarluq/playground-relay/internal/transport"
)

// state is replaced as a whole on reload. Requests keep the snapshot they
// started with.
type state struct {
	registry       providers.Registry
	tracker        *health.Tracker
	errorBodyLimit int64
}

// Adapter dispatches chat requests to provider variants.
type Adapter struct {
	transport transport.Transport
	logger    *zerolog.Logger
	state     atomic.Pointer[state]
}

// New creates an Adapter serving the providers enabled in cfg.
func New(cfg *config.Config, tr transport.Transport, logger *zerolog.Logger) *Adapter {
	a := &Adapter{transport: tr, logger: logger}
	a.state.Store(newState(cfg, logger))
	return a
}

// NewWithRegistry creates an Adapter over an explicit registry and breaker
// tracker. A nil tracker disables the breakers.
func NewWithRegistry(registry providers.Registry, tracker *health.Tracker, tr transport.Transport) *Adapter {
	if tracker == nil {
		disabled := false
		tracker = health.NewTracker(health.CircuitBreakerConfig{Enabled: &disabled}, nil)
	}
	a := &Adapter{transport: tr}
	a.state.Store(&state{
		registry:       registry,
		tracker:        tracker,
		errorBodyLimit: config.DefaultErrorBodyLimit,
	})
	return a
}

func newState(cfg *config.Config, logger *zerolog.Logger) *state {
	return &state{
		registry:       RegistryFromConfig(cfg),
		tracker:        health.NewTracker(cfg.Health.CircuitBreaker, logger),
		errorBodyLimit: cfg.Transport.GetErrorBodyLimit(),
	}
}

// Reload swaps the provider registry and the breakers for the ones described
// by cfg. Streams already running are not affected.
func (a *Adapter) Reload(cfg *config.Config) {
	next := newState(cfg, a.logger)
	a.state.Store(next)

	if a.logger != nil {
		a.logger.Info().
			Strs("providers", kindStrings(next.registry.Kinds())).
			Msg("adapter reloaded")
	}
}

// Providers describes the registered provider variants.
func (a *Adapter) Providers() []providers.Info {
	return a.state.Load().registry.Infos()
}

// CircuitStates returns the breaker state of every provider that has been called.
func (a *Adapter) CircuitStates() map[chat.ProviderKind]health.State {
	return a.state.Load().tracker.AllStates()
}

// Run sends req upstream and returns the normalized event stream. The
// transport is called at most once and never when Run fails before the
// upstream call. The returned stream must be drained or closed.
func (a *Adapter) Run(ctx context.Context, req *chat.Request) (*Stream, error) {
	if req == nil {
		return nil, chat.NewError(chat.KindInvalidRequest, "request is required")
	}
	if !req.HasCredential() {
		return nil, chat.NewError(chat.KindUnauthorized, "missing credential")
	}

	st := a.state.Load()
	provider, ok := st.registry.Lookup(req.Provider)
	if !ok {
		return nil, chat.NewErrorf(chat.KindUnsupportedProvider, "unsupported provider %q", string(req.Provider))
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	upstreamReq, err := provider.BuildRequest(req)
	if err != nil {
		var ce *chat.Error
		if errors.As(err, &ce) {
			return nil, ce
		}
		return nil, chat.WrapError(chat.KindInvalidRequest, "cannot build upstream request", err)
	}

	done, err := st.tracker.Guard(provider.Kind())
	if err != nil {
		return nil, chat.WrapError(chat.KindTransportFailure,
			fmt.Sprintf("%s is temporarily unavailable", provider.Name()), err)
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Object("request", req).Str("upstream", provider.Name()).Msg("sending upstream request")

	resp, err := a.transport.Send(ctx, upstreamReq)
	if err != nil {
		ce := transport.Classify(ctx, err)
		done(ce)
		return nil, ce
	}

	if !resp.IsSuccess() {
		rejected := rejection(resp, st.errorBodyLimit)
		done(rejected)
		logger.Warn().
			Str("upstream", provider.Name()).
			Int("status", resp.StatusCode).
			Str("message", rejected.Message).
			Msg("upstream rejected request")
		return nil, rejected
	}

	done(nil)
	return newStream(ctx, provider, req, resp.Body), nil
}

// rejection reads a bounded prefix of a non-2xx body and turns it into an
// UpstreamRejected error carrying the upstream status.
func rejection(resp *transport.Response, limit int64) *chat.Error {
	var body []byte
	if resp.Body != nil {
		// A partial body still yields a message.
		body, _ = io.ReadAll(io.LimitReader(resp.Body, limit))
		_ = resp.Body.Close()
	}

	message := upstreamMessage(body)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	if message == "" {
		message = fmt.Sprintf("upstream returned status %d", resp.StatusCode)
	}

	return &chat.Error{
		Kind:       chat.KindUpstreamRejected,
		Message:    message,
		HTTPStatus: resp.StatusCode,
	}
}

// Paths tried in order to find a human readable message in an error body.
var messagePaths = []string{"error.message", "error", "message", "0.error.message"}

func upstreamMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range messagePaths {
			r := gjson.GetBytes(body, path)
			if r.Type == gjson.String {
				if msg := strings.TrimSpace(r.Str); msg != "" {
					return msg
				}
			}
		}
	}
	return strings.TrimSpace(string(body))
}

func kindStrings(kinds []chat.ProviderKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
