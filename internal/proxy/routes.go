package proxy

import (
	"net/http"

	"github.com/omarluq/playground-relay/internal/auth"
	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/config"
	"github.com/omarluq/playground-relay/internal/ratelimit"
)

// Backend is the adapter surface the routes need.
type Backend interface {
	Runner
	ProviderLister
}

// SetupRoutes creates the HTTP handler with all routes configured.
// Routes:
//   - POST /api/playground/anthropic
//   - POST /api/playground/gemini
//   - POST /api/playground/openai (alias /api/playground/openrouter)
//   - POST /api/playground/{provider} - provider taken from the path
//   - GET /api/playground/providers - registered providers and breaker state
//   - GET /health - Health check endpoint
//
// Limits and debug options are read from cfg on every request so hot reload
// applies without rebuilding the mux. A nil limiter disables rate limiting.
func SetupRoutes(cfg config.RuntimeConfig, backend Backend, limiter *ratelimit.KeyedLimiter) http.Handler {
	mux := http.NewServeMux()

	playground := []Middleware{
		MaxBodyBytesMiddleware(func() int64 { return cfg.Get().Server.GetMaxBodyBytes() }),
		LoggingMiddlewareWithProvider(func() config.DebugOptions { return cfg.Get().Logging.DebugOptions }),
		RecoverMiddleware(),
	}
	if limiter != nil {
		playground = append(playground, RateLimitMiddleware(limiter, auth.DefaultChain(),
			func() bool { return cfg.Get().Server.RateLimit.Enabled }))
	}

	routes := map[string]chat.ProviderKind{
		"POST /api/playground/anthropic":  chat.ProviderAnthropic,
		"POST /api/playground/gemini":     chat.ProviderGemini,
		"POST /api/playground/openai":     chat.ProviderOpenAICompatible,
		"POST /api/playground/openrouter": chat.ProviderOpenAICompatible,
		"POST /api/playground/{provider}": "",
	}
	for pattern, kind := range routes {
		mux.Handle(pattern, Chain(NewPlaygroundHandler(backend, kind), playground...))
	}

	mux.Handle("GET /api/playground/providers", NewProvidersHandler(backend))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return Chain(mux, RequestIDMiddleware())
}
