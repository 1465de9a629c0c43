package proxy

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/playground-relay/internal/auth"
	"github.com/omarluq/playground-relay/internal/config"
	"github.com/omarluq/playground-relay/internal/ratelimit"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first one listed runs first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// DebugOptionsProvider returns current debug options for live-config logging.
type DebugOptionsProvider func() config.DebugOptions

func withRequestFields(logger *zerolog.Logger, r *http.Request, shortID string) zerolog.Context {
	return logger.With().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("req_id", shortID)
}

func logRequestStart(logger *zerolog.Logger, request *http.Request, shortID string, debugOpts config.DebugOptions) {
	reqLogger := withRequestFields(logger, request, shortID).Logger()
	logEvent := reqLogger.Info()

	if reqLogger.GetLevel() <= zerolog.DebugLevel && debugOpts.LogRequestBody {
		bodyPreview := getBodyPreview(request)
		if bodyPreview != "" {
			logEvent = logEvent.Str("body_preview", bodyPreview)
		}
	}

	logEvent.Msgf("%s %s", request.Method, request.URL.Path)
}

func logRequestCompletion(
	logger *zerolog.Logger,
	request *http.Request,
	wrapped *responseWriter,
	duration time.Duration,
	shortID string,
) {
	durationStr := formatDuration(duration)
	statusMsg := statusSymbol(wrapped.statusCode)
	completionMsg := formatCompletionMessage(wrapped.statusCode, statusMsg, durationStr)

	logCtx := withRequestFields(logger, request, shortID).
		Int("status", wrapped.statusCode).
		Str("duration", durationStr)

	if wrapped.isStreaming {
		logCtx = logCtx.Int("sse_events", wrapped.sseEvents)
	}

	completion := logCtx.Logger()
	switch {
	case wrapped.statusCode >= 500:
		completion.Error().Msg(completionMsg)
	case wrapped.statusCode >= 400:
		completion.Warn().Msg(completionMsg)
	default:
		completion.Info().Msg(completionMsg)
	}
}

func statusSymbol(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "✗"
	case statusCode >= 400:
		return "⚠"
	default:
		return "✓"
	}
}

// LoggingMiddlewareWithProvider logs each request using live debug options.
func LoggingMiddlewareWithProvider(provider DebugOptionsProvider) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			var debugOpts config.DebugOptions
			if provider != nil {
				debugOpts = provider()
			}

			start := time.Now()
			logger := zerolog.Ctx(request.Context())

			LogRequestDetails(request.Context(), request, debugOpts)

			wrapped := &responseWriter{
				ResponseWriter: writer,
				statusCode:     http.StatusOK,
			}

			shortID := GetRequestID(request.Context())
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}

			logRequestStart(logger, request, shortID, debugOpts)

			next.ServeHTTP(wrapped, request)

			logRequestCompletion(logger, request, wrapped, time.Since(start), shortID)
		})
	}
}

// LoggingMiddleware logs each request with method, path, status and duration.
func LoggingMiddleware(debugOpts config.DebugOptions) Middleware {
	return LoggingMiddlewareWithProvider(func() config.DebugOptions { return debugOpts })
}

// RequestIDMiddleware adds X-Request-ID header and logger with request ID to context.
func RequestIDMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get("X-Request-ID")
			ctx := AddRequestID(request.Context(), requestID)

			writer.Header().Set("X-Request-ID", GetRequestID(ctx))

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RecoverMiddleware turns a handler panic into a 500 response when nothing
// was written yet. http.ErrAbortHandler is re-raised.
func RecoverMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rec)
				}

				zerolog.Ctx(request.Context()).Error().
					Str("panic", fmt.Sprint(rec)).
					Bytes("stack", debug.Stack()).
					Msg("handler panic")

				if rw, ok := writer.(*responseWriter); ok && rw.wroteHeader {
					return
				}
				WriteError(writer, http.StatusInternalServerError, "internal error")
			}()
			next.ServeHTTP(writer, request)
		})
	}
}

// MaxBodyBytesMiddleware creates middleware that limits request body size.
// Uses http.MaxBytesReader to enforce the limit efficiently.
// The limitProvider is called per-request to support hot-reload.
func MaxBodyBytesMiddleware(limitProvider func() int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			limit := limitProvider()
			if limit > 0 && request.Body != nil {
				request.Body = http.MaxBytesReader(writer, request.Body, limit)
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RateLimitMiddleware applies a token bucket per caller. Callers are keyed by
// the fingerprint of their credential, or by remote IP when they present none.
// enabled is called per-request to support hot-reload.
func RateLimitMiddleware(limiter *ratelimit.KeyedLimiter, extractor auth.Extractor, enabled func() bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if enabled != nil && !enabled() {
				next.ServeHTTP(writer, request)
				return
			}

			key := callerKey(extractor.Extract(request), request)
			allowed, retryAfter := limiter.Allow(key)
			writeRateLimitHeaders(writer.Header(), limiter.Usage(key))
			if !allowed {
				zerolog.Ctx(request.Context()).Warn().
					Str("caller", key).
					Dur("retry_after", retryAfter).
					Msg("inbound rate limit exceeded")
				WriteRateLimitError(writer, retryAfter)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

func writeRateLimitHeaders(h http.Header, usage ratelimit.Usage) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(usage.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(usage.Remaining))
}

func callerKey(result auth.Result, r *http.Request) string {
	if result.Valid {
		return "key:" + result.Fingerprint()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// formatDuration formats duration in a human-readable form with microsecond precision.
// Uses dynamic units so very fast requests show in µs while longer ones show in ms/s.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	duration = duration.Round(time.Microsecond)
	switch {
	case duration < time.Millisecond:
		return fmt.Sprintf("%dµs", duration.Microseconds())
	case duration < time.Second:
		return fmt.Sprintf("%.2fms", float64(duration)/float64(time.Millisecond))
	case duration < time.Minute:
		return fmt.Sprintf("%.2fs", duration.Seconds())
	default:
		return duration.Truncate(time.Second).String()
	}
}

// formatCompletionMessage formats the completion message with status.
func formatCompletionMessage(status int, symbol, duration string) string {
	return symbol + " " + http.StatusText(status) + " (" + duration + ")"
}

// getBodyPreview reads the first 200 characters of the request body with
// credentials redacted. Returns empty string if body cannot be read or is empty.
func getBodyPreview(request *http.Request) string {
	if request.Body == nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(request.Body, 500))
	if err != nil || len(body) == 0 {
		return ""
	}

	// Restore body for downstream handlers
	request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), request.Body))

	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}

	return redactSensitiveFields(preview)
}

// responseWriter wraps http.ResponseWriter to capture status code and SSE events.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	sseEvents   int
	isStreaming bool
	wroteHeader bool
	lastByte    byte
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.statusCode = code
	rw.isStreaming = isEventStream(rw.Header().Get("Content-Type"))
	rw.ResponseWriter.WriteHeader(code)
}

// Write intercepts writes to count SSE events.
func (rw *responseWriter) Write(data []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.isStreaming {
		rw.countEvents(data)
	}
	return rw.ResponseWriter.Write(data)
}

// countEvents counts blank-line event terminators, including one split
// across writes. Data lines carry JSON, which never holds a raw newline.
func (rw *responseWriter) countEvents(data []byte) {
	for _, b := range data {
		if b == '\n' && rw.lastByte == '\n' {
			rw.sseEvents++
		}
		rw.lastByte = b
	}
}

// Flush forwards to the wrapped writer so SSE events leave immediately.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
