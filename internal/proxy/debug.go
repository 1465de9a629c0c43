package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/omarluq/playground-relay/internal/config"
)

// Sensitive patterns to redact from request bodies.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"api_key"\s*:\s*"[^"]+"`),
	regexp.MustCompile(`"x-api-key"\s*:\s*"[^"]+"`),
	regexp.MustCompile(`"bearer"\s*:\s*"[^"]+"`),
	regexp.MustCompile(`"credential"\s*:\s*"[^"]+"`),
	regexp.MustCompile(`"password"\s*:\s*"[^"]+"`),
	regexp.MustCompile(`"token"\s*:\s*"[^"]+"`),
	regexp.MustCompile(`"secret"\s*:\s*"[^"]+"`),
	regexp.MustCompile(`"authorization"\s*:\s*"[^"]+"`),
}

// LogRequestDetails logs a redacted preview of the request body in debug mode.
// Respects DebugOptions.LogRequestBody and MaxBodyLogSize.
func LogRequestDetails(ctx context.Context, r *http.Request, opts config.DebugOptions) {
	if !opts.LogRequestBody {
		return
	}

	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() > zerolog.DebugLevel {
		return
	}

	bodyBytes := readAndRestoreBody(r, logger)
	if bodyBytes == nil {
		return
	}

	summary := summarizeBody(bodyBytes)
	preview := redactSensitiveFields(string(truncateBody(bodyBytes, opts.GetMaxBodyLogSize())))

	logEvent := logger.Debug().
		Str("content_type", r.Header.Get("Content-Type")).
		Int("body_length", len(bodyBytes))

	if summary.model != "" {
		logEvent.Str("model", summary.model)
	}
	if summary.messages > 0 {
		logEvent.Int("messages", summary.messages)
	}
	if summary.maxTokens > 0 {
		logEvent.Int("max_tokens", summary.maxTokens)
	}
	logEvent.Bool("thinking", summary.thinking).
		Str("body_preview", preview).
		Msg("request details")
}

// readAndRestoreBody reads the request body and restores it for downstream handlers.
func readAndRestoreBody(r *http.Request, logger *zerolog.Logger) []byte {
	if r.Body == nil {
		return nil
	}

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Debug().Err(err).Msg("failed to read request body")
		// Keep what was read so the handler sees the same error.
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), errReader{err}))
		return nil
	}

	r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	return bodyBytes
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// truncateBody truncates body to max size.
func truncateBody(body []byte, maxSize int) []byte {
	if len(body) > maxSize {
		return body[:maxSize]
	}
	return body
}

type bodySummary struct {
	model     string
	messages  int
	maxTokens int
	thinking  bool
}

// summarizeBody extracts the playground request shape without decoding content.
func summarizeBody(body []byte) bodySummary {
	if !gjson.ValidBytes(body) {
		return bodySummary{}
	}
	fields := gjson.GetManyBytes(body, "model", "messages.#", "maxTokens", "thinking")
	return bodySummary{
		model:     fields[0].String(),
		messages:  int(fields[1].Int()),
		maxTokens: int(fields[2].Int()),
		thinking:  fields[3].Bool(),
	}
}

// redactSensitiveFields redacts sensitive information from body string.
func redactSensitiveFields(body string) string {
	return lo.Reduce(sensitivePatterns, func(s string, pattern *regexp.Regexp, _ int) string {
		return pattern.ReplaceAllString(s, `"***":"REDACTED"`)
	}, body)
}
