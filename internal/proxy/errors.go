package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omarluq/playground-relay/internal/chat"
)

// ErrorResponse is the body of every error answered before streaming starts.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IsBodyTooLargeError checks if an error is from http.MaxBytesReader.
func IsBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteChatError writes err with the status its kind maps to. Upstream
// rejections keep the upstream status and message.
func WriteChatError(w http.ResponseWriter, err error) {
	ce := chat.AsError(err)
	message := ce.Message
	if message == "" {
		message = string(ce.Kind)
	}
	WriteError(w, ce.StatusCode(), message)
}

// WriteBodyTooLargeError writes a 413 Request Entity Too Large response.
func WriteBodyTooLargeError(w http.ResponseWriter) {
	WriteError(w, http.StatusRequestEntityTooLarge, "request body exceeds the maximum allowed size")
}

// WriteRateLimitError writes a 429 Too Many Requests response.
// The retryAfter parameter specifies when capacity will be available.
func WriteRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	// Set Retry-After header (RFC 6585)
	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1 // Minimum 1 second
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))

	WriteError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after "+strconv.Itoa(seconds)+"s")
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
