package auth

import (
	"net/http"
	"strings"
)

// Header names accepted as API key carriers.
const (
	HeaderAnthropicKey = "x-api-key"
	HeaderGoogleKey    = "x-goog-api-key"
)

// APIKeyExtractor reads a credential from a single provider style key header.
type APIKeyExtractor struct {
	header string
}

// NewAPIKeyExtractor creates an extractor for the given header.
func NewAPIKeyExtractor(header string) *APIKeyExtractor {
	return &APIKeyExtractor{header: header}
}

// Extract returns the trimmed header value.
func (a *APIKeyExtractor) Extract(r *http.Request) Result {
	key := strings.TrimSpace(r.Header.Get(a.header))
	if key == "" {
		return Result{
			Valid: false,
			Type:  TypeAPIKey,
			Error: "missing " + a.header + " header",
		}
	}

	return Result{
		Valid: true,
		Type:  TypeAPIKey,
		Token: key,
	}
}

// Type returns the authentication type (api_key).
func (a *APIKeyExtractor) Type() Type {
	return TypeAPIKey
}
