// Package auth extracts the caller's upstream credential from inbound
// requests. The relay does not own credentials: whatever the caller presents
// is forwarded to the selected provider, so extraction only checks the shape
// of the header, never the value.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Type represents the header scheme a credential was presented with.
type Type string

const (
	// TypeAPIKey represents a provider style API key header (x-api-key, x-goog-api-key).
	TypeAPIKey Type = "api_key"
	// TypeBearer represents Authorization: Bearer token authentication.
	TypeBearer Type = "bearer"
	// TypeNone represents a request without a usable credential.
	TypeNone Type = "none"
)

// Result contains the outcome of a credential extraction.
type Result struct {
	// Type indicates which scheme was used (or attempted).
	Type Type
	// Error contains the reason extraction failed.
	Error string
	// Token is the extracted credential. It is forwarded upstream and must
	// never be logged; use Fingerprint for logs and rate limit keys.
	Token string
	// Valid indicates whether a credential was found.
	Valid bool
}

// Fingerprint returns a short stable identifier of the token, or "" when no
// token was extracted.
func (r Result) Fingerprint() string {
	if r.Token == "" {
		return ""
	}
	return Fingerprint(r.Token)
}

// Fingerprint hashes a credential into a short identifier that is safe to log.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

// Extractor pulls a credential out of a request.
type Extractor interface {
	// Extract returns a Result with Valid=true and the token when found.
	Extract(r *http.Request) Result

	// Type returns the scheme this extractor handles.
	Type() Type
}
