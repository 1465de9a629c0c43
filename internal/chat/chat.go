// Package chat defines the provider-agnostic request and event model shared by
// the adapter, the provider variants and the HTTP boundary.
package chat

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ProviderKind identifies one of the fixed upstream provider families.
type ProviderKind string

// Supported provider families.
const (
	ProviderAnthropic        ProviderKind = "anthropic"
	ProviderGemini           ProviderKind = "gemini"
	ProviderOpenAICompatible ProviderKind = "openai_compatible"
)

// AllProviders lists every provider family in a stable order.
var AllProviders = []ProviderKind{ProviderAnthropic, ProviderGemini, ProviderOpenAICompatible}

// ParseProviderKind resolves a provider tag or one of its aliases.
func ParseProviderKind(s string) (ProviderKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ProviderAnthropic):
		return ProviderAnthropic, true
	case string(ProviderGemini):
		return ProviderGemini, true
	case string(ProviderOpenAICompatible), "openai", "openrouter", "openai-compatible":
		return ProviderOpenAICompatible, true
	default:
		return ProviderKind(s), false
	}
}

// String returns the provider tag.
func (k ProviderKind) String() string {
	return string(k)
}

// Role is the author of a chat message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single turn of the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is the normalized chat request. It is built once per call and never
// mutated afterwards.
//
// Credential is the caller's upstream credential. It must never be logged or
// echoed, so Request marshals to logs and strings without it.
type Request struct {
	Temperature     *float64     `json:"temperature,omitempty"`
	MaxTokens       *int         `json:"maxTokens,omitempty"`
	ThinkingEnabled *bool        `json:"thinking,omitempty"`
	Provider        ProviderKind `json:"provider"`
	Model           string       `json:"model"`
	Credential      string       `json:"-"`
	Messages        []Message    `json:"messages"`
}

// WantsThinking reports whether the caller asked for thinking tokens.
func (r *Request) WantsThinking() bool {
	return r.ThinkingEnabled != nil && *r.ThinkingEnabled
}

// HasCredential reports whether a non-blank credential is present.
func (r *Request) HasCredential() bool {
	return strings.TrimSpace(r.Credential) != ""
}

// Validate checks the request invariants that do not depend on the provider.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return NewError(KindInvalidRequest, "model is required")
	}
	if len(r.Messages) == 0 {
		return NewError(KindInvalidRequest, "messages must not be empty")
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return NewErrorf(KindInvalidRequest, "messages[%d].role is invalid (got %q)", i, m.Role)
		}
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return NewError(KindInvalidRequest, "maxTokens must be positive")
	}
	return nil
}

// MarshalZerologObject logs the request shape without the credential.
func (r *Request) MarshalZerologObject(e *zerolog.Event) {
	e.Str("provider", string(r.Provider)).
		Str("model", r.Model).
		Int("messages", len(r.Messages)).
		Bool("thinking", r.WantsThinking())
	if r.Temperature != nil {
		e.Float64("temperature", *r.Temperature)
	}
	if r.MaxTokens != nil {
		e.Int("max_tokens", *r.MaxTokens)
	}
}

// String implements fmt.Stringer without exposing the credential.
func (r *Request) String() string {
	return fmt.Sprintf("chat.Request{provider=%s model=%s messages=%d thinking=%t}",
		r.Provider, r.Model, len(r.Messages), r.WantsThinking())
}

// GoString keeps %#v from printing the credential.
func (r *Request) GoString() string {
	return r.String()
}
