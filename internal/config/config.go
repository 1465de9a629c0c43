// Package config provides configuration loading, validation and hot reload
// for playground-relay.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/playground-relay/internal/health"
)

// RuntimeConfig is read access to a configuration that may be swapped by hot reload.
type RuntimeConfig interface {
	Get() *Config
}

// Log levels.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Defaults applied by the getters when a value is left unset.
const (
	DefaultListen               = "127.0.0.1:8787"
	DefaultMaxBodyBytes         = 1 << 20
	DefaultShutdownTimeoutMS    = 10000
	DefaultReadHeaderTimeoutMS  = 10000
	DefaultFirstByteTimeoutMS   = 30000
	DefaultTotalTimeoutMS       = 600000
	DefaultIdleTimeoutMS        = 60000
	DefaultMaxFrameBytes        = 1 << 20
	DefaultErrorBodyLimit       = 64 << 10
	DefaultRateLimitRPM         = 60
	DefaultPlaygroundTitle      = "playground-relay"
	DefaultAnthropicMaxTokens   = 4096
	DefaultThinkingBudgetTokens = 2048
)

// Config represents the complete playground-relay configuration.
type Config struct {
	Providers ProvidersConfig `yaml:"providers" toml:"providers"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Health    health.Config   `yaml:"health" toml:"health"`
}

// ServerConfig defines the inbound HTTP boundary.
type ServerConfig struct {
	Listen              string          `yaml:"listen" toml:"listen"`
	RateLimit           RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	MaxBodyBytes        int64           `yaml:"max_body_bytes" toml:"max_body_bytes"`
	ReadHeaderTimeoutMS int             `yaml:"read_header_timeout_ms" toml:"read_header_timeout_ms"`
	ShutdownTimeoutMS   int             `yaml:"shutdown_timeout_ms" toml:"shutdown_timeout_ms"`
	EnableHTTP2         bool            `yaml:"enable_http2" toml:"enable_http2"` // h2c on the listener
}

// GetListen returns the listen address with default fallback.
func (s *ServerConfig) GetListen() string {
	if s.Listen == "" {
		return DefaultListen
	}
	return s.Listen
}

// GetMaxBodyBytes returns the inbound body limit, 1 MiB when unset.
func (s *ServerConfig) GetMaxBodyBytes() int64 {
	if s.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return s.MaxBodyBytes
}

// GetReadHeaderTimeout returns the inbound header read timeout.
func (s *ServerConfig) GetReadHeaderTimeout() time.Duration {
	return msOrDefault(s.ReadHeaderTimeoutMS, DefaultReadHeaderTimeoutMS)
}

// GetShutdownTimeout returns the graceful shutdown bound.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return msOrDefault(s.ShutdownTimeoutMS, DefaultShutdownTimeoutMS)
}

// RateLimitConfig defines the inbound token bucket.
type RateLimitConfig struct {
	RequestsPerMinute int  `yaml:"requests_per_minute" toml:"requests_per_minute"`
	Burst             int  `yaml:"burst" toml:"burst"`
	Enabled           bool `yaml:"enabled" toml:"enabled"`
}

// GetRequestsPerMinute returns the per-caller request rate.
func (r *RateLimitConfig) GetRequestsPerMinute() int {
	if r.RequestsPerMinute <= 0 {
		return DefaultRateLimitRPM
	}
	return r.RequestsPerMinute
}

// GetBurst returns the bucket size, equal to the per-minute rate when unset.
func (r *RateLimitConfig) GetBurst() int {
	if r.Burst <= 0 {
		return r.GetRequestsPerMinute()
	}
	return r.Burst
}

// ProvidersConfig holds one section per provider family.
type ProvidersConfig struct {
	Anthropic        ProviderConfig `yaml:"anthropic" toml:"anthropic"`
	Gemini           ProviderConfig `yaml:"gemini" toml:"gemini"`
	OpenAICompatible ProviderConfig `yaml:"openai_compatible" toml:"openai_compatible"`
}

// ProviderConfig configures one provider variant. Fields that do not apply to
// a provider family are ignored.
//
//nolint:govet // Field order optimized for readability, not memory alignment
type ProviderConfig struct {
	Enabled *bool  `yaml:"enabled" toml:"enabled"`
	Name    string `yaml:"name" toml:"name"`
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// Anthropic only.
	AnthropicVersion     string `yaml:"anthropic_version" toml:"anthropic_version"`
	DefaultMaxTokens     int    `yaml:"default_max_tokens" toml:"default_max_tokens"`
	ThinkingBudgetTokens int    `yaml:"thinking_budget_tokens" toml:"thinking_budget_tokens"`

	// OpenAI-compatible routing proxy attribution headers.
	Referer string `yaml:"referer" toml:"referer"`
	Title   string `yaml:"title" toml:"title"`

	// Gemini only: delta (default), snapshot or auto.
	StreamStyle string `yaml:"stream_style" toml:"stream_style"`
}

// IsEnabled returns whether the provider is served. Providers are enabled
// unless explicitly disabled.
func (p *ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// GetBaseURLOption returns the configured base URL, if any.
func (p *ProviderConfig) GetBaseURLOption() mo.Option[string] {
	if strings.TrimSpace(p.BaseURL) == "" {
		return mo.None[string]()
	}
	return mo.Some(strings.TrimSpace(p.BaseURL))
}

// GetDefaultMaxTokens returns the max_tokens used when a request has none.
func (p *ProviderConfig) GetDefaultMaxTokens() int {
	if p.DefaultMaxTokens <= 0 {
		return DefaultAnthropicMaxTokens
	}
	return p.DefaultMaxTokens
}

// GetThinkingBudgetTokens returns the extended thinking budget.
func (p *ProviderConfig) GetThinkingBudgetTokens() int {
	if p.ThinkingBudgetTokens <= 0 {
		return DefaultThinkingBudgetTokens
	}
	return p.ThinkingBudgetTokens
}

// GetTitle returns the X-Title attribution header value.
func (p *ProviderConfig) GetTitle() string {
	if p.Title == "" {
		return DefaultPlaygroundTitle
	}
	return p.Title
}

// TransportConfig bounds upstream calls.
type TransportConfig struct {
	EnableHTTP2        *bool `yaml:"enable_http2" toml:"enable_http2"`
	ErrorBodyLimit     int64 `yaml:"error_body_limit" toml:"error_body_limit"`
	FirstByteTimeoutMS int   `yaml:"first_byte_timeout_ms" toml:"first_byte_timeout_ms"`
	TotalTimeoutMS     int   `yaml:"total_timeout_ms" toml:"total_timeout_ms"`
	IdleTimeoutMS      int   `yaml:"idle_timeout_ms" toml:"idle_timeout_ms"`
	MaxFrameBytes      int   `yaml:"max_frame_bytes" toml:"max_frame_bytes"`
}

// GetFirstByteTimeout bounds the wait for upstream response headers.
func (t *TransportConfig) GetFirstByteTimeout() time.Duration {
	return msOrDefault(t.FirstByteTimeoutMS, DefaultFirstByteTimeoutMS)
}

// GetTotalTimeout bounds a whole upstream exchange.
func (t *TransportConfig) GetTotalTimeout() time.Duration {
	return msOrDefault(t.TotalTimeoutMS, DefaultTotalTimeoutMS)
}

// GetIdleTimeout bounds the silence between two upstream chunks.
func (t *TransportConfig) GetIdleTimeout() time.Duration {
	return msOrDefault(t.IdleTimeoutMS, DefaultIdleTimeoutMS)
}

// GetMaxFrameBytes bounds one buffered upstream frame.
func (t *TransportConfig) GetMaxFrameBytes() int {
	if t.MaxFrameBytes <= 0 {
		return DefaultMaxFrameBytes
	}
	return t.MaxFrameBytes
}

// GetErrorBodyLimit bounds how much of a rejected upstream body is read.
func (t *TransportConfig) GetErrorBodyLimit() int64 {
	if t.ErrorBodyLimit <= 0 {
		return DefaultErrorBodyLimit
	}
	return t.ErrorBodyLimit
}

// IsHTTP2Enabled reports whether HTTP/2 is negotiated with upstreams. Default true.
func (t *TransportConfig) IsHTTP2Enabled() bool {
	return t.EnableHTTP2 == nil || *t.EnableHTTP2
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level        string       `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format       string       `yaml:"format" toml:"format"` // json, console
	Output       string       `yaml:"output" toml:"output"` // stdout, stderr, or file path
	DebugOptions DebugOptions `yaml:"debug_options" toml:"debug_options"`
	Pretty       bool         `yaml:"pretty" toml:"pretty"` // enable colored console output
}

// DefaultMaxBodyLogSize bounds logged request body previews.
const DefaultMaxBodyLogSize = 1000

// DebugOptions controls extra request logging at debug level.
type DebugOptions struct {
	// LogRequestBody logs a redacted, truncated preview of inbound bodies.
	LogRequestBody bool `yaml:"log_request_body" toml:"log_request_body"`
	// MaxBodyLogSize is the preview size in bytes. Default: 1000
	MaxBodyLogSize int `yaml:"max_body_log_size" toml:"max_body_log_size"`
}

// GetMaxBodyLogSize returns the preview bound with default fallback.
func (d DebugOptions) GetMaxBodyLogSize() int {
	if d.MaxBodyLogSize <= 0 {
		return DefaultMaxBodyLogSize
	}
	return d.MaxBodyLogSize
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func msOrDefault(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}
