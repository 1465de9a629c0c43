package config

import (
	"net"
	"net/url"
	"strings"
)

// Anthropic rejects extended thinking budgets below this value.
const minThinkingBudgetTokens = 1024

// Smallest accepted frame bound; real upstream frames are rarely smaller.
const minMaxFrameBytes = 1024

// Valid logging levels.
var validLogLevels = map[string]bool{
	"":      true, // Empty defaults to info
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid logging formats.
var validLogFormats = map[string]bool{
	"":        true, // Empty defaults to json
	"json":    true,
	"console": true,
	"text":    true, // Alias for console
	"pretty":  true,
}

// Validate checks the configuration for errors.
// Returns a ValidationError containing all errors found, or nil if valid.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateServer(c, errs)
	validateProviders(c, errs)
	validateTransport(c, errs)
	validateHealth(c, errs)
	validateLogging(c, errs)

	return errs.orNil()
}

func validateServer(c *Config, errs *ValidationError) {
	if c.Server.Listen != "" {
		validateListenAddress(c.Server.Listen, errs)
	}
	if c.Server.MaxBodyBytes < 0 {
		errs.Add("server.max_body_bytes must be >= 0")
	}
	if c.Server.ReadHeaderTimeoutMS < 0 {
		errs.Add("server.read_header_timeout_ms must be >= 0")
	}
	if c.Server.ShutdownTimeoutMS < 0 {
		errs.Add("server.shutdown_timeout_ms must be >= 0")
	}
	if c.Server.RateLimit.RequestsPerMinute < 0 {
		errs.Add("server.rate_limit.requests_per_minute must be >= 0")
	}
	if c.Server.RateLimit.Burst < 0 {
		errs.Add("server.rate_limit.burst must be >= 0")
	}
}

// validateListenAddress validates a listen address in host:port format.
func validateListenAddress(addr string, errs *ValidationError) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		errs.Addf("server.listen must be in host:port format (got %q)", addr)
		return
	}
	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " \t\n") {
		errs.Add("server.listen host contains invalid characters")
	}
	if port == "" {
		errs.Add("server.listen port is required")
	}
}

func validateProviders(c *Config, errs *ValidationError) {
	sections := []struct {
		cfg  *ProviderConfig
		name string
	}{
		{name: "anthropic", cfg: &c.Providers.Anthropic},
		{name: "gemini", cfg: &c.Providers.Gemini},
		{name: "openai_compatible", cfg: &c.Providers.OpenAICompatible},
	}

	enabled := 0
	for _, s := range sections {
		if s.cfg.IsEnabled() {
			enabled++
		}
		validateProvider(s.name, s.cfg, errs)
	}

	if enabled == 0 {
		errs.Add("providers: at least one provider must be enabled")
	}
}

func validateProvider(name string, p *ProviderConfig, errs *ValidationError) {
	prefix := "providers." + name + "."

	if p.BaseURL != "" {
		u, err := url.Parse(p.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.Addf("%sbase_url must be an absolute http(s) URL (got %q)", prefix, p.BaseURL)
		}
	}
	if p.DefaultMaxTokens < 0 {
		errs.Addf("%sdefault_max_tokens must be >= 0", prefix)
	}
	if p.ThinkingBudgetTokens != 0 && p.ThinkingBudgetTokens < minThinkingBudgetTokens {
		errs.Addf("%sthinking_budget_tokens must be >= %d (got %d)",
			prefix, minThinkingBudgetTokens, p.ThinkingBudgetTokens)
	}
	switch strings.ToLower(strings.TrimSpace(p.StreamStyle)) {
	case "", "delta", "snapshot", "auto":
	default:
		errs.Addf("%sstream_style must be one of delta, snapshot, auto (got %q)", prefix, p.StreamStyle)
	}
}

func validateTransport(c *Config, errs *ValidationError) {
	t := &c.Transport
	if t.FirstByteTimeoutMS < 0 {
		errs.Add("transport.first_byte_timeout_ms must be >= 0")
	}
	if t.TotalTimeoutMS < 0 {
		errs.Add("transport.total_timeout_ms must be >= 0")
	}
	if t.IdleTimeoutMS < 0 {
		errs.Add("transport.idle_timeout_ms must be >= 0")
	}
	if t.ErrorBodyLimit < 0 {
		errs.Add("transport.error_body_limit must be >= 0")
	}
	if t.MaxFrameBytes != 0 && t.MaxFrameBytes < minMaxFrameBytes {
		errs.Addf("transport.max_frame_bytes must be >= %d (got %d)", minMaxFrameBytes, t.MaxFrameBytes)
	}
	if t.FirstByteTimeoutMS > 0 && t.TotalTimeoutMS > 0 && t.FirstByteTimeoutMS > t.TotalTimeoutMS {
		errs.Add("transport.first_byte_timeout_ms must not exceed transport.total_timeout_ms")
	}
}

func validateHealth(c *Config, errs *ValidationError) {
	cb := &c.Health.CircuitBreaker
	if cb.FailureThreshold < 0 {
		errs.Add("health.circuit_breaker.failure_threshold must be >= 0")
	}
	if cb.OpenDurationMS < 0 {
		errs.Add("health.circuit_breaker.open_duration_ms must be >= 0")
	}
	if cb.HalfOpenProbes < 0 {
		errs.Add("health.circuit_breaker.half_open_probes must be >= 0")
	}
}

func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[c.Logging.Level] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)",
			c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, text, pretty)",
			c.Logging.Format)
	}
}
