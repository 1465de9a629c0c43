package di

import "github.com/omarluq/playground-relay/internal/config"

// NewConfigServiceWithConfig creates a ConfigService without a file or watcher.
func NewConfigServiceWithConfig(cfg *config.Config) *ConfigService {
	return newConfigService(cfg, "")
}

// ApplyConfig publishes cfg as a watcher reload would.
func (c *ConfigService) ApplyConfig(cfg *config.Config) error {
	return c.apply(cfg)
}
