package adapter

import (
	"github.com/omarluq/playground-relay/internal/config"
	"github.com/omarluq/playground-relay/internal/providers"
)

// RegistryFromConfig builds the provider registry for the enabled sections of cfg.
func RegistryFromConfig(cfg *config.Config) providers.Registry {
	maxFrame := cfg.Transport.GetMaxFrameBytes()
	sections := &cfg.Providers

	var list []providers.Provider
	if sections.Anthropic.IsEnabled() {
		list = append(list, providers.NewAnthropicProvider(settings(&sections.Anthropic, maxFrame)))
	}
	if sections.Gemini.IsEnabled() {
		list = append(list, providers.NewGeminiProvider(settings(&sections.Gemini, maxFrame)))
	}
	if sections.OpenAICompatible.IsEnabled() {
		s := settings(&sections.OpenAICompatible, maxFrame)
		s.Title = sections.OpenAICompatible.GetTitle()
		list = append(list, providers.NewOpenAICompatibleProvider(s))
	}

	return providers.NewRegistry(list...)
}

func settings(pc *config.ProviderConfig, maxFrame int) providers.Settings {
	// Validation rejects unknown styles; anything left falls back to delta.
	style, _ := providers.ParseStreamStyle(pc.StreamStyle)
	return providers.Settings{
		Name:                 pc.Name,
		BaseURL:              pc.GetBaseURLOption().OrEmpty(),
		AnthropicVersion:     pc.AnthropicVersion,
		Referer:              pc.Referer,
		Title:                pc.Title,
		DefaultMaxTokens:     pc.DefaultMaxTokens,
		ThinkingBudgetTokens: pc.ThinkingBudgetTokens,
		MaxFrameBytes:        maxFrame,
		StreamStyle:          style,
	}
}
