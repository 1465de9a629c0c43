package providers_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/providers"
)

// Property-based tests for delta reassembly and the single terminal event.

func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func geminiArray(chunks []string) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = `{"candidates":[{"content":{"parts":[{"text":` + jsonQuote(c) + `}]}}]}`
	}
	return "[" + strings.Join(parts, ",\n") + "]"
}

func anthropicBody(chunks []string) string {
	payloads := make([]string, 0, len(chunks)+1)
	for _, c := range chunks {
		payloads = append(payloads,
			`{"type":"content_block_delta","delta":{"type":"text_delta","text":`+jsonQuote(c)+`}}`)
	}
	payloads = append(payloads, `{"type":"message_stop"}`)
	return sseData(payloads...)
}

func openAIBody(chunks []string) string {
	payloads := make([]string, 0, len(chunks)+1)
	for _, c := range chunks {
		payloads = append(payloads, `{"choices":[{"delta":{"content":`+jsonQuote(c)+`}}]}`)
	}
	payloads = append(payloads, `[DONE]`)
	return sseData(payloads...)
}

func TestStreamProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	anthropic := providers.NewAnthropicProvider(providers.Settings{})
	gemini := providers.NewGeminiProvider(providers.Settings{})
	geminiSnapshots := providers.NewGeminiProvider(providers.Settings{StreamStyle: providers.StreamStyleSnapshot})
	openai := providers.NewOpenAICompatibleProvider(providers.Settings{})

	// Property 1: concatenated deltas equal the full text
	properties.Property("delta chunks reassemble", prop.ForAll(
		func(chunks []string) bool {
			full := strings.Join(chunks, "")

			a := driveString(anthropic, newRequest(chat.ProviderAnthropic), anthropicBody(chunks))
			g := driveString(gemini, newRequest(chat.ProviderGemini), geminiArray(chunks))
			o := driveString(openai, newRequest(chat.ProviderOpenAICompatible), openAIBody(chunks))
			return texts(a, chat.EventTextDelta) == full &&
				texts(g, chat.EventTextDelta) == full &&
				texts(o, chat.EventTextDelta) == full
		},
		gen.SliceOf(gen.AnyString()),
	))

	// Property 2: cumulative snapshots reassemble to the last snapshot
	properties.Property("gemini snapshots reassemble", prop.ForAll(
		func(chunks []string) bool {
			snapshots := make([]string, len(chunks))
			var acc strings.Builder
			for i, c := range chunks {
				acc.WriteString(c)
				snapshots[i] = acc.String()
			}

			events := driveString(geminiSnapshots, newRequest(chat.ProviderGemini), geminiArray(snapshots))
			return texts(events, chat.EventTextDelta) == acc.String()
		},
		gen.SliceOf(gen.AlphaString()),
	))

	// Property 3: exactly one terminal event, and it is last
	properties.Property("single trailing terminal", prop.ForAll(
		func(chunks []string, cut int) bool {
			bodies := []struct {
				p    providers.Provider
				body string
			}{
				{anthropic, anthropicBody(chunks)},
				{gemini, geminiArray(chunks)},
				{openai, openAIBody(chunks)},
			}
			for _, b := range bodies {
				body := b.body
				// Truncate some bodies to simulate an abrupt end.
				if cut > 0 && cut < len(body) {
					body = body[:cut]
				}
				events := driveString(b.p, newRequest(b.p.Kind()), body)
				if terminalCount(events) != 1 || !events[len(events)-1].IsTerminal() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.IntRange(0, 400),
	))

	properties.TestingRun(t)
}
