package providers_test

import (
	"errors"
	"io"
	"strings"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/providers"
)

// drive feeds body through the provider's framer and normalizer the way the
// adapter stream does and returns every event up to the terminal one.
func drive(p providers.Provider, req *chat.Request, body io.Reader) []chat.Event {
	framer := p.NewFramer(body)
	normalizer := p.NewNormalizer(req)

	var events []chat.Event
	for {
		frame, err := framer.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return append(events, normalizer.Finish())
			}
			return append(events, chat.ErrorEventFrom(err))
		}
		for _, ev := range normalizer.Normalize(frame) {
			events = append(events, ev)
			if ev.IsTerminal() {
				return events
			}
		}
	}
}

func driveString(p providers.Provider, req *chat.Request, body string) []chat.Event {
	return drive(p, req, strings.NewReader(body))
}

func newRequest(kind chat.ProviderKind) *chat.Request {
	return &chat.Request{
		Provider:   kind,
		Model:      "m-1",
		Credential: "cred-123",
		Messages:   []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
	}
}

func texts(events []chat.Event, typ chat.EventType) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == typ {
			b.WriteString(ev.Text)
		}
	}
	return b.String()
}

func terminalCount(events []chat.Event) int {
	n := 0
	for _, ev := range events {
		if ev.IsTerminal() {
			n++
		}
	}
	return n
}

func sseData(payloads ...string) string {
	var b strings.Builder
	for _, p := range payloads {
		b.WriteString("data: ")
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	return b.String()
}

func ptr[T any](v T) *T {
	return &v
}
