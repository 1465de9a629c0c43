// Package providers holds the closed set of upstream provider variants.
//
// Each variant maps a chat.Request onto its upstream wire format, frames the
// upstream response body into logical units and normalizes those units into
// chat events. Variants are selected through a Registry keyed by
// chat.ProviderKind.
package providers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/transport"
)

// DefaultMaxFrameBytes bounds a single buffered upstream frame.
const DefaultMaxFrameBytes = 1 << 20

// ErrFrameTooLarge is wrapped by the malformed frame error a Framer returns
// when a single unit outgrows the buffer limit.
var ErrFrameTooLarge = errors.New("providers: upstream frame exceeds maximum size")

// Provider is one upstream provider variant.
type Provider interface {
	// Kind returns the provider family.
	Kind() chat.ProviderKind

	// Name returns the configured provider name used in logs.
	Name() string

	// BaseURL returns the upstream API base URL.
	BaseURL() string

	// SupportsThinking reports whether thinking tokens can be requested.
	SupportsThinking() bool

	// BuildRequest maps the normalized request onto the upstream wire format.
	BuildRequest(req *chat.Request) (*transport.Request, error)

	// NewFramer splits the upstream response body into logical units.
	NewFramer(body io.Reader) Framer

	// NewNormalizer returns a fresh normalizer for one response stream.
	NewNormalizer(req *chat.Request) Normalizer
}

// Framer yields complete logical units from an upstream body. It returns
// io.EOF once the body is exhausted. Incomplete trailing data is never
// returned as a unit.
type Framer interface {
	Next() ([]byte, error)
}

// Normalizer converts logical units into normalized events. It keeps the
// per-stream state (finish reason, usage, emitted text) between units.
type Normalizer interface {
	// Normalize returns the events produced by one unit, possibly none. A
	// terminal event, if any, is always the last element.
	Normalize(frame []byte) []chat.Event

	// Finish returns the terminal event for a stream that ended cleanly
	// without the normalizer producing one.
	Finish() chat.Event
}

// StreamStyle tells a normalizer how consecutive text chunks relate.
type StreamStyle string

const (
	// StreamStyleDelta treats every chunk as new text. It is the default.
	StreamStyleDelta StreamStyle = "delta"
	// StreamStyleSnapshot treats every chunk as the full text so far.
	StreamStyleSnapshot StreamStyle = "snapshot"
	// StreamStyleAuto treats a chunk as a snapshot when it begins with
	// everything already emitted, and as a delta otherwise.
	StreamStyleAuto StreamStyle = "auto"
)

// ParseStreamStyle maps a configured value to a StreamStyle. The empty
// string selects StreamStyleDelta.
func ParseStreamStyle(s string) (StreamStyle, bool) {
	switch StreamStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", StreamStyleDelta:
		return StreamStyleDelta, true
	case StreamStyleSnapshot:
		return StreamStyleSnapshot, true
	case StreamStyleAuto:
		return StreamStyleAuto, true
	default:
		return "", false
	}
}

// Settings configures a provider variant.
type Settings struct {
	Name                 string
	BaseURL              string
	AnthropicVersion     string
	Referer              string
	Title                string
	DefaultMaxTokens     int
	ThinkingBudgetTokens int
	MaxFrameBytes        int
	StreamStyle          StreamStyle
}

func (s Settings) streamStyle() StreamStyle {
	if s.StreamStyle == "" {
		return StreamStyleDelta
	}
	return s.StreamStyle
}

func (s Settings) maxFrameBytes() int {
	if s.MaxFrameBytes <= 0 {
		return DefaultMaxFrameBytes
	}
	return s.MaxFrameBytes
}

// Info describes a registered provider for listings.
type Info struct {
	Kind             chat.ProviderKind `json:"kind"`
	Name             string            `json:"name"`
	BaseURL          string            `json:"base_url"`
	SupportsThinking bool              `json:"supports_thinking"`
}

// Registry is the dispatch table from provider kind to variant.
type Registry map[chat.ProviderKind]Provider

// NewRegistry builds a registry from the given providers. Later entries of the
// same kind replace earlier ones.
func NewRegistry(providers ...Provider) Registry {
	return lo.SliceToMap(providers, func(p Provider) (chat.ProviderKind, Provider) {
		return p.Kind(), p
	})
}

// Lookup returns the variant registered for kind.
func (r Registry) Lookup(kind chat.ProviderKind) (Provider, bool) {
	p, ok := r[kind]
	return p, ok
}

// Kinds returns the registered kinds in stable order.
func (r Registry) Kinds() []chat.ProviderKind {
	kinds := lo.Keys(r)
	slices.Sort(kinds)
	return kinds
}

// Infos describes every registered provider in stable order.
func (r Registry) Infos() []Info {
	return lo.Map(r.Kinds(), func(kind chat.ProviderKind, _ int) Info {
		p := r[kind]
		return Info{
			Kind:             kind,
			Name:             p.Name(),
			BaseURL:          p.BaseURL(),
			SupportsThinking: p.SupportsThinking(),
		}
	})
}

func jsonHeaders() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "text/event-stream")
	return h
}

// malformed returns the terminal event for a unit that could not be parsed.
func malformed(provider chat.ProviderKind, frame []byte) []chat.Event {
	return []chat.Event{chat.ErrorEventFrom(chat.NewErrorf(chat.KindMalformedUpstreamFrame,
		"%s sent an unparseable frame (%d bytes)", provider, len(frame)))}
}

// frameTooLarge is the error returned by framers for an oversized unit.
func frameTooLarge(limit int) error {
	return chat.WrapError(chat.KindMalformedUpstreamFrame,
		fmt.Sprintf("upstream frame exceeds %d bytes", limit), ErrFrameTooLarge)
}
