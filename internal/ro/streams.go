// Package ro provides reactive helpers over normalized chat event streams and
// process signals using samber/ro.
package ro

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/ro"

	"github.com/omarluq/playground-relay/internal/chat"
)

// Transcript is the folded result of one chat stream.
type Transcript struct {
	// Terminal is the done or error event that ended the stream. Its Type is
	// empty if the stream ended without one.
	Terminal chat.Event
	Text     string
	Thinking string
	Deltas   int
}

// Err returns the terminal error, or nil when the stream finished with done.
func (t Transcript) Err() error {
	return t.Terminal.Err()
}

// Completed reports whether the stream ended with a done event.
func (t Transcript) Completed() bool {
	return t.Terminal.Type == chat.EventDone
}

// Fold reduces events into a Transcript. Events after the first terminal
// event are ignored.
func Fold(events []chat.Event) Transcript {
	var text, thinking strings.Builder

	t := lo.Reduce(events, func(acc Transcript, ev chat.Event, _ int) Transcript {
		if acc.Terminal.IsTerminal() {
			return acc
		}
		switch ev.Type {
		case chat.EventTextDelta:
			text.WriteString(ev.Text)
			acc.Deltas++
		case chat.EventThinkingDelta:
			thinking.WriteString(ev.Text)
			acc.Deltas++
		case chat.EventDone, chat.EventError:
			acc.Terminal = ev
		}
		return acc
	}, Transcript{})

	t.Text = text.String()
	t.Thinking = thinking.String()
	return t
}

// CollectTranscript drains source and folds it. A canceled ctx returns the
// transcript of the events seen so far along with the context error.
func CollectTranscript(ctx context.Context, source ro.Observable[chat.Event]) (Transcript, error) {
	events, _, err := ro.CollectWithContext(ctx, source)
	return Fold(events), err
}

// Events is a cold Observable over a fixed event list.
func Events(events ...chat.Event) ro.Observable[chat.Event] {
	return ro.FromSlice(events)
}
