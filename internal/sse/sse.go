// Package sse reads and writes Server-Sent Events.
//
// The Decoder is pull based: each call to Next blocks until one complete event
// (terminated by a blank line) is buffered, so callers never see an event built
// from a partial chunk. Buffered line size is bounded.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// DefaultMaxEventBytes bounds a single buffered event when no limit is given.
const DefaultMaxEventBytes = 1 << 20

// ErrEventTooLarge is returned when an event exceeds the decoder limit.
var ErrEventTooLarge = errors.New("sse: event exceeds maximum size")

// ErrNotFlushable is returned when the ResponseWriter doesn't support flushing.
var ErrNotFlushable = errors.New("sse: ResponseWriter does not implement http.Flusher")

// Event represents a Server-Sent Event.
// Fields follow the WHATWG event stream format: https://html.spec.whatwg.org/multipage/server-sent-events.html
type Event struct {
	Event string
	ID    string
	Data  []byte
	Retry int
}

// String returns the SSE wire format representation of the event.
func (e Event) String() string {
	var buf bytes.Buffer
	if e.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", e.Event)
	}
	if e.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", e.ID)
	}
	if e.Retry > 0 {
		fmt.Fprintf(&buf, "retry: %d\n", e.Retry)
	}
	if len(e.Data) > 0 {
		for _, line := range bytes.Split(e.Data, []byte("\n")) {
			fmt.Fprintf(&buf, "data: %s\n", line)
		}
	}
	buf.WriteString("\n")
	return buf.String()
}

// Bytes returns the SSE wire format representation as bytes.
func (e Event) Bytes() []byte {
	return []byte(e.String())
}

// SetHeaders sets the response headers required for SSE streaming.
// X-Accel-Buffering disables nginx/CDN buffering.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// WriteEvent writes a single event and flushes it to the client.
func WriteEvent(w http.ResponseWriter, event Event) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrNotFlushable
	}
	if _, err := w.Write(event.Bytes()); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// Decoder parses SSE events incrementally from a reader.
type Decoder struct {
	reader    *bufio.Reader
	event     Event
	dataLines [][]byte
	pending   int
	maxBytes  int
}

// NewDecoder creates a Decoder. maxBytes <= 0 selects DefaultMaxEventBytes.
func NewDecoder(r io.Reader, maxBytes int) *Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxEventBytes
	}
	return &Decoder{
		reader:   bufio.NewReaderSize(r, 64*1024),
		maxBytes: maxBytes,
	}
}

// Next returns the next complete event. It returns io.EOF once the stream is
// exhausted. A final event whose lines are complete but that lacks the closing
// blank line is still delivered; a trailing line without a newline is an
// incomplete unit and is discarded.
func (d *Decoder) Next() (Event, error) {
	for {
		line, err := d.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if ev, ok := d.take(); ok {
					return ev, nil
				}
			}
			return Event{}, err
		}

		line = trimLineEnding(line)
		if len(line) == 0 {
			if ev, ok := d.take(); ok {
				return ev, nil
			}
			continue
		}

		if err := d.parseField(line); err != nil {
			return Event{}, err
		}
	}
}

// readLine returns one newline-terminated line. Lines longer than the limit
// fail with ErrEventTooLarge. A partial line at EOF is dropped.
func (d *Decoder) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := d.reader.ReadSlice('\n')
		if len(line)+len(chunk) > d.maxBytes {
			return nil, ErrEventTooLarge
		}
		switch {
		case err == nil:
			if line == nil {
				return chunk, nil
			}
			return append(line, chunk...), nil
		case errors.Is(err, bufio.ErrBufferFull):
			line = append(line, chunk...)
		default:
			return nil, err
		}
	}
}

func (d *Decoder) take() (Event, bool) {
	if len(d.dataLines) == 0 {
		d.event = Event{}
		d.pending = 0
		return Event{}, false
	}
	ev := d.event
	ev.Data = bytes.Join(d.dataLines, []byte("\n"))
	d.event = Event{}
	d.dataLines = nil
	d.pending = 0
	return ev, true
}

func trimLineEnding(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

func (d *Decoder) parseField(line []byte) error {
	// Comment lines (": keep-alive") are ignored.
	if line[0] == ':' {
		return nil
	}

	field, value := line, []byte(nil)
	if idx := bytes.IndexByte(line, ':'); idx >= 0 {
		field = line[:idx]
		value = line[idx+1:]
		if len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}
	}

	switch string(field) {
	case "event":
		d.event.Event = string(value)
	case "data":
		d.pending += len(value)
		if d.pending > d.maxBytes {
			return ErrEventTooLarge
		}
		d.dataLines = append(d.dataLines, bytes.Clone(value))
	case "id":
		d.event.ID = string(value)
	case "retry":
		if n, err := strconv.Atoi(string(value)); err == nil {
			d.event.Retry = n
		}
	}
	return nil
}
