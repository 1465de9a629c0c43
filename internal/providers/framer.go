package providers

import (
	"bufio"
	"errors"
	"io"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/sse"
)

// SSEFramer yields the data payload of each complete SSE event.
type SSEFramer struct {
	dec   *sse.Decoder
	limit int
}

// NewSSEFramer creates an SSEFramer. maxBytes <= 0 selects DefaultMaxFrameBytes.
func NewSSEFramer(r io.Reader, maxBytes int) *SSEFramer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &SSEFramer{dec: sse.NewDecoder(r, maxBytes), limit: maxBytes}
}

// Next returns the data of the next event that carries data.
func (f *SSEFramer) Next() ([]byte, error) {
	for {
		ev, err := f.dec.Next()
		if err != nil {
			if errors.Is(err, sse.ErrEventTooLarge) {
				return nil, frameTooLarge(f.limit)
			}
			return nil, err
		}
		if len(ev.Data) == 0 {
			continue
		}
		return ev.Data, nil
	}
}

// ObjectFramer yields each complete top-level JSON object from a stream that
// is either a JSON array of objects or newline-delimited JSON. Only
// whitespace, brackets and commas may appear between objects.
type ObjectFramer struct {
	r     *bufio.Reader
	buf   []byte
	limit int
}

// NewObjectFramer creates an ObjectFramer. maxBytes <= 0 selects
// DefaultMaxFrameBytes.
func NewObjectFramer(r io.Reader, maxBytes int) *ObjectFramer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &ObjectFramer{r: bufio.NewReaderSize(r, 32*1024), limit: maxBytes}
}

// Next returns the next complete object. An object cut off by the end of the
// stream is discarded and io.EOF is returned.
func (f *ObjectFramer) Next() ([]byte, error) {
	if err := f.skipSeparators(); err != nil {
		return nil, err
	}
	return f.readObject()
}

func (f *ObjectFramer) skipSeparators() error {
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			return err
		}
		switch b {
		case ' ', '\t', '\r', '\n', '[', ']', ',':
			continue
		case '{':
			f.buf = append(f.buf[:0], b)
			return nil
		default:
			return chat.NewErrorf(chat.KindMalformedUpstreamFrame,
				"unexpected %q between upstream objects", b)
		}
	}
}

func (f *ObjectFramer) readObject() ([]byte, error) {
	depth := 1
	inString, escaped := false, false

	for depth > 0 {
		b, err := f.r.ReadByte()
		if err != nil {
			return nil, err
		}
		f.buf = append(f.buf, b)
		if len(f.buf) > f.limit {
			return nil, frameTooLarge(f.limit)
		}

		switch {
		case escaped:
			escaped = false
		case inString:
			switch b {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
		case b == '"':
			inString = true
		case b == '{' || b == '[':
			depth++
		case b == '}' || b == ']':
			depth--
		}
	}

	out := make([]byte, len(f.buf))
	copy(out, f.buf)
	return out, nil
}
