// Package transport issues upstream HTTP calls for the chat adapter.
//
// It performs no normalization: non-2xx responses are returned to the caller
// with status and body intact. Connection-level failures are reported as
// chat.KindTransportFailure errors. Nothing is retried.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"

	"github.com/omarluq/playground-relay/internal/chat"
)

// Default bounds, used when Options leave a value at zero.
const (
	DefaultFirstByteTimeout = 30 * time.Second
	DefaultTotalTimeout     = 10 * time.Minute
	DefaultIdleTimeout      = 60 * time.Second
)

// ErrIdleTimeout is returned by a response body that saw no bytes for longer
// than the configured idle bound.
var ErrIdleTimeout = errors.New("transport: upstream stream idle timeout")

// Request is a fully built upstream call. It is owned by the mapper that built
// it and only read by the transport.
type Request struct {
	Header http.Header
	Method string
	URL    string
	Body   []byte
}

// Response is the raw upstream response. Closing Body releases the connection
// and cancels the request context.
type Response struct {
	Header     http.Header
	Body       io.ReadCloser
	StatusCode int
}

// IsSuccess reports whether the upstream answered with a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport sends one upstream request.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Send calls f.
func (f Func) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Options bounds upstream calls.
type Options struct {
	// FirstByteTimeout bounds the wait for response headers.
	FirstByteTimeout time.Duration
	// TotalTimeout bounds the whole exchange including the streamed body.
	TotalTimeout time.Duration
	// IdleTimeout bounds the gap between two body reads.
	IdleTimeout time.Duration
	// UserAgent is sent when the mapped request sets none.
	UserAgent string
	// EnableHTTP2 negotiates HTTP/2 with upstreams over TLS.
	EnableHTTP2 bool
}

func (o Options) withDefaults() Options {
	if o.FirstByteTimeout <= 0 {
		o.FirstByteTimeout = DefaultFirstByteTimeout
	}
	if o.TotalTimeout <= 0 {
		o.TotalTimeout = DefaultTotalTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	return o
}

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	client *http.Client
	opts   Options
}

// NewHTTPTransport creates an HTTPTransport with its own connection pool.
func NewHTTPTransport(opts Options) *HTTPTransport {
	opts = opts.withDefaults()

	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.FirstByteTimeout,
		ExpectContinueTimeout: time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}

	if opts.EnableHTTP2 {
		h2, err := http2.ConfigureTransports(base)
		if err != nil {
			log.Warn().Err(err).Msg("http2 upstream transport unavailable, using HTTP/1.1")
		} else {
			// Detect dead HTTP/2 connections instead of waiting on them forever.
			h2.ReadIdleTimeout = 30 * time.Second
			h2.PingTimeout = 15 * time.Second
		}
	}

	return &HTTPTransport{
		client: &http.Client{Transport: base},
		opts:   opts,
	}
}

// NewHTTPTransportWithClient wraps an existing client. Used by tests.
func NewHTTPTransportWithClient(client *http.Client, opts Options) *HTTPTransport {
	return &HTTPTransport{client: client, opts: opts.withDefaults()}
}

// Send executes req. The returned body must be closed by the caller.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.opts.TotalTimeout)

	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		cancel()
		return nil, chat.WrapError(chat.KindTransportFailure, "invalid upstream request", err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	if t.opts.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.opts.UserAgent)
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		cancel()
		classified := Classify(reqCtx, err)
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("host", httpReq.URL.Host).
			Dur("elapsed", time.Since(start)).
			Msg("upstream request failed")
		return nil, classified
	}

	zerolog.Ctx(ctx).Debug().
		Str("host", httpReq.URL.Host).
		Int("status", resp.StatusCode).
		Dur("first_byte", time.Since(start)).
		Msg("upstream responded")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       newWatchedBody(resp.Body, cancel, t.opts.IdleTimeout),
	}, nil
}

// Classify converts a connection-level failure into a transport failure with a
// short human readable message.
func Classify(ctx context.Context, err error) *chat.Error {
	var ce *chat.Error
	if errors.As(err, &ce) {
		return ce
	}

	var (
		dnsErr    *net.DNSError
		certErr   *tls.CertificateVerificationError
		recordErr tls.RecordHeaderError
		unknownCA x509.UnknownAuthorityError
		hostErr   x509.HostnameError
		netErr    net.Error
		ctxErr    error
		message   = "upstream connection failed"
	)
	if ctx != nil {
		ctxErr = ctx.Err()
	}

	switch {
	case errors.Is(err, ErrIdleTimeout):
		message = "upstream stream stalled"
	case errors.Is(err, context.Canceled) || errors.Is(ctxErr, context.Canceled):
		message = "upstream request canceled"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctxErr, context.DeadlineExceeded):
		message = "upstream request timed out"
	case errors.As(err, &dnsErr):
		message = "upstream dns lookup failed"
	case errors.As(err, &certErr), errors.As(err, &recordErr),
		errors.As(err, &unknownCA), errors.As(err, &hostErr):
		message = "upstream tls handshake failed"
	case errors.As(err, &netErr) && netErr.Timeout():
		message = "upstream request timed out"
	}

	return chat.WrapError(chat.KindTransportFailure, message, err)
}

// watchedBody cancels the request when the body is closed or when no bytes
// arrive within the idle bound.
type watchedBody struct {
	body    io.ReadCloser
	cancel  context.CancelFunc
	timer   *time.Timer
	idle    time.Duration
	once    sync.Once
	mu      sync.Mutex
	stalled bool
}

func newWatchedBody(body io.ReadCloser, cancel context.CancelFunc, idle time.Duration) *watchedBody {
	w := &watchedBody{body: body, cancel: cancel, idle: idle}
	if idle > 0 {
		w.timer = time.AfterFunc(idle, w.expire)
	}
	return w
}

func (w *watchedBody) expire() {
	w.mu.Lock()
	w.stalled = true
	w.mu.Unlock()
	w.cancel()
}

// Read reads from the upstream body and re-arms the idle timer.
func (w *watchedBody) Read(p []byte) (int, error) {
	n, err := w.body.Read(p)
	if w.timer != nil && n > 0 {
		w.timer.Reset(w.idle)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		w.mu.Lock()
		stalled := w.stalled
		w.mu.Unlock()
		if stalled {
			return n, errors.Join(ErrIdleTimeout, err)
		}
	}
	return n, err
}

// Close releases the connection and cancels the request context. It is safe
// to call more than once.
func (w *watchedBody) Close() error {
	var err error
	w.once.Do(func() {
		if w.timer != nil {
			w.timer.Stop()
		}
		w.cancel()
		err = w.body.Close()
	})
	return err
}
