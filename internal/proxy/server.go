package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/omarluq/playground-relay/internal/config"
)

// Server wraps http.Server with playground-relay configuration.
type Server struct {
	httpServer *http.Server
	addr       string
}

// NewServer creates a Server with timeouts suited to long streams.
// WriteTimeout is left unset: stream duration is bounded by the upstream
// transport timeouts instead.
//
// If enableHTTP2 is true, enables HTTP/2 cleartext (h2c) support for non-TLS connections.
func NewServer(addr string, handler http.Handler, enableHTTP2 bool) *Server {
	finalHandler := handler
	if enableHTTP2 {
		h2s := &http2.Server{}
		finalHandler = h2c.NewHandler(handler, h2s)
	}

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           finalHandler,
			ReadHeaderTimeout: time.Duration(config.DefaultReadHeaderTimeoutMS) * time.Millisecond,
			ReadTimeout:       30 * time.Second,  // bounded inbound bodies
			IdleTimeout:       120 * time.Second, // Keep-alive connections
		},
	}
}

// NewServerFromConfig creates a Server from the server section.
func NewServerFromConfig(cfg *config.ServerConfig, handler http.Handler) *Server {
	s := NewServer(cfg.GetListen(), handler, cfg.EnableHTTP2)
	s.httpServer.ReadHeaderTimeout = cfg.GetReadHeaderTimeout()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ListenAndServe starts the server (blocks). It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	return ignoreClosed(s.httpServer.ListenAndServe())
}

// Serve accepts connections on l (blocks). It returns nil after Shutdown.
func (s *Server) Serve(l net.Listener) error {
	return ignoreClosed(s.httpServer.Serve(l))
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
