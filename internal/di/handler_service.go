package di

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/omarluq/playground-relay/internal/proxy"
)

// HandlerService wraps the HTTP routes.
type HandlerService struct {
	Handler http.Handler
}

// NewHandler builds the playground routes over the live config.
func NewHandler(i do.Injector) (*HandlerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	adapterSvc := do.MustInvoke[*AdapterService](i)
	limiterSvc := do.MustInvoke[*LimiterService](i)

	return &HandlerService{
		Handler: proxy.SetupRoutes(cfgSvc, adapterSvc.Adapter, limiterSvc.Limiter),
	}, nil
}

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *proxy.Server
	cfgSvc *ConfigService
}

// NewHTTPServer creates the HTTP server. Listen address and h2c are fixed at startup.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	handlerSvc := do.MustInvoke[*HandlerService](i)

	server := proxy.NewServerFromConfig(&cfgSvc.Get().Server, handlerSvc.Handler)

	return &ServerService{Server: server, cfgSvc: cfgSvc}, nil
}

// Shutdown implements do.Shutdowner for graceful server shutdown.
func (s *ServerService) Shutdown() error {
	if s.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfgSvc.Get().Server.GetShutdownTimeout())
	defer cancel()
	return s.Server.Shutdown(ctx)
}
