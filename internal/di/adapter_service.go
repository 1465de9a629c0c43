package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/playground-relay/internal/adapter"
	"github.com/omarluq/playground-relay/internal/config"
	"github.com/omarluq/playground-relay/internal/transport"
	"github.com/omarluq/playground-relay/internal/version"
)

// TransportService wraps the upstream HTTP transport. Timeouts are fixed at
// startup; a reload does not rebuild the connection pool.
type TransportService struct {
	Transport *transport.HTTPTransport
}

// NewTransport creates the upstream transport.
func NewTransport(i do.Injector) (*TransportService, error) {
	cfg := do.MustInvoke[*ConfigService](i).Get()

	return &TransportService{Transport: transport.NewHTTPTransport(transportOptions(&cfg.Transport))}, nil
}

func transportOptions(t *config.TransportConfig) transport.Options {
	return transport.Options{
		FirstByteTimeout: t.GetFirstByteTimeout(),
		TotalTimeout:     t.GetTotalTimeout(),
		IdleTimeout:      t.GetIdleTimeout(),
		EnableHTTP2:      t.IsHTTP2Enabled(),
		UserAgent:        version.UserAgent(),
	}
}

// AdapterService wraps the chat adapter.
type AdapterService struct {
	Adapter *adapter.Adapter
}

// NewAdapter creates the adapter and subscribes it to config reloads.
func NewAdapter(i do.Injector) (*AdapterService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	transportSvc := do.MustInvoke[*TransportService](i)

	a := adapter.New(cfgSvc.Get(), transportSvc.Transport, loggerSvc.Logger)
	cfgSvc.OnReload(func(cfg *config.Config) error {
		a.Reload(cfg)
		return nil
	})

	return &AdapterService{Adapter: a}, nil
}
