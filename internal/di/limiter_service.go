package di

import (
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/playground-relay/internal/config"
	"github.com/omarluq/playground-relay/internal/ratelimit"
)

// LimiterService wraps the inbound per-caller rate limiter. Whether it is
// enforced is read from the live config on each request.
type LimiterService struct {
	Limiter *ratelimit.KeyedLimiter
}

// NewLimiter creates the limiter and keeps its rate in sync with reloads.
func NewLimiter(i do.Injector) (*LimiterService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	rl := cfgSvc.Get().Server.RateLimit

	limiter := ratelimit.NewKeyedLimiter(rl.GetRequestsPerMinute(), rl.GetBurst())
	cfgSvc.OnReload(func(cfg *config.Config) error {
		next := cfg.Server.RateLimit
		limiter.SetLimit(next.GetRequestsPerMinute(), next.GetBurst())
		log.Info().
			Bool("enabled", next.Enabled).
			Int("rpm", next.GetRequestsPerMinute()).
			Int("burst", next.GetBurst()).
			Msg("inbound rate limit updated")
		return nil
	})

	return &LimiterService{Limiter: limiter}, nil
}
