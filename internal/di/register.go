package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Config (no dependencies)
// 2. Logger (depends on Config)
// 3. Transport (depends on Config)
// 4. Adapter (depends on Config, Logger, Transport)
// 5. Limiter (depends on Config)
// 6. Handler (depends on Config, Adapter, Limiter)
// 7. Server (depends on Handler, Config).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewTransport)
	do.Provide(i, NewAdapter)
	do.Provide(i, NewLimiter)
	do.Provide(i, NewHandler)
	do.Provide(i, NewHTTPServer)
}
