package ro

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/ro"
)

// ShutdownSignals are the OS signals that trigger graceful shutdown.
var ShutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// GracefulShutdown creates an Observable that emits the first shutdown signal
// received and then completes. Canceling the subscription context ends it
// with the context error.
func GracefulShutdown() ro.Observable[os.Signal] {
	return GracefulShutdownWithSignals(ShutdownSignals...)
}

// GracefulShutdownWithSignals is GracefulShutdown for a custom signal set.
func GracefulShutdownWithSignals(signals ...os.Signal) ro.Observable[os.Signal] {
	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, signals...)

		stop := make(chan struct{})
		go func() {
			select {
			case sig := <-ch:
				observer.NextWithContext(ctx, sig)
				observer.CompleteWithContext(ctx)
			case <-ctx.Done():
				observer.ErrorWithContext(ctx, ctx.Err())
			case <-stop:
			}
		}()

		return func() {
			signal.Stop(ch)
			close(stop)
		}
	})
}

// WaitForShutdown blocks until a shutdown signal is received or ctx is
// canceled. It returns the received signal or the context error.
func WaitForShutdown(ctx context.Context) (os.Signal, error) {
	return waitFor(ctx, GracefulShutdown())
}

func waitFor(ctx context.Context, source ro.Observable[os.Signal]) (os.Signal, error) {
	results, _, err := ro.CollectWithContext(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ctx.Err()
	}
	return results[0], nil
}
