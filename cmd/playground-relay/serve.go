package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/playground-relay/internal/di"
	"github.com/omarluq/playground-relay/internal/ro"
	"github.com/omarluq/playground-relay/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay server",
	Long: `Start the HTTP server that accepts playground chat requests and streams
normalized events from the configured providers. The config file is watched
and provider settings are reloaded without a restart.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	path := configPath()

	container, err := di.NewContainer(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to initialize services")
		return err
	}

	serverSvc, err := di.Invoke[*di.ServerService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize server")
		return err
	}
	cfgSvc := di.MustInvoke[*di.ConfigService](container)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	cfgSvc.StartWatching(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("listen", serverSvc.Server.Addr()).
			Str("version", version.Version).
			Msg("starting " + appName)
		errCh <- serverSvc.Server.ListenAndServe()
	}()

	return awaitShutdown(ctx, container, errCh)
}

// awaitShutdown blocks until a signal arrives or the server stops on its own,
// then shuts the container down.
func awaitShutdown(ctx context.Context, container *di.Container, errCh <-chan error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signals := make(chan error, 1)
	go func() {
		sig, err := ro.WaitForShutdown(ctx)
		if err == nil {
			log.Info().Str("signal", sig.String()).Msg("shutting down...")
		}
		signals <- err
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Error().Err(serveErr).Msg("server error")
		} else {
			serveErr = nil
		}
	case <-signals:
	}

	if err := container.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown error")
		if serveErr == nil {
			serveErr = err
		}
	}
	log.Info().Msg("server stopped")

	return serveErr
}
