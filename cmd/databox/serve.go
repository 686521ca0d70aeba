package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/gdgt-databox/internal/server"
	"github.com/Sternrassler/gdgt-databox/pkg/config"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the databox HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	loader, cfg, err := opts.load(ctx)
	if err != nil {
		return err
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Error().Err(err).Msg("Backend shutdown failed")
		}
	}()

	settings := server.NewSettings(cfg.Display)
	if len(loader.Files()) > 0 {
		watcher, err := loader.Watch(ctx, func(next config.Config) {
			settings.Store(next.Display)
			log.Info().Int("max_products", next.Display.MaxProducts).Msg("Display settings reloaded")
		}, func(err error) {
			log.Error().Err(err).Msg("Config reload failed")
		})
		if err != nil {
			log.Error().Err(err).Msg("Config watcher setup failed")
		} else {
			defer watcher.Stop()
		}
	}

	handler, err := server.NewHandler(server.Options{
		Databoxes: d.generator,
		Search:    d.client,
		Settings:  settings,
		Ready:     d.pinger(),
	})
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Address:         cfg.Server.Address,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, handler)
	if err != nil {
		return err
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("Server shutdown complete")
	return nil
}
