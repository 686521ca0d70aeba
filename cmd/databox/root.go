package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/gdgt-databox/pkg/config"
	"github.com/Sternrassler/gdgt-databox/pkg/logging"
)

type rootOptions struct {
	configFile string
	envPrefix  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "databox",
		Short:         "Cached product databoxes for blog posts",
		Long:          "databox renders product boxes for blog posts from the gdgt product API and keeps them cached with a last-known-good fallback.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.envPrefix, "env-prefix", config.EnvPrefix, "environment variable prefix")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newRefreshCmd(opts))
	root.AddCommand(newKeyCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "databox %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func (o *rootOptions) loader() *config.Loader {
	if o.configFile == "" {
		return config.NewLoader(o.envPrefix)
	}
	return config.NewLoader(o.envPrefix, o.configFile)
}

// load reads and validates the configuration and sets up logging from it.
func (o *rootOptions) load(ctx context.Context) (*config.Loader, config.Config, error) {
	loader := o.loader()
	cfg, err := loader.Load(ctx)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load configuration: %w", err)
	}
	if err := setupLogging(cfg.Logging); err != nil {
		return nil, config.Config{}, err
	}
	return loader, cfg, nil
}

func setupLogging(cfg config.LoggingConfig) error {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	logging.Setup(logging.Config{Level: level, Pretty: cfg.Pretty, Output: os.Stderr})
	return nil
}
