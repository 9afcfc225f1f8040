// Package cmd defines and implements the CLI commands for the scrapervault
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autoscraper/scrapervault/internal/app"
	"github.com/autoscraper/scrapervault/internal/config"
)

var cfgFile string

type appKeyType struct{}

var appKey appKeyType

// newApp is the application factory. A variable so tests can swap in a
// preconfigured container.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command. The application
// container is built in PersistentPreRunE so every subcommand finds its
// services in the context.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrapervault",
		Short: "Artifact repository and validation sandbox for generated scrapers",
		Long: `scrapervault stores generated scraper code with its metadata, resolves
which scraper handles a given URL, and validates stored scrapers by
executing them in an isolated interpreter against live pages.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			ctx = context.WithValue(ctx, cfgKey, cfg)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSaveCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPipelinesCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newProbeCmd())

	return cmd
}

type cfgKeyType struct{}

var cfgKey cfgKeyType

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

func resolveConfig(ctx context.Context) config.Config {
	cfg, _ := ctx.Value(cfgKey).(config.Config)
	return cfg
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "scrapervault: %v\n", err)
		os.Exit(1)
	}
}
