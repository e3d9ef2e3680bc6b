package main

import (
	"github.com/spf13/cobra"

	"github.com/stackvity/codelens/internal/cli"
	"github.com/stackvity/codelens/internal/cli/config"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis over HTTP",
		Long: `Serve exposes the analysis at POST /api/analyze (and /analyze), with a
health check at GET /api/health and Prometheus metrics at GET /metrics.
It shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return cli.Serve(cmd.Context(), cfg)
		},
	}
	config.AddServerFlags(cmd.Flags())
	config.AddAnalyzerFlags(cmd.Flags())
	return cmd
}
