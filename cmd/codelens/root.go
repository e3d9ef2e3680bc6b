package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stackvity/codelens/internal/cli/config"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// newRootCmd builds the command tree. Every call returns fresh commands so
// tests can execute them in isolation.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "codelens",
		Short: "Structural analysis of source code in many languages.",
		Long: `codelens identifies the language of a piece of source code, measures its
structure (lines, comments, imports, functions, classes, loops, conditionals),
annotates it with purpose comments and explains it in plain language.

It runs on a single input (analyze), over a whole source tree with caching,
git filtering and watch mode (scan), or as an HTTP service (serve).`,
		Version:      versionString(),
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	config.AddGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newAnalyzeCmd(),
		newScanCmd(),
		newServeCmd(),
		newLanguagesCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command with a context cancelled on SIGINT and
// SIGTERM, exiting non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig merges the configuration sources for cmd, with log output on the
// command's error stream.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	flags := cmd.Flags()
	cfgFile, _ := flags.GetString(config.FlagConfig)
	profile, _ := flags.GetString(config.FlagProfile)
	return config.Load(cfgFile, profile, version, flags, cmd.ErrOrStderr())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "codelens version %s\n", versionString())
			return err
		},
	}
}
