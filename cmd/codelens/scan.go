package main

import (
	"github.com/spf13/cobra"

	"github.com/stackvity/codelens/internal/cli"
	"github.com/stackvity/codelens/internal/cli/config"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan -i <inputDir> -o <outputDir>",
		Short: "Analyze every source file under a directory",
		Long: `Scan walks the input tree in parallel and writes one result file per
recognized source file into the output tree, mirroring its layout.

Results are cached by content so unchanged files are not analyzed again.
Git integration restricts the scan to changed files and records the last
commit of each file. With --watch the scan re-runs whenever files change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.ValidateScan(&cfg, cmd.Flags(), logger); err != nil {
				return err
			}
			if cfg.WatchMode {
				return cli.Watch(cmd.Context(), cfg, cmd.OutOrStdout(), logger)
			}
			return cli.RunScan(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
		},
	}
	config.AddScanFlags(cmd.Flags())
	config.AddAnalyzerFlags(cmd.Flags())
	return cmd
}
