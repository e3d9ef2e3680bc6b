package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stackvity/codelens/internal/cli"
	"github.com/stackvity/codelens/internal/cli/config"
	"github.com/stackvity/codelens/pkg/codelens"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		format   string
		filename string
	)
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze one source file, or standard input",
		Long: `Analyze identifies the language of the input, extracts its structure,
annotates it and explains it. The result is written to standard output.

Without a file argument the code is read from standard input; --filename then
supplies the name used as a language hint.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat := codelens.OutputFormat(format)
			if outFormat != codelens.OutputFormatJSON && outFormat != codelens.OutputFormatYAML {
				return fmt.Errorf("%w: invalid value '%s' for --format. Must be 'json' or 'yaml'", codelens.ErrConfigValidation, format)
			}
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var code []byte
			if len(args) == 1 {
				code, err = os.ReadFile(args[0])
				if filename == "" {
					filename = filepath.Base(args[0])
				}
			} else {
				code, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			req := codelens.AnalysisRequest{Code: string(code), Filename: filename}
			return cli.Analyze(cmd.Context(), cfg, req, outFormat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&format, "format", string(codelens.OutputFormatJSON), `Result format ("json", "yaml")`)
	cmd.Flags().StringVar(&filename, "filename", "", "File name used as a language hint (default: the file argument's name)")
	config.AddAnalyzerFlags(cmd.Flags())
	return cmd
}
