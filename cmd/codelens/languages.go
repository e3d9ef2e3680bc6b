package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackvity/codelens/pkg/codelens/registry"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the supported languages and their file extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, p := range registry.All() {
				if _, err := fmt.Fprintf(w, "%-12s %s\n", p.ID, strings.Join(p.Extensions, " ")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
