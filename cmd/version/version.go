// Package version prints build metadata.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/proxnode/internal/buildinfo"
)

// Command creates the version command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			build := buildinfo.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "proxnode %s (built %s)\n", build.Version(), build.BuildDate())
		},
	}
}
