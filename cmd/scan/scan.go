// Package scan implements a one-shot scan command for checking the radio.
package scan

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/proxnode/internal/conf"
	"github.com/tphakala/proxnode/internal/observation"
	"github.com/tphakala/proxnode/internal/scanner"
)

// Command creates the scan command.
func Command(settings *conf.Settings) *cobra.Command {
	var logPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan and print the visible transmitters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scanner.New(settings.ScannerConfig())
			if err != nil {
				return err
			}
			defer sc.Close()

			obs, err := sc.Scan(cmd.Context())
			if err != nil && len(obs) == 0 {
				return err
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "scan incomplete: %v\n", err)
			}

			if err := observation.WriteTable(cmd.OutOrStdout(), obs); err != nil {
				return err
			}
			if logPath != "" {
				if err := observation.LogToFile(logPath, time.Now(), obs); err != nil {
					return fmt.Errorf("error writing scan log: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "Append the results as CSV to this file")
	return cmd
}
