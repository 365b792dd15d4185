// Package calibrate fits path-loss parameters from measured samples.
package calibrate

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/proxnode/internal/ranging"
)

// Command creates the calibrate command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate [samples.csv]",
		Short: "Fit calibration entries from distance,rssi[,channel] samples",
		Long: `Fit the path-loss exponent and 1 m reference power from measured samples.

Each CSV row is distance in metres, RSSI in dBm and optionally the channel.
Use "-" to read from stdin. The output is a ranging section that can be
pasted into the config file; samples without a channel become the default
entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return run(in, cmd.OutOrStdout())
		},
	}
}

type rangingSection struct {
	Default     *ranging.Entry  `yaml:"default,omitempty"`
	Calibration []ranging.Entry `yaml:"calibration,omitempty"`
}

func run(in io.Reader, out io.Writer) error {
	samples, err := ranging.ReadSamples(in)
	if err != nil {
		return err
	}
	results, err := ranging.FitByChannel(samples)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "# CH\tN\tA\tR2\tSAMPLES")
	var section rangingSection
	for _, r := range results {
		ch := fmt.Sprint(r.Channel)
		if r.Channel == 0 {
			ch = "default"
			entry := r.Entry
			section.Default = &entry
		} else {
			section.Calibration = append(section.Calibration, r.Entry)
		}
		fmt.Fprintf(tw, "# %s\t%.3f\t%.2f\t%.4f\t%d\n", ch, r.N, r.A, r.RSquared, r.Samples)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]rangingSection{"ranging": section}); err != nil {
		return fmt.Errorf("error encoding calibration: %w", err)
	}
	return enc.Close()
}
