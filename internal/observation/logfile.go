package observation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"
)

// LogToFile appends one CSV row per observation to path, creating the file
// and its directory when missing.
func LogToFile(path string, at time.Time, obs []Observation) error {
	if len(obs) == 0 {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open scan log: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	for i := range obs {
		o := &obs[i]
		ts := o.SeenAt
		if ts.IsZero() {
			ts = at
		}
		record := []string{
			ts.UTC().Format(time.RFC3339),
			o.BSSID,
			o.SSID,
			strconv.Itoa(o.RSSI),
			strconv.Itoa(o.Channel),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write scan log: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteTable prints observations as an aligned table.
func WriteTable(out io.Writer, obs []Observation) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BSSID\tSSID\tCH\tRSSI")
	for i := range obs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", obs[i].BSSID, obs[i].SSID, obs[i].Channel, obs[i].RSSI)
	}
	return tw.Flush()
}
