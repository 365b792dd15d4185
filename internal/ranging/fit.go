package ranging

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Sample is one reference measurement taken at a known distance.
type Sample struct {
	Distance float64 // metres
	RSSI     float64 // dBm
	Channel  int     // 0 when not recorded
}

// FitResult is a fitted calibration entry and its goodness of fit.
type FitResult struct {
	Entry
	RSquared float64
	Samples  int
}

// Fit estimates A and N of rssi = A - 10·N·log10(d) by least squares.
// At least two samples at two distinct positive distances are required.
func Fit(samples []Sample) (FitResult, error) {
	xs := make([]float64, 0, len(samples))
	ys := make([]float64, 0, len(samples))
	distinct := make(map[float64]struct{})

	for i, s := range samples {
		if s.Distance <= 0 || !finite(s.Distance) || !finite(s.RSSI) {
			return FitResult{}, fmt.Errorf("sample %d: distance must be positive and values finite", i)
		}
		xs = append(xs, math.Log10(s.Distance))
		ys = append(ys, s.RSSI)
		distinct[s.Distance] = struct{}{}
	}
	if len(xs) < 2 || len(distinct) < 2 {
		return FitResult{}, fmt.Errorf("need samples at two or more distinct distances, got %d samples at %d distances", len(xs), len(distinct))
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	n := -beta / 10
	if n <= 0 {
		return FitResult{}, fmt.Errorf("fitted path-loss exponent %.3f is not positive; signal does not weaken with distance", n)
	}

	return FitResult{
		Entry:    Entry{N: n, A: alpha},
		RSquared: stat.RSquared(xs, ys, nil, alpha, beta),
		Samples:  len(xs),
	}, nil
}

// ReadSamples parses "distance,rssi[,channel]" CSV rows. A first row whose
// distance and rssi fields are both non-numeric is taken as a header. Blank lines and lines
// starting with '#' are skipped.
func ReadSamples(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var samples []Sample
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}

		if line == 1 && isHeader(rec) {
			continue
		}
		s, err := parseSample(rec)
		if err != nil {
			row, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", row, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func isHeader(rec []string) bool {
	if len(rec) < 2 {
		return false
	}
	for _, field := range rec[:2] {
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err == nil {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func parseSample(rec []string) (Sample, error) {
	if len(rec) < 2 || len(rec) > 3 {
		return Sample{}, fmt.Errorf("want 2 or 3 fields, got %d", len(rec))
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("distance: %w", err)
	}
	rssi, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("rssi: %w", err)
	}
	if !finite(d) || !finite(rssi) {
		return Sample{}, fmt.Errorf("values must be finite, got %q,%q", rec[0], rec[1])
	}
	s := Sample{Distance: d, RSSI: rssi}
	if len(rec) == 3 && strings.TrimSpace(rec[2]) != "" {
		if s.Channel, err = strconv.Atoi(strings.TrimSpace(rec[2])); err != nil {
			return Sample{}, fmt.Errorf("channel: %w", err)
		}
	}
	return s, nil
}

// FitByChannel fits one entry per channel present in samples. Samples
// without a channel are fitted together under channel 0.
func FitByChannel(samples []Sample) ([]FitResult, error) {
	groups := make(map[int][]Sample)
	for _, s := range samples {
		groups[s.Channel] = append(groups[s.Channel], s)
	}

	channels := make([]int, 0, len(groups))
	for ch := range groups {
		channels = append(channels, ch)
	}
	slices.Sort(channels)

	results := make([]FitResult, 0, len(channels))
	for _, ch := range channels {
		res, err := Fit(groups[ch])
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		res.Channel = ch
		results = append(results, res)
	}
	return results, nil
}
