// Package report builds and encodes the periodic snapshot sent to the
// aggregator.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/registry"
)

// Report is the aggregator payload. Field names follow the aggregator's
// anchor_data contract.
type Report struct {
	AnchorID     string        `json:"anchor_id"`
	Timestamp    string        `json:"timestamp"`
	Sequence     uint64        `json:"sequence"`
	Measurements []Measurement `json:"measurements"`
}

// Measurement is one tracked device.
type Measurement struct {
	MAC          string  `json:"mac"`
	SSID         string  `json:"ssid"`
	Hidden       bool    `json:"hidden"`
	RSSI         int     `json:"rssi"`
	SmoothedRSSI float64 `json:"smoothed_rssi"`
	Distance     float64 `json:"distance"`
	Channel      int     `json:"channel"`
	Samples      int     `json:"samples"`
	Timestamp    string  `json:"timestamp"`
}

// Build converts a registry snapshot into a report, keeping its order.
func Build(anchorID string, seq uint64, at time.Time, devices []registry.Device) *Report {
	r := &Report{
		AnchorID:     anchorID,
		Timestamp:    at.UTC().Format(time.RFC3339),
		Sequence:     seq,
		Measurements: make([]Measurement, 0, len(devices)),
	}
	for _, d := range devices {
		r.Measurements = append(r.Measurements, Measurement{
			MAC:          d.BSSID,
			SSID:         d.SSID,
			Hidden:       d.Hidden,
			RSSI:         d.RSSI,
			SmoothedRSSI: round(d.Smoothed, 1),
			Distance:     round(d.Distance, 2),
			Channel:      d.Channel,
			Samples:      d.Samples,
			Timestamp:    d.LastSeen.UTC().Format(time.RFC3339),
		})
	}
	return r
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

const (
	FormatJSON = "json"
	FormatCBOR = "cbor"

	ContentTypeJSON = "application/json"
	ContentTypeCBOR = "application/cbor"
)

// Encoder serializes a report for the wire.
type Encoder interface {
	Encode(r *Report) ([]byte, error)
	ContentType() string
}

// NewEncoder returns the encoder for format ("json" or "cbor").
func NewEncoder(format string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		return JSONEncoder{}, nil
	case FormatCBOR:
		return NewCBOREncoder()
	default:
		return nil, errors.Newf("unknown report format %q", format).
			Component("report").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// JSONEncoder encodes reports as JSON.
type JSONEncoder struct{}

func (JSONEncoder) Encode(r *Report) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, encodeError(err, FormatJSON)
	}
	return data, nil
}

func (JSONEncoder) ContentType() string { return ContentTypeJSON }

// CBOREncoder encodes reports with deterministic core CBOR, which is
// considerably smaller than JSON on constrained links.
type CBOREncoder struct {
	mode cbor.EncMode
}

func NewCBOREncoder() (*CBOREncoder, error) {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder options: %w", err)
	}
	return &CBOREncoder{mode: mode}, nil
}

func (e *CBOREncoder) Encode(r *Report) ([]byte, error) {
	data, err := e.mode.Marshal(r)
	if err != nil {
		return nil, encodeError(err, FormatCBOR)
	}
	return data, nil
}

func (e *CBOREncoder) ContentType() string { return ContentTypeCBOR }

// Decode parses a payload produced by one of the encoders.
func Decode(contentType string, data []byte) (*Report, error) {
	var r Report
	var err error
	switch contentType {
	case ContentTypeJSON:
		err = json.Unmarshal(data, &r)
	case ContentTypeCBOR:
		err = cbor.Unmarshal(data, &r)
	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s report: %w", contentType, err)
	}
	return &r, nil
}

func encodeError(err error, format string) error {
	return errors.New(fmt.Errorf("encode report: %w", err)).
		Component("report").
		Category(errors.CategoryEncoding).
		Context("format", format).
		Build()
}
