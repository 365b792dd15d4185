package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proxnode/internal/registry"
)

var cycleTime = time.Date(2026, 3, 4, 10, 15, 0, 0, time.UTC)

func sampleDevices() []registry.Device {
	return []registry.Device{
		{
			BSSID: "AA:BB:CC:DD:EE:01", SSID: "lab", RSSI: -61, Smoothed: -60.04,
			Distance: 4.4873, Channel: 6, Samples: 12,
			LastSeen: cycleTime.Add(-time.Second), Active: true,
		},
		{
			BSSID: "AA:BB:CC:DD:EE:02", SSID: "<hidden>", Hidden: true, RSSI: -80, Smoothed: -79.96,
			Distance: 20, Channel: 40, Samples: 1,
			LastSeen: cycleTime, Active: true,
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	r := Build("anchor-1", 7, cycleTime, sampleDevices())

	want := &Report{
		AnchorID:  "anchor-1",
		Timestamp: "2026-03-04T10:15:00Z",
		Sequence:  7,
		Measurements: []Measurement{
			{MAC: "AA:BB:CC:DD:EE:01", SSID: "lab", RSSI: -61, SmoothedRSSI: -60, Distance: 4.49, Channel: 6, Samples: 12, Timestamp: "2026-03-04T10:14:59Z"},
			{MAC: "AA:BB:CC:DD:EE:02", SSID: "<hidden>", Hidden: true, RSSI: -80, SmoothedRSSI: -80, Distance: 20, Channel: 40, Samples: 1, Timestamp: "2026-03-04T10:15:00Z"},
		},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptySnapshotEncodesEmptyArray(t *testing.T) {
	t.Parallel()

	data, err := JSONEncoder{}.Encode(Build("anchor-1", 1, cycleTime, nil))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{}, raw["measurements"])
}

func TestJSONFieldNames(t *testing.T) {
	t.Parallel()

	data, err := JSONEncoder{}.Encode(Build("anchor-1", 1, cycleTime, sampleDevices()[:1]))
	require.NoError(t, err)

	var raw struct {
		Measurements []map[string]any `json:"measurements"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.Measurements, 1)
	for _, key := range []string{"mac", "ssid", "hidden", "rssi", "smoothed_rssi", "distance", "channel", "samples", "timestamp"} {
		assert.Contains(t, raw.Measurements[0], key)
	}
}

func TestEncodersDecode(t *testing.T) {
	t.Parallel()

	want := Build("anchor-1", 3, cycleTime, sampleDevices())
	for _, format := range []string{FormatJSON, FormatCBOR} {
		t.Run(format, func(t *testing.T) {
			t.Parallel()
			enc, err := NewEncoder(format)
			require.NoError(t, err)

			data, err := enc.Encode(want)
			require.NoError(t, err)
			got, err := Decode(enc.ContentType(), data)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("decoded mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCBORIsDeterministicAndSmaller(t *testing.T) {
	t.Parallel()

	r := Build("anchor-1", 3, cycleTime, sampleDevices())
	enc, err := NewCBOREncoder()
	require.NoError(t, err)

	a, err := enc.Encode(r)
	require.NoError(t, err)
	b, err := enc.Encode(r)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	js, err := JSONEncoder{}.Encode(r)
	require.NoError(t, err)
	assert.Less(t, len(a), len(js))
}

func TestNewEncoderRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := NewEncoder("xml")
	require.Error(t, err)

	_, err = Decode("text/plain", []byte("x"))
	require.Error(t, err)
}
