package registry

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proxnode/internal/observation"
	"github.com/tphakala/proxnode/internal/ranging"
	"github.com/tphakala/proxnode/internal/timeutil"
)

var epoch = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

const staleAfter = 30 * time.Second

func newTestRegistry(t *testing.T, capacity int, blocklist ...string) (*Registry, *timeutil.MockClock) {
	t.Helper()

	table, err := ranging.NewTable([]ranging.Entry{{Channel: 6, N: 2.3, A: -45}}, ranging.Entry{})
	require.NoError(t, err)

	clock := timeutil.NewMockClock(epoch)
	reg := New(Config{Capacity: capacity, Blocklist: blocklist}, ranging.NewEstimator(table, ranging.EstimatorConfig{}), clock)
	return reg, clock
}

func obs(bssid string, rssi, channel int) observation.Observation {
	return observation.Observation{BSSID: bssid, SSID: "net-" + bssid[len(bssid)-2:], RSSI: rssi, Channel: channel}
}

func bssid(i int) string {
	return fmt.Sprintf("02:00:00:00:00:%02X", i)
}

func TestUpsertCreatesRecordWithDistance(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, 10)

	res := reg.Upsert(observation.Observation{BSSID: "x1", SSID: "lab", RSSI: -60, Channel: 6})
	require.Equal(t, Created, res)

	dev, ok := reg.Get("X1")
	require.True(t, ok)
	assert.InDelta(t, 4.49, dev.Distance, 0.01)
	assert.InDelta(t, -60.0, dev.Smoothed, 1e-12)
	assert.Equal(t, 1, dev.Samples)
	assert.True(t, dev.Active)
	assert.Equal(t, epoch, dev.FirstSeen)
	assert.Equal(t, 1, reg.CountActive())
	assert.Len(t, reg.records, 1)
	assert.NotNil(t, reg.records["X1"].filter)
}

func TestRepeatedObservationsUpdateNeverDuplicate(t *testing.T) {
	t.Parallel()

	reg, clock := newTestRegistry(t, 10)

	require.Equal(t, Created, reg.Upsert(obs(bssid(1), -60, 6)))
	for i := range 5 {
		clock.Advance(2 * time.Second)
		require.Equal(t, Updated, reg.Upsert(obs(bssid(1), -62-i, 6)))
	}

	dev, ok := reg.Get(bssid(1))
	require.True(t, ok)
	assert.Equal(t, 1, reg.CountActive())
	assert.Equal(t, 6, dev.Samples)
	assert.Equal(t, -66, dev.RSSI)
	assert.Equal(t, epoch, dev.FirstSeen)
	assert.Equal(t, epoch.Add(10*time.Second), dev.LastSeen)
	assert.Less(t, dev.Smoothed, -60.0)
	assert.Greater(t, dev.Smoothed, -66.0)
}

func TestUpsertRejectsInvalidAndBlocked(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, 10, "aa-bb-cc-dd-ee-ff")

	assert.Equal(t, RejectedInvalid, reg.Upsert(observation.Observation{BSSID: "  ", RSSI: -50, Channel: 1}))
	assert.Equal(t, RejectedInvalid, reg.Upsert(observation.Observation{BSSID: bssid(1), RSSI: 0, Channel: 1}))
	assert.Equal(t, RejectedInvalid, reg.Upsert(observation.Observation{BSSID: bssid(1), RSSI: -200, Channel: 1}))
	assert.Equal(t, RejectedBlocked, reg.Upsert(observation.Observation{BSSID: "AA:BB:CC:DD:EE:FF", RSSI: -30, Channel: 1}))
	assert.True(t, reg.IsBlocked("aa:bb:cc:dd:ee:ff"))
	assert.Zero(t, reg.CountActive())
}

func TestCapacityIsNeverExceeded(t *testing.T) {
	t.Parallel()

	reg, clock := newTestRegistry(t, 10)
	for i := range 10 {
		require.Equal(t, Created, reg.Upsert(obs(bssid(i), -50-i, 6)))
	}
	before := reg.Snapshot()

	clock.Advance(time.Second)
	assert.Equal(t, RejectedFull, reg.Upsert(obs(bssid(10), -40, 6)))
	assert.Equal(t, 10, reg.CountActive())
	assert.Empty(t, cmp.Diff(before, reg.Snapshot()), "existing records must be untouched")

	_, ok := reg.Get(bssid(10))
	assert.False(t, ok)

	// known identifiers still update at capacity
	assert.Equal(t, Updated, reg.Upsert(obs(bssid(3), -55, 6)))
	assert.Equal(t, 10, reg.CountActive())
}

func TestEvictStaleBoundary(t *testing.T) {
	t.Parallel()

	reg, clock := newTestRegistry(t, 10)
	reg.Upsert(obs(bssid(1), -60, 6))
	seen := clock.Now()

	assert.Zero(t, reg.EvictStale(seen.Add(staleAfter), staleAfter), "exactly T_stale is not stale")
	assert.Equal(t, 1, reg.CountActive())

	assert.Equal(t, 1, reg.EvictStale(seen.Add(staleAfter+time.Millisecond), staleAfter))
	assert.Zero(t, reg.CountActive())
	assert.Empty(t, reg.records, "filter state must go with the record")
}

func TestEvictStaleOnlyRemovesStale(t *testing.T) {
	t.Parallel()

	reg, clock := newTestRegistry(t, 10)
	reg.Upsert(obs(bssid(1), -60, 6))
	clock.Advance(20 * time.Second)
	reg.Upsert(obs(bssid(2), -60, 6))
	clock.Advance(15 * time.Second)

	assert.Equal(t, 1, reg.EvictStale(clock.Now(), staleAfter))
	_, ok := reg.Get(bssid(2))
	assert.True(t, ok)
	_, ok = reg.Get(bssid(1))
	assert.False(t, ok)
}

func TestReappearanceAfterEvictionIsFresh(t *testing.T) {
	t.Parallel()

	reg, clock := newTestRegistry(t, 10)
	for _, rssi := range []int{-60, -70, -80} {
		reg.Upsert(obs(bssid(1), rssi, 6))
		clock.Advance(time.Second)
	}
	old, _ := reg.Get(bssid(1))
	require.Equal(t, 3, old.Samples)

	clock.Advance(staleAfter + time.Second)
	require.Equal(t, 1, reg.EvictStale(clock.Now(), staleAfter))

	require.Equal(t, Created, reg.Upsert(obs(bssid(1), -50, 6)))
	dev, _ := reg.Get(bssid(1))
	assert.Equal(t, 1, dev.Samples)
	assert.InDelta(t, -50.0, dev.Smoothed, 1e-12, "fresh filter starts from the first sample")
	assert.Equal(t, clock.Now(), dev.FirstSeen)
}

func TestEvictionFreesCapacity(t *testing.T) {
	t.Parallel()

	reg, clock := newTestRegistry(t, 2)
	reg.Upsert(obs(bssid(1), -60, 6))
	reg.Upsert(obs(bssid(2), -60, 6))
	assert.Equal(t, RejectedFull, reg.Upsert(obs(bssid(3), -60, 6)))

	clock.Advance(staleAfter + time.Second)
	reg.EvictStale(clock.Now(), staleAfter)
	assert.Equal(t, Created, reg.Upsert(obs(bssid(3), -60, 6)))
}

func TestLabelRevealHappensOnce(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, 10)
	id := bssid(7)

	require.Equal(t, Created, reg.Upsert(observation.Observation{BSSID: id, RSSI: -60, Channel: 6}))
	dev, _ := reg.Get(id)
	assert.True(t, dev.Hidden)
	assert.Equal(t, observation.HiddenLabel, dev.SSID)

	reg.Upsert(observation.Observation{BSSID: id, SSID: "warehouse", RSSI: -61, Channel: 6})
	dev, _ = reg.Get(id)
	assert.False(t, dev.Hidden)
	assert.Equal(t, "warehouse", dev.SSID)

	// concrete never goes back to hidden
	reg.Upsert(observation.Observation{BSSID: id, RSSI: -61, Channel: 6})
	dev, _ = reg.Get(id)
	assert.False(t, dev.Hidden)
	assert.Equal(t, "warehouse", dev.SSID)

	// and the revealed label is not replaced again
	reg.Upsert(observation.Observation{BSSID: id, SSID: "other", RSSI: -61, Channel: 6})
	dev, _ = reg.Get(id)
	assert.Equal(t, "warehouse", dev.SSID)
}

func TestSnapshotOrderedAndReadOnly(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, 10)
	reg.Upsert(obs(bssid(1), -80, 6))
	reg.Upsert(obs(bssid(2), -50, 6))
	reg.Upsert(obs(bssid(3), -65, 6))

	snap := reg.Snapshot()
	require.Len(t, snap, 3)
	got := []string{snap[0].BSSID, snap[1].BSSID, snap[2].BSSID}
	assert.Equal(t, []string{bssid(2), bssid(3), bssid(1)}, got)

	snap[0].SSID = "mutated"
	snap[0].Samples = 99
	again := reg.Snapshot()
	assert.Empty(t, cmp.Diff(again, reg.Snapshot()))
	assert.NotEqual(t, "mutated", again[0].SSID)

	f := reg.records[bssid(2)].filter
	cov := f.Covariance()
	reg.Snapshot()
	assert.InDelta(t, cov, f.Covariance(), 1e-15, "snapshot must not touch filters")
}

func TestLateTimestampDoesNotMoveLastSeenBack(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, 10)
	o := obs(bssid(1), -60, 6)
	o.SeenAt = epoch.Add(10 * time.Second)
	reg.Upsert(o)

	o.SeenAt = epoch.Add(5 * time.Second)
	reg.Upsert(o)

	dev, _ := reg.Get(bssid(1))
	assert.Equal(t, epoch.Add(10*time.Second), dev.LastSeen)
	assert.Equal(t, 2, dev.Samples)
}

func TestResultStrings(t *testing.T) {
	t.Parallel()

	names := make([]string, 0, len(Results()))
	for _, r := range Results() {
		names = append(names, r.String())
	}
	assert.Empty(t, cmp.Diff([]string{"created", "updated", "rejected_blocked", "rejected_invalid", "rejected_full"}, names,
		cmpopts.EquateEmpty()))
	assert.Equal(t, "unknown", Result(42).String())
	assert.True(t, Updated.Accepted())
	assert.False(t, RejectedFull.Accepted())
}
