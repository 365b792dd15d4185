package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRealClockAfterFires(t *testing.T) {
	t.Parallel()

	clock := RealClock{}
	select {
	case <-clock.After(5 * time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After did not fire")
	}
	assert.GreaterOrEqual(t, clock.Since(time.Now().Add(-time.Second)), time.Second)
}

func TestMockClockAdvance(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(epoch)
	clock.Advance(1500 * time.Millisecond)

	assert.Equal(t, epoch.Add(1500*time.Millisecond), clock.Now())
	assert.Equal(t, 1500*time.Millisecond, clock.Since(epoch))
}

func TestMockClockAfterFiresAtDeadline(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(epoch)
	ch := clock.After(2 * time.Second)
	require.Equal(t, 1, clock.Waiters())

	clock.Advance(time.Second)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	clock.Advance(time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, epoch.Add(2*time.Second), got)
	default:
		t.Fatal("did not fire at deadline")
	}
	assert.Zero(t, clock.Waiters())
}

func TestMockClockAfterNonPositive(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(epoch)
	select {
	case <-clock.After(0):
	default:
		t.Fatal("zero duration must fire immediately")
	}
	assert.Zero(t, clock.Waiters())
}

func TestMockClockBlockUntil(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(epoch)
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-clock.After(time.Second)
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
}

func TestMockClockSetBackwards(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(epoch)
	ch := clock.After(time.Second)
	clock.Set(epoch.Add(-time.Hour))

	select {
	case <-ch:
		t.Fatal("moving backwards must not fire")
	default:
	}
	assert.Equal(t, epoch.Add(-time.Hour), clock.Now())
}
