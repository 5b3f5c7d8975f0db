package rotation

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRotator(ids ...string) (*Rotator, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return New(ids, WithClock(clock)), clock
}

func TestRotator_EmptyRotationReturnsEmptyID(t *testing.T) {
	r := New(nil)

	assert.Equal(t, "", r.Next())
	assert.Empty(t, r.Snapshot())
}

func TestRotator_RoundRobin(t *testing.T) {
	r, clock := newTestRotator("a", "b", "c")

	assert.Equal(t, "a", r.Next())
	assert.Equal(t, "b", r.Next())
	assert.Equal(t, "c", r.Next())

	clock.Advance(2 * time.Second)
	assert.Equal(t, "a", r.Next())
}

func TestRotator_CooldownSkipsRecentlyUsed(t *testing.T) {
	r, clock := newTestRotator("a", "b")

	assert.Equal(t, "a", r.Next())
	// "a" was just used; within the 1s cooldown the scan moves on to "b".
	assert.Equal(t, "b", r.Next())

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, "a", r.Next())
}

func TestRotator_QuarantineAfterThreeFailures(t *testing.T) {
	r, clock := newTestRotator("a", "b")

	for i := 0; i < 3; i++ {
		r.RecordResult("a", false)
	}

	clock.Advance(2 * time.Second)
	for i := 0; i < 4; i++ {
		assert.Equal(t, "b", r.Next(), "quarantined provider must be skipped while an alternate exists")
		clock.Advance(2 * time.Second)
	}

	stats := r.Snapshot()
	require.Equal(t, "a", stats[0].ID)
	assert.False(t, stats[0].Available)
}

func TestRotator_NeverRefuses(t *testing.T) {
	r, _ := newTestRotator("a", "b")

	for i := 0; i < 3; i++ {
		r.RecordResult("a", false)
	}
	for i := 0; i < 4; i++ {
		r.RecordResult("b", false)
	}

	// Both quarantined: still returns the least-broken one.
	assert.Equal(t, "a", r.Next())
}

func TestRotator_SuccessCreditRestoresAvailability(t *testing.T) {
	r, clock := newTestRotator("a", "b")

	for i := 0; i < 3; i++ {
		r.RecordResult("a", false)
	}
	require.False(t, r.Snapshot()[0].Available)

	// 3 errors / 0.5 credit per success = 6 successes to fully recover.
	for i := 0; i < 6; i++ {
		r.RecordResult("a", true)
	}

	stats := r.Snapshot()
	assert.True(t, stats[0].Available)
	assert.Zero(t, stats[0].RecentErrors)

	clock.Advance(2 * time.Second)
	assert.Equal(t, "a", r.Next())
}

func TestRotator_DecayTickRestoresEventually(t *testing.T) {
	r, clock := newTestRotator("a", "b")

	for i := 0; i < 3; i++ {
		r.RecordResult("a", false)
	}
	require.False(t, r.Snapshot()[0].Available)

	r.Decay()
	r.Decay()
	r.Decay()

	stats := r.Snapshot()
	assert.True(t, stats[0].Available)
	assert.Zero(t, stats[0].RecentErrors)

	clock.Advance(2 * time.Second)
	assert.Equal(t, "a", r.Next())
}

func TestRotator_PartialDecayDoesNotRestore(t *testing.T) {
	r, _ := newTestRotator("a", "b")

	for i := 0; i < 3; i++ {
		r.RecordResult("a", false)
	}

	r.Decay()
	stats := r.Snapshot()
	assert.Equal(t, float64(2), stats[0].RecentErrors)
	assert.False(t, stats[0].Available, "availability returns only once errors reach zero")
}

func TestRotator_SnapshotTracksRequests(t *testing.T) {
	r, clock := newTestRotator("a")

	r.Next()
	clock.Advance(2 * time.Second)
	r.Next()

	stats := r.Snapshot()
	assert.Equal(t, 2, stats[0].Requests)
	assert.False(t, stats[0].LastUsed.IsZero())
}
