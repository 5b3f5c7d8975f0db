package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetThenGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestCache_GetMissing(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestCache_ExpiryAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(time.Minute, WithClock(clock))

	c.Set("k", "v")

	clock.Advance(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry should still be live just before expiry")

	clock.Advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should be evicted after expiry")
}

func TestCache_PerEntryTTLOverridesDefault(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(time.Minute, WithClock(clock))

	c.Set("short", "v", 5*time.Second)
	c.Set("long", "v")

	clock.Advance(10 * time.Second)
	assert.False(t, c.Has("short"))
	assert.True(t, c.Has("long"))
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_SweepRemovesExpiredWithoutReads(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(10*time.Second, WithClock(clock), WithSweepInterval(30*time.Second))

	c.Set("a", 1)
	c.Set("b", 2)
	require.Equal(t, 2, c.Len())

	c.sweep()
	assert.Equal(t, 2, c.Len(), "sweep must not touch live entries")

	clock.Advance(15 * time.Second)
	c.sweep()
	assert.Equal(t, 0, c.Len(), "sweep must drop expired entries without any Get")
}

func TestCache_TwoInstancesAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	short := New(10*time.Second, WithClock(clock))
	long := New(10*time.Minute, WithClock(clock))

	short.Set("k", "short-lived")
	long.Set("k", "long-lived")

	clock.Advance(time.Minute)
	assert.False(t, short.Has("k"))
	assert.True(t, long.Has("k"))
}
