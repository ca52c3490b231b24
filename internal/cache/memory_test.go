package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock - управляемое время для проверки TTL.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemoryStore()

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []byte("v1"), time.Minute))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), got)

	// перезапись
	require.NoError(t, m.Set(ctx, "k", []byte("v2"), time.Minute))
	got, _, _ = m.Get(ctx, "k")
	require.Equal(t, []byte("v2"), got)

	removed, err := m.Delete(ctx, "k")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = m.Delete(ctx, "k")
	require.NoError(t, err)
	require.False(t, removed)

	_, ok, _ = m.Get(ctx, "k")
	require.False(t, ok)
}

func TestMemoryStore_ValueIsCopied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemoryStore()

	v := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", v, 0))
	v[0] = 'X'

	got, _, _ := m.Get(ctx, "k")
	require.Equal(t, []byte("abc"), got)

	got[1] = 'Y'
	again, _, _ := m.Get(ctx, "k")
	require.Equal(t, []byte("abc"), again)
}

func TestMemoryStore_TTLAndSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newFakeClock()
	m := NewMemoryStore().WithClock(clk.Now)

	require.NoError(t, m.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "long", []byte("1"), time.Hour))
	require.NoError(t, m.Set(ctx, "forever", []byte("1"), 0))

	clk.Advance(59 * time.Second)
	_, ok, _ := m.Get(ctx, "short")
	require.True(t, ok)

	clk.Advance(time.Second)
	_, ok, _ = m.Get(ctx, "short")
	require.False(t, ok, "entry must expire exactly at ttl")

	clk.Advance(2 * time.Hour)
	require.Equal(t, 2, m.Len())
	require.Equal(t, 1, m.Sweep())
	require.Equal(t, 1, m.Len())

	_, ok, _ = m.Get(ctx, "forever")
	require.True(t, ok)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.Set(ctx, "k", []byte("v"), time.Minute)
				_, _, _ = m.Get(ctx, "k")
				m.Sweep()
			}
		}()
	}
	wg.Wait()

	_, ok, _ := m.Get(ctx, "k")
	require.True(t, ok)
}
