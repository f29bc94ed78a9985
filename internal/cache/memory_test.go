package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemorySetGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestMemoryTTLExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, err := m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemoryDeleteByPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "daydetail:01.06.2025:x", "1", 0))
	require.NoError(t, m.Set(ctx, "daydetail:02.06.2025:x", "2", 0))
	require.NoError(t, m.Set(ctx, "month:2025-06:x", "3", 0))

	require.NoError(t, m.DeleteByPrefix(ctx, "daydetail:"))

	_, err := m.Get(ctx, "daydetail:01.06.2025:x")
	require.ErrorIs(t, err, ErrMiss)
	_, err = m.Get(ctx, "daydetail:02.06.2025:x")
	require.ErrorIs(t, err, ErrMiss)
	got, err := m.Get(ctx, "month:2025-06:x")
	require.NoError(t, err)
	require.Equal(t, "3", got)
}

func TestMemoryConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.Set(ctx, "shared", "v", 0)
				_, _ = m.Get(ctx, "shared")
			}
		}()
	}
	wg.Wait()

	got, err := m.Get(ctx, "shared")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}
