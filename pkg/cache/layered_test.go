package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayeredCacheWritesThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, WithLayeredMemoryTTL(time.Minute))
	t.Cleanup(func() { _ = lc.Close() })

	require.NoError(t, lc.Set(ctx, "k", []byte("v"), time.Hour))

	got, err := remote.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	ok, err := lc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lc.Delete(ctx, "k"))
	_, err = lc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLayeredCacheFillsMemoryFromRemote(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	t.Cleanup(func() { _ = lc.Close() })

	require.NoError(t, remote.Set(ctx, "k", []byte("remote"), time.Hour))

	got, err := lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(got))

	require.NoError(t, remote.Delete(ctx, "k"))
	got, err = lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(got))
}

func TestLayeredCacheCapsMemoryTTL(t *testing.T) {
	lc := NewLayeredCache(NewMemoryCache(), WithLayeredMemoryTTL(time.Minute))
	t.Cleanup(func() { _ = lc.Close() })

	assert.Equal(t, time.Minute, lc.l1TTL(time.Hour))
	assert.Equal(t, time.Second, lc.l1TTL(time.Second))
	assert.Equal(t, time.Minute, lc.l1TTL(0))
}
