package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T, opts ...MemoryOption) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache(opts...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	mc := newMemory(t)

	buf := []byte("chart")
	require.NoError(t, mc.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'X'

	got, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "chart", string(got))

	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "k"))
	_, err = mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := newMemory(t)

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	ok, _ := mc.Exists(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := newMemory(t, WithMemoryMaxSize(2))

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", []byte("2"), time.Minute))
	time.Sleep(time.Millisecond)
	_, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	require.NoError(t, mc.Set(ctx, "c", []byte("3"), time.Minute))

	assert.Equal(t, 2, mc.Len())
	_, err = mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = mc.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestJSONHelpers(t *testing.T) {
	type manifest struct {
		ID   string   `json:"id"`
		Keys []string `json:"keys"`
	}
	ctx := context.Background()
	mc := newMemory(t)

	require.NoError(t, SetJSON(ctx, mc, "m", manifest{ID: "r1", Keys: []string{"a"}}, time.Minute))

	got, err := GetJSON[manifest](ctx, mc, "m")
	require.NoError(t, err)
	assert.Equal(t, manifest{ID: "r1", Keys: []string{"a"}}, got)

	_, err = GetJSON[manifest](ctx, mc, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "manifest:r1", Key("manifest", "r1"))
	assert.Equal(t, "page:r1::3", Key("page", "r1", "", 3))
	assert.Equal(t, "artifact:r1:bar:cost", Key("artifact", "r1", "bar", "cost"))
}
