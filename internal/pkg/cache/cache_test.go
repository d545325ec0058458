package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newHelper(t *testing.T) (*Helper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHelper(client, "test:"), mr
}

func TestHelper_SetGet(t *testing.T) {
	h, mr := newHelper(t)
	ctx := context.Background()

	var got item
	assert.ErrorIs(t, h.Get(ctx, "a", &got), ErrCacheNotFound)

	require.NoError(t, h.Set(ctx, "a", item{Name: "x", Count: 2}, time.Minute))
	assert.True(t, mr.Exists("test:a"))

	require.NoError(t, h.Get(ctx, "a", &got))
	assert.Equal(t, item{Name: "x", Count: 2}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, h.Get(ctx, "a", &got), ErrCacheNotFound)
}

func TestHelper_Generation(t *testing.T) {
	h, mr := newHelper(t)
	ctx := context.Background()

	assert.Equal(t, int64(0), h.Generation(ctx, "gen"))
	require.NoError(t, h.Bump(ctx, "gen"))
	require.NoError(t, h.Bump(ctx, "gen"))
	assert.Equal(t, int64(2), h.Generation(ctx, "gen"))
	assert.True(t, mr.Exists("test:gen"))

	off := NewHelper(nil, "test:")
	assert.NoError(t, off.Bump(ctx, "gen"))
	assert.Equal(t, int64(0), off.Generation(ctx, "gen"))
}

func TestHelper_InvalidatePattern(t *testing.T) {
	h, mr := newHelper(t)
	ctx := context.Background()

	require.NoError(t, h.Set(ctx, "list:all", []int{1}, time.Minute))
	require.NoError(t, h.Set(ctx, "list:recent:3", []int{1}, time.Minute))
	require.NoError(t, h.Set(ctx, "id:1", item{}, time.Minute))

	require.NoError(t, h.InvalidatePattern(ctx, "list:*"))
	assert.False(t, mr.Exists("test:list:all"))
	assert.False(t, mr.Exists("test:list:recent:3"))
	assert.True(t, mr.Exists("test:id:1"))

	require.NoError(t, h.Delete(ctx, "id:1"))
	assert.False(t, mr.Exists("test:id:1"))
}

func TestHelper_GetOrLoad(t *testing.T) {
	h, _ := newHelper(t)
	ctx := context.Background()
	calls := 0
	load := func() (interface{}, error) {
		calls++
		return item{Name: "loaded", Count: calls}, nil
	}

	var first, second item
	require.NoError(t, h.GetOrLoad(ctx, "k", &first, time.Minute, load))
	require.NoError(t, h.GetOrLoad(ctx, "k", &second, time.Minute, load))
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	boom := errors.New("boom")
	var third item
	err := h.GetOrLoad(ctx, "other", &third, time.Minute, func() (interface{}, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestHelper_NilClientPassesThrough(t *testing.T) {
	h := NewHelper(nil, "x:")
	ctx := context.Background()
	assert.False(t, h.Available())

	var got item
	assert.ErrorIs(t, h.Get(ctx, "a", &got), ErrCacheNotAvailable)
	assert.NoError(t, h.Set(ctx, "a", item{}, time.Minute))
	assert.NoError(t, h.InvalidatePattern(ctx, "*"))

	calls := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, h.GetOrLoad(ctx, "a", &got, time.Minute, func() (interface{}, error) {
			calls++
			return item{Name: "n"}, nil
		}))
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, "n", got.Name)
}
