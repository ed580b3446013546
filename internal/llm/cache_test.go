package llm

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

type countingEmbedder struct {
	calls int
	vec   []float32
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

func setupMiniredis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestCachedEmbedder_LocalHit(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1, 2, 3}}
	c, err := NewCachedEmbedder(inner, nil, "test", 8, time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		vec, err := c.Embed(ctx, "sushi tonight")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3}, vec)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_SharedRedisTier(t *testing.T) {
	client, mr := setupMiniredis(t)
	ctx := context.Background()

	first := &countingEmbedder{vec: []float32{0.5, 0.25}}
	c1, err := NewCachedEmbedder(first, client, "test", 8, time.Hour)
	require.NoError(t, err)
	_, err = c1.Embed(ctx, "romantic italian")
	require.NoError(t, err)

	// A second process with a cold local tier reads through Redis.
	second := &countingEmbedder{vec: []float32{9, 9}}
	c2, err := NewCachedEmbedder(second, client, "test", 8, time.Hour)
	require.NoError(t, err)
	vec, err := c2.Embed(ctx, "romantic italian")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
	assert.Equal(t, 0, second.calls)

	mr.FastForward(2 * time.Hour)
	c3, err := NewCachedEmbedder(second, client, "test", 8, time.Hour)
	require.NoError(t, err)
	vec, err = c3.Embed(ctx, "romantic italian")
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9}, vec)
	assert.Equal(t, 1, second.calls)
}

func TestCachedEmbedder_RedisDownStillEmbeds(t *testing.T) {
	client, mr := setupMiniredis(t)
	mr.Close()

	inner := &countingEmbedder{vec: []float32{1}}
	c, err := NewCachedEmbedder(inner, client, "test", 8, time.Hour)
	require.NoError(t, err)

	vec, err := c.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("boom")}
	c, err := NewCachedEmbedder(inner, nil, "test", 8, time.Hour)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "x")
	assert.Error(t, err)
	_, err = c.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
