package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/forkful/recommender/internal/metrics"
)

// CachedEmbedder memoizes embeddings in a process-local LRU backed by a
// shared Redis tier. Redis failures degrade to calling the wrapped Embedder.
type CachedEmbedder struct {
	next      Embedder
	local     *lru.Cache[string, []float32]
	rdb       redis.Cmdable
	ttl       time.Duration
	namespace string
}

// NewCachedEmbedder creates a cache in front of next. rdb may be nil to run
// with the local tier only.
func NewCachedEmbedder(next Embedder, rdb redis.Cmdable, namespace string, size int, ttl time.Duration) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 1024
	}
	local, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("creating embedding lru: %w", err)
	}
	return &CachedEmbedder{
		next:      next,
		local:     local,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s", c.namespace, hex.EncodeToString(sum[:]))
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	if vec, ok := c.local.Get(key); ok {
		metrics.EmbeddingCacheLookups.WithLabelValues("local").Inc()
		return vec, nil
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var vec []float32
			if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
				metrics.EmbeddingCacheLookups.WithLabelValues("redis").Inc()
				c.local.Add(key, vec)
				return vec, nil
			}
			slog.Warn("embedding cache: discarding malformed entry", "key", key)
		case !errors.Is(err, redis.Nil):
			slog.Warn("embedding cache: redis get failed", "error", err)
		}
	}

	metrics.EmbeddingCacheLookups.WithLabelValues("miss").Inc()
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.local.Add(key, vec)
	if c.rdb != nil {
		if data, err := json.Marshal(vec); err == nil {
			if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
				slog.Warn("embedding cache: redis set failed", "error", err)
			}
		}
	}
	return vec, nil
}
