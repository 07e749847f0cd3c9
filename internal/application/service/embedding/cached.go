package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
	"github.com/agentmemz/agentmemz/internal/utils"
)

type cachedClient struct {
	upstream interfaces.EmbeddingClient
	cache    interfaces.Cache
	ttl      time.Duration
	dim      int
	group    singleflight.Group
}

// NewCachedClient wraps an embedding client with a cache keyed by the md5
// of the input text. Concurrent requests for the same text collapse into a
// single upstream call. When dim is positive, upstream vectors of any other
// length are rejected so a misconfigured model cannot poison an index whose
// columns were created with a different width.
func NewCachedClient(upstream interfaces.EmbeddingClient, cache interfaces.Cache, ttl time.Duration, dim int) interfaces.EmbeddingClient {
	return &cachedClient{upstream: upstream, cache: cache, ttl: ttl, dim: dim}
}

func (c *cachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	key := utils.EmbeddingCacheKey(text)

	if data, ok := c.cache.Get(ctx, key); ok {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 &&
			(c.dim == 0 || len(vec) == c.dim) {
			return vec, nil
		}
		logger.Warnf(ctx, "discarding corrupt embedding cache entry %s", key)
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		vec, err := c.upstream.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if c.dim > 0 && len(vec) != c.dim {
			return nil, errs.Embedding("embed",
				fmt.Errorf("model returned %d dimensions, index expects %d", len(vec), c.dim))
		}
		if data, err := json.Marshal(vec); err == nil {
			c.cache.Set(ctx, key, data, c.ttl)
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}
