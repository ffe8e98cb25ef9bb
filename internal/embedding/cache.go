package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/povarna/generative-ai-agents/med-agent/internal/metrics"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "med_agent:emb_cache:"

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Store is the key/value capability the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder serves repeated query embeddings from a Store.
// Store failures are logged and bypassed.
type CachedEmbedder struct {
	inner  Embedder
	store  Store
	model  string
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewCachedEmbedder(inner Embedder, store Store, model string, ttl time.Duration, logger *zerolog.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		store:  store,
		model:  model,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := CacheKey(c.model, text)

	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("embedding cache read failed")
	}

	if found {
		var vector []float64
		if err := json.Unmarshal(data, &vector); err == nil && len(vector) > 0 {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			return vector, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding corrupt cached embedding")
	}

	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(vector)
	if err == nil {
		if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("embedding cache write failed")
		}
	}

	return vector, nil
}

// CacheKey derives a stable cache key from model and text.
func CacheKey(model string, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
