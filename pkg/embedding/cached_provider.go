package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// CachedProvider memoises embeddings of identical (taskType, text) pairs.
// Cache errors are ignored and the wrapped provider is called instead.
type CachedProvider struct {
	next  EmbeddingProvider
	cache Cache
}

func NewCachedProvider(next EmbeddingProvider, c Cache) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: c,
	}
}

func cacheKey(text string, taskType string) string {
	sum := sha256.Sum256([]byte(text))
	return taskType + ":" + hex.EncodeToString(sum[:])
}

func (p *CachedProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	key := cacheKey(text, taskType)
	if values, found, err := p.cache.Get(ctx, key); err == nil && found {
		return &EmbeddingResponse{
			Embedding: EmbeddingResponseEmbedding{Values: values},
		}, nil
	}

	res, err := p.next.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}

	_ = p.cache.Set(ctx, key, res.Embedding.Values)
	return res, nil
}
