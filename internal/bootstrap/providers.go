package bootstrap

import (
	"context"
	"fmt"
	"log"

	"rag-chat-be/internal/config"
	"rag-chat-be/internal/repository/implementation"
	"rag-chat-be/pkg/database"
	"rag-chat-be/pkg/embedding"
	"rag-chat-be/pkg/embedding/jina"
	"rag-chat-be/pkg/vectorstore"
	"rag-chat-be/pkg/vectorstore/astra"
	"rag-chat-be/pkg/vectorstore/chromem"

	"github.com/redis/go-redis/v9"
)

func newEmbeddingProvider(cfg *config.Config, c *Container) embedding.EmbeddingProvider {
	var provider embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	case "jina":
		provider = jina.NewJinaProvider(cfg.Keys.Jina)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	default:
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	switch cfg.Ai.EmbeddingCache {
	case "none":
		return provider
	case "redis":
		rdb := newRedisClient(cfg.App.RedisURL)
		if rdb == nil {
			log.Printf("[WARN] Redis unavailable, falling back to in-memory embedding cache")
			return embedding.NewCachedProvider(provider, embedding.NewMemoryCache())
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		return embedding.NewCachedProvider(provider, embedding.NewRedisCache(rdb))
	default:
		return embedding.NewCachedProvider(provider, embedding.NewMemoryCache())
	}
}

func newRedisClient(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func newVectorStore(cfg *config.Config, c *Container) (vectorstore.Store, error) {
	switch cfg.VectorStore.Provider {
	case "pgvector":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		c.closers = append(c.closers, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
		return implementation.NewDocumentRepository(db), nil
	case "chromem":
		return chromem.NewStore(cfg.VectorStore.ChromemPath, cfg.VectorStore.ChromemName)
	case "", "astra":
		return astra.NewStore(astra.Config{
			Endpoint:   cfg.VectorStore.AstraEndpoint,
			Token:      cfg.Keys.AstraToken,
			Keyspace:   cfg.VectorStore.AstraKeyspace,
			Collection: cfg.VectorStore.AstraCollection,
		})
	default:
		return nil, fmt.Errorf("unknown vector store provider %q", cfg.VectorStore.Provider)
	}
}
