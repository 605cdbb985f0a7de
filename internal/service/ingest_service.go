package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/pkg/embedding"
	"rag-chat-be/pkg/retry"
	"rag-chat-be/pkg/upstream"
	"rag-chat-be/pkg/utils"
	"rag-chat-be/pkg/vectorstore"
)

const ingestModule = "IngestService"

// sourceDeleter is implemented by stores that can replace a source in place.
type sourceDeleter interface {
	DeleteBySource(ctx context.Context, source string) error
}

type IIngestService interface {
	// Enqueue validates the request and hands it to the ingestion queue.
	Enqueue(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)
	// Ingest splits, embeds and stores one document. It returns the number
	// of chunks written.
	Ingest(ctx context.Context, msg *dto.PublishIngestDocumentMessage) (int, error)
}

type ingestService struct {
	publisher         IPublisherService
	embeddingProvider embedding.EmbeddingProvider
	store             vectorstore.Store
	logger            logger.ILogger
	chunkSize         int
	chunkOverlap      int
	policy            retry.Policy
}

func NewIngestService(
	publisher IPublisherService,
	embeddingProvider embedding.EmbeddingProvider,
	store vectorstore.Store,
	log logger.ILogger,
	chunkSize int,
	chunkOverlap int,
) IIngestService {
	return &ingestService{
		publisher:         publisher,
		embeddingProvider: embeddingProvider,
		store:             store,
		logger:            log,
		chunkSize:         chunkSize,
		chunkOverlap:      chunkOverlap,
		policy:            retry.DefaultPolicy(upstream.IsTransient),
	}
}

func (s *ingestService) Enqueue(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	payload, err := json.Marshal(dto.PublishIngestDocumentMessage{
		Source:   req.Source,
		Text:     req.Text,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, payload); err != nil {
		return nil, fmt.Errorf("queue document: %w", err)
	}

	return &dto.IngestDocumentResponse{
		Source: req.Source,
		Queued: true,
	}, nil
}

func (s *ingestService) Ingest(ctx context.Context, msg *dto.PublishIngestDocumentMessage) (int, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return 0, nil
	}

	chunks := utils.SplitText(text, s.chunkSize, s.chunkOverlap)
	docs := make([]vectorstore.Document, 0, len(chunks))

	for i, chunk := range chunks {
		res, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*embedding.EmbeddingResponse, error) {
			return s.embeddingProvider.Generate(ctx, chunk, embedding.TaskRetrievalDocument)
		})
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d of %s: %w", i, msg.Source, err)
		}

		metadata := make(map[string]interface{}, len(msg.Metadata)+1)
		for k, v := range msg.Metadata {
			metadata[k] = v
		}
		metadata["chunk_index"] = i

		docs = append(docs, vectorstore.Document{
			Text:      chunk,
			Source:    msg.Source,
			Embedding: res.Embedding.Values,
			Metadata:  metadata,
		})
	}

	if deleter, ok := s.store.(sourceDeleter); ok && msg.Source != "" {
		if err := deleter.DeleteBySource(ctx, msg.Source); err != nil {
			return 0, fmt.Errorf("delete old chunks of %s: %w", msg.Source, err)
		}
	}

	if err := s.store.Insert(ctx, docs); err != nil {
		return 0, fmt.Errorf("insert chunks of %s: %w", msg.Source, err)
	}

	s.logger.Info(ingestModule, "Document ingested", map[string]interface{}{
		"source": msg.Source,
		"chunks": len(docs),
		"at":     time.Now().Format(time.RFC3339),
	})
	return len(docs), nil
}
