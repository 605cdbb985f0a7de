package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/pkg/upstream"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

const (
	consumerModule  = "IngestConsumer"
	consumerHandler = "ingest_document"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// ConsumerConfig bounds redelivery of failed ingest messages. Messages that
// still fail after MaxRetries, or fail terminally, go to PoisonTopic.
type ConsumerConfig struct {
	Topic       string
	PoisonTopic string
	MaxRetries  int
	RetryDelay  time.Duration
}

type consumerService struct {
	subscriber    message.Subscriber
	poisonPub     message.Publisher
	cfg           ConsumerConfig
	ingestService IIngestService
	logger        logger.ILogger
	queueLogger   watermill.LoggerAdapter
}

func NewConsumerService(
	subscriber message.Subscriber,
	poisonPub message.Publisher,
	cfg ConsumerConfig,
	ingestService IIngestService,
	log logger.ILogger,
	queueLogger watermill.LoggerAdapter,
) IConsumerService {
	return &consumerService{
		subscriber:    subscriber,
		poisonPub:     poisonPub,
		cfg:           cfg,
		ingestService: ingestService,
		logger:        log,
		queueLogger:   queueLogger,
	}
}

// Consume starts the ingest router and returns once it is running. The
// router stops when ctx is done.
func (cs *consumerService) Consume(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{}, cs.queueLogger)
	if err != nil {
		return err
	}

	poison, err := middleware.PoisonQueue(cs.poisonPub, cs.cfg.PoisonTopic)
	if err != nil {
		return err
	}

	// Poison wraps Retry so it only sees the final error.
	router.AddMiddleware(
		poison,
		middleware.Retry{
			MaxRetries:      cs.cfg.MaxRetries,
			InitialInterval: cs.cfg.RetryDelay,
			MaxInterval:     cs.cfg.RetryDelay,
			Multiplier:      1,
			ShouldRetry: func(params middleware.RetryParams) bool {
				return shouldRetryIngest(params.Err)
			},
			OnRetryHook: func(retryNum int, delay time.Duration) {
				cs.logger.Warn(consumerModule, "Retrying document ingestion", map[string]interface{}{
					"retry": retryNum,
					"delay": delay.String(),
				})
			},
		}.Middleware,
	)

	router.AddNoPublisherHandler(consumerHandler, cs.cfg.Topic, cs.subscriber, cs.processMessage)

	go func() {
		if err := router.Run(ctx); err != nil {
			cs.logger.Error(consumerModule, "Ingest router stopped", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	select {
	case <-router.Running():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *consumerService) processMessage(msg *message.Message) error {
	var payload dto.PublishIngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	chunks, err := cs.ingestService.Ingest(msg.Context(), &payload)
	if err != nil {
		cs.logger.Error(consumerModule, "Failed to ingest document", map[string]interface{}{
			"message_id": msg.UUID,
			"source":     payload.Source,
			"error":      err.Error(),
		})
		return err
	}

	cs.logger.Debug(consumerModule, "Message processed", map[string]interface{}{
		"message_id": msg.UUID,
		"source":     payload.Source,
		"chunks":     chunks,
	})
	return nil
}

// shouldRetryIngest rejects undecodable payloads and terminal upstream
// errors such as a 4xx from the embedder.
func shouldRetryIngest(err error) bool {
	if errors.Is(err, ErrMalformedPayload) {
		return false
	}
	return upstream.IsTransient(err)
}
