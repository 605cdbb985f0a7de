package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rag-chat-be/internal/constant"
	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/pkg/embedding"
	"rag-chat-be/pkg/events"
	"rag-chat-be/pkg/llm"
	"rag-chat-be/pkg/rag/prompt"
	"rag-chat-be/pkg/relay"
	"rag-chat-be/pkg/retry"
	"rag-chat-be/pkg/upstream"
	"rag-chat-be/pkg/vectorstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const chatModule = "ChatService"

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IChatService interface {
	// StreamReply runs embed, search, compose and generate for the last
	// message. On success the caller owns the returned stream.
	StreamReply(ctx context.Context, req *dto.ChatRequest) (*ChatReply, error)
	// RecordCompletion reports a finished relay to the audit trail.
	RecordCompletion(ctx context.Context, reply *ChatReply, summary relay.Summary)
}

type ChatReply struct {
	RequestID string
	Stream    llm.Stream
	Documents []vectorstore.Document
}

type ChatServiceOption func(*chatService)

// WithRetryPolicy overrides attempts and delay for all upstream calls.
func WithRetryPolicy(attempts uint, delay time.Duration) ChatServiceOption {
	return func(s *chatService) {
		s.attempts = attempts
		s.delay = delay
	}
}

// WithQueryTaskType sets the embedding task hint for the question. An empty
// value sends no hint.
func WithQueryTaskType(taskType string) ChatServiceOption {
	return func(s *chatService) {
		s.queryTaskType = taskType
	}
}

// WithEventPublisher sends chat.completed events instead of writing the
// audit log directly.
func WithEventPublisher(p EventPublisher) ChatServiceOption {
	return func(s *chatService) {
		s.publisher = p
	}
}

// WithAuditLogger sets where completions are recorded when no publisher is set.
func WithAuditLogger(l logger.ILogger) ChatServiceOption {
	return func(s *chatService) {
		s.audit = l
	}
}

type chatService struct {
	embeddingProvider embedding.EmbeddingProvider
	store             vectorstore.Store
	llmProvider       llm.LLMProvider
	publisher         EventPublisher
	audit             logger.ILogger
	logger            logger.ILogger
	tracer            trace.Tracer

	queryTaskType string
	attempts      uint
	delay         time.Duration
}

func NewChatService(
	embeddingProvider embedding.EmbeddingProvider,
	store vectorstore.Store,
	llmProvider llm.LLMProvider,
	log logger.ILogger,
	opts ...ChatServiceOption,
) IChatService {
	s := &chatService{
		embeddingProvider: embeddingProvider,
		store:             store,
		llmProvider:       llmProvider,
		logger:            log,
		tracer:            otel.Tracer("rag-chat-be/internal/service/chat"),
		queryTaskType:     embedding.TaskRetrievalQuery,
		attempts:          constant.UpstreamAttempts,
		delay:             constant.UpstreamDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *chatService) policy(stage string, requestID string) retry.Policy {
	p := retry.DefaultPolicy(upstream.IsTransient)
	p.Attempts = s.attempts
	p.Delay = s.delay
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		s.logger.Warn(chatModule, "Upstream call failed, retrying", map[string]interface{}{
			"request_id": requestID,
			"stage":      stage,
			"attempt":    attempt,
			"wait_ms":    wait.Milliseconds(),
			"error":      err.Error(),
		})
	}
	return p
}

func (s *chatService) StreamReply(ctx context.Context, req *dto.ChatRequest) (*ChatReply, error) {
	requestID := requestIDFrom(ctx)

	ctx, span := s.tracer.Start(ctx, "ChatService.StreamReply")
	defer span.End()

	query := req.LastMessage()
	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.Int("request.message_count", len(req.Messages)),
	)
	if strings.TrimSpace(query) == "" {
		err := fmt.Errorf("%w: last message is empty", ErrMalformedRequest)
		s.fail(span, requestID, "validate", err)
		return nil, err
	}

	// 1. Embed the latest message
	vector, err := retry.Do(ctx, s.policy("embed", requestID), func(ctx context.Context) ([]float32, error) {
		res, err := s.embeddingProvider.Generate(ctx, query, s.queryTaskType)
		if err != nil {
			return nil, err
		}
		return res.Embedding.Values, nil
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrEmbeddingService, err)
		s.fail(span, requestID, "embed", err)
		return nil, err
	}

	// 2. Whole-collection nearest neighbours, in store order
	docs, err := retry.Do(ctx, s.policy("search", requestID), func(ctx context.Context) ([]vectorstore.Document, error) {
		return s.store.Search(ctx, vector, constant.SearchLimit)
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSearchService, err)
		s.fail(span, requestID, "search", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.documents", len(docs)))

	// 3. Compose
	finalPrompt := prompt.Compose(vectorstore.Texts(docs), query)

	// 4. Open the generation stream
	stream, err := retry.Do(ctx, s.policy("generate", requestID), func(ctx context.Context) (llm.Stream, error) {
		return s.llmProvider.GenerateStream(ctx, finalPrompt,
			llm.WithTemperature(constant.GenerationTemperature),
			llm.WithTopP(constant.GenerationTopP),
			llm.WithTopK(constant.GenerationTopK),
			llm.WithMaxTokens(constant.GenerationMaxTokens),
		)
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrGenerationService, err)
		s.fail(span, requestID, "generate", err)
		return nil, err
	}

	s.logger.Info(chatModule, "Generation stream opened", map[string]interface{}{
		"request_id":     requestID,
		"docs_retrieved": len(docs),
		"prompt_length":  len(finalPrompt),
	})

	return &ChatReply{
		RequestID: requestID,
		Stream:    stream,
		Documents: docs,
	}, nil
}

func (s *chatService) fail(span trace.Span, requestID, stage string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	s.logger.Error(chatModule, "Chat request failed", map[string]interface{}{
		"request_id": requestID,
		"stage":      stage,
		"error":      err.Error(),
	})
}

func (s *chatService) RecordCompletion(ctx context.Context, reply *ChatReply, summary relay.Summary) {
	ev := events.ChatCompleted{
		RequestID:     reply.RequestID,
		DocsRetrieved: len(reply.Documents),
		Chunks:        summary.Chunks,
		Bytes:         summary.Bytes,
		Duration:      summary.Duration,
		Failed:        summary.Err != nil,
		OccurredAt:    time.Now(),
	}
	if summary.Err != nil {
		ev.Error = summary.Err.Error()
	}

	details := ev.Payload()
	if summary.Err != nil && !errors.Is(summary.Err, context.Canceled) {
		s.logger.Warn(chatModule, "Reply stream ended with error", details)
	} else {
		s.logger.Info(chatModule, "Reply stream finished", details)
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, ev)
		if err == nil {
			return
		}
		s.logger.Warn(chatModule, "Failed to publish chat event", map[string]interface{}{
			"request_id": reply.RequestID,
			"error":      err.Error(),
		})
	}
	if s.audit != nil {
		s.audit.Info(chatModule, "chat."+ev.EventType(), details)
	}
}

type requestIDKey struct{}

// ContextWithRequestID tags ctx so service logs can be correlated.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
