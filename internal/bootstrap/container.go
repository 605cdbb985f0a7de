package bootstrap

import (
	"context"
	"log"

	"rag-chat-be/internal/config"
	"rag-chat-be/internal/controller"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/internal/service"
	"rag-chat-be/pkg/llm/factory"

	pktNats "rag-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	HealthController   controller.IHealthController

	// Exposed for cmd/seed
	IngestService service.IIngestService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	AuditService    service.IAuditService // nil without NATS

	Logger logger.ILogger

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	c := &Container{}

	// 1. Loggers
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)
	c.Logger = sysLogger
	c.closers = append(c.closers, func() {
		_ = auditLogger.Sync()
		_ = sysLogger.Sync()
	})

	// 2. Ingestion queue
	queueLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, queueLogger)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Providers
	embeddingProvider := newEmbeddingProvider(cfg, c)

	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:     cfg.Ai.LLMProvider,
		Model:        cfg.Ai.LLMModel,
		OllamaURL:    cfg.Ai.OllamaBaseURL,
		OpenAIURL:    cfg.Ai.LLMBaseURL,
		GeminiKey:    cfg.Keys.GoogleGemini,
		OpenAIKey:    cfg.Keys.OpenAI,
		AnthropicKey: cfg.Keys.Anthropic,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s", cfg.Ai.LLMProvider)

	store, err := newVectorStore(cfg, c)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize vector store: %v", err)
	}
	log.Printf("[INFO] Using Vector Store: %s", cfg.VectorStore.Provider)

	// 4. Event bus (optional)
	chatOpts := []service.ChatServiceOption{
		service.WithAuditLogger(auditLogger),
		service.WithQueryTaskType(cfg.Ai.QueryTaskType),
	}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			chatOpts = append(chatOpts, service.WithEventPublisher(natsPub))
			c.closers = append(c.closers, natsPub.Close)
		}

		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			c.AuditService = service.NewAuditService(natsSub, auditLogger)
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// 5. Services
	chatService := service.NewChatService(embeddingProvider, store, llmProvider, sysLogger, chatOpts...)

	publisherService := service.NewPublisherService(cfg.Ingest.Topic, pubSub)
	ingestService := service.NewIngestService(
		publisherService,
		embeddingProvider,
		store,
		sysLogger,
		cfg.Ingest.ChunkSize,
		cfg.Ingest.ChunkOverlap,
	)
	c.IngestService = ingestService
	c.ConsumerService = service.NewConsumerService(pubSub, pubSub, service.ConsumerConfig{
		Topic:       cfg.Ingest.Topic,
		PoisonTopic: cfg.Ingest.PoisonTopic,
		MaxRetries:  cfg.Ingest.MaxRetries,
		RetryDelay:  cfg.Ingest.RetryDelay,
	}, ingestService, sysLogger, queueLogger)

	// 6. Controllers
	c.ChatController = controller.NewChatController(chatService, sysLogger, cfg.App.ChatStreamTimeout)
	c.DocumentController = controller.NewDocumentController(ingestService)
	c.HealthController = controller.NewHealthController(
		cfg.VectorStore.Provider,
		cfg.Ai.LLMProvider,
		cfg.Ai.EmbeddingProvider,
	)

	return c
}

// StartBackground launches the ingestion consumer and, when NATS is
// configured, the audit subscriber.
func (c *Container) StartBackground(ctx context.Context) {
	if err := c.ConsumerService.Consume(ctx); err != nil {
		log.Printf("[ERROR] Consumer Service failed to start: %v", err)
	}
	if c.AuditService != nil {
		if err := c.AuditService.Start(ctx); err != nil {
			log.Printf("[WARN] Audit subscriber failed to start: %v", err)
		}
	}
}

// Close releases clients in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
