package controller

import (
	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	info dto.HealthResponse
}

// NewHealthController reports the providers selected at startup.
func NewHealthController(vectorStore, llmProvider, embeddingProvider string) IHealthController {
	return &healthController{
		info: dto.HealthResponse{
			Status:      "ok",
			VectorStore: vectorStore,
			LLM:         llmProvider,
			Embedding:   embeddingProvider,
		},
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Service is healthy", c.info))
}
