package controller

import (
	"context"
	"time"

	"rag-chat-be/internal/constant"
	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/internal/service"
	"rag-chat-be/pkg/relay"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const chatControllerModule = "ChatController"

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	logger      logger.ILogger
	timeout     time.Duration
}

func NewChatController(chatService service.IChatService, log logger.ILogger, timeout time.Duration) IChatController {
	return &chatController{
		chatService: chatService,
		logger:      log,
		timeout:     timeout,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.Chat)
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	requestID := uuid.NewString()
	ctx.Set("X-Request-ID", requestID)

	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		c.logger.Warn(chatControllerModule, "Unparsable chat request", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return processMessageError(ctx)
	}

	// The body is written after this handler returns, so the stream
	// context must not be tied to the fiber handler lifetime.
	base := service.ContextWithRequestID(context.WithoutCancel(ctx.UserContext()), requestID)
	streamCtx, cancel := context.WithTimeout(base, c.timeout)

	reply, err := c.chatService.StreamReply(streamCtx, &req)
	if err != nil {
		cancel()
		return processMessageError(ctx)
	}

	body := relay.NewReader(reply.Stream,
		relay.WithCancel(cancel),
		relay.WithFinish(func(s relay.Summary) {
			c.chatService.RecordCompletion(context.WithoutCancel(streamCtx), reply, s)
		}),
	)

	ctx.Status(fiber.StatusOK)
	ctx.Set(fiber.HeaderContentType, constant.ChatContentType)
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set("X-Content-Type-Options", "nosniff")
	ctx.Context().SetBodyStream(body, -1)
	return nil
}

func processMessageError(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": constant.ErrProcessMessage,
	})
}
