package controller

import (
	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/serverutils"
	"rag-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
}

type documentController struct {
	ingestService service.IIngestService
}

func NewDocumentController(ingestService service.IIngestService) IDocumentController {
	return &documentController{
		ingestService: ingestService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	r.Post("/documents", c.Ingest)
}

func (c *documentController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.ingestService.Enqueue(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	resp := serverutils.SuccessResponse("Document queued for ingestion", res)
	resp.Code = fiber.StatusAccepted
	return ctx.Status(fiber.StatusAccepted).JSON(resp)
}
