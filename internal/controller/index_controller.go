package controller

import (
	"avatar-engine-be/internal/dto"
	"avatar-engine-be/internal/pkg/serverutils"
	"avatar-engine-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IIndexController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	IndexMessages(ctx *fiber.Ctx) error
}

type indexController struct {
	service service.IIndexService
}

func NewIndexController(service service.IIndexService) IIndexController {
	return &indexController{service: service}
}

func (c *indexController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/index/v1", authMiddleware)
	h.Post("/messages", c.IndexMessages)
}

// IndexMessages accepts either a single message or {"messages": [...]} and
// queues it for indexing.
func (c *indexController) IndexMessages(ctx *fiber.Ctx) error {
	var req dto.IndexMessagesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if req.Messages == nil {
		var single dto.MessageRequest
		if err := ctx.BodyParser(&single); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
		}
		if single.Id != 0 {
			req.Messages = []dto.MessageRequest{single}
		}
	}

	res, err := c.service.Enqueue(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Messages queued", res))
}
