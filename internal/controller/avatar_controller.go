package controller

import (
	"avatar-engine-be/internal/dto"
	"avatar-engine-be/internal/pkg/serverutils"
	"avatar-engine-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAvatarController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	Respond(ctx *fiber.Ctx) error
	GetPersona(ctx *fiber.Ctx) error
	RefreshPersona(ctx *fiber.Ctx) error
}

type avatarController struct {
	service service.IAvatarService
}

func NewAvatarController(service service.IAvatarService) IAvatarController {
	return &avatarController{service: service}
}

func (c *avatarController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/avatar/v1", authMiddleware)
	h.Post("/respond", c.Respond)
	h.Get("/:userId/persona", c.GetPersona)
	h.Post("/:userId/persona/refresh", c.RefreshPersona)
}

// Respond generates the avatar's reply to a message. The caller persists
// and delivers the reply.
func (c *avatarController) Respond(ctx *fiber.Ctx) error {
	var req dto.RespondRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	res, err := c.service.Respond(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Reply generated", res))
}

func (c *avatarController) GetPersona(ctx *fiber.Ctx) error {
	userId, err := ctx.ParamsInt("userId")
	if err != nil || userId <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid user id"))
	}

	res, err := c.service.GetPersona(ctx.UserContext(), int64(userId))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Persona", res))
}

func (c *avatarController) RefreshPersona(ctx *fiber.Ctx) error {
	userId, err := ctx.ParamsInt("userId")
	if err != nil || userId <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid user id"))
	}

	res, err := c.service.RefreshPersona(ctx.UserContext(), int64(userId))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Persona refreshed", res))
}
