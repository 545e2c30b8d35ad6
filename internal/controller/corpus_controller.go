package controller

import (
	"github.com/gofiber/fiber/v2"

	"hmo-assistant-be/internal/pkg/serverutils"
	"hmo-assistant-be/internal/service"
)

type ICorpusController interface {
	RegisterRoutes(r fiber.Router)
	Stats(ctx *fiber.Ctx) error
}

type corpusController struct {
	service service.ICorpusService
}

func NewCorpusController(service service.ICorpusService) ICorpusController {
	return &corpusController{service: service}
}

func (c *corpusController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/corpus/v1")
	h.Get("stats", c.Stats)
}

func (c *corpusController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get corpus stats", res))
}
