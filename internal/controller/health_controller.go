package controller

import (
	"ai-assistant-be/internal/dto"
	"ai-assistant-be/pkg/rag"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	retriever *rag.Service
}

func NewHealthController(retriever *rag.Service) IHealthController {
	return &healthController{retriever: retriever}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.HealthResponse{
		Status:       "ok",
		RagReady:     c.retriever.Initialized(),
		IndexedCount: c.retriever.ChunkCount(),
	})
}
