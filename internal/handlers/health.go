package handlers

import (
	"time"

	"emoticare/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	history *services.HistoryService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(history *services.HistoryService) *HealthHandler {
	return &HealthHandler{history: history}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "healthy",
		"history_entries": len(h.history.LoadAll()),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}
