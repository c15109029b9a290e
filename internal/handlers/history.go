package handlers

import (
	"emoticare/internal/render"
	"emoticare/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HistoryHandler serves the persisted session history and its derived views
type HistoryHandler struct {
	history *services.HistoryService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *services.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List returns the full history, newest first, plus the rendered card list
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	history := h.history.LoadAll()
	return c.JSON(fiber.Map{
		"entries": history,
		"html":    render.History(history),
	})
}

// Trend returns the entry-count-per-mood aggregation, or null when the
// history is empty (the frontend hides the chart).
func (h *HistoryHandler) Trend(c *fiber.Ctx) error {
	trend := h.history.Trend(h.history.LoadAll())
	return c.JSON(fiber.Map{
		"trend": trend,
	})
}
