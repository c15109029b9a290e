package handlers

import (
	"log"

	"emoticare/internal/models"
	"emoticare/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ExportHandler writes and serves session export files
type ExportHandler struct {
	export   *services.ExportService
	pipeline *services.PipelineService
}

// NewExportHandler creates a new export handler
func NewExportHandler(export *services.ExportService, pipeline *services.PipelineService) *ExportHandler {
	return &ExportHandler{export: export, pipeline: pipeline}
}

type exportRequest struct {
	Mood    string             `json:"mood"`
	Therapy string             `json:"therapy"`
	Actions *models.ActionPlan `json:"actions"`
}

// Create writes a session export. The body may carry the fields to export;
// when omitted, the last successful analysis is exported instead.
func (h *ExportHandler) Create(c *fiber.Ctx) error {
	var req exportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	mood, therapy, actions := req.Mood, req.Therapy, models.ActionPlan{}
	if req.Actions != nil {
		actions = *req.Actions
	}

	if mood == "" && therapy == "" {
		last := h.pipeline.LastOutcome()
		if last == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No session to export yet",
			})
		}
		mood = last.MoodLabel()
		therapy = last.Therapy
		actions = last.Actions
	}

	session, err := h.export.Export(mood, therapy, actions)
	if err != nil {
		log.Printf("❌ [EXPORT] Failed to write export: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to write export file",
		})
	}

	if metrics := services.GetMetrics(); metrics != nil {
		metrics.SessionExports.Inc()
	}

	return c.JSON(session)
}

// Download streams a previously created export file
func (h *ExportHandler) Download(c *fiber.Ctx) error {
	session, found := h.export.Get(c.Params("id"))
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Export not found or expired",
		})
	}
	return c.Download(session.FilePath, session.Filename)
}
