package handlers

import (
	"errors"

	"emoticare/internal/models"
	"emoticare/internal/render"
	"emoticare/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AnalysisHandler handles analysis pipeline requests
type AnalysisHandler struct {
	pipeline *services.PipelineService
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(pipeline *services.PipelineService) *AnalysisHandler {
	return &AnalysisHandler{pipeline: pipeline}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// analyzeResponse is the wire shape the frontend destructures. Error states
// reuse it with the message in mood_label and every other field empty.
type analyzeResponse struct {
	ID        string `json:"id,omitempty"`
	State     string `json:"state"`
	MoodLabel string `json:"mood_label"`

	Therapy     string `json:"therapy,omitempty"`
	TherapyHTML string `json:"therapy_html,omitempty"`
	ActionsHTML string `json:"actions_html,omitempty"`
	JournalHTML string `json:"journal_html,omitempty"`
	CrisisHTML  string `json:"crisis_html,omitempty"`
	HistoryHTML string `json:"history_html,omitempty"`

	Actions    *models.ActionPlan        `json:"actions,omitempty"`
	Journaling *models.JournalingInsight `json:"journaling,omitempty"`
	Trend      *models.MoodTrend         `json:"trend,omitempty"`
	History    []models.HistoryEntry     `json:"history,omitempty"`
}

// Handle runs the pipeline for one submission and renders the outcome
func (h *AnalysisHandler) Handle(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	outcome, err := h.pipeline.Analyze(c.UserContext(), req.Text)
	if err != nil {
		return c.JSON(errorResponse(err))
	}

	resp := analyzeResponse{
		ID:          outcome.ID,
		State:       outcome.State,
		MoodLabel:   outcome.MoodLabel(),
		HistoryHTML: render.History(outcome.History),
		History:     outcome.History,
		Trend:       outcome.Trend,
	}

	if outcome.State == models.StateSafetyIntervention {
		resp.Therapy = "Please seek help."
		resp.ActionsHTML = "See safety card."
		resp.JournalHTML = "High Risk"
		resp.CrisisHTML = render.CrisisCard()
		return c.JSON(resp)
	}

	resp.Therapy = outcome.Therapy
	resp.TherapyHTML = render.Therapy(outcome.Therapy)
	resp.ActionsHTML = render.Actions(outcome.Actions)
	resp.JournalHTML = render.Journal(outcome.Journaling)
	resp.Actions = &outcome.Actions
	resp.Journaling = &outcome.Journaling
	return c.JSON(resp)
}

// errorResponse converts a pipeline error into the terminal error shape. All
// errors land here; none crash the process or leak partial output.
func errorResponse(err error) analyzeResponse {
	var label string
	switch {
	case errors.Is(err, services.ErrNotConfigured):
		label = "⚠️ API Key Error."
	case errors.Is(err, services.ErrEmptyInput):
		label = "Please share your thoughts first."
	default:
		label = "Error: " + err.Error()
	}
	return analyzeResponse{
		State:     models.StateError,
		MoodLabel: label,
	}
}
