package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"emoticare/internal/logging"
	"emoticare/internal/models"
	"emoticare/internal/parser"
	"emoticare/internal/prompts"

	"github.com/google/uuid"
)

// Guard errors: checked before any model call is made
var (
	// ErrNotConfigured means no service credential is configured; every run
	// fails at the guard until one is provided.
	ErrNotConfigured = errors.New("no API key configured")

	// ErrEmptyInput means the user submitted nothing to analyze
	ErrEmptyInput = errors.New("empty input")
)

// PipelineError wraps an invocation or parse failure from one of the pipeline
// stages. The underlying message is surfaced verbatim to the caller.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Generator is the model-invocation boundary. The production implementation
// is llm.Client; tests substitute fakes.
type Generator interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// PipelineService orchestrates one analysis run: mood detection, crisis
// check, then either the safety-intervention branch or the full
// therapy/summary/journaling sequence with a history append. Runs hold no
// state between each other beyond the history file and the last successful
// outcome kept for export.
type PipelineService struct {
	catalog   *prompts.Catalog
	generator Generator
	history   *HistoryService
	metrics   *Metrics

	// configured reflects whether a service credential was provided at startup
	configured bool

	mu          sync.Mutex
	lastOutcome *models.AnalysisOutcome
}

// NewPipelineService creates the pipeline with its collaborators injected
func NewPipelineService(catalog *prompts.Catalog, generator Generator, history *HistoryService, configured bool) *PipelineService {
	return &PipelineService{
		catalog:    catalog,
		generator:  generator,
		history:    history,
		configured: configured,
	}
}

// SetMetrics wires the Prometheus metrics. Optional; nil disables recording.
func (s *PipelineService) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

// Analyze runs the full pipeline for one user submission. On success or
// safety intervention it returns a terminal outcome; guard and stage failures
// return an error and no partial output.
func (s *PipelineService) Analyze(ctx context.Context, input string) (*models.AnalysisOutcome, error) {
	start := time.Now()
	outcome, err := s.run(ctx, input)
	s.record(outcome, err, time.Since(start))
	return outcome, err
}

func (s *PipelineService) run(ctx context.Context, input string) (*models.AnalysisOutcome, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	analysisID := uuid.NewString()
	logger := logging.WithAnalysis(analysisID)
	logger.Info("pipeline run started", "input_len", len(input))

	// 1. Mood detection
	moodData, err := s.generateJSON(ctx, prompts.KeyMoodDetection, map[string]string{"input_text": input})
	if err != nil {
		return nil, &PipelineError{Stage: "mood detection", Err: err}
	}
	detection := models.MoodDetection{
		Mood:       parser.String(moodData, "mood", models.MoodUnknown),
		Confidence: parser.Int(moodData, "confidence", 0),
		RiskFlag:   parser.Bool(moodData, "risk_flag", false),
	}
	logger.Info("mood detected", "mood", detection.Mood, "confidence", detection.Confidence, "risk_flag", detection.RiskFlag)

	// 2. Crisis check — skipped when mood detection already flagged risk
	crisis := models.CrisisCheck{}
	if detection.RiskFlag {
		crisis.IsCrisis = true
		crisis.Reason = "High-risk language detected during mood analysis"
	} else {
		crisisData, err := s.generateJSON(ctx, prompts.KeyCrisisCheck, map[string]string{"input_text": input})
		if err != nil {
			return nil, &PipelineError{Stage: "crisis check", Err: err}
		}
		crisis.IsCrisis = parser.Bool(crisisData, "is_crisis", false)
		crisis.Reason = parser.String(crisisData, "reason", "")
	}

	// 3. Safety intervention: no further model calls, no history write, and
	// the detected mood stays suppressed behind the generic crisis label.
	if crisis.IsCrisis {
		logger.Warn("safety intervention triggered", "reason", crisis.Reason)
		return &models.AnalysisOutcome{
			ID:           analysisID,
			State:        models.StateSafetyIntervention,
			CrisisReason: crisis.Reason,
			History:      s.history.LoadAll(),
		}, nil
	}

	// 4. Therapy response (freeform prose, no parsing)
	therapyPrompt, err := s.catalog.Render(prompts.KeyTherapyResponse, map[string]string{
		"input_text": input,
		"mood":       detection.Mood,
	})
	if err != nil {
		return nil, &PipelineError{Stage: "therapy response", Err: err}
	}
	therapy, err := s.generator.Invoke(ctx, therapyPrompt)
	if err != nil {
		return nil, &PipelineError{Stage: "therapy response", Err: err}
	}

	// 5. Summary + actions
	summaryData, err := s.generateJSON(ctx, prompts.KeySummaryActions, map[string]string{
		"input_text": input,
		"mood":       detection.Mood,
	})
	if err != nil {
		return nil, &PipelineError{Stage: "summary", Err: err}
	}
	actions := parser.Object(summaryData, "actions")
	summary := models.SummaryResult{
		Summary: parser.String(summaryData, "summary", ""),
		Actions: models.ActionPlan{
			Breathing: parser.String(actions, "breathing", ""),
			Immediate: parser.String(actions, "immediate", ""),
			LongTerm:  parser.String(actions, "long_term", ""),
		},
	}

	// 6. Journaling insight. Fewer than 2 prompts is acceptable; the second
	// slot renders empty downstream.
	journalData, err := s.generateJSON(ctx, prompts.KeyJournaling, map[string]string{
		"input_text": input,
		"mood":       detection.Mood,
	})
	if err != nil {
		return nil, &PipelineError{Stage: "journaling", Err: err}
	}
	journaling := models.JournalingInsight{
		Themes:  parser.StringSlice(journalData, "themes"),
		Prompts: parser.StringSlice(journalData, "prompts"),
	}

	// 7. Persist a derived entry and recompute the views
	entry := models.HistoryEntry{
		Timestamp:  time.Now().Format(models.HistoryTimestampFormat),
		Input:      truncateInput(input),
		Mood:       detection.Mood,
		Confidence: detection.Confidence,
		Summary:    summary.Summary,
	}
	history, err := s.history.Append(entry)
	if err != nil {
		return nil, &PipelineError{Stage: "history persist", Err: err}
	}

	outcome := &models.AnalysisOutcome{
		ID:         analysisID,
		State:      models.StateSuccess,
		Mood:       detection.Mood,
		Confidence: detection.Confidence,
		Therapy:    therapy,
		Summary:    summary.Summary,
		Actions:    summary.Actions,
		Journaling: journaling,
		History:    history,
		Trend:      s.history.Trend(history),
	}

	s.mu.Lock()
	s.lastOutcome = outcome
	s.mu.Unlock()

	logger.Info("pipeline run completed", "mood", detection.Mood, "history_len", len(history))
	return outcome, nil
}

// LastOutcome returns the most recent successful outcome, for the export
// action. Crisis and failed runs never become exportable.
func (s *PipelineService) LastOutcome() *models.AnalysisOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOutcome
}

// generateJSON renders a template, invokes the generator and parses the
// response as a JSON object.
func (s *PipelineService) generateJSON(ctx context.Context, key string, vars map[string]string) (map[string]any, error) {
	prompt, err := s.catalog.Render(key, vars)
	if err != nil {
		return nil, err
	}
	raw, err := s.generator.Invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parser.Parse(raw)
}

// truncatedInputLen is how much of the raw input survives into history
const truncatedInputLen = 50

// truncateInput keeps the first 50 runes and always appends an ellipsis,
// matching the stored wire format.
func truncateInput(input string) string {
	runes := []rune(input)
	if len(runes) > truncatedInputLen {
		runes = runes[:truncatedInputLen]
	}
	return string(runes) + "..."
}

func (s *PipelineService) record(outcome *models.AnalysisOutcome, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.AnalysisRequests.Inc()
	s.metrics.AnalysisLatency.Observe(elapsed.Seconds())

	switch {
	case err == nil:
		s.metrics.AnalysisOutcomes.WithLabelValues(outcome.State).Inc()
	case errors.Is(err, ErrNotConfigured):
		s.metrics.AnalysisOutcomes.WithLabelValues(models.StateError).Inc()
		s.metrics.AnalysisErrors.WithLabelValues("configuration").Inc()
	case errors.Is(err, ErrEmptyInput):
		s.metrics.AnalysisOutcomes.WithLabelValues(models.StateError).Inc()
		s.metrics.AnalysisErrors.WithLabelValues("empty_input").Inc()
	default:
		s.metrics.AnalysisOutcomes.WithLabelValues(models.StateError).Inc()
		s.metrics.AnalysisErrors.WithLabelValues("pipeline").Inc()
		log.Printf("❌ [PIPELINE] Run failed: %v", err)
	}
}
