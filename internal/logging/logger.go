package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithAnalysis returns a logger with analysis-run context fields attached.
// Use this for all logging within a single pipeline run.
func WithAnalysis(analysisID string) *slog.Logger {
	return slog.With("analysis_id", analysisID)
}

// WithModel returns a logger scoped to a specific candidate model attempt.
func WithModel(logger *slog.Logger, model string) *slog.Logger {
	return logger.With("model", model)
}
