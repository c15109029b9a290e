package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"emoticare/internal/models"
	"emoticare/internal/parser"
	"emoticare/internal/prompts"
)

// fakeGenerator replays a scripted list of responses, one per Invoke call,
// and records every rendered prompt it receives. A response prefixed with
// "ERR:" fails that call instead.
type fakeGenerator struct {
	responses []string
	prompts   []string
}

func (f *fakeGenerator) Invoke(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	idx := len(f.prompts) - 1
	if idx >= len(f.responses) {
		return "", fmt.Errorf("unexpected model call %d", idx+1)
	}
	resp := f.responses[idx]
	if rest, ok := strings.CutPrefix(resp, "ERR:"); ok {
		return "", errors.New(rest)
	}
	return resp, nil
}

func newTestPipeline(t *testing.T, gen Generator, configured bool) (*PipelineService, *HistoryService) {
	t.Helper()
	history := NewHistoryService(filepath.Join(t.TempDir(), "history.json"))
	return NewPipelineService(prompts.NewCatalog(), gen, history, configured), history
}

const (
	moodNeutralJSON   = "```json\n{\"mood\": \"Neutral\", \"confidence\": 70, \"risk_flag\": false}\n```"
	noCrisisJSON      = `{"is_crisis": false}`
	therapyText       = "That sounds like a steady day. Be kind to yourself."
	summaryJSON       = `{"summary": "A calm, uneventful day", "actions": {"breathing": "Box breathing", "immediate": "Short walk", "long_term": "Keep a sleep routine"}}`
	journalingJSON    = `{"themes": ["calm", "routine", "rest"], "prompts": ["What felt steady today?", "What would make tomorrow better?"]}`
	riskFlaggedJSON   = `{"mood": "Suicidal-Risk", "confidence": 92, "risk_flag": true}`
	crisisDetectedJSON = `{"is_crisis": true, "reason": "explicit self-harm language"}`
)

func TestAnalyzeHappyPath(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		moodNeutralJSON, noCrisisJSON, therapyText, summaryJSON, journalingJSON,
	}}
	pipeline, history := newTestPipeline(t, gen, true)

	outcome, err := pipeline.Analyze(context.Background(), "I feel okay today")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if outcome.State != models.StateSuccess {
		t.Errorf("state = %s, want success", outcome.State)
	}
	if outcome.Mood != models.MoodNeutral || outcome.Confidence != 70 {
		t.Errorf("mood = %s (%d), want Neutral (70)", outcome.Mood, outcome.Confidence)
	}
	if got := outcome.MoodLabel(); got != "Neutral (70%)" {
		t.Errorf("MoodLabel = %q", got)
	}
	if outcome.Therapy != therapyText {
		t.Errorf("therapy = %q", outcome.Therapy)
	}
	if outcome.Actions.Breathing != "Box breathing" || outcome.Actions.LongTerm != "Keep a sleep routine" {
		t.Errorf("actions = %+v", outcome.Actions)
	}
	if len(outcome.Journaling.Themes) != 3 || len(outcome.Journaling.Prompts) != 2 {
		t.Errorf("journaling = %+v", outcome.Journaling)
	}

	// The normal branch makes exactly 5 model calls in pipeline order
	if len(gen.prompts) != 5 {
		t.Fatalf("model calls = %d, want 5", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "mood analyzer") {
		t.Errorf("call 1 is not the mood-detection prompt: %s", gen.prompts[0])
	}
	if !strings.Contains(gen.prompts[2], `feeling "Neutral"`) {
		t.Errorf("therapy prompt not parameterized with detected mood: %s", gen.prompts[2])
	}

	// One history entry with the derived summary, input truncated
	entries := history.LoadAll()
	if len(entries) != 1 {
		t.Fatalf("history = %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Mood != models.MoodNeutral || entry.Confidence != 70 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Input != "I feel okay today..." {
		t.Errorf("entry input = %q, want truncated form with ellipsis", entry.Input)
	}
	if entry.Summary != "A calm, uneventful day" {
		t.Errorf("entry summary = %q", entry.Summary)
	}

	if outcome.Trend == nil || outcome.Trend.Total != 1 {
		t.Errorf("trend = %+v, want 1 entry", outcome.Trend)
	}
	if pipeline.LastOutcome() != outcome {
		t.Error("LastOutcome does not return the completed run")
	}
}

func TestRiskFlagSkipsCrisisCheck(t *testing.T) {
	gen := &fakeGenerator{responses: []string{riskFlaggedJSON}}
	pipeline, history := newTestPipeline(t, gen, true)

	outcome, err := pipeline.Analyze(context.Background(), "dangerous thoughts")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	// risk_flag=true must short-circuit: no crisis-check call, no
	// therapy/summary/journaling calls.
	if len(gen.prompts) != 1 {
		t.Fatalf("model calls = %d, want 1 (mood detection only)", len(gen.prompts))
	}
	if outcome.State != models.StateSafetyIntervention {
		t.Errorf("state = %s, want safety_intervention", outcome.State)
	}
	if got := outcome.MoodLabel(); got != "Crisis Detected" {
		t.Errorf("MoodLabel = %q, want detected mood suppressed", got)
	}
	if outcome.CrisisReason == "" {
		t.Error("crisis reason not set")
	}

	// Crisis sessions are never persisted
	if entries := history.LoadAll(); len(entries) != 0 {
		t.Errorf("history = %d entries, want 0", len(entries))
	}
	if outcome.Trend != nil {
		t.Errorf("trend = %+v, want nil on crisis", outcome.Trend)
	}
	if pipeline.LastOutcome() != nil {
		t.Error("crisis run must not become the exportable last outcome")
	}
}

func TestCrisisCheckPositive(t *testing.T) {
	gen := &fakeGenerator{responses: []string{moodNeutralJSON, crisisDetectedJSON}}
	pipeline, history := newTestPipeline(t, gen, true)

	outcome, err := pipeline.Analyze(context.Background(), "some input")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(gen.prompts) != 2 {
		t.Fatalf("model calls = %d, want 2", len(gen.prompts))
	}
	if outcome.State != models.StateSafetyIntervention {
		t.Errorf("state = %s, want safety_intervention", outcome.State)
	}
	if outcome.CrisisReason != "explicit self-harm language" {
		t.Errorf("crisis reason = %q", outcome.CrisisReason)
	}
	if entries := history.LoadAll(); len(entries) != 0 {
		t.Errorf("history = %d entries, want 0", len(entries))
	}
}

func TestAnalyzeNotConfigured(t *testing.T) {
	gen := &fakeGenerator{}
	pipeline, _ := newTestPipeline(t, gen, false)

	_, err := pipeline.Analyze(context.Background(), "hello")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	if len(gen.prompts) != 0 {
		t.Errorf("model calls = %d, want 0 at the guard", len(gen.prompts))
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	gen := &fakeGenerator{}
	pipeline, _ := newTestPipeline(t, gen, true)

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := pipeline.Analyze(context.Background(), input); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Analyze(%q) err = %v, want ErrEmptyInput", input, err)
		}
	}
	if len(gen.prompts) != 0 {
		t.Errorf("model calls = %d, want 0", len(gen.prompts))
	}
}

func TestMoodDetectionFailureAborts(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"ERR:all candidates failed"}}
	pipeline, history := newTestPipeline(t, gen, true)

	_, err := pipeline.Analyze(context.Background(), "hello")
	var pipeErr *PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("err = %T %v, want PipelineError", err, err)
	}
	if pipeErr.Stage != "mood detection" {
		t.Errorf("stage = %q", pipeErr.Stage)
	}
	if !strings.Contains(err.Error(), "all candidates failed") {
		t.Errorf("underlying message not surfaced verbatim: %v", err)
	}
	if entries := history.LoadAll(); len(entries) != 0 {
		t.Errorf("history = %d entries, want 0 (no partial save)", len(entries))
	}
}

func TestMalformedMoodResponse(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"sorry, I can't do that"}}
	pipeline, _ := newTestPipeline(t, gen, true)

	_, err := pipeline.Analyze(context.Background(), "hello")
	if !errors.Is(err, parser.ErrMalformedResponse) {
		t.Errorf("err = %v, want wrapped ErrMalformedResponse", err)
	}
}

func TestNormalBranchFailureDiscardsRun(t *testing.T) {
	// Summary call (4th) fails: the whole run aborts, therapy output from
	// the same run is discarded and nothing persists.
	gen := &fakeGenerator{responses: []string{
		moodNeutralJSON, noCrisisJSON, therapyText, "ERR:quota exceeded",
	}}
	pipeline, history := newTestPipeline(t, gen, true)

	_, err := pipeline.Analyze(context.Background(), "hello")
	var pipeErr *PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("err = %T %v, want PipelineError", err, err)
	}
	if pipeErr.Stage != "summary" {
		t.Errorf("stage = %q, want summary", pipeErr.Stage)
	}
	if entries := history.LoadAll(); len(entries) != 0 {
		t.Errorf("history = %d entries, want 0", len(entries))
	}
	if pipeline.LastOutcome() != nil {
		t.Error("failed run must not become the last outcome")
	}
}

func TestSingleJournalingPromptIsAccepted(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		moodNeutralJSON, noCrisisJSON, therapyText, summaryJSON,
		`{"themes": ["one"], "prompts": ["only prompt"]}`,
	}}
	pipeline, _ := newTestPipeline(t, gen, true)

	outcome, err := pipeline.Analyze(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if outcome.State != models.StateSuccess {
		t.Errorf("state = %s, want success despite single prompt", outcome.State)
	}
	if len(outcome.Journaling.Prompts) != 1 {
		t.Errorf("prompts = %v", outcome.Journaling.Prompts)
	}
}

func TestMissingFieldsUseDefaults(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{}`, noCrisisJSON, therapyText, `{"summary": "s"}`, `{}`,
	}}
	pipeline, history := newTestPipeline(t, gen, true)

	outcome, err := pipeline.Analyze(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if outcome.Mood != models.MoodUnknown {
		t.Errorf("mood = %q, want Unknown sentinel", outcome.Mood)
	}
	if outcome.Confidence != 0 {
		t.Errorf("confidence = %d, want 0", outcome.Confidence)
	}
	if outcome.Actions != (models.ActionPlan{}) {
		t.Errorf("actions = %+v, want empty", outcome.Actions)
	}

	entries := history.LoadAll()
	if len(entries) != 1 || entries[0].Mood != models.MoodUnknown {
		t.Errorf("entries = %+v", entries)
	}
}
