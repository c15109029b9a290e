package models

import "fmt"

// Mood labels form a closed set of 8 categories. The model is instructed to
// pick exactly one; anything else is kept verbatim but rendered with the
// neutral color.
const (
	MoodHappy        = "Happy"
	MoodSad          = "Sad"
	MoodAnxious      = "Anxious"
	MoodAngry        = "Angry"
	MoodNeutral      = "Neutral"
	MoodOverwhelmed  = "Overwhelmed"
	MoodDepressive   = "Depressive"
	MoodSuicidalRisk = "Suicidal-Risk"

	// MoodUnknown is the sentinel used when the model response carries no mood
	MoodUnknown = "Unknown"
)

// MoodLabels lists the closed set in display order
var MoodLabels = []string{
	MoodHappy, MoodSad, MoodAnxious, MoodAngry,
	MoodNeutral, MoodOverwhelmed, MoodDepressive, MoodSuicidalRisk,
}

// MoodDetection is the parsed result of the mood-detection prompt
type MoodDetection struct {
	Mood       string `json:"mood"`
	Confidence int    `json:"confidence"`
	RiskFlag   bool   `json:"risk_flag"`
}

// CrisisCheck is the parsed result of the crisis-check prompt
type CrisisCheck struct {
	IsCrisis bool   `json:"is_crisis"`
	Reason   string `json:"reason"`
}

// ActionPlan holds the three coping actions from the summary prompt
type ActionPlan struct {
	Breathing string `json:"breathing"`
	Immediate string `json:"immediate"`
	LongTerm  string `json:"long_term"`
}

// SummaryResult is the parsed result of the summary+actions prompt
type SummaryResult struct {
	Summary string     `json:"summary"`
	Actions ActionPlan `json:"actions"`
}

// JournalingInsight is the parsed result of the journaling prompt.
// Prompts may legitimately arrive with fewer than 2 entries; callers render
// missing slots as empty strings rather than failing.
type JournalingInsight struct {
	Themes  []string `json:"themes"`
	Prompts []string `json:"prompts"`
}

// Terminal states of a pipeline run
const (
	StateSuccess            = "success"
	StateSafetyIntervention = "safety_intervention"
	StateError              = "error"
)

// AnalysisOutcome is the single structured result of a pipeline run. The
// presentation layer destructures it; the pipeline never touches display
// concerns.
type AnalysisOutcome struct {
	ID    string `json:"id"`
	State string `json:"state"`

	Mood       string `json:"mood"`
	Confidence int    `json:"confidence"`

	Therapy    string            `json:"therapy,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	Actions    ActionPlan        `json:"actions,omitempty"`
	Journaling JournalingInsight `json:"journaling,omitempty"`

	// CrisisReason is set only in the safety-intervention state
	CrisisReason string `json:"crisis_reason,omitempty"`

	History []HistoryEntry `json:"history"`
	Trend   *MoodTrend     `json:"trend,omitempty"`
}

// MoodLabel formats the caller-visible mood field, e.g. "Neutral (70%)".
// Crisis runs suppress the detected mood behind a generic label.
func (o *AnalysisOutcome) MoodLabel() string {
	if o.State == StateSafetyIntervention {
		return "Crisis Detected"
	}
	if o.Mood == "" {
		return MoodUnknown
	}
	return fmt.Sprintf("%s (%d%%)", o.Mood, o.Confidence)
}
