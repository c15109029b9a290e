// Package prompts holds the parameterized natural-language templates sent to
// the generation service, plus optional file-based overrides with hot reload.
package prompts

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Template keys
const (
	KeyMoodDetection   = "mood_detection"
	KeyCrisisCheck     = "crisis_check"
	KeyTherapyResponse = "therapy_response"
	KeySummaryActions  = "summary_actions"
	KeyJournaling      = "journaling"
)

const moodDetectionTemplate = `You are an expert psychological mood analyzer. Analyze the following user input (text and/or audio transcript) and determine the user's current mood.
Classify the mood into one of these labels: Happy, Sad, Anxious, Angry, Neutral, Overwhelmed, Depressive, Suicidal-Risk.
Also provide a confidence score (0-100).
Input: "{{input_text}}"
Output format (JSON):
{
  "mood": "Label",
  "confidence": 85,
  "risk_flag": boolean
}`

const crisisCheckTemplate = `Analyze the following input strictly for self-harm, suicide, or immediate danger.
If ANY risk is detected, output TRUE and a short reason. Otherwise output FALSE.
Input: "{{input_text}}"
Output format (JSON):
{
  "is_crisis": boolean,
  "reason": "explanation"
}`

const therapyResponseTemplate = `You are a compassionate, empathetic therapy coach named EmotiCare. The user is feeling "{{mood}}".
Generate a supportive, non-judgmental response. Acknowledge their feelings, validate them, and offer a comforting perspective.
Keep it warm and conversational. Do not diagnose.
User Input: "{{input_text}}"`

const summaryActionsTemplate = `Summarize the user's situation in 7-10 words.
Then provide 3 short, actionable coping mechanisms:
1. Breathing/grounding (Immediate).
2. Small step (Now).
3. Long-term action.
User Input: "{{input_text}}"
Mood: "{{mood}}"
Output format (JSON):
{
  "summary": "short summary",
  "actions": {
    "breathing": "description",
    "immediate": "description",
    "long_term": "description"
  }
}`

const journalingTemplate = `Analyze the user's entry for journaling purposes.
Extract 3 key themes or emotions.
Suggest 2 specific journaling prompts.
User Input: "{{input_text}}"
Mood: "{{mood}}"
Output format (JSON):
{
  "themes": ["theme1", "theme2", "theme3"],
  "prompts": ["prompt1", "prompt2"]
}`

// Catalog is the set of prompt templates, keyed by template name. Overrides
// loaded from file replace built-ins per key; the catalog is safe for
// concurrent Render/LoadOverrides (the file watcher reloads in background).
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewCatalog creates a catalog with the built-in templates
func NewCatalog() *Catalog {
	return &Catalog{
		templates: map[string]string{
			KeyMoodDetection:   moodDetectionTemplate,
			KeyCrisisCheck:     crisisCheckTemplate,
			KeyTherapyResponse: therapyResponseTemplate,
			KeySummaryActions:  summaryActionsTemplate,
			KeyJournaling:      journalingTemplate,
		},
	}
}

// Render renders the named template with {{slot}} substitution.
// Unknown template keys are an error; unknown slots inside a template are
// left verbatim so a bad override is visible instead of silently blank.
func (c *Catalog) Render(key string, vars map[string]string) (string, error) {
	c.mu.RLock()
	tmpl, ok := c.templates[key]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown prompt template: %s", key)
	}
	return interpolate(tmpl, vars), nil
}

// LoadOverrides replaces built-in templates with entries from a YAML file
// mapping template key -> template text. Keys that don't match a built-in
// are skipped with a warning.
func (c *Catalog) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompts file: %w", err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse prompts YAML: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, tmpl := range overrides {
		if _, known := c.templates[key]; !known {
			log.Printf("⚠️  [PROMPTS] Skipping unknown template key %q in %s", key, path)
			continue
		}
		if strings.TrimSpace(tmpl) == "" {
			log.Printf("⚠️  [PROMPTS] Skipping empty override for %q", key)
			continue
		}
		c.templates[key] = tmpl
	}
	return nil
}

var slotRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// interpolate replaces {{slot}} placeholders with values from vars
func interpolate(template string, vars map[string]string) string {
	return slotRe.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}"))
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}
