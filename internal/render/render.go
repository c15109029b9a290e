// Package render produces the HTML fragments the frontend displays: history
// cards, the coping-action list, the journaling box and the crisis safety
// card. The pipeline stays display-agnostic; only handlers call into here.
package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"emoticare/internal/models"

	"github.com/yuin/goldmark"
)

// moodColors maps each mood label to its accent color
var moodColors = map[string]string{
	models.MoodHappy:        "#10b981",
	models.MoodNeutral:      "#6b7280",
	models.MoodSad:          "#3b82f6",
	models.MoodDepressive:   "#1d4ed8",
	models.MoodAnxious:      "#f59e0b",
	models.MoodOverwhelmed:  "#d97706",
	models.MoodAngry:        "#ef4444",
	models.MoodSuicidalRisk: "#b91c1c",
}

const defaultMoodColor = "#6b7280"

// MoodColor returns the accent color for a mood label
func MoodColor(mood string) string {
	if color, ok := moodColors[mood]; ok {
		return color
	}
	return defaultMoodColor
}

// Therapy converts the coach's markdown reply to HTML. Model output is
// treated as untrusted; on conversion failure the escaped raw text is used.
func Therapy(markdown string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "<p>" + html.EscapeString(markdown) + "</p>"
	}
	return buf.String()
}

// Actions renders the coping-strategy list. Missing fields render with empty
// values rather than dropping the row.
func Actions(plan models.ActionPlan) string {
	var sb strings.Builder
	sb.WriteString("<div class='action-list'>")
	sb.WriteString("<div class='action-item'><b>🌬️ Breathe:</b> " + html.EscapeString(plan.Breathing) + "</div>")
	sb.WriteString("<div class='action-item'><b>⚡ Do Now:</b> " + html.EscapeString(plan.Immediate) + "</div>")
	sb.WriteString("<div class='action-item'><b>📅 Plan:</b> " + html.EscapeString(plan.LongTerm) + "</div>")
	sb.WriteString("</div>")
	return sb.String()
}

// Journal renders the themes and the two reflection prompts. A missing
// second prompt renders as an empty list item, never an error.
func Journal(insight models.JournalingInsight) string {
	first, second := "", ""
	if len(insight.Prompts) > 0 {
		first = insight.Prompts[0]
	}
	if len(insight.Prompts) > 1 {
		second = insight.Prompts[1]
	}

	escaped := make([]string, len(insight.Themes))
	for i, theme := range insight.Themes {
		escaped[i] = html.EscapeString(theme)
	}

	var sb strings.Builder
	sb.WriteString("<div class='journal-box'>")
	sb.WriteString("<p><b>Themes:</b> " + strings.Join(escaped, ", ") + "</p>")
	sb.WriteString("<p><b>Reflect on this:</b></p>")
	sb.WriteString("<ol><li>" + html.EscapeString(first) + "</li><li>" + html.EscapeString(second) + "</li></ol>")
	sb.WriteString("</div>")
	return sb.String()
}

// CrisisCard is the fixed multilingual safety-resources message shown on a
// safety intervention.
func CrisisCard() string {
	return `<div class='risk-alert'>
    <h3>⚠️ CRITICAL SAFETY WARNING</h3>
    <p>We detected content indicating high distress. Please prioritize your safety.</p>
    <p><strong>Immediate Help:</strong></p>
    <ul>
        <li>🇺🇸 USA: 988</li>
        <li>🇮🇳 India: 9152987821</li>
        <li>Global: <a href='https://findahelpline.com' target='_blank'>findahelpline.com</a></li>
    </ul>
</div>`
}

// History renders the recent-entries list as cards, newest first
func History(history []models.HistoryEntry) string {
	if len(history) == 0 {
		return "<p style='color: #9ca3af; text-align: center; margin-top: 20px;'>No entries yet. Start journaling!</p>"
	}

	var sb strings.Builder
	sb.WriteString("<div class='history-container'>")
	for _, entry := range history {
		color := MoodColor(entry.Mood)
		sb.WriteString(fmt.Sprintf(`<div class='history-card' style='border-left: 4px solid %s;'>`, color))
		sb.WriteString(`<div style='display: flex; justify-content: space-between; margin-bottom: 5px;'>`)
		sb.WriteString(fmt.Sprintf(`<span style='font-weight: bold; color: %s;'>%s</span>`, color, html.EscapeString(entry.Mood)))
		sb.WriteString(fmt.Sprintf(`<span style='font-size: 0.8em; color: #9ca3af;'>%s</span>`, html.EscapeString(entry.Timestamp)))
		sb.WriteString("</div>")
		sb.WriteString(fmt.Sprintf(`<p style='font-size: 0.9em; color: #4b5563; margin: 0;'>%s</p>`, html.EscapeString(entry.Summary)))
		sb.WriteString("</div>")
	}
	sb.WriteString("</div>")
	return sb.String()
}
