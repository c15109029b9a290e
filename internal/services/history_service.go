package services

import (
	"encoding/json"
	"log"
	"os"
	"sync"

	"emoticare/internal/models"
)

// historyCap is the maximum number of persisted entries; the oldest entry is
// evicted when an append would exceed it.
const historyCap = 20

// HistoryService persists past sessions to a single JSON file, newest first.
// The file is read fully on each access and rewritten fully on each append.
// Single-process, single-writer assumption; the mutex only serializes
// handlers within this process.
type HistoryService struct {
	path string
	mu   sync.Mutex
}

// NewHistoryService creates a history service backed by the given file path
func NewHistoryService(path string) *HistoryService {
	return &HistoryService{path: path}
}

// LoadAll reads and returns the persisted entries, newest first. A missing or
// unreadable file yields an empty history: corruption is swallowed here, not
// surfaced, so a damaged file never blocks new sessions.
func (s *HistoryService) LoadAll() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *HistoryService) loadLocked() []models.HistoryEntry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return []models.HistoryEntry{}
	}

	var history []models.HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		log.Printf("⚠️  [HISTORY] Ignoring unreadable history file %s: %v", s.path, err)
		return []models.HistoryEntry{}
	}
	return history
}

// Append prepends the entry, truncates to the cap and rewrites the file,
// returning the new history.
func (s *HistoryService) Append(entry models.HistoryEntry) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append([]models.HistoryEntry{entry}, s.loadLocked()...)
	if len(history) > historyCap {
		history = history[:historyCap]
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return nil, err
	}
	return history, nil
}

// Trend groups the history by mood label and counts occurrences. It returns
// nil for an empty history. Known labels come first in display order,
// followed by any off-catalog labels in first-seen order. This is a frequency
// chart, not a chronological one.
func (s *HistoryService) Trend(history []models.HistoryEntry) *models.MoodTrend {
	if len(history) == 0 {
		return nil
	}

	counts := make(map[string]int, len(history))
	var extras []string
	for _, entry := range history {
		if _, seen := counts[entry.Mood]; !seen && !isKnownMood(entry.Mood) {
			extras = append(extras, entry.Mood)
		}
		counts[entry.Mood]++
	}

	trend := &models.MoodTrend{Total: len(history)}
	for _, label := range models.MoodLabels {
		if n := counts[label]; n > 0 {
			trend.Labels = append(trend.Labels, label)
			trend.Counts = append(trend.Counts, n)
		}
	}
	for _, label := range extras {
		trend.Labels = append(trend.Labels, label)
		trend.Counts = append(trend.Counts, counts[label])
	}
	return trend
}

func isKnownMood(mood string) bool {
	for _, label := range models.MoodLabels {
		if mood == label {
			return true
		}
	}
	return false
}
