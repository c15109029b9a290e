package services

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"emoticare/internal/models"
)

func newTestHistory(t *testing.T) *HistoryService {
	t.Helper()
	return NewHistoryService(filepath.Join(t.TempDir(), "journal_history.json"))
}

func testEntry(n int) models.HistoryEntry {
	return models.HistoryEntry{
		Timestamp:  fmt.Sprintf("2026-08-%02d 10:00", n%28+1),
		Input:      fmt.Sprintf("entry %d...", n),
		Mood:       models.MoodNeutral,
		Confidence: 70,
		Summary:    fmt.Sprintf("summary %d", n),
	}
}

func TestLoadAllMissingFile(t *testing.T) {
	history := newTestHistory(t)
	if got := history.LoadAll(); len(got) != 0 {
		t.Errorf("LoadAll on missing file = %v, want empty", got)
	}
}

func TestLoadAllCorruptFileSwallowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal_history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	history := NewHistoryService(path)
	if got := history.LoadAll(); len(got) != 0 {
		t.Errorf("LoadAll on corrupt file = %v, want empty", got)
	}

	// A corrupt file must not block new appends either
	if _, err := history.Append(testEntry(1)); err != nil {
		t.Fatalf("Append after corruption failed: %v", err)
	}
	if got := history.LoadAll(); len(got) != 1 {
		t.Errorf("history after append = %d entries, want 1", len(got))
	}
}

func TestAppendNewestFirstAndCapped(t *testing.T) {
	history := newTestHistory(t)

	var last []models.HistoryEntry
	for i := 0; i < 25; i++ {
		var err error
		last, err = history.Append(testEntry(i))
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	if len(last) != 20 {
		t.Fatalf("history length = %d, want cap of 20", len(last))
	}

	// Newest first: the last appended entry leads, the oldest surviving
	// entry is number 5 (entries 0-4 were evicted).
	if last[0].Summary != "summary 24" {
		t.Errorf("first entry = %q, want summary 24", last[0].Summary)
	}
	if last[19].Summary != "summary 5" {
		t.Errorf("last entry = %q, want summary 5", last[19].Summary)
	}

	// The persisted file must agree with the returned slice
	reloaded := history.LoadAll()
	if len(reloaded) != 20 || reloaded[0].Summary != "summary 24" {
		t.Errorf("reloaded history disagrees: len=%d first=%q", len(reloaded), reloaded[0].Summary)
	}
}

func TestTrendEmptyHistory(t *testing.T) {
	history := newTestHistory(t)
	if trend := history.Trend(nil); trend != nil {
		t.Errorf("Trend(empty) = %v, want nil", trend)
	}
}

func TestTrendCountsByMood(t *testing.T) {
	history := newTestHistory(t)

	entries := []models.HistoryEntry{
		{Mood: models.MoodHappy},
		{Mood: models.MoodAnxious},
		{Mood: models.MoodHappy},
		{Mood: "Wistful"}, // off-catalog label still counts
	}

	trend := history.Trend(entries)
	if trend == nil {
		t.Fatal("Trend = nil")
	}
	if trend.Total != 4 {
		t.Errorf("Total = %d, want 4", trend.Total)
	}

	counts := make(map[string]int)
	for i, label := range trend.Labels {
		counts[label] = trend.Counts[i]
	}
	if counts[models.MoodHappy] != 2 {
		t.Errorf("Happy count = %d, want 2", counts[models.MoodHappy])
	}
	if counts[models.MoodAnxious] != 1 {
		t.Errorf("Anxious count = %d, want 1", counts[models.MoodAnxious])
	}
	if counts["Wistful"] != 1 {
		t.Errorf("Wistful count = %d, want 1", counts["Wistful"])
	}

	// Known labels come before off-catalog ones
	if trend.Labels[len(trend.Labels)-1] != "Wistful" {
		t.Errorf("labels = %v, want off-catalog label last", trend.Labels)
	}
}
