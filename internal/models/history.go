package models

// HistoryTimestampFormat is the wire format for history entry timestamps
const HistoryTimestampFormat = "2006-01-02 15:04"

// HistoryEntry is a persisted record of one completed analysis.
// The input field is truncated before storage; full inputs never persist.
type HistoryEntry struct {
	Timestamp  string `json:"timestamp"`
	Input      string `json:"input"`
	Mood       string `json:"mood"`
	Confidence int    `json:"confidence"`
	Summary    string `json:"summary"`
}

// MoodTrend is the entry-count-per-mood-label aggregation over history.
// Despite the name there is no chronology here: it is a simple frequency
// count, which is what the chart displays.
type MoodTrend struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
	Total  int      `json:"total"`
}
