package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emoticare/internal/models"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

// ExportedSession describes one generated session export file
type ExportedSession struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"-"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportService writes session summaries to plain-text files on demand and
// tracks them in a TTL cache. Expired entries have their backing file removed
// by the eviction hook; SweepOrphans covers files left behind by restarts.
type ExportService struct {
	outputDir string
	ttl       time.Duration
	sessions  *cache.Cache
}

// NewExportService creates the export service and its output directory
func NewExportService(outputDir string, ttl time.Duration) (*ExportService, error) {
	if err := os.MkdirAll(outputDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	sessions := cache.New(ttl, 10*time.Minute)
	sessions.OnEvicted(func(id string, value interface{}) {
		session, ok := value.(*ExportedSession)
		if !ok {
			return
		}
		if err := os.Remove(session.FilePath); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️  [EXPORT] Failed to remove expired export %s: %v", session.Filename, err)
		} else {
			log.Printf("🗑️  [EXPORT] Removed expired export %s", session.Filename)
		}
	})

	return &ExportService{
		outputDir: outputDir,
		ttl:       ttl,
		sessions:  sessions,
	}, nil
}

// Export writes a session_<unix>.txt file with the mood, therapy text and
// actions block, and registers it for download.
func (s *ExportService) Export(moodLabel, therapy string, actions models.ActionPlan) (*ExportedSession, error) {
	filename := fmt.Sprintf("session_%d.txt", time.Now().Unix())
	filePath := filepath.Join(s.outputDir, filename)

	var sb strings.Builder
	sb.WriteString("EmotiCare Session\n")
	sb.WriteString("Mood: " + moodLabel + "\n\n")
	sb.WriteString("Therapy:\n" + therapy + "\n\n")
	sb.WriteString("Actions:\n")
	sb.WriteString("Breathe: " + actions.Breathing + "\n")
	sb.WriteString("Do Now: " + actions.Immediate + "\n")
	sb.WriteString("Plan: " + actions.LongTerm + "\n")

	if err := os.WriteFile(filePath, []byte(sb.String()), 0600); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}

	session := &ExportedSession{
		ID:        uuid.NewString(),
		Filename:  filename,
		FilePath:  filePath,
		Size:      int64(sb.Len()),
		CreatedAt: time.Now(),
	}
	s.sessions.Set(session.ID, session, cache.DefaultExpiration)

	log.Printf("📥 [EXPORT] Wrote session export %s (%d bytes)", filename, session.Size)
	return session, nil
}

// Get looks up a registered export by ID
func (s *ExportService) Get(id string) (*ExportedSession, bool) {
	value, found := s.sessions.Get(id)
	if !found {
		return nil, false
	}
	session, ok := value.(*ExportedSession)
	return session, ok
}

// SweepOrphans removes session_*.txt files older than the TTL that are no
// longer tracked in the cache (e.g. after a restart). Run periodically.
func (s *ExportService) SweepOrphans() error {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read export directory: %w", err)
	}

	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "session_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.outputDir, name)); err != nil {
			log.Printf("⚠️  [EXPORT] Sweep could not remove %s: %v", name, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("🗑️  [EXPORT] Sweep removed %d expired export file(s)", removed)
	}
	return nil
}
