package sync

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/quipsync/quipsync/internal/config"
	"github.com/quipsync/quipsync/internal/utils"
)

// StateFileName is the flat JSON state file kept at the sync target root.
// Deleting it is the documented way to force a full re-sync.
const StateFileName = ".quip_sync_state.json"

// StateEntry records one document's last successful export. Keyed by
// document id (not path) so renames and moves are still recognized as the
// same logical document.
type StateEntry struct {
	Title       string `json:"title"`
	UpdatedUsec int64  `json:"updated_usec"`
	Path        string `json:"path"`
	Format      string `json:"format"`
}

type stateFile struct {
	Documents map[string]StateEntry `json:"documents"`
	LastSync  string                `json:"last_sync,omitempty"`
}

// StateStore persists per-document sync state across runs. A missing or
// unreadable state file means "never synced", never an error.
type StateStore struct {
	path  string
	state stateFile
}

// LoadState reads the state file under targetDir.
func LoadState(targetDir string) *StateStore {
	s := &StateStore{
		path: filepath.Join(targetDir, StateFileName),
		state: stateFile{
			Documents: make(map[string]StateEntry),
		},
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("sync state unreadable, starting fresh", "path", s.path, "error", err)
		}
		return s
	}

	var parsed stateFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		slog.Warn("sync state corrupt, starting fresh", "path", s.path, "error", err)
		return s
	}
	if parsed.Documents == nil {
		parsed.Documents = make(map[string]StateEntry)
	}
	s.state = parsed
	return s
}

// ShouldExport decides whether the document needs (re)downloading. Full
// mode always exports. Incremental mode skips only when the stored
// timestamp is current AND the output file is still on disk.
func (s *StateStore) ShouldExport(id string, updatedUsec int64, mode config.Mode, outputPath string) bool {
	if mode == config.ModeFull {
		return true
	}

	entry, ok := s.state.Documents[id]
	if !ok {
		return true
	}
	if entry.UpdatedUsec < updatedUsec {
		return true
	}
	return !utils.FileExists(outputPath)
}

// RecordSuccess stores the document's export as the new baseline.
func (s *StateStore) RecordSuccess(id string, entry StateEntry) {
	s.state.Documents[id] = entry
}

// Entry returns the stored entry for a document id, if any.
func (s *StateStore) Entry(id string) (StateEntry, bool) {
	entry, ok := s.state.Documents[id]
	return entry, ok
}

// Len returns the number of documents with a recorded export.
func (s *StateStore) Len() int {
	return len(s.state.Documents)
}

// LastSync returns the recorded completion time of the previous run, or ""
// when there was none.
func (s *StateStore) LastSync() string {
	return s.state.LastSync
}

// Save writes the state file atomically: a temp file in the same directory
// is renamed over the old state, so a reader never observes a partial file.
func (s *StateStore) Save() error {
	s.state.LastSync = time.Now().Format(time.RFC3339)

	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sync state: %w", err)
	}

	if err := utils.EnsureParent(s.path); err != nil {
		return fmt.Errorf("sync state dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), StateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("sync state temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close sync state: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace sync state: %w", err)
	}
	return nil
}
