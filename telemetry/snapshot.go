package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the observable ecosystem state at one turn, for offline
// inspection of bookmarked moments.
type Snapshot struct {
	Version int    `json:"version"`
	RNGSeed int64  `json:"rng_seed"`
	RunID   string `json:"run_id,omitempty"`

	Summary TurnSummary `json:"summary"`

	// Lineage stats of the living species, keyed by species ID
	Lineages map[uint32]LineageStats `json:"lineages,omitempty"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// NewSnapshot captures a summary together with the living lineages' stats.
func NewSnapshot(seed int64, runID string, s TurnSummary, lt *LineageTracker, b *Bookmark) *Snapshot {
	snap := &Snapshot{
		Version:  SnapshotVersion,
		RNGSeed:  seed,
		RunID:    runID,
		Summary:  s,
		Bookmark: b,
	}
	if lt.Count() > 0 {
		snap.Lineages = make(map[uint32]LineageStats, lt.Count())
		for _, r := range s.Species {
			if ls := lt.Get(r.ID); ls != nil {
				snap.Lineages[r.ID] = *ls
			}
		}
	}
	return snap
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Summary.Turn)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Summary.Turn, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snapshot.Version)
	}

	return &snapshot, nil
}
