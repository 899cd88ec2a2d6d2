package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/wateringhole/config"
	"github.com/pthm-cable/wateringhole/traits"
)

// csvFile is an append-only CSV file that writes its header once.
type csvFile struct {
	name          string
	f             *os.File
	headerWritten bool
}

func createCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{name: name, f: f}, nil
}

// write appends records, a slice of gocsv-tagged structs.
func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.f); err != nil {
			return fmt.Errorf("writing %s: %w", c.name, err)
		}
		c.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, c.f); err != nil {
		return fmt.Errorf("writing %s: %w", c.name, err)
	}
	return nil
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir string

	turns     *csvFile
	species   *csvFile
	bookmarks *csvFile
	perf      *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		dst  **csvFile
		name string
	}{
		{&om.turns, "turns.csv"},
		{&om.species, "species.csv"},
		{&om.bookmarks, "bookmarks.csv"},
		{&om.perf, "perf.csv"},
	}
	for _, file := range files {
		f, err := createCSV(dir, file.name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*file.dst = f
	}

	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTurn writes one turn to turns.csv and its species to species.csv.
func (om *OutputManager) WriteTurn(s TurnSummary) error {
	if om == nil {
		return nil
	}
	if err := om.turns.write([]TurnRow{s.Row()}); err != nil {
		return err
	}
	rows := s.SpeciesRows()
	if len(rows) == 0 {
		return nil
	}
	return om.species.write(rows)
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return om.bookmarks.write([]Bookmark{b})
}

// WritePerf writes per-phase timings to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, turn int) error {
	if om == nil {
		return nil
	}
	rows := stats.ToCSV(turn)
	if len(rows) == 0 {
		return nil
	}
	return om.perf.write(rows)
}

// WriteTraits writes the accumulated trait frequencies to traits.csv.
func (om *OutputManager) WriteTraits(entries []traits.TallyEntry) error {
	if om == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, "traits.csv"))
	if err != nil {
		return fmt.Errorf("creating traits.csv: %w", err)
	}
	defer f.Close()

	if err := gocsv.Marshal(entries, f); err != nil {
		return fmt.Errorf("writing traits.csv: %w", err)
	}
	return nil
}

// WriteHallOfFame saves the hall of fame as JSON.
func (om *OutputManager) WriteHallOfFame(hof *HallOfFame) error {
	if om == nil || hof == nil {
		return nil
	}

	data, err := hof.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "hall_of_fame.json"), data, 0644); err != nil {
		return fmt.Errorf("writing hall_of_fame.json: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{om.turns, om.species, om.bookmarks, om.perf} {
		if c == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
