package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkExtinction         BookmarkType = "extinction"
	BookmarkSpeciationBurst    BookmarkType = "speciation_burst"
	BookmarkCarnivoreEmergence BookmarkType = "carnivore_emergence"
	BookmarkPopulationCrash    BookmarkType = "population_crash"
	BookmarkStableEcosystem    BookmarkType = "stable_ecosystem"
)

// stableTurns is how many consecutive low-variance turns mark a stable ecosystem.
const stableTurns = 5

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Turn        int          `csv:"turn" json:"turn"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"turn", b.Turn,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in a run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []TurnSummary
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentPopPeak    int // peak total population since the last crash
	prevCarnivores   int
	stableTurnsCount int // consecutive turns with a steady species count
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable ecosystem detection
	}
	return &BookmarkDetector{
		history:     make([]TurnSummary, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest summary and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(s TurnSummary) []Bookmark {
	var bookmarks []Bookmark

	if s.Extinct {
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkExtinction,
			Turn:        s.Turn,
			Description: fmt.Sprintf("All species extinct after %d extinctions this turn", s.Events.Extinctions),
		})
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkSpeciationBurst(s); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkCarnivoreEmergence(s); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkPopulationCrash(s); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStableEcosystem(s); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(s)

	bd.prevCarnivores = s.CarnivoreCount()
	if pop := s.TotalPopulation(); pop > bd.recentPopPeak {
		bd.recentPopPeak = pop
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(s TurnSummary) {
	bd.history[bd.historyIdx] = s
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the retained summaries, oldest first.
func (bd *BookmarkDetector) getHistory() []TurnSummary {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]TurnSummary, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) checkSpeciationBurst(s TurnSummary) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Events.Speciations
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	n := s.Events.Speciations
	if float64(n) > avg*2.0 && n >= 3 {
		return &Bookmark{
			Type:        BookmarkSpeciationBurst,
			Turn:        s.Turn,
			Description: fmt.Sprintf("%d speciations is %.1fx average (%.2f)", n, float64(n)/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkCarnivoreEmergence(s TurnSummary) *Bookmark {
	n := s.CarnivoreCount()
	if bd.prevCarnivores != 0 || n == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkCarnivoreEmergence,
		Turn:        s.Turn,
		Description: fmt.Sprintf("%d carnivorous species appeared", n),
	}
}

func (bd *BookmarkDetector) checkPopulationCrash(s TurnSummary) *Bookmark {
	if bd.recentPopPeak == 0 {
		return nil
	}

	pop := s.TotalPopulation()
	dropPercent := 1.0 - float64(pop)/float64(bd.recentPopPeak)
	if dropPercent > 0.30 && pop <= bd.recentPopPeak-5 {
		// Reset peak after crash
		oldPeak := bd.recentPopPeak
		bd.recentPopPeak = pop

		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Turn:        s.Turn,
			Description: fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", dropPercent*100, oldPeak, pop),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStableEcosystem(s TurnSummary) *Bookmark {
	// Need a few lineages coexisting
	if s.SpeciesCount < 3 {
		bd.stableTurnsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	recent := history[len(history)-4:]
	counts := make([]float64, 0, len(recent)+1)
	for _, h := range recent {
		counts = append(counts, float64(h.SpeciesCount))
	}
	counts = append(counts, float64(s.SpeciesCount))

	// Low variance: coefficient of variation < 20%
	mean, variance := stat.PopMeanVariance(counts, nil)
	cv2 := 0.0
	if mean > 0 {
		cv2 = variance / (mean * mean)
	}

	if cv2 < 0.04 {
		bd.stableTurnsCount++
	} else {
		bd.stableTurnsCount = 0
	}

	if bd.stableTurnsCount == stableTurns { // trigger exactly once per stable stretch
		return &Bookmark{
			Type:        BookmarkStableEcosystem,
			Turn:        s.Turn,
			Description: fmt.Sprintf("Stable ecosystem with %d species over %d+ turns", s.SpeciesCount, stableTurns),
		}
	}
	return nil
}
