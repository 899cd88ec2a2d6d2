package telemetry

import (
	"log/slog"
	"sort"
	"time"
)

// PerfSample holds timing data for a single turn.
type PerfSample struct {
	TurnDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks per-phase turn timings over a rolling window.
// A nil *PerfCollector ignores every call.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	turnStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of turns to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 50
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTurn begins timing a new turn.
func (p *PerfCollector) StartTurn() {
	if p == nil {
		return
	}
	p.turnStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	if p == nil {
		return
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTurn finishes timing the current turn and records the sample.
func (p *PerfCollector) EndTurn() {
	if p == nil {
		return
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		TurnDuration: now.Sub(p.turnStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Turn timing
	AvgTurnDuration time.Duration
	MinTurnDuration time.Duration
	MaxTurnDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total turn time
	PhasePct map[string]float64

	// Throughput
	TurnsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p == nil || p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var totalTurn time.Duration
	var minTurn, maxTurn time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTurn += s.TurnDuration

		if i == 0 || s.TurnDuration < minTurn {
			minTurn = s.TurnDuration
		}
		if s.TurnDuration > maxTurn {
			maxTurn = s.TurnDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avgTurn := totalTurn / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTurn > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTurn) * 100
		}
	}

	var turnsPerSec float64
	if avgTurn > 0 {
		turnsPerSec = float64(time.Second) / float64(avgTurn)
	}

	return PerfStats{
		AvgTurnDuration: avgTurn,
		MinTurnDuration: minTurn,
		MaxTurnDuration: maxTurn,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		TurnsPerSecond:  turnsPerSec,
	}
}

// Phases returns the tracked phase names, slowest first.
func (s PerfStats) Phases() []string {
	names := make([]string, 0, len(s.PhaseAvg))
	for name := range s.PhaseAvg {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.PhaseAvg[names[i]] != s.PhaseAvg[names[j]] {
			return s.PhaseAvg[names[i]] > s.PhaseAvg[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_turn_us", s.AvgTurnDuration.Microseconds(),
		"min_turn_us", s.MinTurnDuration.Microseconds(),
		"max_turn_us", s.MaxTurnDuration.Microseconds(),
		"turns_per_sec", int(s.TurnsPerSecond),
	}

	for _, phase := range s.Phases() {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_turn_us", s.AvgTurnDuration.Microseconds()),
		slog.Int64("min_turn_us", s.MinTurnDuration.Microseconds()),
		slog.Int64("max_turn_us", s.MaxTurnDuration.Microseconds()),
		slog.Float64("turns_per_sec", s.TurnsPerSecond),
	}
	for _, phase := range s.Phases() {
		attrs = append(attrs, slog.Float64(phase+"_pct", s.PhasePct[phase]))
	}
	return slog.GroupValue(attrs...)
}

// PerfPhaseCSV is one phase's timing at the end of a window, written to perf.csv.
type PerfPhaseCSV struct {
	Turn      int     `csv:"turn"`
	Phase     string  `csv:"phase"`
	AvgUS     float64 `csv:"avg_us"`
	Pct       float64 `csv:"pct"`
	AvgTurnUS int64   `csv:"avg_turn_us"`
}

// ToCSV flattens PerfStats into one row per phase, slowest first.
func (s PerfStats) ToCSV(turn int) []PerfPhaseCSV {
	rows := make([]PerfPhaseCSV, 0, len(s.PhaseAvg))
	for _, phase := range s.Phases() {
		rows = append(rows, PerfPhaseCSV{
			Turn:      turn,
			Phase:     phase,
			AvgUS:     float64(s.PhaseAvg[phase].Nanoseconds()) / 1e3,
			Pct:       s.PhasePct[phase],
			AvgTurnUS: s.AvgTurnDuration.Microseconds(),
		})
	}
	return rows
}
