package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/pthm-cable/wateringhole/config"
	"github.com/pthm-cable/wateringhole/telemetry"
	"github.com/pthm-cable/wateringhole/traits"
)

// Options configures a Runner.
type Options struct {
	Seed        int64
	Turns       int  // 0 uses simulation.turns from config
	LogStats    bool // log turn summaries, stats and bookmarks via slog
	OutputDir   string
	SnapshotDir string
	StorePath   string // SQLite run store; empty disables it
}

// Report summarizes a finished run.
type Report struct {
	RunID        string
	Seed         int64
	Turns        int
	Reseeds      int
	Extinct      bool // the run stopped on an extinction with reseeding disabled
	FinalSpecies int
	FinalFood    int
	PeakSpecies  int
	PeakTurn     int
	Traits       []traits.TallyEntry
	HallOfFame   []telemetry.HallEntry
}

// Runner drives an ecosystem for a number of turns, applies the extinction
// reseed policy and fans each turn out to the telemetry sinks.
type Runner struct {
	cfg  *config.Config
	opts Options
	eco  *Ecosystem

	history    *telemetry.History
	lineage    *telemetry.LineageTracker
	hallOfFame *telemetry.HallOfFame
	bookmarks  *telemetry.BookmarkDetector
	perf       *telemetry.PerfCollector

	output *telemetry.OutputManager
	store  *telemetry.RunStore
	stream *telemetry.Stream
	runID  string

	onTurn  func(telemetry.TurnSummary)
	reseeds int
}

// NewRunner builds the ecosystem and opens the configured sinks.
func NewRunner(ctx context.Context, cfg *config.Config, opts Options) (*Runner, error) {
	eco, err := NewEcosystem(cfg, rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return nil, err
	}
	if opts.Turns <= 0 {
		opts.Turns = cfg.Simulation.Turns
	}

	tc := cfg.Telemetry
	r := &Runner{
		cfg:        cfg,
		opts:       opts,
		eco:        eco,
		history:    telemetry.NewHistory(cfg.Derived.Catalog),
		lineage:    telemetry.NewLineageTracker(),
		hallOfFame: telemetry.NewHallOfFame(tc.HallOfFameSize),
		bookmarks:  telemetry.NewBookmarkDetector(tc.BookmarkHistorySize),
		perf:       telemetry.NewPerfCollector(tc.PerfWindow),
	}
	r.lineage.OnDeath(func(ls *telemetry.LineageStats) {
		r.hallOfFame.Consider(ls, eco.Turn())
	})
	eco.SetLineageTracker(r.lineage)
	eco.SetPerfCollector(r.perf)

	r.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := r.output.WriteConfig(cfg); err != nil {
		r.Close()
		return nil, err
	}

	if opts.StorePath != "" {
		r.store = telemetry.NewRunStore(opts.StorePath)
		if err := r.store.Init(ctx); err != nil {
			r.Close()
			return nil, err
		}
		data, err := cfg.YAML()
		if err != nil {
			r.Close()
			return nil, err
		}
		if r.runID, err = r.store.BeginRun(ctx, opts.Seed, data); err != nil {
			r.Close()
			return nil, fmt.Errorf("registering run: %w", err)
		}
	}

	return r, nil
}

// SetStream publishes every turn summary to s.
func (r *Runner) SetStream(s *telemetry.Stream) {
	r.stream = s
}

// OnTurn registers a callback invoked with every turn summary.
func (r *Runner) OnTurn(fn func(telemetry.TurnSummary)) {
	r.onTurn = fn
}

// Ecosystem returns the engine being driven.
func (r *Runner) Ecosystem() *Ecosystem {
	return r.eco
}

// History returns the caller-owned run history.
func (r *Runner) History() *telemetry.History {
	return r.history
}

// RunID returns the run store identifier, or "" when the store is disabled.
func (r *Runner) RunID() string {
	return r.runID
}

// Run steps the ecosystem until the configured number of turns, an
// unrecovered extinction, an invariant violation or ctx cancellation.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	slog.Info("starting run",
		"seed", r.opts.Seed,
		"turns", r.opts.Turns,
		"run_id", r.runID,
		"reseed_on_extinction", r.cfg.Simulation.ReseedOnExtinction,
	)

	rep := Report{RunID: r.runID, Seed: r.opts.Seed}
	for r.eco.Turn() < r.opts.Turns {
		if err := ctx.Err(); err != nil {
			return r.finish(rep), err
		}

		if r.eco.IsExtinct() {
			if !r.cfg.Simulation.ReseedOnExtinction {
				rep.Extinct = true
				break
			}
			r.reseed()
		}

		sum, err := r.eco.Step()
		if err != nil {
			return r.finish(rep), err
		}
		r.observe(ctx, sum)

		if sum.Extinct {
			slog.Info("EXTINCTION", "turn", sum.Turn, "reseed", r.cfg.Simulation.ReseedOnExtinction)
		}
	}

	if r.eco.IsExtinct() && !r.cfg.Simulation.ReseedOnExtinction {
		rep.Extinct = true
	}
	return r.finish(rep), nil
}

func (r *Runner) reseed() {
	id := r.eco.SpawnFounder()
	r.reseeds++
	slog.Info("reseeded", "turn", r.eco.Turn(), "species", id)
}

// observe fans a summary out to every sink. Sink failures are logged, never fatal.
func (r *Runner) observe(ctx context.Context, sum telemetry.TurnSummary) {
	r.history.Record(sum)
	tc := r.cfg.Telemetry

	if r.opts.LogStats {
		slog.Info("turn", "summary", sum)
		if tc.StatsWindow > 0 && sum.Turn%tc.StatsWindow == 0 {
			telemetry.Distributions(sum).LogStats(sum.Turn)
		}
	}

	if err := r.output.WriteTurn(sum); err != nil {
		slog.Error("failed to write turn", "error", err)
	}
	if tc.PerfWindow > 0 && sum.Turn%tc.PerfWindow == 0 {
		perfStats := r.perf.Stats()
		if r.opts.LogStats {
			perfStats.LogStats()
		}
		if err := r.output.WritePerf(perfStats, sum.Turn); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range r.bookmarks.Check(sum) {
		if r.opts.LogStats {
			bm.LogBookmark()
		}
		if err := r.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if r.opts.SnapshotDir != "" {
			r.saveSnapshot(sum, &bm)
		}
	}

	if r.store != nil {
		if err := r.store.SaveTurn(ctx, r.runID, sum); err != nil {
			slog.Error("failed to store turn", "turn", sum.Turn, "error", err)
		}
	}
	if r.stream != nil {
		if err := r.stream.Publish(ctx, sum); err != nil {
			slog.Error("failed to publish turn", "turn", sum.Turn, "error", err)
		}
	}
	if r.onTurn != nil {
		r.onTurn(sum)
	}
}

func (r *Runner) saveSnapshot(sum telemetry.TurnSummary, bm *telemetry.Bookmark) {
	snapshot := telemetry.NewSnapshot(r.opts.Seed, r.runID, sum, r.lineage, bm)
	path, err := telemetry.SaveSnapshot(snapshot, r.opts.SnapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "turn", sum.Turn)
}

// finish ranks the surviving lineages, writes end-of-run output and fills the report.
func (r *Runner) finish(rep Report) Report {
	turn := r.eco.Turn()
	living := make([]*telemetry.LineageStats, 0, r.lineage.Count())
	for _, ls := range r.lineage.All() {
		living = append(living, ls)
	}
	sort.Slice(living, func(i, j int) bool { return living[i].ID < living[j].ID })
	for _, ls := range living {
		r.hallOfFame.Consider(ls, turn)
	}

	rep.Turns = turn
	rep.Reseeds = r.reseeds
	rep.FinalSpecies = len(r.eco.Species())
	rep.FinalFood = r.eco.Food()
	rep.PeakSpecies, rep.PeakTurn = r.history.PeakSpecies()
	rep.Traits = r.history.TraitFrequencies()
	rep.HallOfFame = r.hallOfFame.Entries()

	if err := r.output.WriteTraits(rep.Traits); err != nil {
		slog.Error("failed to write traits", "error", err)
	}
	if err := r.output.WriteHallOfFame(r.hallOfFame); err != nil {
		slog.Error("failed to write hall of fame", "error", err)
	}
	return rep
}

// Close releases the output files and the run store.
func (r *Runner) Close() error {
	var firstErr error
	if err := r.output.Close(); err != nil {
		firstErr = err
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
