package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/wateringhole/config"
	"github.com/pthm-cable/wateringhole/game"
	"github.com/pthm-cable/wateringhole/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	turns := flag.Int("turns", 0, "Number of turns to run (0 = use config)")
	logStats := flag.Bool("log-stats", false, "Output turn summaries and stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshot files")
	storePath := flag.String("store", "", "SQLite database recording every turn (empty = disabled)")
	streamAddr := flag.String("stream-addr", "", "Serve live turn summaries over websocket at this address")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, game.Options{
		Seed:        rngSeed,
		Turns:       *turns,
		LogStats:    *logStats,
		OutputDir:   *outputDir,
		SnapshotDir: *snapshotDir,
		StorePath:   *storePath,
	}, *streamAddr); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts game.Options, streamAddr string) error {
	runner, err := game.NewRunner(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			slog.Error("failed to close outputs", "error", err)
		}
	}()

	if streamAddr != "" {
		stream := telemetry.NewStream()
		defer stream.Close()
		runner.SetStream(stream)

		mux := http.NewServeMux()
		mux.Handle("/stream", stream)
		srv := &http.Server{Addr: streamAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("streaming turns", "addr", streamAddr, "path", "/stream")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("stream server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	start := time.Now()
	rep, err := runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("run interrupted", "turn", rep.Turns)
		err = nil
	}
	if err != nil {
		return err
	}

	slog.Info("run complete",
		"run_id", rep.RunID,
		"seed", rep.Seed,
		"turns", rep.Turns,
		"reseeds", rep.Reseeds,
		"extinct", rep.Extinct,
		"final_species", rep.FinalSpecies,
		"final_food", rep.FinalFood,
		"peak_species", rep.PeakSpecies,
		"peak_turn", rep.PeakTurn,
		"elapsed", time.Since(start).String(),
	)
	fmt.Fprint(os.Stderr, formatReport(rep, time.Since(start)))
	return nil
}

// formatReport renders the end-of-run report for a terminal.
func formatReport(rep game.Report, elapsed time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s turns in %s (seed %d)\n", humanize.Comma(int64(rep.Turns)), elapsed.Round(time.Millisecond), rep.Seed)
	if rep.Extinct {
		fmt.Fprintf(&b, "ecosystem went extinct\n")
	} else {
		fmt.Fprintf(&b, "%s species alive, %s food in the watering hole\n",
			humanize.Comma(int64(rep.FinalSpecies)), humanize.Comma(int64(rep.FinalFood)))
	}
	if rep.Reseeds > 0 {
		fmt.Fprintf(&b, "reseeded %s\n", pluralTimes(rep.Reseeds))
	}
	fmt.Fprintf(&b, "peak of %s species on the %s turn\n",
		humanize.Comma(int64(rep.PeakSpecies)), humanize.Ordinal(rep.PeakTurn))

	var total int
	for _, e := range rep.Traits {
		total += e.Count
	}
	if total > 0 {
		fmt.Fprintf(&b, "\ntrait frequencies (%s instance-turns)\n", humanize.Comma(int64(total)))
		for _, e := range rep.Traits {
			if e.Count == 0 {
				continue
			}
			fmt.Fprintf(&b, "  %-18s %10s  %5.1f%%\n", e.Trait, humanize.Comma(int64(e.Count)), 100*float64(e.Count)/float64(total))
		}
	}

	if len(rep.HallOfFame) > 0 {
		fmt.Fprintf(&b, "\nlongest-lived lineages\n")
		for i, h := range rep.HallOfFame {
			fmt.Fprintf(&b, "  %2d. species %-6d %-40s survived %s turns, %s children, fitness %s\n",
				i+1, h.Stats.ID, h.Stats.Traits, humanize.Comma(int64(h.Survival)),
				humanize.Comma(int64(h.Stats.Children)), humanize.FtoaWithDigits(h.Fitness, 1))
		}
	}
	return b.String()
}

func pluralTimes(n int) string {
	if n == 1 {
		return "once"
	}
	return humanize.Comma(int64(n)) + " times"
}
