package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/storyteller/internal/colony"
	"github.com/talgya/storyteller/internal/config"
	"github.com/talgya/storyteller/internal/engine"
	"github.com/talgya/storyteller/internal/llm"
	"github.com/talgya/storyteller/internal/persistence"
)

func runCmd() *cobra.Command {
	var days int
	var seed int64
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo colony and narrate what happens",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("days") {
				cfg.Demo.Days = days
			}
			if cmd.Flags().Changed("seed") {
				cfg.Demo.Seed = seed
			}
			return runColony(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Sim-days to run (0 runs until interrupted)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "World seed")
	return cmd
}

func runColony(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.Storage.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.DB)

	saved, err := db.LoadState()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	// ── LLM Client ───────────────────────────────────────────────────
	client := llm.NewClient(cfg.LLM.APIKey, llm.WithBaseURL(cfg.LLM.BaseURL), llm.WithModel(cfg.LLM.Model))
	if client != nil {
		slog.Info("LLM client enabled", "model", cfg.LLM.Model)
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, narration will use fallback text")
	}

	// ── Colony and session ────────────────────────────────────────────
	col := colony.New(colony.Config{Seed: cfg.Demo.Seed, Colonists: cfg.Demo.Colonists})
	session := engine.NewSession(ctx, engine.Config{
		StoreCapacity:      cfg.Chronicle.Capacity,
		JournalCapacity:    cfg.Session.JournalCapacity,
		DailyLimit:         cfg.LLM.DailyLimit,
		ChoiceIntervalDays: cfg.Session.ChoiceIntervalDays,
		Nemesis:            cfg.Nemesis,
		Narrator: llm.Config{
			Timeout:   cfg.LLM.Timeout,
			TopK:      cfg.Chronicle.TopK,
			MaxTokens: cfg.LLM.MaxTokens,
			Weights:   cfg.Chronicle.Weights,
			Fallbacks: cfg.LLM.FallbackTable(),
		},
	}, engine.Deps{Host: col, Backend: client})
	defer session.Close()

	if err := session.Restore(saved); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	eng := engine.NewEngine(uint64(cfg.Demo.TicksPerDay))
	eng.Tick = saved.Tick
	eng.Interval = cfg.Demo.TickEvery
	if cfg.Demo.Days > 0 {
		eng.MaxTicks = saved.Tick + uint64(cfg.Demo.Days)*eng.TicksPerDay
	}

	// Daily saves are handed to the writer; a save is skipped if the
	// previous one is still being written.
	saves := make(chan engine.State, 1)
	eng.OnTick = session.Tick
	eng.OnDay = func(tick uint64, day int) {
		session.OnDay(day)
		col.Advance(day, session)
		select {
		case saves <- session.State():
		default:
		}
		slog.Debug("day done", "day", day, "sim_time", engine.SimTime(tick, eng.TicksPerDay))
	}

	startDay := eng.Day()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(saves)
		err := eng.Run(gctx)
		if err != nil {
			return err
		}
		flushCtx, cancel := context.WithTimeout(gctx, cfg.LLM.Timeout+cfg.LLM.Timeout/2)
		defer cancel()
		if err := session.Flush(flushCtx); err != nil {
			slog.Warn("requests still in flight at shutdown", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		for st := range saves {
			if err := db.SaveState(st); err != nil {
				return fmt.Errorf("daily save: %w", err)
			}
		}
		return nil
	})

	runErr := g.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run stopped", "error", runErr)
	}

	slog.Info("final save...")
	if err := db.SaveState(session.State()); err != nil {
		return fmt.Errorf("final save: %w", err)
	}

	fmt.Fprintf(os.Stdout, "\n%s\n\n", engine.SimTime(eng.Tick, eng.TicksPerDay))
	for _, e := range session.Journal().All() {
		if e.Day > startDay {
			printEntry(e)
		}
	}
	fmt.Fprintf(os.Stdout, "\n%d LLM requests left today. Session saved to %s.\n",
		session.Gate().Remaining(session.Day()), cfg.Storage.DB)

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
