// Package engine runs the storyteller session on a tick loop.
//
// All session state belongs to the goroutine running Engine.Run. Backend calls
// happen elsewhere and hand their results back through the Mailbox, which the
// loop drains every tick.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const DefaultTicksPerDay = 24

// Engine drives the simulation forward.
type Engine struct {
	Tick        uint64        // Current tick counter (monotonic, never resets)
	TicksPerDay uint64        // Ticks in one sim-day
	Interval    time.Duration // Wall time per tick; 0 runs as fast as possible
	MaxTicks    uint64        // Stop after this tick; 0 runs until canceled

	// Callbacks for each tick layer, populated during setup.
	OnTick func(tick uint64)          // Every tick
	OnDay  func(tick uint64, day int) // Every TicksPerDay ticks
}

// NewEngine creates an engine with default settings.
func NewEngine(ticksPerDay uint64) *Engine {
	if ticksPerDay == 0 {
		ticksPerDay = DefaultTicksPerDay
	}
	return &Engine{TicksPerDay: ticksPerDay}
}

// Run steps the engine until ctx is canceled or MaxTicks is reached.
// It returns nil when MaxTicks was reached.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine started", "tick", e.Tick, "ticks_per_day", e.TicksPerDay, "max_ticks", e.MaxTicks)

	var ticker *time.Ticker
	if e.Interval > 0 {
		ticker = time.NewTicker(e.Interval)
		defer ticker.Stop()
	}

	for e.MaxTicks == 0 || e.Tick < e.MaxTicks {
		if err := ctx.Err(); err != nil {
			slog.Info("engine stopped", "tick", e.Tick)
			return err
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				continue
			case <-ticker.C:
			}
		}
		e.Step()
	}

	slog.Info("engine finished", "tick", e.Tick, "day", e.Day())
	return nil
}

// Step advances the engine by one tick.
func (e *Engine) Step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
	if e.Tick%e.TicksPerDay == 0 && e.OnDay != nil {
		e.OnDay(e.Tick, e.Day())
	}
}

// Day returns the current sim-day, starting at 0.
func (e *Engine) Day() int {
	return int(e.Tick / e.TicksPerDay)
}

// SimTime returns a human-readable time for a tick.
func SimTime(tick, ticksPerDay uint64) string {
	if ticksPerDay == 0 {
		ticksPerDay = DefaultTicksPerDay
	}
	day := tick / ticksPerDay
	hour := (tick % ticksPerDay) * 24 / ticksPerDay

	seasonNames := [4]string{"Spring", "Summer", "Autumn", "Winter"}
	season := (day / 15) % 4
	year := day/60 + 1

	return fmt.Sprintf("%s day %d, %02d:00, year %d", seasonNames[season], day%15+1, hour, year)
}
