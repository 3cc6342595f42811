package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEngineRunsToMaxTicks(t *testing.T) {
	e := NewEngine(4)
	e.MaxTicks = 12

	var ticks int
	var days []int
	e.OnTick = func(uint64) { ticks++ }
	e.OnDay = func(_ uint64, day int) { days = append(days, day) }

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ticks != 12 {
		t.Fatalf("ticks = %d, want 12", ticks)
	}
	if len(days) != 3 || days[0] != 1 || days[2] != 3 {
		t.Fatalf("days = %v, want [1 2 3]", days)
	}
	if e.Day() != 3 {
		t.Fatalf("Day = %d", e.Day())
	}
}

func TestEngineStopsOnCancel(t *testing.T) {
	e := NewEngine(0)
	e.Interval = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	e.OnTick = func(tick uint64) {
		if tick == 5 {
			cancel()
		}
	}
	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if e.Tick != 5 {
		t.Fatalf("tick = %d, want 5", e.Tick)
	}
}

func TestMailbox(t *testing.T) {
	m := NewMailbox(4)
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		if !m.Post(func() { order = append(order, i) }) {
			t.Fatal("post refused on open mailbox")
		}
	}
	if n := m.Drain(); n != 3 {
		t.Fatalf("drained %d, want 3", n)
	}
	if len(order) != 3 || order[0] != 1 || order[2] != 3 {
		t.Fatalf("order = %v", order)
	}

	m.Close()
	m.Close()
	if m.Post(func() {}) {
		t.Fatal("post accepted after close")
	}
	if m.Wait(context.Background()) {
		t.Fatal("wait ran after close")
	}
}

func TestSnapshotSummary(t *testing.T) {
	s := Snapshot{
		Season:    "Winter",
		Weather:   "snow",
		Colonists: []Colonist{{Name: "Ana", Health: 0.2}, {Name: "Bo", Health: 0.9}},
		Factions:  []Faction{{ID: "f1", Name: "Ashen", Hostile: true, Goodwill: -70}, {ID: "f2", Name: "Gone", Defeated: true}},
		Resources: map[string]int{"silver": 12500},
	}
	got := s.Summary()
	for _, want := range []string{"Ana (badly hurt)", "Bo (healthy)", "silver 12,500", "Ashen (f1): hostile"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Gone") {
		t.Fatal("defeated faction listed")
	}
	if ids := s.FactionIDs(); len(ids) != 1 || ids[0] != "f1" {
		t.Fatalf("FactionIDs = %v", ids)
	}
	if SimTime(0, 24) != "Spring day 1, 00:00, year 1" {
		t.Fatalf("SimTime = %q", SimTime(0, 24))
	}
}
