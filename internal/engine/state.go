package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/storyteller/internal/chronicle"
	"github.com/talgya/storyteller/internal/journal"
	"github.com/talgya/storyteller/internal/llm"
	"github.com/talgya/storyteller/internal/nemesis"
)

// State is everything a session persists between runs.
type State struct {
	Day        int
	Tick       uint64
	LastChoice string
	Events     []chronicle.Event
	Nemeses    []nemesis.Profile
	Journal    []journal.Entry
	Budget     llm.Budget
}

// State captures the session for saving.
func (s *Session) State() State {
	return State{
		Day:        s.day,
		Tick:       s.tick,
		LastChoice: s.lastChoice,
		Events:     s.store.All(),
		Nemeses:    s.tracker.Profiles(),
		Journal:    s.journal.All(),
		Budget:     s.gate.Budget(),
	}
}

// Restore loads saved state into a fresh session.
func (s *Session) Restore(st State) error {
	if err := s.tracker.Restore(st.Nemeses); err != nil {
		return fmt.Errorf("restore nemeses: %w", err)
	}
	s.store.Restore(st.Events)
	s.journal.Restore(st.Journal)
	s.gate.Restore(st.Budget)

	s.day = st.Day
	for _, e := range st.Events {
		if e.Day > s.day {
			s.day = e.Day
		}
	}
	s.tick = st.Tick
	s.lastChoice = st.LastChoice

	slog.Info("session restored", "day", s.day, "events", s.store.Len(),
		"nemeses", s.tracker.Len(), "journal", s.journal.Len())
	return nil
}
