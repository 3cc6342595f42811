// Package chronicle keeps the bounded history of notable colony events and
// ranks it against the situation at hand for prompt context.
package chronicle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of events kept before the oldest is evicted.
const DefaultCapacity = 100

// EventType tags what kind of happening an event records.
type EventType string

const (
	TypeDeath       EventType = "death"
	TypeRecruitment EventType = "recruitment"
	TypeRaid        EventType = "raid"
	TypeArtifact    EventType = "artifact"
	TypeNemesis     EventType = "nemesis"
	TypeChoice      EventType = "choice"
	TypeArrival     EventType = "arrival"
	TypeOther       EventType = "other"
)

var (
	ErrDayRegressed         = errors.New("event day is earlier than the last recorded day")
	ErrNegativeSignificance = errors.New("significance must be non-negative")
)

// Event is a single remembered happening. Events are immutable once appended.
type Event struct {
	ID             string    `json:"id"`
	Summary        string    `json:"summary"`
	Type           EventType `json:"type"`
	Day            int       `json:"day"`
	Keywords       []string  `json:"keywords"`
	ParticipantIDs []string  `json:"participant_ids"`
	Significance   float64   `json:"significance"`
}

// clone returns a deep copy so callers never share backing arrays with the store.
func (e Event) clone() Event {
	e.Keywords = append([]string(nil), e.Keywords...)
	e.ParticipantIDs = append([]string(nil), e.ParticipantIDs...)
	return e
}

// Store is an append-only log capped at a fixed capacity. When full, the
// oldest inserted event is dropped regardless of its significance.
//
// Store is not safe for concurrent use; it belongs to the tick goroutine.
type Store struct {
	events   []Event
	capacity int
	lastDay  int
}

// NewStore creates a store holding at most capacity events.
// A non-positive capacity falls back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}
}

// Append records an event, assigning an ID when it has none, and evicts the
// oldest entry if the store is over capacity. The stored copy is returned.
func (s *Store) Append(e Event) (Event, error) {
	if e.Significance < 0 {
		return Event{}, fmt.Errorf("append %q: %w", e.Summary, ErrNegativeSignificance)
	}
	if len(s.events) > 0 && e.Day < s.lastDay {
		return Event{}, fmt.Errorf("append day %d after day %d: %w", e.Day, s.lastDay, ErrDayRegressed)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Type == "" {
		e.Type = TypeOther
	}
	e.Keywords = normalizeSet(e.Keywords, true)
	e.ParticipantIDs = normalizeSet(e.ParticipantIDs, false)

	s.events = append(s.events, e)
	s.lastDay = e.Day
	if len(s.events) > s.capacity {
		// Shift rather than reslice so the backing array does not grow forever.
		n := copy(s.events, s.events[len(s.events)-s.capacity:])
		s.events = s.events[:n]
	}
	return e.clone(), nil
}

// Query returns every event that occurred on the given day, in insertion order.
func (s *Store) Query(day int) []Event {
	var out []Event
	for _, e := range s.events {
		if e.Day == day {
			out = append(out, e.clone())
		}
	}
	return out
}

// Recent returns the last n inserted events in insertion order.
func (s *Store) Recent(n int) []Event {
	if n <= 0 || len(s.events) == 0 {
		return nil
	}
	if n > len(s.events) {
		n = len(s.events)
	}
	out := make([]Event, 0, n)
	for _, e := range s.events[len(s.events)-n:] {
		out = append(out, e.clone())
	}
	return out
}

// All returns a copy of every stored event, oldest first.
func (s *Store) All() []Event {
	return s.Recent(len(s.events))
}

// Len returns the number of stored events.
func (s *Store) Len() int { return len(s.events) }

// Capacity returns the maximum number of stored events.
func (s *Store) Capacity() int { return s.capacity }

// Restore replaces the store contents with previously saved events, keeping
// only the newest ones if the saved list exceeds the capacity.
func (s *Store) Restore(events []Event) {
	if len(events) > s.capacity {
		events = events[len(events)-s.capacity:]
	}
	s.events = s.events[:0]
	s.lastDay = 0
	for _, e := range events {
		e.Keywords = normalizeSet(e.Keywords, true)
		e.ParticipantIDs = normalizeSet(e.ParticipantIDs, false)
		if e.Type == "" {
			e.Type = TypeOther
		}
		if e.Significance < 0 {
			e.Significance = 0
		}
		s.events = append(s.events, e)
		if e.Day > s.lastDay {
			s.lastDay = e.Day
		}
	}
}

// normalizeSet trims and deduplicates values. Keywords dedupe case-insensitively
// but keep the first spelling seen.
func normalizeSet(values []string, foldCase bool) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := v
		if foldCase {
			key = strings.ToLower(v)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
