package chronicle

import (
	"sort"
	"strings"
)

// Weights tunes how the parts of a relevance score are combined.
type Weights struct {
	Keyword       float64 `yaml:"keyword"`
	Participant   float64 `yaml:"participant"`
	Recency       float64 `yaml:"recency"`
	Significance  float64 `yaml:"significance"`
	RecencyWindow float64 `yaml:"recency_window"` // days until the recency term reaches zero
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Keyword:       2.0,
		Participant:   3.0,
		Recency:       1.0,
		Significance:  1.5,
		RecencyWindow: 60,
	}
}

// Query describes the situation events are ranked against.
type Query struct {
	Keywords       []string
	ParticipantIDs []string
	Today          int
}

// Scored pairs an event with its relevance score.
type Scored struct {
	Event Event
	Score float64
}

// Score computes the relevance of a single event for the query.
func (w Weights) Score(e Event, q Query) float64 {
	return w.Keyword*float64(overlap(e.Keywords, q.Keywords, true)) +
		w.Participant*float64(overlap(e.ParticipantIDs, q.ParticipantIDs, false)) +
		w.Recency*w.recency(e.Day, q.Today) +
		w.Significance*e.Significance
}

func (w Weights) recency(day, today int) float64 {
	window := w.RecencyWindow
	if window <= 0 {
		window = DefaultWeights().RecencyWindow
	}
	r := 1 - float64(today-day)/window
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// FindRelevant ranks events against the query and returns at most limit of them,
// highest score first. Events with an empty summary, or with no keyword or
// participant overlap and no significance, are never returned however recent
// they are. Ties go to the more recent day, then to the later insertion.
func FindRelevant(events []Event, q Query, w Weights, limit int) []Scored {
	if limit <= 0 {
		return nil
	}

	scored := make([]Scored, 0, len(events))
	// Walk newest first so the stable sort keeps later insertions ahead on ties.
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if strings.TrimSpace(e.Summary) == "" || !related(e, q) {
			continue
		}
		s := w.Score(e, q)
		if s <= 0 {
			continue
		}
		scored = append(scored, Scored{Event: e.clone(), Score: s})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Event.Day > scored[j].Event.Day
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// FindRelevant ranks the store's current contents. See FindRelevant.
func (s *Store) FindRelevant(q Query, w Weights, limit int) []Scored {
	return FindRelevant(s.events, q, w, limit)
}

// related reports whether anything besides recency ties the event to the query.
func related(e Event, q Query) bool {
	return e.Significance > 0 ||
		overlap(e.Keywords, q.Keywords, true) > 0 ||
		overlap(e.ParticipantIDs, q.ParticipantIDs, false) > 0
}

// overlap counts the distinct values present in both sets.
func overlap(a, b []string, foldCase bool) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(b))
	for _, v := range b {
		if foldCase {
			v = strings.ToLower(v)
		}
		set[strings.TrimSpace(v)] = true
	}
	n := 0
	counted := make(map[string]bool, len(a))
	for _, v := range a {
		if foldCase {
			v = strings.ToLower(v)
		}
		v = strings.TrimSpace(v)
		if set[v] && !counted[v] {
			counted[v] = true
			n++
		}
	}
	return n
}
