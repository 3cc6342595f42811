package chronicle

import (
	"math"
	"testing"
)

func TestScoreExample(t *testing.T) {
	s := NewStore(10)
	mustAppend(t, s, Event{
		Summary:        "The Reavers burned the granary",
		Type:           TypeRaid,
		Day:            40,
		Keywords:       []string{"Reavers"},
		ParticipantIDs: []string{"p1"},
		Significance:   3.0,
	})

	got := s.FindRelevant(Query{Keywords: []string{"Reavers"}, Today: 45}, DefaultWeights(), 5)
	if len(got) != 1 {
		t.Fatalf("results = %d, want 1", len(got))
	}
	want := 2.0 + 0 + (1 - 5.0/60) + 4.5
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Fatalf("score = %.4f, want %.4f", got[0].Score, want)
	}
	if math.Abs(got[0].Score-7.4167) > 1e-3 {
		t.Fatalf("score = %.4f, want ~7.4167", got[0].Score)
	}
}

func TestScoreKeywordsAreCaseInsensitive(t *testing.T) {
	w := DefaultWeights()
	e := Event{Summary: "x", Day: 0, Keywords: []string{"Reavers", "Wall"}}
	got := w.Score(e, Query{Keywords: []string{"reavers", "WALL", "reavers"}, Today: 600})
	if got != 2*w.Keyword {
		t.Fatalf("score = %v, want %v", got, 2*w.Keyword)
	}
}

func TestScorePrefersRecentEvents(t *testing.T) {
	w := DefaultWeights()
	q := Query{Keywords: []string{"raid"}, ParticipantIDs: []string{"p1"}, Today: 100}
	base := Event{Summary: "x", Keywords: []string{"raid"}, ParticipantIDs: []string{"p1"}, Significance: 1}

	for _, older := range []int{0, 39, 50, 99} {
		newer := older + 1
		a, b := base, base
		a.Day, b.Day = newer, older
		if w.Score(a, q) < w.Score(b, q) {
			t.Fatalf("day %d scored below day %d", newer, older)
		}
	}
}

func TestScoreRecencyIsClamped(t *testing.T) {
	w := DefaultWeights()
	if got := w.Score(Event{Day: 0}, Query{Today: 1000}); got != 0 {
		t.Fatalf("ancient event score = %v, want 0", got)
	}
	if got := w.Score(Event{Day: 20}, Query{Today: 10}); got != w.Recency {
		t.Fatalf("future event score = %v, want %v", got, w.Recency)
	}
}

func TestFindRelevantDropsZeroScores(t *testing.T) {
	s := NewStore(10)
	mustAppend(t, s, Event{Summary: "forgotten", Day: 0, Keywords: []string{"harvest"}})

	got := s.FindRelevant(Query{Keywords: []string{"raid"}, ParticipantIDs: []string{"p9"}, Today: 500}, DefaultWeights(), 5)
	if len(got) != 0 {
		t.Fatalf("results = %+v, want none", got)
	}
}

func TestFindRelevantIgnoresRecencyAlone(t *testing.T) {
	s := NewStore(10)
	mustAppend(t, s, Event{Summary: "harvest came in", Day: 10,
		Keywords: []string{"harvest"}, ParticipantIDs: []string{"p2"}})

	q := Query{Keywords: []string{"raid"}, ParticipantIDs: []string{"p9"}, Today: 10}
	if got := s.FindRelevant(q, DefaultWeights(), 5); len(got) != 0 {
		t.Fatalf("results = %+v, want none", got)
	}

	mustAppend(t, s, Event{Summary: "a quiet funeral", Day: 10, Significance: 0.5})
	got := s.FindRelevant(q, DefaultWeights(), 5)
	if len(got) != 1 || got[0].Event.Summary != "a quiet funeral" {
		t.Fatalf("results = %+v, want only the significant event", got)
	}
	if want := 1.0 + 0.75; math.Abs(got[0].Score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", got[0].Score, want)
	}
}

func TestFindRelevantSkipsEmptySummaries(t *testing.T) {
	s := NewStore(10)
	mustAppend(t, s, Event{Summary: "  ", Day: 1, Significance: 9})

	if got := s.FindRelevant(Query{Today: 1}, DefaultWeights(), 5); len(got) != 0 {
		t.Fatalf("results = %+v, want none", got)
	}
}

func TestFindRelevantOrderingAndLimit(t *testing.T) {
	s := NewStore(10)
	mustAppend(t, s, Event{ID: "old-tie", Summary: "a", Day: 100, Keywords: []string{"wolves"}})
	mustAppend(t, s, Event{ID: "top", Summary: "b", Day: 100, Keywords: []string{"wolves"}, ParticipantIDs: []string{"p1"}})
	mustAppend(t, s, Event{ID: "new-tie", Summary: "c", Day: 100, Keywords: []string{"wolves"}})
	mustAppend(t, s, Event{ID: "weak", Summary: "d", Day: 130})

	got := s.FindRelevant(Query{Keywords: []string{"wolves"}, ParticipantIDs: []string{"p1"}, Today: 160}, DefaultWeights(), 3)
	want := []string{"top", "new-tie", "old-tie"}
	if len(got) != len(want) {
		t.Fatalf("results = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].Event.ID != id {
			t.Fatalf("result[%d] = %s, want %s", i, got[i].Event.ID, id)
		}
	}
}

func TestFindRelevantTiesPreferRecentDay(t *testing.T) {
	w := Weights{Keyword: 1}
	events := []Event{
		{ID: "later", Summary: "a", Day: 9, Keywords: []string{"k"}},
		{ID: "earlier", Summary: "b", Day: 3, Keywords: []string{"k"}},
	}
	// Insertion order is irrelevant here; the later day wins the tie.
	got := FindRelevant([]Event{events[1], events[0]}, Query{Keywords: []string{"k"}, Today: 10}, w, 2)
	if got[0].Event.ID != "later" {
		t.Fatalf("first = %s, want later", got[0].Event.ID)
	}
}
