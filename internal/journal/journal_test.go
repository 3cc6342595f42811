package journal

import (
	"fmt"
	"testing"
)

func TestAddSuppressesSameTickDuplicates(t *testing.T) {
	j := New(10)

	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{"first", Entry{Tick: 5, Day: 1, Text: "Raiders came."}, true},
		{"same tick same text", Entry{Tick: 5, Day: 1, Text: "Raiders came. "}, false},
		{"same tick other prior choice", Entry{Tick: 5, Day: 1, Text: "Raiders came.", PriorChoice: "Fight"}, true},
		{"same tick other type", Entry{Tick: 5, Day: 1, Type: TypeNemesis, Text: "Raiders came."}, true},
		{"later tick same text", Entry{Tick: 6, Day: 1, Text: "Raiders came."}, true},
		{"blank", Entry{Tick: 7, Text: "   "}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := j.Add(tt.entry); got != tt.want {
				t.Fatalf("Add = %v, want %v", got, tt.want)
			}
		})
	}
	if j.Len() != 4 {
		t.Fatalf("Len = %d, want 4", j.Len())
	}
	for _, e := range j.All() {
		if e.ID == "" || e.Type == "" {
			t.Fatalf("entry missing defaults: %+v", e)
		}
	}
}

func TestCapacityDropsOldest(t *testing.T) {
	j := New(3)
	for i := 0; i < 5; i++ {
		j.Add(Entry{Tick: uint64(i), Day: i, Text: fmt.Sprintf("day %d", i)})
	}
	all := j.All()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Text != "day 2" || all[2].Text != "day 4" {
		t.Fatalf("entries = %+v", all)
	}
	if got := j.Recent(2); len(got) != 2 || got[1].Text != "day 4" {
		t.Fatalf("Recent(2) = %+v", got)
	}
	if got := j.Recent(10); len(got) != 3 {
		t.Fatalf("Recent(10) len = %d", len(got))
	}
	if got := j.ForDay(3); len(got) != 1 || got[0].Text != "day 3" {
		t.Fatalf("ForDay(3) = %+v", got)
	}
	if got := j.ForDay(0); len(got) != 0 {
		t.Fatalf("ForDay(0) = %+v, want evicted", got)
	}
}

func TestRestoreKeepsNewest(t *testing.T) {
	j := New(2)
	j.Restore([]Entry{
		{ID: "a", Text: "one"},
		{ID: "b", Text: "two"},
		{Text: "three"},
	})
	all := j.All()
	if len(all) != 2 || all[0].ID != "b" {
		t.Fatalf("restored = %+v", all)
	}
	if all[1].ID == "" || all[1].Type != TypeNarration {
		t.Fatalf("defaults not applied: %+v", all[1])
	}
}
