// Package journal keeps the player-facing log of generated story text.
package journal

import (
	"strings"

	"github.com/google/uuid"
)

const DefaultCapacity = 200

// Entry types.
const (
	TypeNarration = "narration"
	TypeChoice    = "choice"
	TypeNemesis   = "nemesis"
	TypeArtifact  = "artifact"
	TypeSystem    = "system"
)

// Entry is one line of the journal.
type Entry struct {
	ID          string `json:"id" db:"id"`
	Type        string `json:"type" db:"type"`
	Tick        uint64 `json:"tick" db:"tick"`
	Day         int    `json:"day" db:"day"`
	Text        string `json:"text" db:"text"`
	PriorChoice string `json:"prior_choice,omitempty" db:"prior_choice"`
	Fallback    bool   `json:"fallback,omitempty" db:"fallback"`
}

func (e Entry) key() string {
	return e.Type + "\x00" + e.Text + "\x00" + e.PriorChoice
}

// Journal is a bounded log. The oldest entry is dropped once capacity is exceeded.
// Not safe for concurrent use; the tick goroutine owns it.
type Journal struct {
	entries  []Entry
	capacity int
}

// New returns an empty journal. A capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{capacity: capacity}
}

// Add appends an entry and reports whether it was kept. Blank text is ignored,
// and so is an entry identical to one already written in the same tick.
func (j *Journal) Add(e Entry) bool {
	e.Text = strings.TrimSpace(e.Text)
	if e.Text == "" {
		return false
	}
	if e.Type == "" {
		e.Type = TypeNarration
	}
	k := e.key()
	for i := len(j.entries) - 1; i >= 0 && j.entries[i].Tick == e.Tick; i-- {
		if j.entries[i].key() == k {
			return false
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	j.entries = append(j.entries, e)
	if len(j.entries) > j.capacity {
		j.entries = j.entries[len(j.entries)-j.capacity:]
	}
	return true
}

// Recent returns up to n of the newest entries, oldest first.
func (j *Journal) Recent(n int) []Entry {
	if n <= 0 {
		return nil
	}
	start := len(j.entries) - n
	if start < 0 {
		start = 0
	}
	return append([]Entry(nil), j.entries[start:]...)
}

// ForDay returns the entries written on a day.
func (j *Journal) ForDay(day int) []Entry {
	var out []Entry
	for _, e := range j.entries {
		if e.Day == day {
			out = append(out, e)
		}
	}
	return out
}

func (j *Journal) All() []Entry { return append([]Entry(nil), j.entries...) }

func (j *Journal) Len() int { return len(j.entries) }

// Restore replaces the contents with saved entries, keeping the newest.
func (j *Journal) Restore(entries []Entry) {
	j.entries = j.entries[:0]
	if len(entries) > j.capacity {
		entries = entries[len(entries)-j.capacity:]
	}
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Type == "" {
			e.Type = TypeNarration
		}
		j.entries = append(j.entries, e)
	}
}
