package consequence

import (
	"encoding/json"
	"errors"
	"testing"
)

type fakeWorld struct {
	mutations int
	notices   []string
	resources map[string]int
	relations map[string]int
	raids     []string
	points    []float64
	hostile   string
	moodDelta float64
	moodDays  int
	allies    int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		resources: map[string]int{"silver": 100},
		relations: map[string]int{"reavers": -40},
		hostile:   "reavers",
	}
}

func (w *fakeWorld) SpawnAlly(kind string, count int) (int, error) {
	w.mutations++
	w.allies += count
	return count, nil
}

func (w *fakeWorld) AdjustResource(resource string, delta int) (int, error) {
	cur, ok := w.resources[resource]
	if !ok {
		return 0, errors.New("unknown resource")
	}
	w.mutations++
	cur += delta
	if cur < 0 {
		cur = 0
	}
	w.resources[resource] = cur
	return cur, nil
}

func (w *fakeWorld) ApplyMood(label string, delta float64, days int) int {
	w.mutations++
	w.moodDelta, w.moodDays = delta, days
	return 4
}

func (w *fakeWorld) ShiftRelation(factionID string, delta int) (int, error) {
	cur, ok := w.relations[factionID]
	if !ok {
		return 0, errors.New("unknown faction")
	}
	w.mutations++
	w.relations[factionID] = cur + delta
	return cur + delta, nil
}

func (w *fakeWorld) HostileFaction() (string, bool) { return w.hostile, w.hostile != "" }

func (w *fakeWorld) StartRaid(factionID string, points float64) error {
	w.mutations++
	w.raids = append(w.raids, factionID)
	w.points = append(w.points, points)
	return nil
}

func (w *fakeWorld) Heal(fraction float64) int {
	w.mutations++
	return 2
}

func (w *fakeWorld) Notify(text string) { w.notices = append(w.notices, text) }

func TestEveryTagHasAHandler(t *testing.T) {
	x := NewExecutor()
	for tag := Tag(0); tag < tagCount; tag++ {
		if x.handlers[tag] == nil {
			t.Fatalf("tag %s has no handler", tag)
		}
		if tag != TagUnknown && ParseTag(tag.String()) != tag {
			t.Fatalf("tag %s does not round-trip through its name", tag)
		}
	}
}

func TestExecuteUnknownTagIsNoop(t *testing.T) {
	w := newFakeWorld()
	var e Effect
	if err := json.Unmarshal([]byte(`{"type":"spawn_nonexistent_tag","count":3}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Tag != TagUnknown || e.Name != "spawn_nonexistent_tag" {
		t.Fatalf("effect = %+v", e)
	}
	if err := NewExecutor().Execute(e, w); err != nil {
		t.Fatalf("execute unknown tag: %v", err)
	}
	if w.mutations != 0 || len(w.notices) != 0 {
		t.Fatalf("unknown tag touched the world: mutations=%d notices=%v", w.mutations, w.notices)
	}
}

func TestExecuteNothingIsNoop(t *testing.T) {
	w := newFakeWorld()
	if err := NewExecutor().Execute(NewEffect(TagNothing, nil), w); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if w.mutations != 0 || len(w.notices) != 0 {
		t.Fatal("nothing effect touched the world")
	}
}

func TestHandlersApplyDefaultsAndBounds(t *testing.T) {
	tests := []struct {
		name   string
		effect Effect
		check  func(t *testing.T, w *fakeWorld)
	}{
		{
			name:   "give resource defaults",
			effect: NewEffect(TagGiveResource, nil),
			check: func(t *testing.T, w *fakeWorld) {
				if w.resources["silver"] != 150 {
					t.Fatalf("silver = %d, want 150", w.resources["silver"])
				}
			},
		},
		{
			name:   "mistyped amount falls back to default",
			effect: NewEffect(TagTakeResource, Params{"amount": "lots"}),
			check: func(t *testing.T, w *fakeWorld) {
				if w.resources["silver"] != 50 {
					t.Fatalf("silver = %d, want 50", w.resources["silver"])
				}
			},
		},
		{
			name:   "oversized amount hits the cap",
			effect: NewEffect(TagGiveResource, Params{"amount": 1e30}),
			check: func(t *testing.T, w *fakeWorld) {
				if w.resources["silver"] != 100+maxResourceDelta {
					t.Fatalf("silver = %d, want %d", w.resources["silver"], 100+maxResourceDelta)
				}
			},
		},
		{
			name:   "mood is clamped",
			effect: NewEffect(TagMood, Params{"amount": -300.0, "days": 90}),
			check: func(t *testing.T, w *fakeWorld) {
				if w.moodDelta != -maxMoodDelta || w.moodDays != maxMoodDays {
					t.Fatalf("mood = %v for %d days", w.moodDelta, w.moodDays)
				}
			},
		},
		{
			name:   "allies are capped",
			effect: NewEffect(TagSpawnAlly, Params{"count": 40}),
			check: func(t *testing.T, w *fakeWorld) {
				if w.allies != maxAllies {
					t.Fatalf("allies = %d, want %d", w.allies, maxAllies)
				}
			},
		},
		{
			name:   "raid without faction picks a hostile one",
			effect: NewEffect(TagSmallRaid, nil),
			check: func(t *testing.T, w *fakeWorld) {
				if len(w.raids) != 1 || w.raids[0] != "reavers" || w.points[0] != 300 {
					t.Fatalf("raids = %v points = %v", w.raids, w.points)
				}
			},
		},
		{
			name:   "large raid floor",
			effect: NewEffect(TagLargeRaid, Params{"points": 1.0}),
			check: func(t *testing.T, w *fakeWorld) {
				if w.points[0] != 500 {
					t.Fatalf("points = %v, want 500", w.points[0])
				}
			},
		},
		{
			name:   "relation shift",
			effect: NewEffect(TagFactionRelation, Params{"faction": "reavers", "amount": 15}),
			check: func(t *testing.T, w *fakeWorld) {
				if w.relations["reavers"] != -25 {
					t.Fatalf("goodwill = %d, want -25", w.relations["reavers"])
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWorld()
			if err := NewExecutor().Execute(tt.effect, w); err != nil {
				t.Fatalf("execute: %v", err)
			}
			if len(w.notices) != 1 {
				t.Fatalf("notices = %v, want exactly one", w.notices)
			}
			tt.check(t, w)
		})
	}
}

func TestHandlerErrorsDoNotNotify(t *testing.T) {
	tests := []struct {
		name   string
		effect Effect
		world  func() *fakeWorld
		want   error
	}{
		{
			name:   "relation without faction",
			effect: NewEffect(TagFactionRelation, Params{"amount": 5}),
			world:  newFakeWorld,
			want:   ErrInvalidParam,
		},
		{
			name:   "raid with nobody hostile",
			effect: NewEffect(TagLargeRaid, nil),
			world: func() *fakeWorld {
				w := newFakeWorld()
				w.hostile = ""
				return w
			},
			want: ErrInvalidParam,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.world()
			err := NewExecutor().Execute(tt.effect, w)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if w.mutations != 0 || len(w.notices) != 0 {
				t.Fatal("failed effect touched the world")
			}
		})
	}
}

func TestExecuteAllContinuesPastFailures(t *testing.T) {
	w := newFakeWorld()
	x := NewExecutor().WithHandler(TagHealColonists, func(Params, World) (string, error) {
		panic("boom")
	})

	effects := []Effect{
		NewEffect(TagGiveResource, Params{"amount": 10}),
		{Tag: TagUnknown, Name: "summon_dragon"},
		NewEffect(TagGiveResource, Params{"resource": "unobtainium"}),
		NewEffect(TagHealColonists, nil),
		NewEffect(TagTakeResource, Params{"amount": 5}),
	}
	rep := x.ExecuteAll(effects, w)

	if rep.Applied != 2 {
		t.Fatalf("applied = %d, want 2", rep.Applied)
	}
	if len(rep.Skipped) != 3 {
		t.Fatalf("skipped = %+v, want 3", rep.Skipped)
	}
	for i, want := range []int{1, 2, 3} {
		if rep.Skipped[i].Index != want {
			t.Fatalf("skipped[%d].Index = %d, want %d", i, rep.Skipped[i].Index, want)
		}
	}
	if !errors.Is(rep.Skipped[0].Err, ErrUnknownTag) {
		t.Fatalf("skipped[0] = %v, want ErrUnknownTag", rep.Skipped[0].Err)
	}
	if w.resources["silver"] != 105 {
		t.Fatalf("silver = %d, want 105 (effects ran out of order?)", w.resources["silver"])
	}
	if len(w.notices) != 2 {
		t.Fatalf("notices = %v, want 2", w.notices)
	}
}
