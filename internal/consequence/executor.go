package consequence

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrUnknownTag   = errors.New("unknown effect tag")
	ErrInvalidParam = errors.New("invalid effect parameter")
)

// World is the slice of the host world that effects may mutate.
// Lookups that can legitimately fail return an ok flag or an error.
type World interface {
	// SpawnAlly adds friendly entities of a kind and returns how many arrived.
	SpawnAlly(kind string, count int) (int, error)
	// AdjustResource changes a stockpile and returns the new amount.
	AdjustResource(resource string, delta int) (int, error)
	// ApplyMood gives every colonist a temporary mood modifier and returns how many were affected.
	ApplyMood(label string, delta float64, days int) int
	// ShiftRelation changes goodwill with a faction and returns the new value.
	ShiftRelation(factionID string, delta int) (int, error)
	// HostileFaction picks a faction able to raid the colony.
	HostileFaction() (string, bool)
	// StartRaid launches a hostile encounter with the given strength.
	StartRaid(factionID string, points float64) error
	// Heal restores a fraction of lost health to injured colonists and returns how many were treated.
	Heal(fraction float64) int
	// Notify shows a message to the player.
	Notify(text string)
}

// Handler performs one class of mutation and returns the notification text.
type Handler func(p Params, w World) (string, error)

func noop(Params, World) (string, error) { return "", nil }

// handlerTable has one slot per tag. TagUnknown and TagNothing are no-ops.
var handlerTable = [...]Handler{
	TagUnknown:         noop,
	TagNothing:         noop,
	TagSpawnAlly:       spawnAlly,
	TagGiveResource:    giveResource,
	TagTakeResource:    takeResource,
	TagMood:            mood,
	TagFactionRelation: factionRelation,
	TagSmallRaid:       smallRaid,
	TagLargeRaid:       largeRaid,
	TagHealColonists:   healColonists,
}

// Fails to compile if a tag is added without a handler slot.
var _ [tagCount]Handler = handlerTable

// Executor runs effects against a world.
type Executor struct {
	handlers [tagCount]Handler
}

// NewExecutor returns an executor using the standard handlers.
func NewExecutor() *Executor {
	return &Executor{handlers: handlerTable}
}

// WithHandler returns a copy of the executor with one handler replaced.
func (x *Executor) WithHandler(tag Tag, h Handler) *Executor {
	cp := *x
	if tag < tagCount && tag != TagUnknown && h != nil {
		cp.handlers[tag] = h
	}
	return &cp
}

// Execute runs a single effect. Unknown tags and "nothing" change nothing and
// return nil. A handler error means the world was not changed by that effect.
func (x *Executor) Execute(e Effect, w World) error {
	_, err := x.run(e, w)
	if errors.Is(err, ErrUnknownTag) {
		return nil
	}
	return err
}

func (x *Executor) run(e Effect, w World) (applied bool, err error) {
	switch e.Tag {
	case TagUnknown:
		slog.Warn("skipping effect with unknown tag", "type", e.Name)
		return false, fmt.Errorf("effect %q: %w", e.Name, ErrUnknownTag)
	case TagNothing:
		return false, nil
	}
	if e.Tag >= tagCount {
		return false, fmt.Errorf("effect tag %d: %w", e.Tag, ErrUnknownTag)
	}

	defer func() {
		if r := recover(); r != nil {
			applied = false
			err = fmt.Errorf("effect %s panicked: %v", e.Tag, r)
		}
	}()

	notice, err := x.handlers[e.Tag](e.Params, w)
	if err != nil {
		return false, fmt.Errorf("effect %s: %w", e.Tag, err)
	}
	if notice != "" {
		w.Notify(notice)
	}
	slog.Debug("effect applied", "type", e.Tag.String(), "notice", notice)
	return true, nil
}

// Failure records an effect that could not be applied.
type Failure struct {
	Index int
	Tag   Tag
	Err   error
}

// Report summarizes a batch.
type Report struct {
	Applied int
	Skipped []Failure
}

// ExecuteAll runs effects strictly in order. A failing effect is logged and
// skipped; the rest of the batch still runs.
func (x *Executor) ExecuteAll(effects []Effect, w World) Report {
	var rep Report
	for i, e := range effects {
		applied, err := x.run(e, w)
		if err != nil {
			if !errors.Is(err, ErrUnknownTag) {
				slog.Warn("effect failed", "index", i, "type", e.Tag.String(), "error", err)
			}
			rep.Skipped = append(rep.Skipped, Failure{Index: i, Tag: e.Tag, Err: err})
			continue
		}
		if applied {
			rep.Applied++
		}
	}
	return rep
}
