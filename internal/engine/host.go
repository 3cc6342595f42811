package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/storyteller/internal/consequence"
	"github.com/talgya/storyteller/internal/nemesis"
)

// Colonist is a member of the player's colony.
type Colonist struct {
	ID     string
	Name   string
	Traits []string
	Health float64 // 0..1
	Mood   float64 // 0..100
}

// Faction is an outside group the colony deals with.
type Faction struct {
	ID       string
	Name     string
	Goodwill int // -100..100
	Hostile  bool
	Defeated bool
}

// Snapshot is the host world as the storyteller sees it.
type Snapshot struct {
	Day       int
	Season    string
	Weather   string
	Colonists []Colonist
	Factions  []Faction
	Resources map[string]int
}

// Summary renders the snapshot as prompt context.
func (s Snapshot) Summary() string {
	var b strings.Builder
	if s.Season != "" || s.Weather != "" {
		fmt.Fprintf(&b, "Season: %s. Weather: %s.\n", s.Season, s.Weather)
	}
	if len(s.Colonists) > 0 {
		parts := make([]string, 0, len(s.Colonists))
		for _, c := range s.Colonists {
			state := "healthy"
			switch {
			case c.Health < 0.35:
				state = "badly hurt"
			case c.Health < 0.75:
				state = "wounded"
			}
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, state))
		}
		fmt.Fprintf(&b, "Colonists (%d): %s.\n", len(s.Colonists), strings.Join(parts, ", "))
	}
	if len(s.Resources) > 0 {
		keys := make([]string, 0, len(s.Resources))
		for k := range s.Resources {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+" "+humanize.Comma(int64(s.Resources[k])))
		}
		fmt.Fprintf(&b, "Stores: %s.\n", strings.Join(parts, ", "))
	}
	for _, f := range s.Factions {
		if f.Defeated {
			continue
		}
		stance := "neutral"
		switch {
		case f.Hostile:
			stance = "hostile"
		case f.Goodwill >= 50:
			stance = "allied"
		}
		fmt.Fprintf(&b, "Faction %s (%s): %s, goodwill %d.\n", f.Name, f.ID, stance, f.Goodwill)
	}
	return strings.TrimSpace(b.String())
}

// FactionIDs lists the ids of factions still standing.
func (s Snapshot) FactionIDs() []string {
	var out []string
	for _, f := range s.Factions {
		if !f.Defeated {
			out = append(out, f.ID)
		}
	}
	return out
}

// ChoicePresenter shows a choice to the player. It returns the chosen option
// index, or ok=false when the answer will come later through
// Session.ResolveChoice.
type ChoicePresenter interface {
	PresentChoice(c consequence.Choice) (index int, ok bool)
}

// Host is the simulation the session narrates.
type Host interface {
	consequence.World
	ChoicePresenter

	Snapshot() Snapshot
	Colonist(id string) (Colonist, bool)
	Faction(id string) (Faction, bool)
	// SpawnNemesis brings a returning adversary into the current raid.
	SpawnNemesis(enc nemesis.Encounter) error
}

// Incident is a host event such as a raid or a trader arriving.
type Incident struct {
	Category       string
	FactionID      string
	SeverityPoints float64
	Day            int
	Description    string
	ParticipantIDs []string
}

// Death reports an entity dying.
type Death struct {
	EntityID string
	Name     string
	// Colonist is true when the dead entity belonged to the colony.
	Colonist        bool
	FactionID       string
	KillerID        string
	KillerName      string
	KillerFactionID string
	InBattle        bool
	Day             int
}

// Recruitment reports an entity joining the colony.
type Recruitment struct {
	EntityID      string
	Name          string
	FromFactionID string
	Day           int
}

// Quality is the craft tier of an artifact.
type Quality int

const (
	QualityAwful Quality = iota
	QualityPoor
	QualityNormal
	QualityGood
	QualityExcellent
	QualityMasterwork
	QualityLegendary
)

var qualityNames = [...]string{"awful", "poor", "normal", "good", "excellent", "masterwork", "legendary"}

func (q Quality) String() string {
	if q < 0 || int(q) >= len(qualityNames) {
		return "unknown"
	}
	return qualityNames[q]
}

// Artifact reports the quality of a finished item.
type Artifact struct {
	ItemID      string
	Name        string
	Quality     Quality
	CrafterID   string
	CrafterName string
	Day         int
}

// Departure reports a non-colony entity leaving the map alive.
type Departure struct {
	EntityID           string
	Name               string
	FactionID          string
	Appearance         map[string]string
	TopSkills          []string
	NotableTraits      []string
	BondedColonistID   string
	BondedColonistName string
	BondKind           string
	Day                int
}

// Observer receives host notifications. Session implements it.
type Observer interface {
	OnIncidentFired(in Incident)
	OnEntityDied(d Death)
	OnEntityRecruited(r Recruitment)
	OnArtifactQualitySet(a Artifact)
	OnEntityLeftWorld(d Departure)
	OnFactionDefeated(factionID string, day int)
	OnDay(day int)
}
