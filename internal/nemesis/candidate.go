package nemesis

import "fmt"

// Bond kinds that make an adversary personal.
const (
	BondKin     = "kin"
	BondRomance = "romance"
)

// Candidate describes an adversary leaving the world, with the evidence the
// host collected about what it did today.
type Candidate struct {
	EntityID      string
	FactionID     string
	Name          string
	Appearance    map[string]string
	TopSkills     []string
	NotableTraits []string

	// KilledColonistID is set when the entity is credited with a colony death today.
	KilledColonistID   string
	KilledColonistName string

	// BondedColonistID is set when the entity has a close kin or romantic
	// relation to a current colony member.
	BondedColonistID   string
	BondedColonistName string
	BondKind           string

	// InLethalBattle is set when the entity fought in a battle that cost the
	// colony lives today.
	InLethalBattle bool
}

// Grudge reports whether the candidate qualifies for promotion, and the
// grudge it carries. A kill outranks a bond, which outranks a battle.
func (c Candidate) Grudge() (reason, targetID string, ok bool) {
	switch {
	case c.KilledColonistID != "":
		return fmt.Sprintf("killed %s", nameOr(c.KilledColonistName, "a colonist")), c.KilledColonistID, true
	case c.BondedColonistID != "" && (c.BondKind == BondKin || c.BondKind == BondRomance):
		who := nameOr(c.BondedColonistName, "a colonist")
		if c.BondKind == BondRomance {
			return fmt.Sprintf("lost a lover to %s's side", who), c.BondedColonistID, true
		}
		return fmt.Sprintf("blood kin of %s", who), c.BondedColonistID, true
	case c.InLethalBattle:
		return "survived a battle that cost the colony lives", "", true
	}
	return "", "", false
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
