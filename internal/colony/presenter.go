package colony

import (
	"log/slog"

	"github.com/talgya/storyteller/internal/consequence"
)

// harm scores an option by how badly it can hurt the colony.
func harm(o consequence.Option) int {
	score := 0
	for _, e := range o.Effects {
		switch e.Tag {
		case consequence.TagTakeResource:
			score++
		case consequence.TagSmallRaid:
			score += 2
		case consequence.TagLargeRaid:
			score += 3
		case consequence.TagMood, consequence.TagFactionRelation:
			if e.Params.Float("amount", 0) < 0 {
				score++
			}
		}
	}
	return score
}

// PresentChoice stands in for a player: it always answers at once with the
// least harmful option, taking the first on a tie.
func (c *Colony) PresentChoice(ch consequence.Choice) (int, bool) {
	if len(ch.Options) == 0 {
		return 0, false
	}
	best, bestHarm := 0, harm(ch.Options[0])
	for i, o := range ch.Options[1:] {
		if h := harm(o); h < bestHarm {
			best, bestHarm = i+1, h
		}
	}
	slog.Info("choice made", "day", c.day, "option", ch.Options[best].Label)
	return best, true
}
