package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/talgya/storyteller/internal/chronicle"
	"github.com/talgya/storyteller/internal/consequence"
	"github.com/talgya/storyteller/internal/nemesis"
)

const narratorSystem = `You are the storyteller of a frontier colony: a handful of survivors on a hostile world, remembered through their journal.

Narrate the event in 2-3 sentences of grounded, vivid prose. Refer back to past events when they matter. Do not break character, address the player or mention game mechanics.`

const choiceSystem = `You are the storyteller of a frontier colony. Present the colony with a decision that grows out of its recent history.

Respond with a single JSON object and nothing else:
{"narrativeText": "<2-4 sentences describing the situation>",
 "options": [{"label": "<short action>", "hint": "<what it might cost or bring>",
   "consequences": [{"type": "<effect>", ...parameters}]}]}

Offer 2 or 3 options. Each consequence "type" must be one of: %s.
Parameters: spawn_ally {kind, count}; give_resource/take_resource {resource, amount};
mood {label, amount, days}; faction_relation {faction, amount}; small_raid/large_raid {faction, points};
heal_colonists {amount 0-1}.`

func writeMemories(b *strings.Builder, memories []chronicle.Scored) {
	if len(memories) == 0 {
		return
	}
	b.WriteString("## What the colony remembers\n")
	for _, m := range memories {
		fmt.Fprintf(b, "- Day %d (%s): %s\n", m.Event.Day, m.Event.Type, m.Event.Summary)
	}
	b.WriteString("\n")
}

func writeNemesis(b *strings.Builder, enc *nemesis.Encounter) {
	if enc == nil {
		return
	}
	p := enc.Profile
	b.WriteString("## A returning enemy\n")
	fmt.Fprintf(b, "%s returns for the %s time. Grudge: %s.\n",
		p.Name, humanize.Ordinal(p.EncounterCount), p.GrudgeReason)
	if len(p.TopSkills) > 0 {
		fmt.Fprintf(b, "Known for: %s.\n", strings.Join(p.TopSkills, ", "))
	}
	if len(p.NotableTraits) > 0 {
		fmt.Fprintf(b, "Traits: %s.\n", strings.Join(p.NotableTraits, ", "))
	}
	if len(p.Appearance) > 0 {
		keys := make([]string, 0, len(p.Appearance))
		for k := range p.Appearance {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+p.Appearance[k])
		}
		fmt.Fprintf(b, "Appearance: %s.\n", strings.Join(parts, "; "))
	}
	if enc.Final {
		b.WriteString("This will be their last appearance.\n")
	}
	b.WriteString("\n")
}

func buildNarrationPrompt(req NarrationRequest, memories []chronicle.Scored) (system, user string) {
	var b strings.Builder
	if req.World != "" {
		fmt.Fprintf(&b, "## The colony today (day %d)\n%s\n\n", req.Day, req.World)
	}
	writeMemories(&b, memories)
	writeNemesis(&b, req.Nemesis)
	if req.PriorChoice != "" {
		fmt.Fprintf(&b, "The colony recently chose: %s\n\n", req.PriorChoice)
	}
	fmt.Fprintf(&b, "## Event to narrate (%s)\n%s\n", req.Category, req.Subject)
	return narratorSystem, b.String()
}

func buildChoicePrompt(req ChoiceRequest, memories []chronicle.Scored) (system, user string) {
	var b strings.Builder
	if req.World != "" {
		fmt.Fprintf(&b, "## The colony today (day %d)\n%s\n\n", req.Day, req.World)
	}
	writeMemories(&b, memories)
	if len(req.Factions) > 0 {
		fmt.Fprintf(&b, "Known factions (use these ids): %s\n\n", strings.Join(req.Factions, ", "))
	}
	situation := req.Situation
	if situation == "" {
		situation = "Something unexpected demands the colony's attention."
	}
	fmt.Fprintf(&b, "## Situation\n%s\n", situation)
	return fmt.Sprintf(choiceSystem, strings.Join(consequence.Tags(), ", ")), b.String()
}
