package consequence

import "fmt"

// Bounds applied to generated parameters.
const (
	maxAllies        = 3
	maxResourceDelta = 500
	maxMoodDelta     = 20.0
	maxMoodDays      = 15
	maxRelationDelta = 50
)

func spawnAlly(p Params, w World) (string, error) {
	kind := p.String("kind", "wanderer")
	count := clampInt(p.Int("count", 1), 1, maxAllies)

	arrived, err := w.SpawnAlly(kind, count)
	if err != nil {
		return "", err
	}
	if arrived == 1 {
		return fmt.Sprintf("A %s has joined the colony.", kind), nil
	}
	return fmt.Sprintf("%d %ss have joined the colony.", arrived, kind), nil
}

func giveResource(p Params, w World) (string, error) {
	resource := p.String("resource", "silver")
	amount := clampInt(p.Int("amount", 50), 1, maxResourceDelta)

	total, err := w.AdjustResource(resource, amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Received %d %s (now %d).", amount, resource, total), nil
}

func takeResource(p Params, w World) (string, error) {
	resource := p.String("resource", "silver")
	amount := clampInt(p.Int("amount", 50), 1, maxResourceDelta)

	total, err := w.AdjustResource(resource, -amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Lost %d %s (now %d).", amount, resource, total), nil
}

func mood(p Params, w World) (string, error) {
	label := p.String("label", "A moment to remember")
	delta := clampFloat(p.Float("amount", 5), -maxMoodDelta, maxMoodDelta)
	days := clampInt(p.Int("days", 3), 1, maxMoodDays)
	if delta == 0 {
		return "", fmt.Errorf("mood amount is zero: %w", ErrInvalidParam)
	}

	affected := w.ApplyMood(label, delta, days)
	verb := "lifted"
	if delta < 0 {
		verb = "darkened"
	}
	return fmt.Sprintf("%s: the mood of %d colonists is %s for %d days.", label, affected, verb, days), nil
}

func factionRelation(p Params, w World) (string, error) {
	faction := p.String("faction", "")
	if faction == "" {
		return "", fmt.Errorf("faction is required: %w", ErrInvalidParam)
	}
	delta := clampInt(p.Int("amount", 10), -maxRelationDelta, maxRelationDelta)

	goodwill, err := w.ShiftRelation(faction, delta)
	if err != nil {
		return "", err
	}
	change := "improved"
	if delta < 0 {
		change = "worsened"
	}
	return fmt.Sprintf("Relations with %s have %s (goodwill %d).", faction, change, goodwill), nil
}

func smallRaid(p Params, w World) (string, error) {
	return raid(p, w, 300, 100, 1000, "A small band of raiders approaches.")
}

func largeRaid(p Params, w World) (string, error) {
	return raid(p, w, 1000, 500, 5000, "A large war party is marching on the colony!")
}

func raid(p Params, w World, def, lo, hi float64, notice string) (string, error) {
	faction := p.String("faction", "")
	if faction == "" {
		var ok bool
		if faction, ok = w.HostileFaction(); !ok {
			return "", fmt.Errorf("no hostile faction can raid: %w", ErrInvalidParam)
		}
	}
	points := clampFloat(p.Float("points", def), lo, hi)
	if err := w.StartRaid(faction, points); err != nil {
		return "", err
	}
	return notice, nil
}

func healColonists(p Params, w World) (string, error) {
	fraction := clampFloat(p.Float("amount", 0.5), 0.05, 1)
	treated := w.Heal(fraction)
	return fmt.Sprintf("%d colonists feel their wounds mend.", treated), nil
}
