package colony

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/storyteller/internal/engine"
	"github.com/talgya/storyteller/internal/nemesis"
)

// Incident thresholds on the normalized pressure curve.
const (
	raidPressure    = 0.58
	arrivalPressure = 0.38
)

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// Pressure is the storyteller's tension curve for a day, in [0, 1].
func (c *Colony) Pressure(day int) float64 {
	return octaveNoise(c.pressure, float64(day), 0.5, 3, 0.18, 0.5)
}

func (c *Colony) weatherOn(day int) string {
	w := octaveNoise(c.weather, float64(day), 3.5, 2, 0.25, 0.5)
	season := seasonOf(day)
	switch {
	case w > 0.65 && season == "Winter":
		return "snow"
	case w > 0.65:
		return "rain"
	case w < 0.3:
		return "fog"
	}
	return "clear"
}

// Advance runs one day of colony life and reports what happened to obs.
func (c *Colony) Advance(day int, obs engine.Observer) {
	c.day = day

	queued := c.queued
	c.queued = nil
	for _, r := range queued {
		c.runRaid(r, obs)
	}

	p := c.Pressure(day)
	switch {
	case p > raidPressure:
		if id, ok := c.HostileFaction(); ok {
			points := 200 + (p-raidPressure)*2500
			c.runRaid(raid{factionID: id, points: math.Round(points)}, obs)
		}
	case p < arrivalPressure:
		c.arrival(obs)
	}

	if c.rng.Float64() < 0.2 && len(c.colonists) > 0 {
		c.craft(obs)
	}
	c.mend()
	c.resources["food"] = max(0, c.resources["food"]-len(c.colonists)*2)
}

func (c *Colony) newRaider(factionID string) *raider {
	skills := make([]string, 0, 2)
	for _, i := range c.rng.Perm(len(skillPool))[:2] {
		skills = append(skills, skillPool[i])
	}
	return &raider{
		id:        c.newID(),
		name:      c.newName(),
		factionID: factionID,
		skills:    skills,
		traits:    c.pickTraits(1),
		appearance: map[string]string{
			"hair": hairPool[c.rng.Intn(len(hairPool))],
			"scar": scarPool[c.rng.Intn(len(scarPool))],
		},
	}
}

func (c *Colony) runRaid(r raid, obs engine.Observer) {
	f := c.faction(r.factionID)
	if f == nil || f.Defeated {
		return
	}
	n := clamp(int(r.points/150), 1, 6)
	for i := 0; i < n; i++ {
		r.raiders = append(r.raiders, c.newRaider(r.factionID))
	}
	c.current = &r
	defer func() { c.current = nil }()

	ids := make([]string, 0, len(r.raiders))
	for _, rd := range r.raiders {
		ids = append(ids, rd.id)
	}
	obs.OnIncidentFired(engine.Incident{
		Category:       "raid",
		FactionID:      f.ID,
		SeverityPoints: r.points,
		Day:            c.day,
		Description:    fmt.Sprintf("%d raiders from %s attacked the colony", n, f.Name),
		ParticipantIDs: ids,
	})

	// The nemesis, if one came, joined c.current during the incident.
	for _, rd := range c.current.raiders {
		c.fight(rd, f, obs)
	}
	if f.strength <= 0 && !f.Defeated {
		f.Defeated = true
		f.Hostile = false
		obs.OnFactionDefeated(f.ID, c.day)
	}
}

// fight resolves one raider against the colony: it may kill a colonist, and
// then either dies or leaves the map.
func (c *Colony) fight(rd *raider, f *faction, obs engine.Observer) {
	if len(c.colonists) > 0 {
		target := c.colonists[c.rng.Intn(len(c.colonists))]
		target.Health -= 0.2 + c.rng.Float64()*0.4
		if rd.nemesis {
			target.Health -= 0.2
		}
		if target.Health <= 0 {
			c.removeColonist(target.ID)
			obs.OnEntityDied(engine.Death{
				EntityID:        target.ID,
				Name:            target.Name,
				Colonist:        true,
				KillerID:        rd.id,
				KillerName:      rd.name,
				KillerFactionID: f.ID,
				InBattle:        true,
				Day:             c.day,
			})
		}
	}

	if c.rng.Float64() < 0.45 {
		f.strength--
		obs.OnEntityDied(engine.Death{EntityID: rd.id, Name: rd.name, FactionID: f.ID, Day: c.day})
		return
	}

	d := engine.Departure{
		EntityID:      rd.id,
		Name:          rd.name,
		FactionID:     f.ID,
		Appearance:    rd.appearance,
		TopSkills:     rd.skills,
		NotableTraits: rd.traits,
		Day:           c.day,
	}
	if len(c.colonists) > 0 && c.rng.Float64() < 0.08 {
		kin := c.colonists[c.rng.Intn(len(c.colonists))]
		d.BondedColonistID = kin.ID
		d.BondedColonistName = kin.Name
		d.BondKind = nemesis.BondKin
	}
	obs.OnEntityLeftWorld(d)
}

func (c *Colony) arrival(obs engine.Observer) {
	resource := resourceNames[c.rng.Intn(len(resourceNames))]
	c.resources[resource] += 10 + c.rng.Intn(40)

	if c.rng.Float64() < 0.35 || len(c.colonists) == 0 {
		col := c.newColonist()
		c.colonists = append(c.colonists, col)
		var from string
		for _, f := range c.factions {
			if !f.Hostile && !f.Defeated {
				from = f.ID
				break
			}
		}
		obs.OnEntityRecruited(engine.Recruitment{EntityID: col.ID, Name: col.Name, FromFactionID: from, Day: c.day})
		return
	}
	obs.OnIncidentFired(engine.Incident{
		Category:    "arrival",
		Day:         c.day,
		Description: fmt.Sprintf("A trade caravan passed through, leaving %s behind", resource),
	})
}

func (c *Colony) craft(obs engine.Observer) {
	crafter := c.colonists[c.rng.Intn(len(c.colonists))]
	roll := c.rng.Float64()
	q := engine.QualityNormal
	switch {
	case roll > 0.97:
		q = engine.QualityLegendary
	case roll > 0.88:
		q = engine.QualityMasterwork
	case roll > 0.7:
		q = engine.QualityExcellent
	case roll > 0.45:
		q = engine.QualityGood
	case roll < 0.1:
		q = engine.QualityPoor
	}
	obs.OnArtifactQualitySet(engine.Artifact{
		ItemID:      c.newID(),
		Name:        craftPool[c.rng.Intn(len(craftPool))],
		Quality:     q,
		CrafterID:   crafter.ID,
		CrafterName: crafter.Name,
		Day:         c.day,
	})
}

func (c *Colony) mend() {
	for _, col := range c.colonists {
		if col.Health < 1 {
			col.Health = math.Min(1, col.Health+0.05)
		}
	}
}

func (c *Colony) removeColonist(id string) {
	for i, col := range c.colonists {
		if col.ID == id {
			c.colonists = append(c.colonists[:i], c.colonists[i+1:]...)
			return
		}
	}
}
