// Package colony is a small in-memory colony used to drive the storyteller
// end to end. Incidents come from layered simplex noise so a seed always
// produces the same history.
package colony

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/storyteller/internal/consequence"
	"github.com/talgya/storyteller/internal/engine"
	"github.com/talgya/storyteller/internal/nemesis"
)

// Config seeds a colony.
type Config struct {
	Seed      int64
	Colonists int
}

// Notice is a message shown to the player.
type Notice struct {
	Day  int
	Text string
}

type colonist struct {
	engine.Colonist
	moods []moodMod
}

type moodMod struct {
	label   string
	delta   float64
	expires int
}

type faction struct {
	engine.Faction
	strength int
}

type raider struct {
	id         string
	name       string
	factionID  string
	skills     []string
	traits     []string
	appearance map[string]string
	nemesis    bool
}

type raid struct {
	factionID string
	points    float64
	raiders   []*raider
}

// Colony implements engine.Host.
// Not safe for concurrent use; it belongs to the tick goroutine.
type Colony struct {
	rng      *rand.Rand
	pressure opensimplex.Noise
	weather  opensimplex.Noise

	day       int
	colonists []*colonist
	factions  []*faction
	resources map[string]int
	notices   []Notice
	queued    []raid
	current   *raid
}

var _ engine.Host = (*Colony)(nil)

var resourceNames = []string{"components", "food", "medicine", "silver", "steel", "wood"}

// New generates a colony from a seed.
func New(cfg Config) *Colony {
	if cfg.Colonists <= 0 {
		cfg.Colonists = 5
	}
	c := &Colony{
		rng:      rand.New(rand.NewSource(cfg.Seed + 300)),
		pressure: opensimplex.NewNormalized(cfg.Seed),
		weather:  opensimplex.NewNormalized(cfg.Seed + 1),
		resources: map[string]int{
			"components": 20,
			"food":       400,
			"medicine":   10,
			"silver":     600,
			"steel":      150,
			"wood":       300,
		},
	}
	for i := 0; i < cfg.Colonists; i++ {
		c.colonists = append(c.colonists, c.newColonist())
	}
	for i, name := range factionNames {
		goodwill := -90 + c.rng.Intn(30)
		if i%2 == 1 {
			goodwill = c.rng.Intn(60) - 10
		}
		f := &faction{
			Faction:  engine.Faction{ID: factionIDs[i], Name: name, Goodwill: goodwill},
			strength: 6 + c.rng.Intn(6),
		}
		f.Hostile = f.Goodwill < -50
		c.factions = append(c.factions, f)
	}
	return c
}

// newID draws a uuid from the seeded source so runs are reproducible.
func (c *Colony) newID() string {
	id, err := uuid.NewRandomFromReader(c.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (c *Colony) newName() string {
	first := firstNames[c.rng.Intn(len(firstNames))]
	last := lastNames[c.rng.Intn(len(lastNames))]
	return first + " " + last
}

func (c *Colony) pickTraits(n int) []string {
	picked := make([]string, 0, n)
	for _, i := range c.rng.Perm(len(traitPool))[:n] {
		picked = append(picked, traitPool[i])
	}
	return picked
}

func (c *Colony) newColonist() *colonist {
	return &colonist{Colonist: engine.Colonist{
		ID:     c.newID(),
		Name:   c.newName(),
		Traits: c.pickTraits(2),
		Health: 1,
		Mood:   50,
	}}
}

func (c *Colony) Day() int { return c.day }

// Notices returns every message shown so far.
func (c *Colony) Notices() []Notice { return append([]Notice(nil), c.notices...) }

// Snapshot implements engine.Host.
func (c *Colony) Snapshot() engine.Snapshot {
	s := engine.Snapshot{
		Day:       c.day,
		Season:    seasonOf(c.day),
		Weather:   c.weatherOn(c.day),
		Resources: make(map[string]int, len(c.resources)),
	}
	for _, col := range c.colonists {
		cc := col.Colonist
		cc.Traits = append([]string(nil), cc.Traits...)
		cc.Mood = col.mood(c.day)
		s.Colonists = append(s.Colonists, cc)
	}
	for _, f := range c.factions {
		s.Factions = append(s.Factions, f.Faction)
	}
	for k, v := range c.resources {
		s.Resources[k] = v
	}
	return s
}

func (c *Colony) Colonist(id string) (engine.Colonist, bool) {
	for _, col := range c.colonists {
		if col.ID == id {
			return col.Colonist, true
		}
	}
	return engine.Colonist{}, false
}

func (c *Colony) Faction(id string) (engine.Faction, bool) {
	if f := c.faction(id); f != nil {
		return f.Faction, true
	}
	return engine.Faction{}, false
}

func (c *Colony) faction(id string) *faction {
	for _, f := range c.factions {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// SpawnNemesis adds a returning adversary to the raid in progress.
func (c *Colony) SpawnNemesis(enc nemesis.Encounter) error {
	if c.current == nil {
		return fmt.Errorf("spawn nemesis %s: no raid in progress", enc.Profile.Name)
	}
	p := enc.Profile
	c.current.raiders = append(c.current.raiders, &raider{
		id:         p.EntityID,
		name:       p.Name,
		factionID:  p.FactionID,
		skills:     p.TopSkills,
		traits:     p.NotableTraits,
		appearance: p.Appearance,
		nemesis:    true,
	})
	return nil
}

// SpawnAlly implements consequence.World.
func (c *Colony) SpawnAlly(kind string, count int) (int, error) {
	for i := 0; i < count; i++ {
		col := c.newColonist()
		col.Traits = append(col.Traits, kind)
		c.colonists = append(c.colonists, col)
	}
	return count, nil
}

// AdjustResource implements consequence.World. Stock never goes below zero.
func (c *Colony) AdjustResource(resource string, delta int) (int, error) {
	cur, ok := c.resources[resource]
	if !ok {
		return 0, fmt.Errorf("unknown resource %q: %w", resource, consequence.ErrInvalidParam)
	}
	cur += delta
	if cur < 0 {
		cur = 0
	}
	c.resources[resource] = cur
	return cur, nil
}

// ApplyMood implements consequence.World.
func (c *Colony) ApplyMood(label string, delta float64, days int) int {
	for _, col := range c.colonists {
		col.moods = append(col.moods, moodMod{label: label, delta: delta, expires: c.day + days})
	}
	return len(c.colonists)
}

// ShiftRelation implements consequence.World.
func (c *Colony) ShiftRelation(factionID string, delta int) (int, error) {
	f := c.faction(factionID)
	if f == nil || f.Defeated {
		return 0, fmt.Errorf("unknown faction %q: %w", factionID, consequence.ErrInvalidParam)
	}
	f.Goodwill = clamp(f.Goodwill+delta, -100, 100)
	f.Hostile = f.Goodwill < -50
	return f.Goodwill, nil
}

// HostileFaction returns the most hostile faction still standing.
func (c *Colony) HostileFaction() (string, bool) {
	var standing []*faction
	for _, f := range c.factions {
		if !f.Defeated && f.Hostile {
			standing = append(standing, f)
		}
	}
	if len(standing) == 0 {
		return "", false
	}
	sort.SliceStable(standing, func(i, j int) bool { return standing[i].Goodwill < standing[j].Goodwill })
	return standing[0].ID, true
}

// StartRaid queues a raid for the next day.
func (c *Colony) StartRaid(factionID string, points float64) error {
	f := c.faction(factionID)
	if f == nil || f.Defeated {
		return fmt.Errorf("unknown faction %q: %w", factionID, consequence.ErrInvalidParam)
	}
	c.queued = append(c.queued, raid{factionID: factionID, points: points})
	return nil
}

// Heal closes a fraction of each injured colonist's missing health.
func (c *Colony) Heal(fraction float64) int {
	treated := 0
	for _, col := range c.colonists {
		if col.Health < 1 {
			col.Health += (1 - col.Health) * fraction
			treated++
		}
	}
	return treated
}

// Notify implements consequence.World.
func (c *Colony) Notify(text string) {
	c.notices = append(c.notices, Notice{Day: c.day, Text: text})
	slog.Info("letter", "day", c.day, "text", text)
}

func (col *colonist) mood(day int) float64 {
	m := col.Mood
	for _, mod := range col.moods {
		if mod.expires > day {
			m += mod.delta
		}
	}
	return clampFloat(m, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
