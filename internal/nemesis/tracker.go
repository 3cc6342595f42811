// Package nemesis tracks adversaries that have earned the right to come back.
//
// A departing adversary is a Candidate. If it did something the colony will
// remember, it is promoted to an active Profile, and later raids by its
// faction may bring it back. After enough encounters, or when its faction is
// destroyed, the profile retires for good.
package nemesis

import (
	"fmt"
	"log/slog"
)

const (
	DefaultCapacity      = 10
	DefaultCooldownDays  = 5
	DefaultMaxEncounters = 3
)

// Retirement reasons recorded on profiles.
const (
	ReasonEncounters       = "encounter limit reached"
	ReasonFactionDestroyed = "faction destroyed"
	ReasonSlain            = "slain"
)

// Profile is a remembered adversary. Retired is terminal.
type Profile struct {
	EntityID       string            `json:"entity_id"`
	FactionID      string            `json:"faction_id"`
	Name           string            `json:"name"`
	Appearance     map[string]string `json:"appearance,omitempty"`
	TopSkills      []string          `json:"top_skills,omitempty"`
	NotableTraits  []string          `json:"notable_traits,omitempty"`
	GrudgeReason   string            `json:"grudge_reason"`
	GrudgeTargetID string            `json:"grudge_target_id,omitempty"`
	EncounterCount int               `json:"encounter_count"`
	LastSeenDay    int               `json:"last_seen_day"`
	CreatedDay     int               `json:"created_day"`
	Retired        bool              `json:"retired"`
	RetiredReason  string            `json:"retired_reason,omitempty"`
}

// Active reports whether the profile can still recur.
func (p Profile) Active() bool { return !p.Retired }

func (p Profile) clone() Profile {
	if p.Appearance != nil {
		app := make(map[string]string, len(p.Appearance))
		for k, v := range p.Appearance {
			app[k] = v
		}
		p.Appearance = app
	}
	p.TopSkills = append([]string(nil), p.TopSkills...)
	p.NotableTraits = append([]string(nil), p.NotableTraits...)
	return p
}

// Encounter is everything a host needs to bring a nemesis back into the world.
type Encounter struct {
	Profile Profile
	// Final is true when this encounter retired the profile.
	Final bool
}

// Config bounds the tracker.
type Config struct {
	Capacity      int `yaml:"capacity"`
	CooldownDays  int `yaml:"cooldown_days"`
	MaxEncounters int `yaml:"max_encounters"`
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		Capacity:      DefaultCapacity,
		CooldownDays:  DefaultCooldownDays,
		MaxEncounters: DefaultMaxEncounters,
	}
}

// Tracker owns all nemesis profiles. It never mutates world state.
// Not safe for concurrent use; it belongs to the tick goroutine.
type Tracker struct {
	cfg      Config
	profiles []*Profile // oldest created first
}

// NewTracker creates an empty tracker. Zero config fields take their defaults.
func NewTracker(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.CooldownDays <= 0 {
		cfg.CooldownDays = def.CooldownDays
	}
	if cfg.MaxEncounters <= 0 {
		cfg.MaxEncounters = def.MaxEncounters
	}
	return &Tracker{cfg: cfg}
}

// Promote turns a qualifying candidate into an active profile.
// It returns false when the candidate does not qualify, is already tracked,
// or its faction already has an active nemesis.
func (t *Tracker) Promote(c Candidate, today int) (Profile, bool) {
	if c.EntityID == "" || c.FactionID == "" {
		return Profile{}, false
	}
	if _, tracked := t.find(c.EntityID); tracked {
		return Profile{}, false
	}
	reason, target, ok := c.Grudge()
	if !ok {
		return Profile{}, false
	}
	if existing, ok := t.ActiveForFaction(c.FactionID); ok {
		slog.Debug("nemesis candidate dropped, faction already has one",
			"candidate", c.Name, "faction", c.FactionID, "nemesis", existing.Name)
		return Profile{}, false
	}

	p := &Profile{
		EntityID:       c.EntityID,
		FactionID:      c.FactionID,
		Name:           c.Name,
		Appearance:     c.Appearance,
		TopSkills:      c.TopSkills,
		NotableTraits:  c.NotableTraits,
		GrudgeReason:   reason,
		GrudgeTargetID: target,
		EncounterCount: 1,
		LastSeenDay:    today,
		CreatedDay:     today,
	}
	*p = p.clone()
	t.profiles = append(t.profiles, p)
	t.evictOverflow()

	slog.Info("nemesis promoted", "name", p.Name, "faction", p.FactionID, "grudge", p.GrudgeReason)
	return p.clone(), true
}

// Summon brings back the faction's active nemesis for a raid, if the cooldown
// since its last appearance has passed. Reaching the encounter limit retires
// the profile immediately; that final encounter is still returned.
func (t *Tracker) Summon(factionID string, today int) (Encounter, bool) {
	p := t.activeFor(factionID)
	if p == nil {
		return Encounter{}, false
	}
	if today-p.LastSeenDay < t.cfg.CooldownDays {
		return Encounter{}, false
	}

	p.EncounterCount++
	p.LastSeenDay = today
	enc := Encounter{}
	if p.EncounterCount >= t.cfg.MaxEncounters {
		retire(p, ReasonEncounters)
		enc.Final = true
	}
	enc.Profile = p.clone()

	slog.Info("nemesis returns", "name", p.Name, "faction", factionID,
		"encounter", p.EncounterCount, "final", enc.Final)
	return enc, true
}

// ActiveForFaction returns the faction's active nemesis, if any.
func (t *Tracker) ActiveForFaction(factionID string) (Profile, bool) {
	p := t.activeFor(factionID)
	if p == nil {
		return Profile{}, false
	}
	return p.clone(), true
}

// RetireFaction retires the faction's active nemesis. It reports whether one was retired.
func (t *Tracker) RetireFaction(factionID, reason string) bool {
	p := t.activeFor(factionID)
	if p == nil {
		return false
	}
	if reason == "" {
		reason = ReasonFactionDestroyed
	}
	retire(p, reason)
	slog.Info("nemesis retired", "name", p.Name, "faction", factionID, "reason", reason)
	return true
}

// Retire retires a specific tracked entity. Retiring twice is a no-op.
func (t *Tracker) Retire(entityID, reason string) bool {
	i, ok := t.find(entityID)
	if !ok || t.profiles[i].Retired {
		return false
	}
	retire(t.profiles[i], reason)
	slog.Info("nemesis retired", "name", t.profiles[i].Name, "reason", reason)
	return true
}

// Get returns the profile tracked for an entity, active or retired.
func (t *Tracker) Get(entityID string) (Profile, bool) {
	i, ok := t.find(entityID)
	if !ok {
		return Profile{}, false
	}
	return t.profiles[i].clone(), true
}

// Profiles returns every tracked profile, oldest created first.
func (t *Tracker) Profiles() []Profile {
	out := make([]Profile, 0, len(t.profiles))
	for _, p := range t.profiles {
		out = append(out, p.clone())
	}
	return out
}

// Len returns the number of tracked profiles.
func (t *Tracker) Len() int { return len(t.profiles) }

// Restore replaces the tracked profiles with saved ones. Duplicate entities
// and a second active profile for the same faction are dropped.
func (t *Tracker) Restore(profiles []Profile) error {
	t.profiles = t.profiles[:0]
	seen := make(map[string]bool, len(profiles))
	activeFaction := make(map[string]bool)
	for _, p := range profiles {
		if p.EntityID == "" {
			return fmt.Errorf("restore nemesis %q: missing entity id", p.Name)
		}
		if seen[p.EntityID] {
			continue
		}
		seen[p.EntityID] = true
		if p.EncounterCount < 1 {
			p.EncounterCount = 1
		}
		if !p.Retired {
			if activeFaction[p.FactionID] {
				slog.Warn("dropping duplicate active nemesis on restore", "name", p.Name, "faction", p.FactionID)
				continue
			}
			activeFaction[p.FactionID] = true
		}
		cp := p.clone()
		t.profiles = append(t.profiles, &cp)
	}
	t.evictOverflow()
	return nil
}

func (t *Tracker) activeFor(factionID string) *Profile {
	for _, p := range t.profiles {
		if p.FactionID == factionID && !p.Retired {
			return p
		}
	}
	return nil
}

func (t *Tracker) find(entityID string) (int, bool) {
	for i, p := range t.profiles {
		if p.EntityID == entityID {
			return i, true
		}
	}
	return 0, false
}

func (t *Tracker) evictOverflow() {
	for len(t.profiles) > t.cfg.Capacity {
		slog.Debug("nemesis evicted", "name", t.profiles[0].Name, "retired", t.profiles[0].Retired)
		t.profiles[0] = nil
		t.profiles = t.profiles[1:]
	}
}

func retire(p *Profile, reason string) {
	p.Retired = true
	p.RetiredReason = reason
}
