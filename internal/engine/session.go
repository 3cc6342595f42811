package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/talgya/storyteller/internal/chronicle"
	"github.com/talgya/storyteller/internal/consequence"
	"github.com/talgya/storyteller/internal/journal"
	"github.com/talgya/storyteller/internal/llm"
	"github.com/talgya/storyteller/internal/nemesis"
)

var (
	ErrNoSuchOption  = errors.New("choice has no such option")
	ErrSessionClosed = errors.New("session closed")
)

// Config sizes a session.
type Config struct {
	StoreCapacity      int
	JournalCapacity    int
	DailyLimit         int
	ChoiceIntervalDays int
	MailboxSize        int
	Nemesis            nemesis.Config
	Narrator           llm.Config
}

// Deps are the collaborators a session talks to.
type Deps struct {
	Host     Host
	Backend  llm.Backend
	Executor *consequence.Executor
}

type kill struct {
	colonistID   string
	colonistName string
	day          int
}

// Session owns every piece of storyteller state for one game. It is built
// explicitly and passed to whoever needs it; there is no global instance.
//
// Observer methods, ResolveChoice and State must be called from the tick
// goroutine.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config

	host     Host
	store    *chronicle.Store
	tracker  *nemesis.Tracker
	journal  *journal.Journal
	gate     *llm.Gate
	narrator *llm.Narrator
	executor *consequence.Executor
	mailbox  *Mailbox

	tick     uint64
	day      int
	inflight int

	kills          map[string]kill // killer id -> colonist killed
	lethalFactions map[string]int  // faction id -> day of a battle with colony deaths
	pending        []consequence.Choice
	lastChoice     string
	closed         bool
}

var _ Observer = (*Session)(nil)

// NewSession builds a session. Closing ctx, or calling Close, discards every
// in-flight request.
func NewSession(ctx context.Context, cfg Config, deps Deps) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ctx:            ctx,
		cancel:         cancel,
		cfg:            cfg,
		host:           deps.Host,
		store:          chronicle.NewStore(cfg.StoreCapacity),
		tracker:        nemesis.NewTracker(cfg.Nemesis),
		journal:        journal.New(cfg.JournalCapacity),
		gate:           llm.NewGate(cfg.DailyLimit),
		executor:       deps.Executor,
		mailbox:        NewMailbox(cfg.MailboxSize),
		kills:          make(map[string]kill),
		lethalFactions: make(map[string]int),
	}
	if s.executor == nil {
		s.executor = consequence.NewExecutor()
	}
	s.narrator = llm.NewNarrator(ctx, deps.Backend, s.gate, s.store, s.journal, s.mailbox,
		func() uint64 { return s.tick }, cfg.Narrator)
	return s
}

func (s *Session) Store() *chronicle.Store   { return s.store }
func (s *Session) Tracker() *nemesis.Tracker { return s.tracker }
func (s *Session) Journal() *journal.Journal { return s.journal }
func (s *Session) Gate() *llm.Gate           { return s.gate }
func (s *Session) Day() int                  { return s.day }

// Pending returns choices waiting for the player.
func (s *Session) Pending() []consequence.Choice {
	return append([]consequence.Choice(nil), s.pending...)
}

// Tick records the current tick and runs any continuations that arrived.
func (s *Session) Tick(tick uint64) {
	s.tick = tick
	s.mailbox.Drain()
}

// Flush waits for in-flight requests to resolve, running their continuations.
func (s *Session) Flush(ctx context.Context) error {
	for s.inflight > 0 {
		if s.closed {
			return ErrSessionClosed
		}
		if !s.mailbox.Wait(ctx) {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("flush with %d requests in flight: %w", s.inflight, err)
			}
			return ErrSessionClosed
		}
	}
	return nil
}

// Close tears the session down. Requests still in flight resolve as canceled.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.mailbox.Close()
	slog.Info("session closed", "day", s.day, "events", s.store.Len(), "nemeses", s.tracker.Len())
}

// today keeps the session day monotonic.
func (s *Session) today(day int) int {
	if day > s.day {
		s.day = day
	}
	return s.day
}

func (s *Session) record(e chronicle.Event) {
	if _, err := s.store.Append(e); err != nil {
		slog.Warn("event not recorded", "summary", e.Summary, "error", err)
	}
}

func (s *Session) world() string {
	if s.host == nil {
		return ""
	}
	return s.host.Snapshot().Summary()
}

func (s *Session) narrate(req llm.NarrationRequest) {
	if s.closed {
		return
	}
	req.World = s.world()
	req.PriorChoice = s.lastChoice
	s.inflight++
	s.narrator.RequestNarration(req).Then(func(n llm.Narration) {
		s.inflight--
		if s.host != nil {
			s.host.Notify(n.Text)
		}
	})
}

// OnIncidentFired records an incident and narrates it. A raid by a faction
// with an active nemesis may bring that nemesis back.
func (s *Session) OnIncidentFired(in Incident) {
	day := s.today(in.Day)
	category := llm.ParseCategory(in.Category)

	var enc *nemesis.Encounter
	if category == llm.CategoryRaid && in.FactionID != "" {
		if e, ok := s.tracker.Summon(in.FactionID, day); ok {
			enc = &e
			if s.host != nil {
				if err := s.host.SpawnNemesis(e); err != nil {
					slog.Warn("nemesis could not be spawned", "name", e.Profile.Name, "error", err)
				}
			}
			s.record(chronicle.Event{
				Summary:        fmt.Sprintf("%s returned with a raid, still holding a grudge: %s", e.Profile.Name, e.Profile.GrudgeReason),
				Type:           chronicle.TypeNemesis,
				Day:            day,
				Keywords:       []string{"nemesis", "raid", in.FactionID},
				ParticipantIDs: []string{e.Profile.EntityID, e.Profile.GrudgeTargetID},
				Significance:   2,
			})
		}
	}

	summary := strings.TrimSpace(in.Description)
	if summary == "" {
		summary = fmt.Sprintf("A %s incident struck the colony", category)
	}
	keywords := []string{string(category)}
	if in.FactionID != "" {
		keywords = append(keywords, in.FactionID)
	}
	s.record(chronicle.Event{
		Summary:        summary,
		Type:           eventType(category),
		Day:            day,
		Keywords:       keywords,
		ParticipantIDs: in.ParticipantIDs,
		Significance:   severity(in.SeverityPoints),
	})

	s.narrate(llm.NarrationRequest{
		Category:       category,
		Day:            day,
		Subject:        summary,
		Keywords:       keywords,
		ParticipantIDs: in.ParticipantIDs,
		Nemesis:        enc,
	})
}

// OnEntityDied records deaths. Colony deaths are remembered as evidence for
// nemesis promotion; a tracked nemesis that dies retires for good.
func (s *Session) OnEntityDied(d Death) {
	day := s.today(d.Day)

	if !d.Colonist {
		if p, ok := s.tracker.Get(d.EntityID); ok && p.Active() {
			s.tracker.Retire(d.EntityID, nemesis.ReasonSlain)
			summary := fmt.Sprintf("%s, who %s, was finally slain", p.Name, p.GrudgeReason)
			s.record(chronicle.Event{
				Summary:        summary,
				Type:           chronicle.TypeNemesis,
				Day:            day,
				Keywords:       []string{"nemesis", "death", p.FactionID},
				ParticipantIDs: []string{p.EntityID, p.GrudgeTargetID},
				Significance:   3,
			})
			s.narrate(llm.NarrationRequest{
				Category:       llm.CategoryNemesis,
				Day:            day,
				Subject:        summary,
				Keywords:       []string{"nemesis", p.FactionID},
				ParticipantIDs: []string{p.EntityID, p.GrudgeTargetID},
				JournalType:    journal.TypeNemesis,
			})
		}
		return
	}

	name := d.Name
	if name == "" && s.host != nil {
		if c, ok := s.host.Colonist(d.EntityID); ok {
			name = c.Name
		}
	}
	if name == "" {
		name = "a colonist"
	}
	if d.KillerID != "" {
		s.kills[d.KillerID] = kill{colonistID: d.EntityID, colonistName: name, day: day}
	}
	if d.InBattle && d.KillerFactionID != "" {
		s.lethalFactions[d.KillerFactionID] = day
	}

	summary := name + " died"
	if d.KillerName != "" {
		summary = fmt.Sprintf("%s was killed by %s", name, d.KillerName)
	}
	keywords := []string{"death", name}
	if d.KillerFactionID != "" {
		keywords = append(keywords, d.KillerFactionID)
	}
	participants := []string{d.EntityID}
	if d.KillerID != "" {
		participants = append(participants, d.KillerID)
	}
	s.record(chronicle.Event{
		Summary:        summary,
		Type:           chronicle.TypeDeath,
		Day:            day,
		Keywords:       keywords,
		ParticipantIDs: participants,
		Significance:   2,
	})
	s.narrate(llm.NarrationRequest{
		Category:       llm.CategoryDeath,
		Day:            day,
		Subject:        summary,
		Keywords:       keywords,
		ParticipantIDs: participants,
	})
}

// OnEntityRecruited records a new colony member.
func (s *Session) OnEntityRecruited(r Recruitment) {
	day := s.today(r.Day)
	summary := fmt.Sprintf("%s joined the colony", r.Name)
	keywords := []string{"recruitment", r.Name}
	if r.FromFactionID != "" {
		keywords = append(keywords, r.FromFactionID)
		if f, ok := s.lookupFaction(r.FromFactionID); ok {
			summary = fmt.Sprintf("%s left %s to join the colony", r.Name, f.Name)
		}
	}
	s.record(chronicle.Event{
		Summary:        summary,
		Type:           chronicle.TypeRecruitment,
		Day:            day,
		Keywords:       keywords,
		ParticipantIDs: []string{r.EntityID},
		Significance:   1,
	})
	s.narrate(llm.NarrationRequest{
		Category:       llm.CategoryRecruitment,
		Day:            day,
		Subject:        summary,
		Keywords:       keywords,
		ParticipantIDs: []string{r.EntityID},
	})
}

// OnArtifactQualitySet remembers good work and tells the story of masterworks.
// Items below good quality are ignored.
func (s *Session) OnArtifactQualitySet(a Artifact) {
	if a.Quality < QualityGood {
		return
	}
	day := s.today(a.Day)
	summary := fmt.Sprintf("%s crafted a %s %s", nameOr(a.CrafterName, "A colonist"), a.Quality, a.Name)
	s.record(chronicle.Event{
		Summary:        summary,
		Type:           chronicle.TypeArtifact,
		Day:            day,
		Keywords:       []string{"artifact", a.Quality.String(), a.Name},
		ParticipantIDs: []string{a.CrafterID, a.ItemID},
		Significance:   artifactSignificance(a.Quality),
	})
	if a.Quality >= QualityMasterwork {
		s.narrate(llm.NarrationRequest{
			Category:       llm.CategoryArtifact,
			Day:            day,
			Subject:        summary,
			Keywords:       []string{"artifact", a.Name},
			ParticipantIDs: []string{a.CrafterID},
			JournalType:    journal.TypeArtifact,
		})
	}
}

// OnEntityLeftWorld considers a departing adversary for promotion using the
// evidence gathered today.
func (s *Session) OnEntityLeftWorld(d Departure) {
	day := s.today(d.Day)
	c := nemesis.Candidate{
		EntityID:           d.EntityID,
		FactionID:          d.FactionID,
		Name:               d.Name,
		Appearance:         d.Appearance,
		TopSkills:          d.TopSkills,
		NotableTraits:      d.NotableTraits,
		BondedColonistID:   d.BondedColonistID,
		BondedColonistName: d.BondedColonistName,
		BondKind:           d.BondKind,
	}
	if k, ok := s.kills[d.EntityID]; ok && k.day == day {
		c.KilledColonistID = k.colonistID
		c.KilledColonistName = k.colonistName
	}
	if battleDay, ok := s.lethalFactions[d.FactionID]; ok && battleDay == day {
		c.InLethalBattle = true
	}

	p, ok := s.tracker.Promote(c, day)
	if !ok {
		return
	}
	summary := fmt.Sprintf("%s escaped and will return: %s", p.Name, p.GrudgeReason)
	s.record(chronicle.Event{
		Summary:        summary,
		Type:           chronicle.TypeNemesis,
		Day:            day,
		Keywords:       []string{"nemesis", p.FactionID},
		ParticipantIDs: []string{p.EntityID, p.GrudgeTargetID},
		Significance:   2,
	})
	s.narrate(llm.NarrationRequest{
		Category:       llm.CategoryNemesis,
		Day:            day,
		Subject:        summary,
		Keywords:       []string{"nemesis", p.FactionID},
		ParticipantIDs: []string{p.EntityID, p.GrudgeTargetID},
		JournalType:    journal.TypeNemesis,
	})
}

// OnFactionDefeated retires the faction's nemesis.
func (s *Session) OnFactionDefeated(factionID string, day int) {
	day = s.today(day)
	name := factionID
	if f, ok := s.lookupFaction(factionID); ok {
		name = f.Name
	}
	if p, ok := s.tracker.ActiveForFaction(factionID); ok {
		s.tracker.RetireFaction(factionID, nemesis.ReasonFactionDestroyed)
		s.journal.Add(journal.Entry{
			Type: journal.TypeNemesis,
			Tick: s.tick,
			Day:  day,
			Text: fmt.Sprintf("With %s broken, %s will not be coming back.", name, p.Name),
		})
	}
	s.record(chronicle.Event{
		Summary:      fmt.Sprintf("%s was defeated", name),
		Type:         chronicle.TypeOther,
		Day:          day,
		Keywords:     []string{"defeat", factionID},
		Significance: 2,
	})
}

// OnDay clears stale evidence and, on choice days, asks for a decision.
func (s *Session) OnDay(day int) {
	day = s.today(day)
	for id, k := range s.kills {
		if k.day < day {
			delete(s.kills, id)
		}
	}
	for id, d := range s.lethalFactions {
		if d < day {
			delete(s.lethalFactions, id)
		}
	}

	interval := s.cfg.ChoiceIntervalDays
	if interval <= 0 || day <= 0 || day%interval != 0 || s.closed {
		return
	}
	s.requestChoice(day)
}

func (s *Session) requestChoice(day int) {
	req := llm.ChoiceRequest{Day: day}
	if s.host != nil {
		snap := s.host.Snapshot()
		req.World = snap.Summary()
		req.Factions = snap.FactionIDs()
	}
	if recent := s.store.Recent(1); len(recent) > 0 {
		req.Keywords = recent[0].Keywords
		req.ParticipantIDs = recent[0].ParticipantIDs
		req.Situation = "Lately: " + recent[0].Summary + "."
	}

	s.inflight++
	s.narrator.RequestChoice(req).Then(func(out llm.ChoiceOutcome) {
		s.inflight--
		if !out.OK {
			return
		}
		s.offer(out.Choice)
	})
}

func (s *Session) offer(c consequence.Choice) {
	if s.host == nil {
		s.pending = append(s.pending, c)
		return
	}
	index, ok := s.host.PresentChoice(c)
	if !ok {
		s.pending = append(s.pending, c)
		return
	}
	if err := s.ResolveChoice(c, index); err != nil {
		slog.Warn("choice not resolved", "error", err)
	}
}

// ResolveChoice applies the chosen option's effects, in order, to the host
// world and records the decision.
func (s *Session) ResolveChoice(c consequence.Choice, index int) error {
	if index < 0 || index >= len(c.Options) {
		return fmt.Errorf("resolve choice option %d of %d: %w", index, len(c.Options), ErrNoSuchOption)
	}
	opt := c.Options[index]
	s.dropPending(c)

	if s.host != nil {
		rep := s.executor.ExecuteAll(opt.Effects, s.host)
		slog.Info("choice resolved", "option", opt.Label, "applied", rep.Applied, "skipped", len(rep.Skipped))
	}

	s.lastChoice = opt.Label
	s.record(chronicle.Event{
		Summary:      fmt.Sprintf("The colony chose to %s", strings.ToLower(opt.Label)),
		Type:         chronicle.TypeChoice,
		Day:          s.day,
		Keywords:     []string{"choice", opt.Label},
		Significance: 1,
	})
	s.journal.Add(journal.Entry{
		Type:        journal.TypeChoice,
		Tick:        s.tick,
		Day:         s.day,
		Text:        c.NarrativeText,
		PriorChoice: opt.Label,
	})
	return nil
}

func (s *Session) dropPending(c consequence.Choice) {
	for i, p := range s.pending {
		if p.NarrativeText == c.NarrativeText {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func (s *Session) lookupFaction(id string) (Faction, bool) {
	if s.host == nil {
		return Faction{}, false
	}
	return s.host.Faction(id)
}

func eventType(c llm.Category) chronicle.EventType {
	switch c {
	case llm.CategoryRaid:
		return chronicle.TypeRaid
	case llm.CategoryDeath:
		return chronicle.TypeDeath
	case llm.CategoryRecruitment:
		return chronicle.TypeRecruitment
	case llm.CategoryArtifact:
		return chronicle.TypeArtifact
	case llm.CategoryArrival:
		return chronicle.TypeArrival
	case llm.CategoryNemesis:
		return chronicle.TypeNemesis
	case llm.CategoryChoice:
		return chronicle.TypeChoice
	}
	return chronicle.TypeOther
}

// severity maps raid points to significance, capped at 4.
func severity(points float64) float64 {
	if points <= 0 || math.IsNaN(points) {
		return 0
	}
	return math.Min(points/250, 4)
}

func artifactSignificance(q Quality) float64 {
	switch q {
	case QualityLegendary:
		return 3
	case QualityMasterwork:
		return 2
	case QualityExcellent:
		return 1
	}
	return 0.5
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
