package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talgya/storyteller/internal/chronicle"
	"github.com/talgya/storyteller/internal/consequence"
	"github.com/talgya/storyteller/internal/journal"
	"github.com/talgya/storyteller/internal/nemesis"
)

// ErrQuotaExhausted means the daily request budget was spent before the call.
var ErrQuotaExhausted = errors.New("daily request budget exhausted")

const (
	DefaultTimeout   = 15 * time.Second
	DefaultTopK      = 5
	DefaultMaxTokens = 300
)

// Poster schedules a function on the goroutine that owns the session state.
// Post returns false if the function will never run.
type Poster interface {
	Post(fn func()) bool
}

// Config tunes a Narrator.
type Config struct {
	Timeout         time.Duration
	TopK            int
	MaxTokens       int
	ChoiceMaxTokens int
	Weights         chronicle.Weights
	Fallbacks       Fallbacks
}

// NarrationRequest describes something that happened and should be told.
type NarrationRequest struct {
	Category       Category
	Day            int
	Subject        string
	Keywords       []string
	ParticipantIDs []string
	World          string
	Nemesis        *nemesis.Encounter
	PriorChoice    string
	// JournalType overrides the journal entry type; defaults to narration.
	JournalType string
}

// Narration is the resolved text. Cause is set when Text is a fallback.
type Narration struct {
	Text     string
	Fallback bool
	Cause    error
}

// ChoiceRequest asks for a decision for the colony.
type ChoiceRequest struct {
	Day            int
	Situation      string
	Keywords       []string
	ParticipantIDs []string
	World          string
	Factions       []string
}

// ChoiceOutcome is the resolved choice. OK is false when there is no choice this cycle.
type ChoiceOutcome struct {
	Choice consequence.Choice
	OK     bool
	Cause  error
}

// Narrator turns requests into backend calls without blocking the caller.
// Request methods must be called from the goroutine that owns the store and
// journal; results come back through the Poster on that same goroutine.
type Narrator struct {
	ctx     context.Context
	backend Backend
	gate    *Gate
	store   *chronicle.Store
	journal *journal.Journal
	poster  Poster
	clock   func() uint64
	cfg     Config
}

// NewNarrator wires a narrator. backend may be nil, in which case every
// request that passes the gate resolves to its fallback.
func NewNarrator(ctx context.Context, backend Backend, gate *Gate, store *chronicle.Store,
	j *journal.Journal, poster Poster, clock func() uint64, cfg Config) *Narrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.ChoiceMaxTokens <= 0 {
		cfg.ChoiceMaxTokens = 3 * cfg.MaxTokens
	}
	if cfg.Weights == (chronicle.Weights{}) {
		cfg.Weights = chronicle.DefaultWeights()
	}
	cfg.Fallbacks = DefaultFallbacks().Merge(cfg.Fallbacks)
	if clock == nil {
		clock = func() uint64 { return 0 }
	}
	// A nil *Client must not become a non-nil Backend.
	if c, ok := backend.(*Client); ok && !c.Enabled() {
		backend = nil
	}
	return &Narrator{
		ctx:     ctx,
		backend: backend,
		gate:    gate,
		store:   store,
		journal: j,
		poster:  poster,
		clock:   clock,
		cfg:     cfg,
	}
}

// RequestNarration issues one narration. The task always resolves to usable
// text unless the session closes first.
func (n *Narrator) RequestNarration(req NarrationRequest) *Task[Narration] {
	task := newTask[Narration](n.ctx)
	if n.ctx.Err() != nil {
		task.cancel()
		return task
	}
	if req.Category == "" {
		req.Category = CategoryOther
	}

	if !n.gate.Reserve(req.Day) {
		out := n.fallback(req, ErrQuotaExhausted)
		n.journalNarration(req, out)
		task.resolve(out)
		return task
	}

	memories := n.store.FindRelevant(chronicle.Query{
		Keywords:       req.Keywords,
		ParticipantIDs: req.ParticipantIDs,
		Today:          req.Day,
	}, n.cfg.Weights, n.cfg.TopK)
	system, user := buildNarrationPrompt(req, memories)

	go func() {
		text, err := n.send(system, user, n.cfg.MaxTokens)
		n.deliver(func() {
			out := Narration{Text: text}
			if err != nil {
				out = n.fallback(req, err)
			}
			if task.resolve(out) {
				n.journalNarration(req, out)
			}
		}, task.cancel)
	}()
	return task
}

// RequestChoice issues one choice request. On any failure the outcome has no
// choice and a single warning is logged.
func (n *Narrator) RequestChoice(req ChoiceRequest) *Task[ChoiceOutcome] {
	task := newTask[ChoiceOutcome](n.ctx)
	if n.ctx.Err() != nil {
		task.cancel()
		return task
	}

	if !n.gate.Reserve(req.Day) {
		slog.Warn("no choice this cycle", "day", req.Day, "error", ErrQuotaExhausted)
		task.resolve(ChoiceOutcome{Cause: ErrQuotaExhausted})
		return task
	}

	memories := n.store.FindRelevant(chronicle.Query{
		Keywords:       req.Keywords,
		ParticipantIDs: req.ParticipantIDs,
		Today:          req.Day,
	}, n.cfg.Weights, n.cfg.TopK)
	system, user := buildChoicePrompt(req, memories)

	go func() {
		text, err := n.send(system, user, n.cfg.ChoiceMaxTokens)
		var out ChoiceOutcome
		if err == nil {
			out.Choice, err = consequence.ParseChoice(text)
			if err != nil {
				err = fmt.Errorf("%w: %w", ErrMalformed, err)
			}
		}
		if err != nil {
			out = ChoiceOutcome{Cause: err}
		} else {
			out.OK = true
		}
		n.deliver(func() {
			if task.resolve(out) && !out.OK {
				slog.Warn("no choice this cycle", "day", req.Day, "error", out.Cause)
			}
		}, task.cancel)
	}()
	return task
}

// send runs one backend call under the request timeout. Panics from the
// backend come back as errors.
func (n *Narrator) send(system, user string, maxTokens int) (text string, err error) {
	if n.backend == nil {
		return "", ErrDisabled
	}
	ctx, cancel := context.WithTimeout(n.ctx, n.cfg.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("backend panicked: %v", r)
		}
	}()
	text, err = n.backend.Send(ctx, system, user, maxTokens)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty text: %w", ErrMalformed)
	}
	return text, nil
}

// deliver posts a continuation to the owning goroutine. If the session is gone,
// or goes away before the continuation runs, discard is called instead.
func (n *Narrator) deliver(fn func(), discard func()) {
	if n.ctx.Err() != nil || n.poster == nil {
		discard()
		return
	}
	posted := n.poster.Post(func() {
		if n.ctx.Err() != nil {
			discard()
			return
		}
		fn()
	})
	if !posted {
		discard()
	}
}

func (n *Narrator) fallback(req NarrationRequest, cause error) Narration {
	slog.Warn("narration fallback", "category", string(req.Category), "day", req.Day, "error", cause)
	return Narration{
		Text:     n.cfg.Fallbacks.Text(req.Category, req.Day),
		Fallback: true,
		Cause:    cause,
	}
}

func (n *Narrator) journalNarration(req NarrationRequest, out Narration) {
	if n.journal == nil {
		return
	}
	typ := req.JournalType
	if typ == "" {
		typ = journal.TypeNarration
	}
	n.journal.Add(journal.Entry{
		Type:        typ,
		Tick:        n.clock(),
		Day:         req.Day,
		Text:        out.Text,
		PriorChoice: req.PriorChoice,
		Fallback:    out.Fallback,
	})
}

// Remaining reports the calls left today.
func (n *Narrator) Remaining(today int) int { return n.gate.Remaining(today) }
