package llm

import "sync"

const DefaultDailyLimit = 20

// Budget is the persisted request counter.
type Budget struct {
	CallsUsedToday int `json:"calls_used_today"`
	LastResetDay   int `json:"last_reset_day"`
}

// Gate enforces a per-day cap on backend requests. The counter resets the
// first time it is touched on a new day, before any read or increment.
type Gate struct {
	mu     sync.Mutex
	limit  int
	budget Budget
}

// NewGate returns a gate allowing limit calls per day. A limit <= 0 uses
// DefaultDailyLimit.
func NewGate(limit int) *Gate {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Gate{limit: limit}
}

func (g *Gate) resetLocked(today int) {
	if today != g.budget.LastResetDay {
		g.budget.CallsUsedToday = 0
		g.budget.LastResetDay = today
	}
}

// CanProceed reports whether a call would be allowed today.
//
// CanProceed and Consume are the older two-step API. Another caller can spend
// the last call between them; issue requests through Reserve instead.
func (g *Gate) CanProceed(today int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked(today)
	return g.budget.CallsUsedToday < g.limit
}

// Consume records one call without checking the limit. See CanProceed.
func (g *Gate) Consume(today int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked(today)
	g.budget.CallsUsedToday++
}

// Reserve checks and consumes in one step. It returns false, consuming
// nothing, when today's budget is spent.
func (g *Gate) Reserve(today int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked(today)
	if g.budget.CallsUsedToday >= g.limit {
		return false
	}
	g.budget.CallsUsedToday++
	return true
}

// Remaining returns how many calls are left today.
func (g *Gate) Remaining(today int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked(today)
	if n := g.limit - g.budget.CallsUsedToday; n > 0 {
		return n
	}
	return 0
}

func (g *Gate) Limit() int { return g.limit }

func (g *Gate) Budget() Budget {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.budget
}

// Restore loads a saved budget. Negative counts are clamped to zero.
func (g *Gate) Restore(b Budget) {
	if b.CallsUsedToday < 0 {
		b.CallsUsedToday = 0
	}
	g.mu.Lock()
	g.budget = b
	g.mu.Unlock()
}
