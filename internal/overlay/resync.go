package overlay

import (
	"sync"
	"time"
)

// defaultFrameBudget spaces reposition passes roughly one animation frame
// apart. Scroll, resize and mutation signals arrive in bursts; geometry
// only needs to be re-read once per frame.
const defaultFrameBudget = 16 * time.Millisecond

// Resync coalesces reposition triggers onto a single scheduled pass: at
// most one pass is pending at a time, and a trigger arriving while one is
// pending is absorbed, not queued twice.
type Resync struct {
	budget time.Duration
	fn     func()

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
	stopped bool
}

// NewResync creates a scheduler invoking fn for each coalesced pass.
// budget <= 0 selects the default frame budget.
func NewResync(budget time.Duration, fn func()) *Resync {
	if budget <= 0 {
		budget = defaultFrameBudget
	}
	return &Resync{budget: budget, fn: fn}
}

// Trigger requests a pass. Absorbed when one is already pending.
func (r *Resync) Trigger() {
	r.mu.Lock()
	if r.stopped || r.pending {
		r.mu.Unlock()
		return
	}
	r.pending = true
	r.timer = time.AfterFunc(r.budget, r.fire)
	r.mu.Unlock()
}

// Flush runs a pending pass immediately instead of waiting out the budget.
// No-op when nothing is pending.
func (r *Resync) Flush() {
	r.mu.Lock()
	if r.stopped || !r.pending {
		r.mu.Unlock()
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.pending = false
	r.mu.Unlock()
	r.fn()
}

// Stop cancels any pending pass. Safe to call at any time, including
// mid-burst; no pass fires after Stop returns.
func (r *Resync) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
	}
	r.pending = false
}

// Pending reports whether a pass is scheduled.
func (r *Resync) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

func (r *Resync) fire() {
	r.mu.Lock()
	if r.stopped || !r.pending {
		r.mu.Unlock()
		return
	}
	r.pending = false
	r.mu.Unlock()
	r.fn()
}
