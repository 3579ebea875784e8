// Package session drives the live-preview → commit/apply → reset/undo
// workflow for one or more selected targets. Preview edits mutate the live
// DOM inline for immediate feedback and stack up on a session-local undo
// stack; Apply promotes the net result to durable scoped rules and a
// single committed record per target. The preview stack dies with the
// session — a cancelled session never pollutes durable history.
package session

import (
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/domedit/edit"
	"github.com/hazyhaar/domedit/internal/dom"
	"github.com/hazyhaar/domedit/internal/styler"
)

// Mixed marks a seeded control whose value disagrees across targets.
const Mixed = "mixed"

// Target is one element under edit in the open session.
type Target struct {
	Index    int
	Tag      string
	Selector string
	Baseline edit.Baseline

	// changes is the net preview state: property → current previewed value.
	changes map[string]string
	// first holds the pre-session value per touched property, for the
	// committed record's prev map (text) and for baseline-accurate cleanup.
	first map[string]string
}

// step is one undoable preview micro-edit: tag → property → previous value.
type step map[string]map[string]string

// DurableUndoFunc is the second undo tier: invoked when the session-local
// preview stack is empty.
type DurableUndoFunc func() bool

// Controller is the edit-session state machine: Closed → Open → Closed,
// with the preview sub-loop while open.
type Controller struct {
	surf        dom.Surface
	styles      *styler.Engine
	durableUndo DurableUndoFunc
	logger      *slog.Logger
	sanitizer   *bluemonday.Policy

	open    bool
	targets []*Target
	intents []edit.Intent
	preview []step
}

// NewController creates a session controller. durableUndo may be nil, in
// which case the second undo tier reports nothing to do.
func NewController(surf dom.Surface, styles *styler.Engine, durableUndo DurableUndoFunc, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		surf:        surf,
		styles:      styles,
		durableUndo: durableUndo,
		logger:      logger,
		// Text edits write textContent; markup in user input is stripped,
		// not interpreted.
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Open starts a session over the given targets. Opening while already open
// cancels the previous session first (restoring its baselines).
func (c *Controller) Open(targets []Target) {
	if c.open {
		c.Cancel()
	}
	c.targets = make([]*Target, 0, len(targets))
	for _, t := range targets {
		cp := t
		cp.changes = map[string]string{}
		cp.first = map[string]string{}
		c.targets = append(c.targets, &cp)
	}
	c.intents = nil
	c.preview = nil
	c.open = true
}

// IsOpen reports whether a session is active.
func (c *Controller) IsOpen() bool { return c.open }

// Targets returns the session targets in selection order.
func (c *Controller) Targets() []Target {
	out := make([]Target, len(c.targets))
	for i, t := range c.targets {
		out[i] = *t
	}
	return out
}

// DropTarget removes the session target bound to a removed selection index
// and renumbers the rest. Pending preview state for the dropped target is
// discarded; stale indices are worse than lost previews.
func (c *Controller) DropTarget(index int) {
	if !c.open {
		return
	}
	kept := c.targets[:0]
	for _, t := range c.targets {
		if t.Index == index {
			continue
		}
		if t.Index > index {
			t.Index--
		}
		kept = append(kept, t)
	}
	c.targets = kept
	if len(c.targets) == 0 {
		c.discard()
	}
}

// Seed reads the current computed style for the given properties across all
// targets. A property whose value disagrees between readable targets seeds
// as Mixed; targets that fail to read (detached) do not count against
// agreement.
func (c *Controller) Seed(properties []string) map[string]string {
	out := map[string]string{}
	if !c.open {
		return out
	}
	seen := map[string]bool{}
	for _, t := range c.targets {
		values, err := c.surf.ComputedStyles(t.Tag, properties)
		if err != nil {
			c.logger.Warn("session: seed read failed", "tag", t.Tag, "error", err)
			continue
		}
		for _, p := range properties {
			v := values[p]
			if !seen[p] {
				seen[p] = true
				out[p] = v
				continue
			}
			if out[p] != v {
				out[p] = Mixed
			}
		}
	}
	return out
}

// SetProperty previews a style edit on every target: the live DOM is
// mutated inline immediately and one undoable preview step is recorded.
// No durable record is written until Apply.
func (c *Controller) SetProperty(property, value, label string) {
	if !c.open {
		return
	}
	st := step{}
	for _, t := range c.targets {
		prev, ok := c.currentInline(t, property)
		if !ok {
			continue // detached: quietly skip
		}
		if err := c.surf.SetInlineStyle(t.Tag, property, value); err != nil {
			c.logger.Warn("session: preview style failed", "tag", t.Tag, "property", property, "error", err)
			continue
		}
		st[t.Tag] = map[string]string{property: prev}
		if _, touched := t.first[property]; !touched {
			t.first[property] = prev
		}
		t.changes[property] = value
	}
	if len(st) == 0 {
		return
	}
	c.preview = append(c.preview, st)
	c.intents = append(c.intents, edit.Intent{Property: property, Value: value, Label: label})
}

// SetText previews a text-content edit. Only leaf targets qualify: writing
// textContent into a container would destroy nested markup. Input is
// sanitized to plain text.
func (c *Controller) SetText(text, label string) {
	if !c.open {
		return
	}
	clean := c.sanitizer.Sanitize(text)
	st := step{}
	for _, t := range c.targets {
		if !t.Baseline.TextSafe {
			continue
		}
		state, err := c.surf.Describe(t.Tag)
		if err != nil {
			continue
		}
		if err := c.surf.SetText(t.Tag, clean); err != nil {
			c.logger.Warn("session: preview text failed", "tag", t.Tag, "error", err)
			continue
		}
		st[t.Tag] = map[string]string{styler.PropText: state.Text}
		if _, touched := t.first[styler.PropText]; !touched {
			t.first[styler.PropText] = state.Text
		}
		t.changes[styler.PropText] = clean
	}
	if len(st) == 0 {
		return
	}
	c.preview = append(c.preview, st)
	c.intents = append(c.intents, edit.Intent{Property: styler.PropText, Value: clean, Label: label})
}

// UndoStep pops one preview micro-edit and replays its previous values.
// With an empty preview stack it falls through to the durable committed
// history — the two-tier undo. Returns false when both tiers are empty.
func (c *Controller) UndoStep() bool {
	if c.open && len(c.preview) > 0 {
		st := c.preview[len(c.preview)-1]
		c.preview = c.preview[:len(c.preview)-1]
		for tag, props := range st {
			t := c.targetByTag(tag)
			for prop, prev := range props {
				c.replay(tag, prop, prev)
				if t != nil {
					if prev == "" && prop != styler.PropText {
						delete(t.changes, prop)
					} else {
						t.changes[prop] = prev
					}
					if first, ok := t.first[prop]; ok && first == prev {
						delete(t.changes, prop)
					}
				}
			}
		}
		return true
	}
	if c.durableUndo != nil {
		return c.durableUndo()
	}
	return false
}

// Apply promotes the session's net preview state to one durable record per
// target (full changes map, not deltas) and closes the session, discarding
// the preview stack. The inline preview styles are lifted back to the
// baseline inline values — the scoped rules carry the edit from here on.
func (c *Controller) Apply() []edit.Record {
	if !c.open {
		return nil
	}
	summary := edit.Summarize(c.intents)
	now := time.Now().UnixMilli()

	var records []edit.Record
	for _, t := range c.targets {
		if len(t.changes) == 0 {
			continue
		}
		rec := edit.Record{
			Index:     t.Index,
			Tag:       t.Tag,
			Selector:  t.Selector,
			Changes:   map[string]string{},
			Prev:      map[string]string{},
			Summary:   summary,
			Timestamp: now,
		}
		live := c.styles.RulesForTag(t.Tag)
		for prop, value := range t.changes {
			rec.Changes[prop] = value
			if prop == styler.PropText {
				rec.Prev[prop] = t.first[prop]
				continue
			}
			// Previous value means the previous committed rule, if any:
			// that is what an undo must restore.
			rec.Prev[prop] = live[prop]
		}
		c.styles.Commit(rec)
		c.liftPreviewStyles(t)
		records = append(records, rec)
	}

	c.discard()
	return records
}

// Reset replays the baseline onto every target's live DOM — a direct
// style/text rewrite, not a rule operation — and clears the preview stack
// and any scoped rules shadowing the baseline. The session stays open; the
// form re-seeds from the restored DOM.
func (c *Controller) Reset() {
	if !c.open {
		return
	}
	for _, t := range c.targets {
		c.restoreBaseline(t)
		t.changes = map[string]string{}
		t.first = map[string]string{}
	}
	c.preview = nil
	c.intents = nil
}

// Cancel closes without applying: baseline is restored exactly like Reset
// and the preview stack is discarded.
func (c *Controller) Cancel() {
	if !c.open {
		return
	}
	for _, t := range c.targets {
		c.restoreBaseline(t)
	}
	c.discard()
}

// Close closes the session after an Apply-less inspection without touching
// the DOM (used when the selection itself is going away).
func (c *Controller) Close() {
	c.discard()
}

func (c *Controller) discard() {
	c.open = false
	c.targets = nil
	c.intents = nil
	c.preview = nil
}

func (c *Controller) restoreBaseline(t *Target) {
	c.styles.ResetTag(t.Tag)

	// Drop every property the session touched, then lay the baseline
	// inline set back down.
	for prop := range t.changes {
		if prop == styler.PropText {
			continue
		}
		if _, keep := t.Baseline.Inline[prop]; !keep {
			if err := c.surf.RemoveInlineStyle(t.Tag, prop); err != nil {
				return // detached: nothing to restore
			}
		}
	}
	for prop, value := range t.Baseline.InlineCopy() {
		if err := c.surf.SetInlineStyle(t.Tag, prop, value); err != nil {
			return
		}
	}
	if t.Baseline.TextSafe {
		if err := c.surf.SetText(t.Tag, t.Baseline.Text); err != nil {
			c.logger.Debug("session: baseline text replay skipped", "tag", t.Tag, "error", err)
		}
	}
}

// liftPreviewStyles returns a target's inline style to its baseline state
// after a commit promoted the preview values to scoped rules.
func (c *Controller) liftPreviewStyles(t *Target) {
	for prop := range t.changes {
		if prop == styler.PropText {
			continue
		}
		if base, ok := t.Baseline.Inline[prop]; ok {
			_ = c.surf.SetInlineStyle(t.Tag, prop, base)
			continue
		}
		_ = c.surf.RemoveInlineStyle(t.Tag, prop)
	}
}

func (c *Controller) currentInline(t *Target, property string) (string, bool) {
	state, err := c.surf.Describe(t.Tag)
	if err != nil {
		return "", false
	}
	return state.Inline[property], true
}

func (c *Controller) targetByTag(tag string) *Target {
	for _, t := range c.targets {
		if t.Tag == tag {
			return t
		}
	}
	return nil
}

func (c *Controller) replay(tag, prop, prev string) {
	if prop == styler.PropText {
		if err := c.surf.SetText(tag, prev); err != nil {
			c.logger.Debug("session: undo text skipped", "tag", tag, "error", err)
		}
		return
	}
	if prev == "" {
		if err := c.surf.RemoveInlineStyle(tag, prop); err != nil {
			c.logger.Debug("session: undo style skipped", "tag", tag, "error", err)
		}
		return
	}
	if err := c.surf.SetInlineStyle(tag, prop, prev); err != nil {
		c.logger.Debug("session: undo style skipped", "tag", tag, "error", err)
	}
}
