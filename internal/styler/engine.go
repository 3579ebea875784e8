package styler

import (
	"log/slog"

	"github.com/hazyhaar/domedit/edit"
	"github.com/hazyhaar/domedit/internal/dom"
)

// PropText is the pseudo-property carrying a text-content edit through a
// Record's change map. Text never becomes a rule: it is a direct mutation,
// reverted by writing the previous text back.
const PropText = "text"

// Engine is the style-edit engine: the rule injector plus the committed
// history, plus the per-index authoritative record table ("current
// effective changes"). Committing again for an index replaces that record
// wholesale while the chronological stack keeps the prior one for stepwise
// undo.
type Engine struct {
	surf      dom.Surface
	inj       *Injector
	hist      *History
	effective []*edit.Record // index-aligned with the selection store
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithHistoryLimit overrides the committed-history bound.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) { e.hist = NewHistory(n) }
}

// New creates a style-edit engine writing through the given surface.
func New(surf dom.Surface, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		surf:   surf,
		inj:    NewInjector(surf, logger),
		hist:   NewHistory(0),
		logger: logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Injector exposes the rule injector for session reset paths.
func (e *Engine) Injector() *Injector { return e.inj }

// Commit applies a committed edit: every style property becomes a scoped
// rule, a text change is written directly, the authoritative record for the
// index is replaced wholesale, and the record joins the undo history.
// Individual rule failures are logged and skipped; the commit itself still
// lands so the session stays usable.
func (e *Engine) Commit(rec edit.Record) {
	for prop, value := range rec.Changes {
		if prop == PropText {
			if err := e.surf.SetText(rec.Tag, value); err != nil {
				e.logger.Warn("styler: set text failed", "tag", rec.Tag, "error", err)
			}
			continue
		}
		// Errors already logged by the injector; the intent is dropped.
		_ = e.inj.Apply(rec.Tag, prop, value, dom.RuleContext{})
	}

	e.setEffective(rec.Index, rec.Clone())
	e.hist.Push(rec.Clone())
}

// Undo reverts the most recent committed edit on the live document and
// returns it. The authoritative record for the affected index is recomputed
// from the surviving history, not trusted from the popped record — an
// intervening edit may have touched the same property. ok=false means the
// stack is empty.
func (e *Engine) Undo() (edit.Record, bool) {
	rec, ok := e.hist.Undo()
	if !ok {
		return edit.Record{}, false
	}
	e.revert(rec)
	e.refreshEffective(rec.Index)
	return rec, true
}

// Redo re-applies the next record in the redo tail.
func (e *Engine) Redo() (edit.Record, bool) {
	rec, ok := e.hist.Redo()
	if !ok {
		return edit.Record{}, false
	}
	for prop, value := range rec.Changes {
		if prop == PropText {
			if err := e.surf.SetText(rec.Tag, value); err != nil {
				e.logger.Warn("styler: redo text failed", "tag", rec.Tag, "error", err)
			}
			continue
		}
		_ = e.inj.Apply(rec.Tag, prop, value, dom.RuleContext{})
	}
	e.refreshEffective(rec.Index)
	return rec, true
}

// revert replays a record's previous values: restore a prior rule value,
// remove the rule when there was none, write back previous text.
func (e *Engine) revert(rec edit.Record) {
	for prop := range rec.Changes {
		prev := rec.Prev[prop]
		if prop == PropText {
			if err := e.surf.SetText(rec.Tag, prev); err != nil {
				e.logger.Warn("styler: undo text failed", "tag", rec.Tag, "error", err)
			}
			continue
		}
		if prev == "" {
			_ = e.inj.Remove(rec.Tag, prop, dom.RuleContext{})
			continue
		}
		_ = e.inj.Apply(rec.Tag, prop, prev, dom.RuleContext{})
	}
}

// RecordFor returns the authoritative record for a selection index.
func (e *Engine) RecordFor(index int) (edit.Record, bool) {
	if index < 0 || index >= len(e.effective) || e.effective[index] == nil {
		return edit.Record{}, false
	}
	return e.effective[index].Clone(), true
}

// LastForIndex exposes the history backward scan for summary restoration.
func (e *Engine) LastForIndex(index int) (edit.Record, bool) {
	return e.hist.LastForIndex(index)
}

// CanUndo reports whether the committed stack has an undo step.
func (e *Engine) CanUndo() bool { return e.hist.CanUndo() }

// CanRedo reports whether the committed stack has a redo step.
func (e *Engine) CanRedo() bool { return e.hist.CanRedo() }

// Compact renumbers all committed state after the removal of a selection
// index: the authoritative table shifts down and the history drops the
// removed index everywhere.
func (e *Engine) Compact(removed int) {
	if removed >= 0 && removed < len(e.effective) {
		e.effective = append(e.effective[:removed], e.effective[removed+1:]...)
	}
	for i, rec := range e.effective {
		if rec != nil {
			rec.Index = i
		}
	}
	e.hist.Compact(removed)
}

// ResetTag drops every live rule for an identity tag. Used when a session
// reset replays the baseline: the baseline rewrite is a direct DOM write,
// and lingering scoped rules would shadow it.
func (e *Engine) ResetTag(tag string) {
	e.inj.RemoveAllForTag(tag)
}

// RulesForTag returns the live property → value map for a tag.
func (e *Engine) RulesForTag(tag string) map[string]string {
	return e.inj.RulesForTag(tag)
}

// Clear drops the stylesheet, the authoritative table and the history
// (bulk selection clear / request submitted).
func (e *Engine) Clear() {
	e.inj.Clear()
	e.effective = nil
	e.hist = NewHistory(e.hist.limit)
}

// Rebind switches the engine to a new surface, replaying live rules into it.
func (e *Engine) Rebind(surf dom.Surface) {
	e.surf = surf
	e.inj.Rebind(surf)
}

func (e *Engine) setEffective(index int, rec edit.Record) {
	for len(e.effective) <= index {
		e.effective = append(e.effective, nil)
	}
	e.effective[index] = &rec
}

func (e *Engine) refreshEffective(index int) {
	if index < 0 {
		return
	}
	if rec, ok := e.hist.LastForIndex(index); ok {
		e.setEffective(index, rec.Clone())
		return
	}
	if index < len(e.effective) {
		e.effective[index] = nil
	}
}
