// Package styler turns property-level edit intents into non-destructive,
// revertible style mutations: scoped rules in a single engine-owned
// stylesheet, plus a bounded undo/redo history over committed edits.
package styler

import (
	"log/slog"

	"github.com/hazyhaar/domedit/internal/dom"
)

// Injector manages the engine-owned stylesheet. Rules are keyed by
// (identity tag, pseudo-state?, media query?, property); at most one live
// rule exists per key. Only the injector writes to the stylesheet, so the
// remove-before-insert discipline is the whole concurrency story.
type Injector struct {
	surf   dom.Surface
	logger *slog.Logger
	rules  map[dom.RuleKey]string
}

// NewInjector creates an Injector writing through the given surface.
func NewInjector(surf dom.Surface, logger *slog.Logger) *Injector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Injector{
		surf:   surf,
		logger: logger,
		rules:  make(map[dom.RuleKey]string),
	}
}

// Apply builds (or replaces) the scoped rule for (tag, property) in the
// given context. CSSOM has no replace, so re-applying the same key always
// deletes before inserting — never accumulates duplicates.
//
// An insertion failure (e.g. a malformed computed value) is logged and the
// intent dropped; the stylesheet and the bookkeeping stay consistent.
func (in *Injector) Apply(tag, property, value string, rctx dom.RuleContext) error {
	key := dom.RuleKey{Tag: tag, Pseudo: rctx.Pseudo, Media: rctx.Media, Property: property}

	if err := in.surf.DeleteRule(key); err != nil {
		in.logger.Warn("styler: delete before insert failed", "tag", tag, "property", property, "error", err)
	}
	if err := in.surf.InsertRule(key, value); err != nil {
		in.logger.Warn("styler: insert rule failed, edit dropped",
			"tag", tag, "property", property, "value", value, "error", err)
		delete(in.rules, key)
		return err
	}
	in.rules[key] = value
	return nil
}

// Remove deletes the rule for (tag, property) in the given context.
// Idempotent: removing an absent rule is a no-op.
func (in *Injector) Remove(tag, property string, rctx dom.RuleContext) error {
	key := dom.RuleKey{Tag: tag, Pseudo: rctx.Pseudo, Media: rctx.Media, Property: property}
	if _, ok := in.rules[key]; !ok {
		return nil
	}
	delete(in.rules, key)
	if err := in.surf.DeleteRule(key); err != nil {
		in.logger.Warn("styler: delete rule failed", "tag", tag, "property", property, "error", err)
		return err
	}
	return nil
}

// RemoveAllForTag drops every rule targeting the given identity tag.
func (in *Injector) RemoveAllForTag(tag string) {
	for key := range in.rules {
		if key.Tag != tag {
			continue
		}
		delete(in.rules, key)
		if err := in.surf.DeleteRule(key); err != nil {
			in.logger.Warn("styler: delete rule failed", "tag", tag, "property", key.Property, "error", err)
		}
	}
}

// Value returns the current rule value for (tag, property) in the given context.
func (in *Injector) Value(tag, property string, rctx dom.RuleContext) (string, bool) {
	v, ok := in.rules[dom.RuleKey{Tag: tag, Pseudo: rctx.Pseudo, Media: rctx.Media, Property: property}]
	return v, ok
}

// RulesForTag returns the current property → value map for a tag (default
// context only), used to reconcile edit flags against the live rule set.
func (in *Injector) RulesForTag(tag string) map[string]string {
	out := map[string]string{}
	for key, v := range in.rules {
		if key.Tag == tag && key.Pseudo == "" && key.Media == "" {
			out[key.Property] = v
		}
	}
	return out
}

// Clear drops the whole engine-owned stylesheet and the bookkeeping.
func (in *Injector) Clear() {
	in.rules = make(map[dom.RuleKey]string)
	if err := in.surf.ClearRules(); err != nil {
		in.logger.Warn("styler: clear stylesheet failed", "error", err)
	}
}

// Rebind points the injector at a new surface and replays the live rule
// set into it. Used when the editing canvas switches documents.
func (in *Injector) Rebind(surf dom.Surface) {
	in.surf = surf
	for key, value := range in.rules {
		in.surf.DeleteRule(key)
		if err := in.surf.InsertRule(key, value); err != nil {
			in.logger.Warn("styler: replay rule failed", "tag", key.Tag, "property", key.Property, "error", err)
			delete(in.rules, key)
		}
	}
}
