// Package picker turns pointer input into selection mutations. It filters
// the engine's own chrome out of candidacy, keeps a transient hover preview
// on the current candidate, and hands qualifying clicks to the engine.
package picker

import (
	"log/slog"

	"github.com/hazyhaar/domedit/internal/dom"
	"github.com/hazyhaar/domedit/internal/overlay"
)

// PickFunc receives a qualifying pick. The engine wires this to the
// selection store.
type PickFunc func(ev dom.Event)

// IgnoreFunc is a caller-supplied exclusion predicate; true means the
// candidate never previews and never selects.
type IgnoreFunc func(ev dom.Event) bool

// Controller manages the pick gesture for one surface.
type Controller struct {
	surf     dom.Surface
	overlays *overlay.Manager
	logger   *slog.Logger
	onPick   PickFunc
	ignore   IgnoreFunc
	active   bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithIgnore installs an exclusion predicate on top of the built-in ones.
func WithIgnore(fn IgnoreFunc) Option {
	return func(c *Controller) { c.ignore = fn }
}

// NewController creates a picker. onPick must not be nil.
func NewController(surf dom.Surface, overlays *overlay.Manager, onPick PickFunc, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		surf:     surf,
		overlays: overlays,
		logger:   logger,
		onPick:   onPick,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Activate begins listening for pointer movement and clicks. The surface
// toggles its crosshair cursor class. A surface that is being torn down
// fails silently — the caller deactivates on its own schedule.
func (c *Controller) Activate() {
	if c.active {
		return
	}
	if err := c.surf.SetPicking(true); err != nil {
		c.logger.Warn("picker: activate failed", "error", err)
		return
	}
	c.active = true
}

// Deactivate stops listening and clears any hover preview. Safe to call at
// any time, including mid-gesture or when already inactive.
func (c *Controller) Deactivate() {
	if !c.active {
		return
	}
	c.active = false
	c.overlays.ClearHover()
	if err := c.surf.SetPicking(false); err != nil {
		c.logger.Warn("picker: deactivate failed", "error", err)
	}
}

// Active reports whether the picker is listening.
func (c *Controller) Active() bool { return c.active }

// HandleHover processes a pointer-movement candidate. The hover preview
// only moves when the candidate actually changes; excluded candidates
// clear it.
func (c *Controller) HandleHover(ev dom.Event) {
	if !c.active {
		return
	}
	if c.excluded(ev) {
		c.overlays.ClearHover()
		return
	}
	if ev.Tag == c.overlays.HoverTag() {
		return
	}
	c.overlays.HoverPreview(ev.Tag)
}

// HandlePick processes a qualifying click. Exclusion rules match hover;
// idempotence on re-picks is the selection store's concern.
func (c *Controller) HandlePick(ev dom.Event) {
	if !c.active || c.excluded(ev) {
		return
	}
	c.onPick(ev)
}

// Rebind points the controller at a new surface, dropping the gesture in
// progress.
func (c *Controller) Rebind(surf dom.Surface) {
	wasActive := c.active
	c.Deactivate()
	c.surf = surf
	if wasActive {
		c.Activate()
	}
}

func (c *Controller) excluded(ev dom.Event) bool {
	if ev.EngineUI || ev.Tag == "" {
		return true
	}
	// The document root never qualifies: selecting html/body would halo
	// the whole page.
	if ev.NodeName == "html" || ev.NodeName == "body" {
		return true
	}
	if c.ignore != nil && c.ignore(ev) {
		return true
	}
	return false
}
