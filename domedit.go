// Package domedit provides a live selection and style-edit engine for web
// pages, orchestrating Chrome as a disposable component. Users pick
// elements interactively; the engine tracks them under stable reindexable
// identities, keeps halo overlays glued to them through layout change, and
// applies non-destructive, revertible CSS edits through an engine-owned
// stylesheet.
//
// domedit edits presentation, it does not own the page. Every change is a
// scoped rule or a tracked direct mutation with its previous state
// recorded, so the original document is always recoverable.
package domedit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/domedit/edit"
	"github.com/hazyhaar/domedit/internal/bus"
	"github.com/hazyhaar/domedit/internal/config"
	"github.com/hazyhaar/domedit/internal/dom"
	"github.com/hazyhaar/domedit/internal/notify"
	"github.com/hazyhaar/domedit/internal/overlay"
	"github.com/hazyhaar/domedit/internal/picker"
	"github.com/hazyhaar/domedit/internal/selection"
	"github.com/hazyhaar/domedit/internal/session"
	"github.com/hazyhaar/domedit/internal/state"
	"github.com/hazyhaar/domedit/internal/styler"
)

// SelectionInfo is a read-only view of one selected target.
type SelectionInfo struct {
	Index    int    `json:"index"`
	Tag      string `json:"tag"`
	Selector string `json:"selector"`
	NodeName string `json:"node_name"`
	Edited   bool   `json:"edited"`
	Summary  string `json:"summary,omitempty"`
}

// Engine is the top-level orchestrator. It owns the selection, the overlay
// manager, the style-edit engine and the edit session, all bound to one
// surface at a time. Create one per page under edit.
//
// All component access is serialized through the engine's mutex; the
// components themselves do no locking.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	mu       sync.Mutex
	surf     dom.Surface
	store    *selection.Store
	styles   *styler.Engine
	overlays *overlay.Manager
	pick     *picker.Controller
	sess     *session.Controller
	resync   *overlay.Resync
	events   *bus.Bus
	ui       *state.Store
	sinks    *notify.Router

	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// New creates an Engine from configuration. Call Attach to bind it to a
// live surface.
func New(cfg *config.Config, logger *slog.Logger, sinks ...notify.Sink) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:    cfg,
		logger: logger,
		store:  selection.New(),
		events: bus.New(logger),
		ui:     state.NewStore(),
		sinks:  notify.NewRouter(logger, sinks...),
	}
	e.resync = overlay.NewResync(cfg.Engine.ResyncBudget, e.resyncPass)
	return e
}

// Events exposes the engine's event bus for subscribers (UI surfaces,
// embedding hosts). Handlers run synchronously on engine goroutines, often
// with the engine lock held: observe, do not call back into the engine.
func (e *Engine) Events() *bus.Bus { return e.events }

// UIState exposes the shared path-addressed state tree.
func (e *Engine) UIState() *state.Store { return e.ui }

// Attach binds the engine to a surface and starts consuming its events.
// Attaching while already attached switches surfaces: selection indices and
// committed edits survive, rules and overlays are replayed onto the new
// surface.
func (e *Engine) Attach(surf dom.Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.surf == nil {
		e.surf = surf
		e.styles = styler.New(surf, e.logger, styler.WithHistoryLimit(e.cfg.Engine.HistoryLimit))
		e.overlays = overlay.NewManager(surf, e.logger)
		e.pick = picker.NewController(surf, e.overlays, e.handlePick, e.logger,
			picker.WithIgnore(e.ignoreCandidate))
		e.sess = session.NewController(surf, e.styles, e.durableUndo, e.logger)
		e.startLoopLocked(surf)
		e.logger.Info("engine: attached", "targets", e.store.Len())
		return
	}

	old := e.surf
	e.stopLoopLocked()
	e.surf = surf
	e.styles.Rebind(surf)
	e.overlays.Rebind(surf)
	e.pick.Rebind(surf)
	e.sess = session.NewController(surf, e.styles, e.durableUndo, e.logger)
	e.startLoopLocked(surf)

	// The engine owns its surfaces: once replaced, the old one's binding
	// listener has nothing left to feed. Rebind already tore its overlays
	// down, so this is the last touch.
	if err := old.Close(); err != nil {
		e.logger.Warn("engine: close replaced surface", "error", err)
	}
	e.logger.Info("engine: surface switched", "targets", e.store.Len())
}

// Stop shuts the engine down: event loop, pending resync, sinks, surface.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopLoopLocked()
	e.resync.Stop()
	if e.sess != nil {
		e.sess.Close()
	}
	surf := e.surf
	e.surf = nil
	e.mu.Unlock()

	if surf != nil {
		surf.Close()
	}
	if err := e.sinks.Close(); err != nil {
		e.logger.Warn("engine: sink close", "error", err)
	}
	e.logger.Info("engine: stopped")
}

// --- picking ---

// StartPicking activates the pick gesture.
func (e *Engine) StartPicking() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pick == nil {
		return
	}
	e.pick.Activate()
	e.ui.Set("picker.active", e.pick.Active(), false)
}

// StopPicking deactivates the pick gesture.
func (e *Engine) StopPicking() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pick == nil {
		return
	}
	e.pick.Deactivate()
	e.ui.Set("picker.active", false, false)
}

// Picking reports whether the pick gesture is active.
func (e *Engine) Picking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pick != nil && e.pick.Active()
}

// --- selection ---

// SelectTag adds the element with the given identity tag to the selection.
// Selecting an already-selected tag is a no-op returning the existing
// index.
func (e *Engine) SelectTag(tag string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectTagLocked(tag)
}

// Remove drops the selection at index and renumbers everything above it.
// Removing a stale index is a no-op.
func (e *Engine) Remove(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeLocked(index)
}

// ClearSelection drops every selected target, their overlays, committed
// rules and history.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil && e.sess.IsOpen() {
		e.sess.Close()
		e.ui.Set("session.open", false, false)
		e.events.Emit(edit.EventSessionClosed, nil)
	}
	e.store.Clear()
	if e.overlays != nil {
		e.overlays.Clear()
	}
	if e.styles != nil {
		e.styles.Clear()
	}
	e.publishSelectionLocked()
}

// Selection returns the current targets in index order.
func (e *Engine) Selection() []SelectionInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectionLocked()
}

// ContextMarkdown renders the selected element's captured markup as
// markdown, for handing page context to an operator or a model.
func (e *Engine) ContextMarkdown(index int) (string, error) {
	e.mu.Lock()
	entry := e.store.Get(index)
	e.mu.Unlock()
	if entry == nil {
		return "", fmt.Errorf("domedit: no selection at index %d", index)
	}
	return edit.ContextMarkdown(entry.Baseline.OuterHTML), nil
}

// --- edit session ---

// OpenSession opens an edit session over the given selection indices; an
// empty list means the whole selection.
func (e *Engine) OpenSession(indices ...int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return fmt.Errorf("domedit: not attached")
	}
	if len(indices) == 0 {
		for i := 0; i < e.store.Len(); i++ {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return fmt.Errorf("domedit: nothing selected")
	}

	targets := make([]session.Target, 0, len(indices))
	for _, i := range indices {
		entry := e.store.Get(i)
		if entry == nil {
			return fmt.Errorf("domedit: no selection at index %d", i)
		}
		targets = append(targets, session.Target{
			Index:    i,
			Tag:      entry.Tag,
			Selector: entry.Selector,
			Baseline: entry.Baseline,
		})
	}
	e.sess.Open(targets)
	e.ui.Set("session.open", true, false)
	e.events.Emit(edit.EventSessionOpened, indices)
	return nil
}

// SessionOpen reports whether an edit session is active.
func (e *Engine) SessionOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess != nil && e.sess.IsOpen()
}

// SeedSession reads current computed values for the session's form.
func (e *Engine) SeedSession(properties []string) map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return map[string]string{}
	}
	return e.sess.Seed(properties)
}

// SetProperty previews a style edit on every session target.
func (e *Engine) SetProperty(property, value, label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil {
		e.sess.SetProperty(property, value, label)
	}
}

// SetText previews a text edit on eligible (leaf) session targets.
func (e *Engine) SetText(text, label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil {
		e.sess.SetText(text, label)
	}
}

// UndoStep is the two-tier undo: session preview steps first, then the
// committed history.
func (e *Engine) UndoStep() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return false
	}
	return e.sess.UndoStep()
}

// ApplySession commits the session's net changes as durable records, one
// per target, and closes the session.
func (e *Engine) ApplySession() []edit.Record {
	e.mu.Lock()
	if e.sess == nil {
		e.mu.Unlock()
		return nil
	}
	records := e.sess.Apply()
	e.refreshEntriesLocked()
	e.ui.Set("session.open", false, false)
	e.publishSelectionLocked()
	e.mu.Unlock()

	if len(records) > 0 {
		e.events.Emit(edit.EventEditCommitted, records)
		e.deliver(func(ctx context.Context) error {
			return e.sinks.SendCommit(ctx, records)
		})
	}
	e.events.Emit(edit.EventSessionClosed, nil)
	return records
}

// ResetSession replays every target's baseline; the session stays open.
func (e *Engine) ResetSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil {
		e.sess.Reset()
		e.refreshEntriesLocked()
		e.publishSelectionLocked()
	}
}

// CancelSession closes the session without applying, restoring baselines.
func (e *Engine) CancelSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil {
		e.sess.Cancel()
		e.ui.Set("session.open", false, false)
		e.events.Emit(edit.EventSessionClosed, nil)
	}
}

// --- committed undo/redo ---

// Undo reverts the most recent committed edit.
func (e *Engine) Undo() (edit.Record, bool) {
	e.mu.Lock()
	rec, ok := e.styles.Undo()
	if ok {
		e.refreshEntriesLocked()
		e.publishSelectionLocked()
	}
	e.mu.Unlock()
	if ok {
		e.events.Emit(edit.EventEditUndone, rec)
	}
	return rec, ok
}

// Redo re-applies the next committed edit in the redo tail.
func (e *Engine) Redo() (edit.Record, bool) {
	e.mu.Lock()
	rec, ok := e.styles.Redo()
	if ok {
		e.refreshEntriesLocked()
		e.publishSelectionLocked()
	}
	e.mu.Unlock()
	if ok {
		e.events.Emit(edit.EventEditRedone, rec)
	}
	return rec, ok
}

// CanUndo reports whether the committed history has an undo step.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.styles != nil && e.styles.CanUndo()
}

// CanRedo reports whether the committed history has a redo step.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.styles != nil && e.styles.CanRedo()
}

// --- internals ---

// ignoreCandidate excludes candidates whose generated selector falls under
// the configured prefix (e.g. "nav" to keep site chrome unpickable).
func (e *Engine) ignoreCandidate(ev dom.Event) bool {
	prefix := e.cfg.Engine.IgnorePrefix
	return prefix != "" && strings.HasPrefix(ev.Selector, prefix)
}

// handlePick runs under the event-loop's lock acquisition.
func (e *Engine) handlePick(ev dom.Event) {
	index, err := e.selectTagLocked(ev.Tag)
	if err != nil {
		e.logger.Warn("engine: pick select failed", "tag", ev.Tag, "error", err)
		return
	}
	e.logger.Debug("engine: picked", "tag", ev.Tag, "index", index)
}

func (e *Engine) selectTagLocked(tag string) (int, error) {
	if e.surf == nil {
		return 0, fmt.Errorf("domedit: not attached")
	}
	if i := e.store.IndexOf(tag); i >= 0 {
		return i, nil
	}

	st, err := e.surf.Describe(tag)
	if err != nil {
		return 0, fmt.Errorf("domedit: select %s: %w", tag, err)
	}
	entry := &selection.Entry{
		Tag:      tag,
		Selector: st.Selector,
		NodeName: st.NodeName,
		Baseline: edit.CaptureBaseline(st.OuterHTML, st.Inline),
	}
	index, _ := e.store.Add(entry)
	e.overlays.Bind(tag, index)
	e.publishSelectionLocked()
	return index, nil
}

// removeLocked is the reindex transaction; see reindex.go.
func (e *Engine) removeLocked(index int) bool {
	return e.reindexRemove(index)
}

// durableUndo is the session controller's second undo tier. It runs under
// the engine lock already held by the session call path.
func (e *Engine) durableUndo() bool {
	rec, ok := e.styles.Undo()
	if !ok {
		return false
	}
	e.refreshEntriesLocked()
	e.publishSelectionLocked()
	e.events.Emit(edit.EventEditUndone, rec)
	return true
}

// refreshEntriesLocked recomputes each entry's edited flag and diff label
// from the authoritative committed records.
func (e *Engine) refreshEntriesLocked() {
	for i, entry := range e.store.Entries() {
		if rec, ok := e.styles.RecordFor(i); ok {
			entry.Edited = true
			entry.Diff = rec.Summary
		} else {
			entry.Edited = false
			entry.Diff = ""
		}
	}
}

func (e *Engine) selectionLocked() []SelectionInfo {
	entries := e.store.Entries()
	out := make([]SelectionInfo, len(entries))
	for i, entry := range entries {
		out[i] = SelectionInfo{
			Index:    i,
			Tag:      entry.Tag,
			Selector: entry.Selector,
			NodeName: entry.NodeName,
			Edited:   entry.Edited,
			Summary:  entry.Diff,
		}
	}
	return out
}

func (e *Engine) publishSelectionLocked() {
	e.ui.Set("selection.count", e.store.Len(), false)
	e.events.Emit(edit.EventSelectionChanged, e.selectionLocked())
}

// resyncPass runs one coalesced overlay reposition pass and drops
// selections whose elements left the document.
func (e *Engine) resyncPass() {
	e.mu.Lock()
	if e.overlays == nil || e.surf == nil {
		e.mu.Unlock()
		return
	}
	e.overlays.RepositionAll()

	// Detachment scan, back to front so compaction does not skip entries.
	var gone []int
	entries := e.store.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		_, attached, err := e.surf.BoundingRect(entries[i].Tag)
		if err == nil && !attached {
			gone = append(gone, i)
		}
	}
	e.mu.Unlock()

	for _, i := range gone {
		e.Remove(i)
	}
}

func (e *Engine) startLoopLocked(surf dom.Surface) {
	ctx, cancel := context.WithCancel(context.Background())
	e.loopCancel = cancel
	e.loopDone = make(chan struct{})
	go e.loop(ctx, surf, e.loopDone)
}

// stopLoopLocked cancels the event loop and waits for it to drain. The
// lock is released during the join: the loop may be blocked acquiring it
// for an in-flight event.
func (e *Engine) stopLoopLocked() {
	if e.loopCancel == nil {
		return
	}
	cancel, done := e.loopCancel, e.loopDone
	e.loopCancel = nil
	e.mu.Unlock()
	cancel()
	<-done
	e.mu.Lock()
}

// loop consumes surface events: pointer input goes to the picker, layout
// signals coalesce onto the resync scheduler.
func (e *Engine) loop(ctx context.Context, surf dom.Surface, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-surf.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case dom.EventHover:
				e.mu.Lock()
				e.pick.HandleHover(ev)
				e.mu.Unlock()
			case dom.EventPick:
				e.mu.Lock()
				e.pick.HandlePick(ev)
				e.mu.Unlock()
			case dom.EventScroll, dom.EventResize, dom.EventMutation:
				e.resync.Trigger()
			}
		}
	}
}

// FlushResync forces any pending overlay reposition pass to run now.
// Intended for tests and for deterministic shutdown.
func (e *Engine) FlushResync() {
	e.resync.Flush()
}

// deliver runs a sink delivery off the engine's lock with a bounded
// timeout.
func (e *Engine) deliver(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			e.logger.Warn("engine: sink delivery failed", "error", err)
		}
	}()
}
