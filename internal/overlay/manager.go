// Package overlay keeps halo visuals glued to selected and hovered targets
// under continuous layout change. Overlay identity derives from selection
// index, not from a raw node reference, so overlays survive a surface swap
// by rebinding against the same indices.
package overlay

import (
	"log/slog"

	"github.com/hazyhaar/domedit/idgen"
	"github.com/hazyhaar/domedit/internal/dom"
)

// hoverID is the single transient hover halo node. Exactly one hover
// overlay exists at any time, tracking the most recent hover target.
const hoverID = "ovl_hover"

// binding is one overlay bound to a selection index.
type binding struct {
	id      string
	tag     string
	visible bool
}

// Manager creates and repositions overlays 1:1 with selection entries.
// Like the rest of the core it does no locking; the engine serializes.
type Manager struct {
	surf     dom.Surface
	logger   *slog.Logger
	newID    idgen.Generator
	bindings []*binding
	hoverTag string
}

// NewManager creates a Manager positioning overlays through surf.
func NewManager(surf dom.Surface, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		surf:   surf,
		logger: logger,
		newID:  idgen.Prefixed("ovl_", idgen.NanoID(8)),
	}
}

// Bind creates an overlay for the element at the given selection index and
// returns its overlay ID. A detached element binds invisibly: the binding
// slot exists, the visual node does not.
func (m *Manager) Bind(tag string, index int) string {
	b := &binding{id: m.newID(), tag: tag}

	if index < 0 || index > len(m.bindings) {
		index = len(m.bindings)
	}
	m.bindings = append(m.bindings, nil)
	copy(m.bindings[index+1:], m.bindings[index:])
	m.bindings[index] = b

	m.show(b, index)
	return b.id
}

// Unbind removes the overlay at index and compacts the binding table.
// Unbinding an index that no longer exists is a no-op.
func (m *Manager) Unbind(index int) bool {
	if index < 0 || index >= len(m.bindings) {
		return false
	}
	b := m.bindings[index]
	if b.visible {
		if err := m.surf.RemoveOverlay(b.id); err != nil {
			m.logger.Warn("overlay: remove failed", "id", b.id, "error", err)
		}
	}
	m.bindings = append(m.bindings[:index], m.bindings[index+1:]...)

	// Surviving overlays carry index badges; refresh them.
	for i, rest := range m.bindings {
		if rest.visible {
			m.show(rest, i)
		}
	}
	return true
}

// RepositionAll re-reads every bound element's geometry and moves its
// overlay. Detached elements lose their overlay silently; elements that
// came back get theirs again.
func (m *Manager) RepositionAll() {
	for i, b := range m.bindings {
		rect, attached, err := m.surf.BoundingRect(b.tag)
		if err != nil || !attached {
			if b.visible {
				if rmErr := m.surf.RemoveOverlay(b.id); rmErr != nil {
					m.logger.Warn("overlay: remove detached failed", "id", b.id, "error", rmErr)
				}
				b.visible = false
			}
			continue
		}
		if !b.visible {
			m.show(b, i)
			continue
		}
		if err := m.surf.MoveOverlay(b.id, rect); err != nil {
			m.logger.Warn("overlay: move failed", "id", b.id, "error", err)
		}
	}

	m.repositionHover()
}

// HoverPreview moves the single hover halo onto the given element.
func (m *Manager) HoverPreview(tag string) {
	rect, attached, err := m.surf.BoundingRect(tag)
	if err != nil || !attached {
		m.ClearHover()
		return
	}
	m.hoverTag = tag
	if err := m.surf.ShowOverlay(hoverID, -1, rect, dom.OverlayHover); err != nil {
		m.logger.Warn("overlay: hover show failed", "tag", tag, "error", err)
	}
}

// ClearHover removes the hover halo, if any.
func (m *Manager) ClearHover() {
	if m.hoverTag == "" {
		return
	}
	m.hoverTag = ""
	if err := m.surf.RemoveOverlay(hoverID); err != nil {
		m.logger.Warn("overlay: hover remove failed", "error", err)
	}
}

// HoverTag returns the currently hovered identity tag, or "".
func (m *Manager) HoverTag() string { return m.hoverTag }

// Rebind tears down all overlays on the old surface and rebuilds them on
// the new one from the same binding order.
func (m *Manager) Rebind(surf dom.Surface) {
	if err := m.surf.ClearOverlays(); err != nil {
		m.logger.Warn("overlay: clear on old surface failed", "error", err)
	}
	m.surf = surf
	m.hoverTag = ""
	for i, b := range m.bindings {
		b.visible = false
		m.show(b, i)
	}
}

// Clear removes every overlay and binding.
func (m *Manager) Clear() {
	m.bindings = nil
	m.hoverTag = ""
	if err := m.surf.ClearOverlays(); err != nil {
		m.logger.Warn("overlay: clear failed", "error", err)
	}
}

// Len returns the number of bindings (visible or not).
func (m *Manager) Len() int { return len(m.bindings) }

func (m *Manager) show(b *binding, index int) {
	rect, attached, err := m.surf.BoundingRect(b.tag)
	if err != nil || !attached {
		b.visible = false
		return
	}
	if err := m.surf.ShowOverlay(b.id, index, rect, dom.OverlaySelection); err != nil {
		m.logger.Warn("overlay: show failed", "id", b.id, "error", err)
		b.visible = false
		return
	}
	b.visible = true
}

func (m *Manager) repositionHover() {
	if m.hoverTag == "" {
		return
	}
	rect, attached, err := m.surf.BoundingRect(m.hoverTag)
	if err != nil || !attached {
		m.ClearHover()
		return
	}
	if err := m.surf.MoveOverlay(hoverID, rect); err != nil {
		m.logger.Warn("overlay: hover move failed", "error", err)
	}
}
