// Package dom defines the Surface abstraction: everything the engine needs
// from a live document. The rod-backed browser surface implements it against
// a real Chrome page; domtest.Fake implements it in memory for tests.
//
// Elements are addressed by identity tag — a data attribute the injected
// script assigns on first contact — never by raw node references. Tags stay
// valid across page re-renders as long as the attribute survives, which is
// the whole point: page-authored selectors are fragile, attributes travel
// with the node.
package dom

import "errors"

// ErrDetached is returned when an operation targets an element that is no
// longer attached to a live document. Callers are expected to treat it as
// "quietly skip", not as a failure.
var ErrDetached = errors.New("dom: element detached")

// Rect is a viewport rectangle in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementState is a point-in-time read of a tagged element. Geometry is
// advisory: positioning always re-derives from a fresh read.
type ElementState struct {
	Tag       string            `json:"tag"`
	NodeName  string            `json:"node_name"` // lowercase tag name
	Selector  string            `json:"selector"`  // generated path, debug context only
	Rect      Rect              `json:"rect"`
	Text      string            `json:"text"`
	Inline    map[string]string `json:"inline"`
	OuterHTML string            `json:"outer_html"`
	Attached  bool              `json:"attached"`
}

// RuleContext scopes a rule to a pseudo-state and/or media query.
type RuleContext struct {
	Pseudo string // e.g. ":hover"
	Media  string // e.g. "(max-width: 600px)"
}

// RuleKey identifies one scoped rule in the engine-owned stylesheet.
// At most one live rule exists per key at any time.
type RuleKey struct {
	Tag      string
	Pseudo   string
	Media    string
	Property string
}

// OverlayKind distinguishes the transient hover halo from selection halos.
type OverlayKind int

const (
	OverlayHover OverlayKind = iota
	OverlaySelection
)

// EventKind classifies events flowing from the surface to the engine.
type EventKind int

const (
	// EventHover fires when the pointer moves onto a new candidate.
	EventHover EventKind = iota
	// EventPick fires on a qualifying click/tap.
	EventPick
	// EventScroll, EventResize and EventMutation are resync triggers; the
	// engine coalesces them onto a single reposition pass.
	EventScroll
	EventResize
	EventMutation
)

// Event is one signal from the live document.
type Event struct {
	Kind     EventKind
	Tag      string // hover/pick: identity tag of the candidate
	NodeName string // hover/pick: lowercase tag name
	Selector string // pick: generated path
	Rect     Rect   // hover/pick: candidate geometry at event time
	EngineUI bool   // candidate is part of the engine's own chrome
}

// Surface is a (document, window) pair the engine edits against. Switching
// between the real page and an emulated-viewport frame means swapping the
// Surface; selection indices survive the swap.
//
// Implementations must degrade silently: operations on detached elements
// return ErrDetached, never panic, and leave the surface usable.
type Surface interface {
	// Describe reads the full state of a tagged element.
	Describe(tag string) (ElementState, error)
	// BoundingRect re-reads geometry. attached=false means the element left
	// the document; the rect is then zero.
	BoundingRect(tag string) (rect Rect, attached bool, err error)

	SetInlineStyle(tag, property, value string) error
	RemoveInlineStyle(tag, property string) error
	SetText(tag, text string) error
	ComputedStyles(tag string, properties []string) (map[string]string, error)

	// InsertRule adds a rule for key to the engine-owned stylesheet. CSSOM
	// has no replace, so callers must delete before re-inserting — the
	// styler owns that discipline, surfaces only execute it.
	InsertRule(key RuleKey, value string) error
	// DeleteRule removes the rule(s) for key; no-op when absent.
	DeleteRule(key RuleKey) error
	// ClearRules drops the entire engine-owned stylesheet content.
	ClearRules() error

	ShowOverlay(id string, index int, rect Rect, kind OverlayKind) error
	MoveOverlay(id string, rect Rect) error
	RemoveOverlay(id string) error
	ClearOverlays() error

	// SetPicking toggles pointer listeners and the crosshair cursor class.
	SetPicking(active bool) error

	// Events delivers hover/pick input and resync triggers. Closed when the
	// surface shuts down.
	Events() <-chan Event

	Close() error
}
