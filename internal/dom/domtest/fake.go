// Package domtest provides an in-memory dom.Surface for tests. It models
// just enough of a live document — tagged elements with text, inline styles
// and geometry, an engine stylesheet, overlay nodes — to exercise the
// selection, overlay, styler and session machinery without a browser.
package domtest

import (
	"fmt"
	"sync"

	"github.com/hazyhaar/domedit/internal/dom"
)

// Element is one fake document node.
type Element struct {
	NodeName  string
	Selector  string
	Rect      dom.Rect
	Text      string
	Inline    map[string]string
	Computed  map[string]string
	OuterHTML string
	Attached  bool
}

// Overlay is one fake overlay node.
type Overlay struct {
	ID    string
	Index int
	Rect  dom.Rect
	Kind  dom.OverlayKind
}

// Rule is one live entry in the fake stylesheet. The fake deliberately
// allows duplicate keys, as CSSOM insertRule would — exclusivity is the
// styler's job, and tests need to see it fail.
type Rule struct {
	Key   dom.RuleKey
	Value string
}

// Fake implements dom.Surface in memory.
type Fake struct {
	mu       sync.Mutex
	elements map[string]*Element
	rules    []Rule
	overlays map[string]Overlay
	picking  bool
	events   chan dom.Event
	closed   bool

	// FailInsertValue makes InsertRule fail for this exact value, to
	// exercise the logged-and-skipped path.
	FailInsertValue string
}

// New creates an empty fake surface.
func New() *Fake {
	return &Fake{
		elements: make(map[string]*Element),
		overlays: make(map[string]Overlay),
		events:   make(chan dom.Event, 64),
	}
}

// Add registers an element under the given identity tag.
func (f *Fake) Add(tag string, el Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := el
	cp.Attached = true
	if cp.Inline == nil {
		cp.Inline = map[string]string{}
	}
	if cp.Computed == nil {
		cp.Computed = map[string]string{}
	}
	if cp.NodeName == "" {
		cp.NodeName = "span"
	}
	if cp.OuterHTML == "" {
		cp.OuterHTML = fmt.Sprintf("<%s>%s</%s>", cp.NodeName, cp.Text, cp.NodeName)
	}
	f.elements[tag] = &cp
}

// Leaf adds a simple leaf element with the given text.
func (f *Fake) Leaf(tag, text string) {
	f.Add(tag, Element{NodeName: "span", Selector: "span#" + tag, Text: text,
		Rect: dom.Rect{X: 10, Y: 10, Width: 100, Height: 20}})
}

// Detach marks an element as removed from the document.
func (f *Fake) Detach(tag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if el, ok := f.elements[tag]; ok {
		el.Attached = false
	}
}

// SetRect moves an element, as page layout would.
func (f *Fake) SetRect(tag string, r dom.Rect) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if el, ok := f.elements[tag]; ok {
		el.Rect = r
	}
}

// Element returns a copy of the element state for assertions.
func (f *Fake) Element(tag string) (Element, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[tag]
	if !ok {
		return Element{}, false
	}
	cp := *el
	cp.Inline = cloneMap(el.Inline)
	cp.Computed = cloneMap(el.Computed)
	return cp, true
}

// Rules returns a copy of the live rule list in insertion order.
func (f *Fake) Rules() []Rule {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Rule, len(f.rules))
	copy(out, f.rules)
	return out
}

// RuleValue returns the value of the last live rule for key.
func (f *Fake) RuleValue(key dom.RuleKey) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rules) - 1; i >= 0; i-- {
		if f.rules[i].Key == key {
			return f.rules[i].Value, true
		}
	}
	return "", false
}

// RuleCountFor counts live rules targeting (tag, property) across contexts.
func (f *Fake) RuleCountFor(tag, property string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rules {
		if r.Key.Tag == tag && r.Key.Property == property {
			n++
		}
	}
	return n
}

// Overlays returns a copy of the live overlay nodes.
func (f *Fake) Overlays() map[string]Overlay {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]Overlay, len(f.overlays))
	for k, v := range f.overlays {
		out[k] = v
	}
	return out
}

// Closed reports whether the surface has been shut down.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Picking reports whether picker listeners are active.
func (f *Fake) Picking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.picking
}

// EmitHover injects a hover event for a tagged element.
func (f *Fake) EmitHover(tag string) {
	f.mu.Lock()
	el := f.elements[tag]
	ev := dom.Event{Kind: dom.EventHover, Tag: tag}
	if el != nil {
		ev.NodeName = el.NodeName
		ev.Rect = el.Rect
	}
	f.mu.Unlock()
	f.events <- ev
}

// EmitPick injects a pick event for a tagged element.
func (f *Fake) EmitPick(tag string) {
	f.mu.Lock()
	el := f.elements[tag]
	ev := dom.Event{Kind: dom.EventPick, Tag: tag}
	if el != nil {
		ev.NodeName = el.NodeName
		ev.Selector = el.Selector
		ev.Rect = el.Rect
	}
	f.mu.Unlock()
	f.events <- ev
}

// Emit injects a raw event (scroll, resize, mutation, engine-UI picks).
func (f *Fake) Emit(ev dom.Event) {
	f.events <- ev
}

// --- dom.Surface ---

func (f *Fake) Describe(tag string) (dom.ElementState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[tag]
	if !ok || !el.Attached {
		return dom.ElementState{}, dom.ErrDetached
	}
	return dom.ElementState{
		Tag:       tag,
		NodeName:  el.NodeName,
		Selector:  el.Selector,
		Rect:      el.Rect,
		Text:      el.Text,
		Inline:    cloneMap(el.Inline),
		OuterHTML: el.OuterHTML,
		Attached:  true,
	}, nil
}

func (f *Fake) BoundingRect(tag string) (dom.Rect, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[tag]
	if !ok || !el.Attached {
		return dom.Rect{}, false, nil
	}
	return el.Rect, true, nil
}

func (f *Fake) SetInlineStyle(tag, property, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[tag]
	if !ok || !el.Attached {
		return dom.ErrDetached
	}
	el.Inline[property] = value
	return nil
}

func (f *Fake) RemoveInlineStyle(tag, property string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[tag]
	if !ok || !el.Attached {
		return dom.ErrDetached
	}
	delete(el.Inline, property)
	return nil
}

func (f *Fake) SetText(tag, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[tag]
	if !ok || !el.Attached {
		return dom.ErrDetached
	}
	el.Text = text
	return nil
}

func (f *Fake) ComputedStyles(tag string, properties []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[tag]
	if !ok || !el.Attached {
		return nil, dom.ErrDetached
	}
	out := make(map[string]string, len(properties))
	for _, p := range properties {
		// Inline wins over the computed base, as it would in a real cascade.
		if v, ok := el.Inline[p]; ok {
			out[p] = v
			continue
		}
		out[p] = el.Computed[p]
	}
	return out, nil
}

func (f *Fake) InsertRule(key dom.RuleKey, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailInsertValue != "" && value == f.FailInsertValue {
		return fmt.Errorf("domtest: malformed rule value %q", value)
	}
	f.rules = append(f.rules, Rule{Key: key, Value: value})
	return nil
}

func (f *Fake) DeleteRule(key dom.RuleKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rules[:0]
	for _, r := range f.rules {
		if r.Key != key {
			kept = append(kept, r)
		}
	}
	f.rules = kept
	return nil
}

func (f *Fake) ClearRules() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = nil
	return nil
}

func (f *Fake) ShowOverlay(id string, index int, rect dom.Rect, kind dom.OverlayKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlays[id] = Overlay{ID: id, Index: index, Rect: rect, Kind: kind}
	return nil
}

func (f *Fake) MoveOverlay(id string, rect dom.Rect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ov, ok := f.overlays[id]
	if !ok {
		return nil
	}
	ov.Rect = rect
	f.overlays[id] = ov
	return nil
}

func (f *Fake) RemoveOverlay(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.overlays, id)
	return nil
}

func (f *Fake) ClearOverlays() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlays = make(map[string]Overlay)
	return nil
}

func (f *Fake) SetPicking(active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.picking = active
	return nil
}

func (f *Fake) Events() <-chan dom.Event { return f.events }

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
