package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domedit/internal/dom"
)

//go:embed engine.js
var engineJS string

const bindingName = "__domedit_binding"

// Surface is the rod-backed dom.Surface: every operation evaluates into the
// injected page runtime, addressed by identity tag. Events flow back over a
// CDP binding.
type Surface struct {
	page   *rod.Page
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	events chan dom.Event

	closeOnce sync.Once
}

// NewSurface injects the page runtime into a rod page and starts the event
// listener. The page must already be navigated and loaded.
func NewSurface(page *rod.Page, logger *slog.Logger) (*Surface, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Surface{
		page:   page,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan dom.Event, 256),
	}

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		logger.Warn("surface: addBinding failed (may already exist)", "error", err)
	}
	go s.listenBinding()

	if _, err := page.Eval(engineJS); err != nil {
		cancel()
		return nil, fmt.Errorf("surface: inject engine.js: %w", err)
	}
	logger.Debug("surface: engine runtime injected")
	return s, nil
}

// jsRuleKey mirrors the rule key shape the page runtime expects.
type jsRuleKey struct {
	Tag      string `json:"tag"`
	Pseudo   string `json:"pseudo,omitempty"`
	Media    string `json:"media,omitempty"`
	Property string `json:"property"`
}

func toJSKey(key dom.RuleKey) jsRuleKey {
	return jsRuleKey{Tag: key.Tag, Pseudo: key.Pseudo, Media: key.Media, Property: key.Property}
}

func (s *Surface) Describe(tag string) (dom.ElementState, error) {
	var out dom.ElementState
	if err := s.eval(`(tag) => window.__domedit.describe(tag)`, &out, tag); err != nil {
		return dom.ElementState{}, err
	}
	if !out.Attached {
		return dom.ElementState{}, dom.ErrDetached
	}
	if out.Inline == nil {
		out.Inline = map[string]string{}
	}
	return out, nil
}

func (s *Surface) BoundingRect(tag string) (dom.Rect, bool, error) {
	var out struct {
		Attached bool     `json:"attached"`
		Rect     dom.Rect `json:"rect"`
	}
	if err := s.eval(`(tag) => window.__domedit.rect(tag)`, &out, tag); err != nil {
		return dom.Rect{}, false, err
	}
	return out.Rect, out.Attached, nil
}

func (s *Surface) SetInlineStyle(tag, property, value string) error {
	return s.mutate(`(tag, p, v) => window.__domedit.setStyle(tag, p, v)`, tag, property, value)
}

func (s *Surface) RemoveInlineStyle(tag, property string) error {
	return s.mutate(`(tag, p) => window.__domedit.removeStyle(tag, p)`, tag, property)
}

func (s *Surface) SetText(tag, text string) error {
	return s.mutate(`(tag, t) => window.__domedit.setText(tag, t)`, tag, text)
}

func (s *Surface) ComputedStyles(tag string, properties []string) (map[string]string, error) {
	var out map[string]string
	if err := s.eval(`(tag, props) => window.__domedit.computed(tag, props)`, &out, tag, properties); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, dom.ErrDetached
	}
	return out, nil
}

func (s *Surface) InsertRule(key dom.RuleKey, value string) error {
	return s.call(`(key, v) => window.__domedit.insertRule(key, v)`, toJSKey(key), value)
}

func (s *Surface) DeleteRule(key dom.RuleKey) error {
	return s.call(`(key) => window.__domedit.deleteRule(key)`, toJSKey(key))
}

func (s *Surface) ClearRules() error {
	return s.call(`() => window.__domedit.clearRules()`)
}

func (s *Surface) ShowOverlay(id string, index int, rect dom.Rect, kind dom.OverlayKind) error {
	k := "selection"
	if kind == dom.OverlayHover {
		k = "hover"
	}
	return s.call(`(id, i, r, k) => window.__domedit.showOverlay(id, i, r, k)`, id, index, rect, k)
}

func (s *Surface) MoveOverlay(id string, rect dom.Rect) error {
	return s.call(`(id, r) => window.__domedit.moveOverlay(id, r)`, id, rect)
}

func (s *Surface) RemoveOverlay(id string) error {
	return s.call(`(id) => window.__domedit.removeOverlay(id)`, id)
}

func (s *Surface) ClearOverlays() error {
	return s.call(`() => window.__domedit.clearOverlays()`)
}

func (s *Surface) SetPicking(active bool) error {
	return s.call(`(a) => window.__domedit.setPicking(a)`, active)
}

func (s *Surface) Events() <-chan dom.Event { return s.events }

// Close cancels the surface context. The events channel belongs to the
// binding listener, which closes it once no more sends can happen; closing
// it here would race a send from an in-flight binding callback.
func (s *Surface) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

// mutate runs an element operation whose page-side return value reports
// whether the element was still attached.
func (s *Surface) mutate(js string, args ...any) error {
	var attached bool
	if err := s.eval(js, &attached, args...); err != nil {
		return err
	}
	if !attached {
		return dom.ErrDetached
	}
	return nil
}

// call runs a page operation whose result is ignored.
func (s *Surface) call(js string, args ...any) error {
	return s.eval(js, nil, args...)
}

func (s *Surface) eval(js string, out any, args ...any) error {
	res, err := s.page.Context(s.ctx).Eval(js, args...)
	if err != nil {
		return fmt.Errorf("surface: eval: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Value.JSON("", "")), out); err != nil {
		return fmt.Errorf("surface: decode result: %w", err)
	}
	return nil
}

// listenBinding receives picker input and layout-change signals from the
// page runtime via Runtime.bindingCalled. It is the sole sender on the
// events channel and closes it when the event stream ends.
func (s *Surface) listenBinding() {
	s.page.Context(s.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		s.dispatch(e.Payload)
	})()
	close(s.events)
}

// dispatch parses one binding payload and forwards it as a typed event.
func (s *Surface) dispatch(payload string) {
	var msg struct {
		Kind     string   `json:"kind"`
		Tag      string   `json:"tag"`
		NodeName string   `json:"node_name"`
		Selector string   `json:"selector"`
		Rect     dom.Rect `json:"rect"`
		EngineUI bool     `json:"engine_ui"`
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		s.logger.Warn("surface: parse binding payload", "error", err)
		return
	}

	ev := dom.Event{
		Tag:      msg.Tag,
		NodeName: msg.NodeName,
		Selector: msg.Selector,
		Rect:     msg.Rect,
		EngineUI: msg.EngineUI,
	}
	switch msg.Kind {
	case "hover":
		ev.Kind = dom.EventHover
	case "pick":
		ev.Kind = dom.EventPick
	case "scroll":
		ev.Kind = dom.EventScroll
	case "resize":
		ev.Kind = dom.EventResize
	case "mutation":
		ev.Kind = dom.EventMutation
	default:
		return
	}

	select {
	case s.events <- ev:
	default:
		// A full channel means the engine is behind on resync triggers;
		// dropping one is harmless, the next trigger repositions anyway.
		s.logger.Debug("surface: event dropped", "kind", msg.Kind)
	}
}
