package domedit

import (
	"testing"
	"time"

	"github.com/hazyhaar/domedit/edit"
	"github.com/hazyhaar/domedit/internal/config"
	"github.com/hazyhaar/domedit/internal/dom"
	"github.com/hazyhaar/domedit/internal/dom/domtest"
)

func newEngine(t *testing.T) (*Engine, *domtest.Fake) {
	t.Helper()
	f := domtest.New()
	for _, tag := range []string{"el_a", "el_b", "el_c"} {
		f.Leaf(tag, "text of "+tag)
	}
	cfg := config.Default()
	cfg.Engine.ResyncBudget = 5 * time.Millisecond
	e := New(cfg, nil)
	e.Attach(f)
	t.Cleanup(e.Stop)
	return e, f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPickFlow_SelectsAndHalos(t *testing.T) {
	e, f := newEngine(t)

	e.StartPicking()
	if !f.Picking() {
		t.Fatal("surface should be in picking mode")
	}

	f.EmitHover("el_a")
	waitFor(t, "hover halo", func() bool { return len(f.Overlays()) == 1 })

	f.EmitPick("el_a")
	waitFor(t, "selection", func() bool { return len(e.Selection()) == 1 })

	sel := e.Selection()[0]
	if sel.Tag != "el_a" || sel.Index != 0 {
		t.Errorf("selection = %+v", sel)
	}

	// Re-picking the same element must not duplicate.
	f.EmitPick("el_a")
	f.EmitPick("el_b")
	waitFor(t, "second selection", func() bool { return len(e.Selection()) == 2 })
	if len(e.Selection()) != 2 {
		t.Errorf("selection count = %d, want 2", len(e.Selection()))
	}
}

func TestPickIgnoresConfiguredSelectorPrefix(t *testing.T) {
	f := domtest.New()
	f.Add("el_nav", domtest.Element{NodeName: "a", Selector: "nav > a:nth-of-type(1)",
		Text: "Home", Rect: dom.Rect{X: 0, Y: 0, Width: 40, Height: 16}})
	f.Leaf("el_a", "body text")

	cfg := config.Default()
	cfg.Engine.IgnorePrefix = "nav"
	e := New(cfg, nil)
	e.Attach(f)
	t.Cleanup(e.Stop)

	e.StartPicking()
	f.EmitPick("el_nav")
	f.EmitPick("el_a")

	waitFor(t, "selection", func() bool { return len(e.Selection()) == 1 })
	if sel := e.Selection(); sel[0].Tag != "el_a" {
		t.Fatalf("selected %s; the nav candidate must be excluded", sel[0].Tag)
	}
}

func TestSelectTagIdempotent(t *testing.T) {
	e, _ := newEngine(t)

	i1, err := e.SelectTag("el_a")
	if err != nil {
		t.Fatal(err)
	}
	i2, err := e.SelectTag("el_a")
	if err != nil {
		t.Fatal(err)
	}
	if i1 != i2 || len(e.Selection()) != 1 {
		t.Fatalf("indices %d/%d, count %d", i1, i2, len(e.Selection()))
	}
}

func TestRuleExclusivityAcrossSessions(t *testing.T) {
	e, f := newEngine(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}

	// First session: 16px.
	if err := e.OpenSession(); err != nil {
		t.Fatal(err)
	}
	e.SetProperty("font-size", "16px", "Size")
	e.ApplySession()

	// Second session: 20px. The old rule must be replaced, not shadowed.
	if err := e.OpenSession(); err != nil {
		t.Fatal(err)
	}
	e.SetProperty("font-size", "20px", "Size")
	e.ApplySession()

	if n := f.RuleCountFor("el_a", "font-size"); n != 1 {
		t.Fatalf("live rules = %d, want exactly 1", n)
	}
	v, _ := f.RuleValue(dom.RuleKey{Tag: "el_a", Property: "font-size"})
	if v != "20px" {
		t.Fatalf("rule value = %q, want 20px", v)
	}

	// Undo restores 16px as a single rule, not zero and not two.
	if _, ok := e.Undo(); !ok {
		t.Fatal("undo should succeed")
	}
	if n := f.RuleCountFor("el_a", "font-size"); n != 1 {
		t.Fatalf("live rules after undo = %d, want 1", n)
	}
	v, _ = f.RuleValue(dom.RuleKey{Tag: "el_a", Property: "font-size"})
	if v != "16px" {
		t.Fatalf("rule value after undo = %q, want 16px", v)
	}
}

func TestRemoval_RenumbersAndShiftsRecords(t *testing.T) {
	e, _ := newEngine(t)
	for _, tag := range []string{"el_a", "el_b", "el_c"} {
		if _, err := e.SelectTag(tag); err != nil {
			t.Fatal(err)
		}
	}

	// Commit an edit on index 1 (el_b).
	if err := e.OpenSession(1); err != nil {
		t.Fatal(err)
	}
	e.SetProperty("color", "red", "Color")
	e.ApplySession()

	if !e.Remove(0) {
		t.Fatal("remove should succeed")
	}

	sel := e.Selection()
	if len(sel) != 2 {
		t.Fatalf("selection = %d, want 2", len(sel))
	}
	if sel[0].Tag != "el_b" || sel[1].Tag != "el_c" {
		t.Errorf("order = %s, %s", sel[0].Tag, sel[1].Tag)
	}
	// el_b's committed edit follows it to its new index.
	if !sel[0].Edited || sel[0].Summary != "Color: red" {
		t.Errorf("el_b entry = %+v", sel[0])
	}
	if sel[1].Edited {
		t.Error("el_c must not inherit el_b's edit")
	}

	// The shifted history still reverts el_b.
	rec, ok := e.Undo()
	if !ok || rec.Tag != "el_b" || rec.Index != 0 {
		t.Fatalf("undone record = %+v, ok=%v", rec, ok)
	}
}

func TestRemoval_StaleIndexNoOp(t *testing.T) {
	e, _ := newEngine(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}

	if e.Remove(5) {
		t.Error("out-of-range removal must be a no-op")
	}
	if !e.Remove(0) {
		t.Error("first removal should succeed")
	}
	if e.Remove(0) {
		t.Error("second removal of the same slot must be a no-op")
	}
}

func TestRemoval_DropsTargetRules(t *testing.T) {
	e, f := newEngine(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}
	if err := e.OpenSession(); err != nil {
		t.Fatal(err)
	}
	e.SetProperty("color", "red", "Color")
	e.ApplySession()

	e.Remove(0)

	if n := f.RuleCountFor("el_a", "color"); n != 0 {
		t.Fatalf("orphan rules = %d, want 0", n)
	}
	if e.CanUndo() {
		t.Error("removed target's records must leave the history")
	}
}

func TestDetachedElementDroppedOnResync(t *testing.T) {
	e, f := newEngine(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.SelectTag("el_b"); err != nil {
		t.Fatal(err)
	}

	f.Detach("el_a")
	f.Emit(dom.Event{Kind: dom.EventMutation})

	waitFor(t, "detachment reindex", func() bool {
		sel := e.Selection()
		return len(sel) == 1 && sel[0].Tag == "el_b" && sel[0].Index == 0
	})
}

func TestOverlayTracksLayoutChange(t *testing.T) {
	e, f := newEngine(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}

	f.SetRect("el_a", dom.Rect{X: 300, Y: 400, Width: 50, Height: 20})
	f.Emit(dom.Event{Kind: dom.EventScroll})

	waitFor(t, "overlay reposition", func() bool {
		for _, ov := range f.Overlays() {
			if ov.Rect.X == 300 && ov.Rect.Y == 400 {
				return true
			}
		}
		return false
	})
}

func TestSurfaceSwitchPreservesSelectionAndRules(t *testing.T) {
	e, _ := newEngine(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}
	if err := e.OpenSession(); err != nil {
		t.Fatal(err)
	}
	e.SetProperty("color", "red", "Color")
	e.ApplySession()

	next := domtest.New()
	next.Leaf("el_a", "text of el_a")
	e.Attach(next)

	sel := e.Selection()
	if len(sel) != 1 || sel[0].Tag != "el_a" {
		t.Fatalf("selection after switch = %+v", sel)
	}
	if n := next.RuleCountFor("el_a", "color"); n != 1 {
		t.Fatalf("rules on new surface = %d, want 1", n)
	}
	if len(next.Overlays()) != 1 {
		t.Fatalf("overlays on new surface = %d, want 1", len(next.Overlays()))
	}
}

func TestSurfaceSwitchClosesReplacedSurface(t *testing.T) {
	e, f := newEngine(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}

	next := domtest.New()
	next.Leaf("el_a", "text of el_a")
	e.Attach(next)

	if !f.Closed() {
		t.Error("replaced surface must be closed")
	}
	if next.Closed() {
		t.Error("current surface must stay open")
	}
}

func TestClearSelectionClosesOpenSession(t *testing.T) {
	e, _ := newEngine(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}
	if err := e.OpenSession(); err != nil {
		t.Fatal(err)
	}

	closed := false
	e.Events().On(edit.EventSessionClosed, func(any) { closed = true })

	e.ClearSelection()

	if e.SessionOpen() {
		t.Error("bulk clear must close the open session")
	}
	if e.UIState().GetBool("session.open") {
		t.Error("session.open state must reset on bulk clear")
	}
	if !closed {
		t.Error("bulk clear must announce the session closure")
	}
}

func TestClearSelection(t *testing.T) {
	e, f := newEngine(t)
	for _, tag := range []string{"el_a", "el_b"} {
		if _, err := e.SelectTag(tag); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.OpenSession(); err != nil {
		t.Fatal(err)
	}
	e.SetProperty("color", "red", "Color")
	e.ApplySession()

	e.ClearSelection()

	if len(e.Selection()) != 0 || len(f.Overlays()) != 0 || len(f.Rules()) != 0 {
		t.Error("clear must drop selection, overlays and rules")
	}
	if e.CanUndo() {
		t.Error("clear must drop the history")
	}
}

func TestContextMarkdown(t *testing.T) {
	e, _ := newEngine(t)
	if _, err := e.SelectTag("el_a"); err != nil {
		t.Fatal(err)
	}

	md, err := e.ContextMarkdown(0)
	if err != nil {
		t.Fatal(err)
	}
	if md == "" {
		t.Fatal("expected markdown output")
	}
	if _, err := e.ContextMarkdown(9); err == nil {
		t.Fatal("expected error for stale index")
	}
}
