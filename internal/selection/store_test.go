package selection

import (
	"testing"

	"github.com/hazyhaar/domedit/edit"
)

func entry(tag string) *Entry {
	return &Entry{Tag: tag, Selector: "#" + tag, NodeName: "span"}
}

func TestAdd_Idempotent(t *testing.T) {
	s := New()

	i0, added := s.Add(entry("a"))
	if i0 != 0 || !added {
		t.Fatalf("first add: got (%d, %v)", i0, added)
	}
	i1, added := s.Add(entry("b"))
	if i1 != 1 || !added {
		t.Fatalf("second add: got (%d, %v)", i1, added)
	}
	again, added := s.Add(entry("a"))
	if added {
		t.Error("re-adding an existing tag must be a no-op")
	}
	if again != 0 {
		t.Errorf("re-add returned index %d, want 0", again)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestRemove_CompactsIndices(t *testing.T) {
	s := New()
	for _, tag := range []string{"a", "b", "c", "d"} {
		s.Add(entry(tag))
	}

	if !s.Remove(1) {
		t.Fatal("Remove(1) should succeed")
	}

	want := []string{"a", "c", "d"}
	if s.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", s.Len(), len(want))
	}
	for i, tag := range want {
		if got := s.Get(i).Tag; got != tag {
			t.Errorf("entry %d = %q, want %q", i, got, tag)
		}
		if s.IndexOf(tag) != i {
			t.Errorf("IndexOf(%q) = %d, want %d", tag, s.IndexOf(tag), i)
		}
	}
}

func TestRemove_StaleIndexIsNoop(t *testing.T) {
	s := New()
	s.Add(entry("a"))

	if !s.Remove(0) {
		t.Fatal("first remove should succeed")
	}
	if s.Remove(0) {
		t.Error("removing an index that no longer exists must be a no-op")
	}
	if s.Remove(-1) || s.Remove(5) {
		t.Error("out-of-range removal must be a no-op")
	}
}

func TestRemove_RandomSequencesStayDense(t *testing.T) {
	s := New()
	tags := []string{"a", "b", "c", "d", "e", "f"}
	for _, tag := range tags {
		s.Add(entry(tag))
	}

	for _, idx := range []int{3, 0, 2, 1} {
		s.Remove(idx)
		// After every removal, indices must be exactly 0..n-1 with each
		// entry reachable at its own index.
		for i := 0; i < s.Len(); i++ {
			e := s.Get(i)
			if e == nil {
				t.Fatalf("gap at index %d after removal", i)
			}
			if s.IndexOf(e.Tag) != i {
				t.Fatalf("entry %q not at its own index %d", e.Tag, i)
			}
		}
	}
}

func TestBaselineNotMutatedByStore(t *testing.T) {
	s := New()
	e := entry("a")
	e.Baseline = edit.CaptureBaseline(`<span>Hello</span>`, map[string]string{"color": "red"})
	s.Add(e)

	got := s.Get(0).Baseline
	if got.Text != "Hello" || got.Inline["color"] != "red" {
		t.Errorf("baseline changed after store round-trip: %+v", got)
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Add(entry("a"))
	s.Add(entry("b"))
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", s.Len())
	}
	if s.Get(0) != nil {
		t.Error("Get after Clear should return nil")
	}
}
