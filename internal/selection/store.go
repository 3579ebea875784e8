// Package selection owns the ordered list of selected targets and their
// baseline snapshots. It is the single source of truth for "what is
// selected": every other index-keyed table (overlays, committed edits,
// session targets) aligns to its dense 0-based ordering.
//
// The store does no locking of its own. All mutation flows through the
// engine, which serializes access — index compaction must be atomic with
// the dependent table updates, and that transaction lives above this
// package.
package selection

import "github.com/hazyhaar/domedit/edit"

// Entry is one tracked, user-picked target.
type Entry struct {
	// Tag is the identity attribute value addressing the live element.
	Tag string
	// Selector is a generated, best-effort-unique path. Debug context only,
	// never used for re-lookup.
	Selector string
	// NodeName is the lowercase tag name at selection time.
	NodeName string
	// Baseline is captured once at selection time and never mutated.
	Baseline edit.Baseline
	// Edited reports whether the entry currently differs from baseline.
	Edited bool
	// Diff is a human-readable label of the current effective change.
	Diff string
}

// Store is the ordered selection. Indices are dense and 0-based; removing
// entry k shifts everything above it down by one.
type Store struct {
	entries []*Entry
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Add appends an entry and returns its index. When an entry with the same
// tag already exists the call is a no-op and the existing index is
// returned with added=false.
func (s *Store) Add(e *Entry) (index int, added bool) {
	if i := s.IndexOf(e.Tag); i >= 0 {
		return i, false
	}
	s.entries = append(s.entries, e)
	return len(s.entries) - 1, true
}

// Remove deletes the entry at index and compacts. Removing an index that no
// longer exists is a no-op.
func (s *Store) Remove(index int) bool {
	if index < 0 || index >= len(s.entries) {
		return false
	}
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
	return true
}

// Get returns the entry at index, or nil when out of range.
func (s *Store) Get(index int) *Entry {
	if index < 0 || index >= len(s.entries) {
		return nil
	}
	return s.entries[index]
}

// IndexOf returns the index of the entry with the given tag, or -1.
func (s *Store) IndexOf(tag string) int {
	for i, e := range s.entries {
		if e.Tag == tag {
			return i
		}
	}
	return -1
}

// Len returns the number of selected entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns the live entry slice in index order. Callers must not
// reorder it; mutation of Edited/Diff on individual entries is fine.
func (s *Store) Entries() []*Entry {
	return s.entries
}

// Clear drops the whole selection (bulk clear / request submitted).
func (s *Store) Clear() {
	s.entries = nil
}
