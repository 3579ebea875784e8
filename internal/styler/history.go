package styler

import "github.com/hazyhaar/domedit/edit"

// defaultHistoryLimit bounds the committed-edit stack.
const defaultHistoryLimit = 200

// History is a bounded LIFO undo/redo stack over committed edits. Distinct
// from the per-session preview stack: this one survives session close.
//
// records[:pos] is the applied past, records[pos:] the redo tail. Pushing
// truncates the tail; overflowing the bound evicts the oldest entries and
// shifts pos so the undo/redo pointers never desynchronize.
type History struct {
	limit   int
	records []edit.Record
	pos     int
}

// NewHistory creates a History. limit <= 0 selects the default bound.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push appends a committed record, discarding any redo tail.
func (h *History) Push(r edit.Record) {
	h.records = append(h.records[:h.pos], r)
	h.pos = len(h.records)

	if overflow := len(h.records) - h.limit; overflow > 0 {
		h.records = append(h.records[:0:0], h.records[overflow:]...)
		h.pos -= overflow
	}
}

// Undo steps the pointer back and returns the record to revert.
// ok=false means the stack is exhausted — nothing to do, not an error.
func (h *History) Undo() (edit.Record, bool) {
	if h.pos == 0 {
		return edit.Record{}, false
	}
	h.pos--
	return h.records[h.pos], true
}

// Redo re-applies the next record in the redo tail.
func (h *History) Redo() (edit.Record, bool) {
	if h.pos >= len(h.records) {
		return edit.Record{}, false
	}
	r := h.records[h.pos]
	h.pos++
	return r, true
}

// LastForIndex scans backward from the current position for the most recent
// surviving record for index. Used to restore the entry's diff summary after
// an undo removes the newest record.
func (h *History) LastForIndex(index int) (edit.Record, bool) {
	for i := h.pos - 1; i >= 0; i-- {
		if h.records[i].Index == index {
			return h.records[i], true
		}
	}
	return edit.Record{}, false
}

// Compact drops every record for the removed selection index and decrements
// the index of every record above it — both the applied past and the redo
// tail, so a later redo can never resurrect a stale index.
func (h *History) Compact(removed int) {
	kept := h.records[:0]
	newPos := h.pos
	for i, r := range h.records {
		if r.Index == removed {
			if i < h.pos {
				newPos--
			}
			continue
		}
		if r.Index > removed {
			r.Index--
		}
		kept = append(kept, r)
	}
	h.records = kept
	h.pos = newPos
}

// CanUndo reports whether an undo step is available.
func (h *History) CanUndo() bool { return h.pos > 0 }

// CanRedo reports whether a redo step is available.
func (h *History) CanRedo() bool { return h.pos < len(h.records) }

// Len returns the number of retained records.
func (h *History) Len() int { return len(h.records) }
