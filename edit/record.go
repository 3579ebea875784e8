// Package edit defines the structured types emitted by domedit.
// These are the public API contract: any consumer (sinks, MCP clients,
// HTTP callers) imports this package to receive and process edit events.
package edit

// Record is a committed edit for one selected element. The Changes map is
// a full snapshot of the effective property values at commit time, not a
// delta — recommitting for the same index replaces the previous record
// wholesale. Prev holds the values immediately before this commit and is
// what an undo replays.
type Record struct {
	Index     int               `json:"index"`
	Tag       string            `json:"tag"`      // identity tag on the element
	Selector  string            `json:"selector"` // generated path, debug context only
	Changes   map[string]string `json:"changes"`
	Prev      map[string]string `json:"prev"`
	Summary   string            `json:"summary"`
	Timestamp int64             `json:"timestamp"` // epoch milliseconds
}

// Clone returns a deep copy. Records cross sink and history boundaries,
// so shared map state would let one consumer corrupt another's view.
func (r Record) Clone() Record {
	out := r
	out.Changes = cloneMap(r.Changes)
	out.Prev = cloneMap(r.Prev)
	return out
}

// Removal is emitted after a selection entry is removed and all
// index-keyed tables have been renumbered.
type Removal struct {
	Index     int   `json:"index"`     // index that was removed
	Remaining int   `json:"remaining"` // entries left after compaction
	Timestamp int64 `json:"timestamp"`
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
