package domedit

import (
	"context"
	"time"

	"github.com/hazyhaar/domedit/edit"
)

// reindexRemove drops the selection at index and renumbers every dependent
// index-keyed table in one pass under the engine lock. Order matters:
//
//  1. overlay slot released and surviving badges renumbered
//  2. open session drops the target (stale indices are worse than lost
//     previews)
//  3. live rules for the tag dropped — their records are about to leave
//     the history, so nothing could ever revert them
//  4. selection store compacts
//  5. committed history and the authoritative record table renumber
//  6. entry summaries recomputed against the shifted records
//
// Nothing here reads the live DOM, so a removal triggered by the element
// disappearing is exactly as safe as a user deselect.
func (e *Engine) reindexRemove(index int) bool {
	entry := e.store.Get(index)
	if entry == nil {
		return false
	}
	tag := entry.Tag

	if e.overlays != nil {
		e.overlays.Unbind(index)
	}
	if e.sess != nil {
		e.sess.DropTarget(index)
	}
	if e.styles != nil {
		e.styles.ResetTag(tag)
	}
	e.store.Remove(index)
	if e.styles != nil {
		e.styles.Compact(index)
	}
	e.refreshEntriesLocked()

	rem := edit.Removal{
		Index:     index,
		Remaining: e.store.Len(),
		Timestamp: time.Now().UnixMilli(),
	}
	e.publishSelectionLocked()
	e.events.Emit(edit.EventSelectionRemoved, rem)
	e.deliver(func(ctx context.Context) error {
		return e.sinks.SendRemoval(ctx, rem)
	})

	e.logger.Info("engine: selection removed", "index", index, "tag", tag,
		"remaining", rem.Remaining)
	return true
}
