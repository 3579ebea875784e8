package edit

// Event names published on the engine bus. Presentation layers subscribe to
// these; the engine does not depend on any particular renderer reacting.
const (
	EventSelectionChanged = "selection.changed"
	EventSelectionRemoved = "selection.removed"
	EventEditCommitted    = "edit.committed"
	EventEditUndone       = "edit.undone"
	EventEditRedone       = "edit.redone"
	EventSessionOpened    = "session.opened"
	EventSessionClosed    = "session.closed"
)
