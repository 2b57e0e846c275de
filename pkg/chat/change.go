package chat

// ChangeOp names the store operation that produced a Change.
type ChangeOp string

const (
	OpSessionCreated  ChangeOp = "session-created"
	OpSessionSelected ChangeOp = "session-selected"
	OpSessionDeleted  ChangeOp = "session-deleted"
	OpSessionRenamed  ChangeOp = "session-renamed"
	OpSessionReset    ChangeOp = "session-reset"
	OpSessionsCleared ChangeOp = "sessions-cleared"
	OpMessageAppended ChangeOp = "message-appended"
	OpMessageEdited   ChangeOp = "message-edited"
	OpModelChanged    ChangeOp = "model-changed"
	OpStatePurged     ChangeOp = "state-purged"
)

// Change describes one applied store mutation.
// For message operations Index is the message position, otherwise it is -1.
type Change struct {
	Op        ChangeOp
	SessionID string
	Index     int
	ModelID   string
}

// ChangeListener receives notifications after a mutation has been applied and persisted.
// Listeners are called without the store lock held and may read from the store. They are
// called one change at a time in mutation order, so they must not mutate the store themselves.
type ChangeListener interface {
	OnChange(change Change)
}

// ChangeListenerFunc adapts a function to ChangeListener.
type ChangeListenerFunc func(change Change)

func (f ChangeListenerFunc) OnChange(change Change) {
	f(change)
}
