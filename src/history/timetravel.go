package history

import "errors"

var (
	ErrNoSnapshot         = errors.New("time travel needs a book with a received snapshot")
	ErrTimeTravelDisabled = errors.New("time travel is disabled")
	ErrIndexOutOfRange    = errors.New("history index out of range")
)

// NoCursor marks an empty history.
const NoCursor = -1

// Action is a side effect the owner of the ring must carry out after a transition.
type Action int

const (
	ActionClearHistory Action = iota + 1
)

// -----------------------------------------------------------------------------
// Mode
// -----------------------------------------------------------------------------

// Mode is the time-travel state: whether scrubbing is on and which history
// entry the cursor selects. Transitions are pure; they return the next Mode
// and the actions to dispatch, and never touch the ring themselves.
type Mode struct {
	Enabled bool
	Cursor  int
}

// NewMode returns a disabled mode with an empty cursor.
func NewMode() Mode {
	return Mode{Cursor: NoCursor}
}

// ShouldRecord reports whether a live state may be appended to history.
func (m Mode) ShouldRecord(snapshotReceived bool) bool {
	return !m.Enabled && snapshotReceived
}

// Appended advances the cursor after an append. It stops moving once the
// ring is full, where the newest entry sits at capacity-1.
func (m Mode) Appended(capacity int) Mode {
	if m.Cursor < capacity-1 {
		m.Cursor++
	}
	return m
}

// Toggle flips time travel. Turning it on requires a live snapshot; turning it
// off drops the recorded history.
func (m Mode) Toggle(snapshotReceived bool) (Mode, []Action, error) {
	if m.Enabled {
		return NewMode(), []Action{ActionClearHistory}, nil
	}
	return m.SetEnabled(true, snapshotReceived)
}

// SetEnabled moves to the requested state; asking for the current state is a no-op.
func (m Mode) SetEnabled(enabled, snapshotReceived bool) (Mode, []Action, error) {
	switch {
	case enabled == m.Enabled:
		return m, nil, nil
	case enabled && !snapshotReceived:
		return m, nil, ErrNoSnapshot
	case enabled:
		m.Enabled = true
		return m, nil, nil
	default:
		return NewMode(), []Action{ActionClearHistory}, nil
	}
}

// SymbolChanged leaves time travel and drops the history of the old symbol.
func (m Mode) SymbolChanged() (Mode, []Action) {
	return NewMode(), []Action{ActionClearHistory}
}

// Scrub moves the cursor while time travel is on.
func (m Mode) Scrub(index, length int) (Mode, error) {
	if !m.Enabled {
		return m, ErrTimeTravelDisabled
	}
	if index < 0 || index >= length {
		return m, ErrIndexOutOfRange
	}
	m.Cursor = index
	return m, nil
}
