package models

import "time"

// MBookFrame is one recorded live book state, written by the frame recorder.
type MBookFrame struct {
	SessionID  string
	Sequence   int64
	State      MBookState
	RecordedAt time.Time
}
