package interfaces

import "orderbook-observer/src/models"

// -----------------------------------------------------------------------------
// IFrameRecorder defines the contract for the book frame journal.
// Tables are recreated on Initialize; nothing is ever read back.
// -----------------------------------------------------------------------------

type IFrameRecorder interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveFrames inserts a batch of recorded frames.
	SaveFrames(frames []models.MBookFrame) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}

// -----------------------------------------------------------------------------
// IBookRecorder accepts live book states for recording without blocking.
// -----------------------------------------------------------------------------

type IBookRecorder interface {
	Record(state models.MBookState) bool
}
