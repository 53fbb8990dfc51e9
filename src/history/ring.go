package history

import (
	"sync"

	"orderbook-observer/src/models"
)

// DefaultCapacity is the number of book states kept for scrubbing.
const DefaultCapacity = 500

// -----------------------------------------------------------------------------
// Ring is a fixed-size circular buffer of book states.
// Oldest entries are overwritten once full; nothing is shifted.
// -----------------------------------------------------------------------------

type Ring struct {
	data     []models.MBookState
	capacity int
	index    int // Next write position
	size     int // Current number of elements
	mu       sync.RWMutex
}

// -----------------------------------------------------------------------------

// NewRing creates a new buffer with fixed capacity
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Ring{
		data:     make([]models.MBookState, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append stores a copy of state, evicting the oldest entry when full.
// MBookState sides are immutable, so the struct copy is a full snapshot.
func (r *Ring) Append(state models.MBookState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[r.index] = state
	r.index = (r.index + 1) % r.capacity

	// Update size (never exceeds capacity)
	if r.size < r.capacity {
		r.size++
	}
}

// -----------------------------------------------------------------------------

// Get returns the entry at position i, 0 being the oldest retained entry.
func (r *Ring) Get(i int) (models.MBookState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i < 0 || i >= r.size {
		return models.MBookState{}, false
	}
	return r.data[(r.oldest()+i)%r.capacity], true
}

// -----------------------------------------------------------------------------

// GetAll returns all entries in insertion order (oldest to newest)
func (r *Ring) GetAll() []models.MBookState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.MBookState, r.size)
	start := r.oldest()
	for i := 0; i < r.size; i++ {
		result[i] = r.data[(start+i)%r.capacity]
	}
	return result
}

// -----------------------------------------------------------------------------

// Len returns current number of elements
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (r *Ring) Capacity() int {
	return r.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (r *Ring) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size == r.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer and releases the held states
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.data)
	r.index = 0
	r.size = 0
}

// -----------------------------------------------------------------------------

// oldest must be called with mu held
func (r *Ring) oldest() int {
	if r.size == r.capacity {
		return r.index
	}
	return 0
}
