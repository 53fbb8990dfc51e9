package models

// -----------------------------------------------------------------------------
// Price levels
// -----------------------------------------------------------------------------

// MPriceLevel is a single price-level update as delivered by the feed.
// Quantity 0 deletes the level at Price.
type MPriceLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"qty"`
}

// MRankedLevel is a retained level with the running total of quantity over
// all better-or-equal ranked levels on the same side.
type MRankedLevel struct {
	Price           float64 `json:"price"`
	Quantity        float64 `json:"qty"`
	CumulativeTotal float64 `json:"total"`
}

// MSide is an ordered, depth-limited level set. Values are never mutated
// after construction; a merge always returns a fresh slice.
type MSide []MRankedLevel

// Best returns the top of the side.
func (s MSide) Best() (MRankedLevel, bool) {
	if len(s) == 0 {
		return MRankedLevel{}, false
	}
	return s[0], true
}
