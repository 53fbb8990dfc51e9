// Package book holds the per-symbol order book state and the pure level merge
// that keeps each side sorted, unique by price, depth-limited and totaled.
package book

import (
	"cmp"
	"slices"

	"orderbook-observer/src/models"
)

// DefaultDepth is the number of levels retained per side.
const DefaultDepth = 10

// Comparator orders two levels of the same side, best first.
type Comparator func(a, b models.MPriceLevel) int

// AsksOrder ranks asks by ascending price.
func AsksOrder(a, b models.MPriceLevel) int {
	return cmp.Compare(a.Price, b.Price)
}

// BidsOrder ranks bids by descending price.
func BidsOrder(a, b models.MPriceLevel) int {
	return cmp.Compare(b.Price, a.Price)
}

// -----------------------------------------------------------------------------

// Merge applies updates in order on top of prev and returns a new side: a zero
// quantity removes the price, anything else upserts it. The result is sorted by
// order, truncated to depth and carries running totals. prev is not modified.
func Merge(prev models.MSide, updates []models.MPriceLevel, order Comparator, depth int) models.MSide {
	if depth <= 0 {
		depth = DefaultDepth
	}

	byPrice := make(map[float64]float64, len(prev)+len(updates))
	for _, l := range prev {
		if l.Quantity != 0 {
			byPrice[l.Price] = l.Quantity
		}
	}
	for _, u := range updates {
		if u.Quantity != 0 {
			byPrice[u.Price] = u.Quantity
		} else {
			delete(byPrice, u.Price)
		}
	}

	levels := make([]models.MPriceLevel, 0, len(byPrice))
	for price, qty := range byPrice {
		levels = append(levels, models.MPriceLevel{Price: price, Quantity: qty})
	}
	slices.SortFunc(levels, order)
	if len(levels) > depth {
		levels = levels[:depth]
	}

	side := make(models.MSide, len(levels))
	var total float64
	for i, l := range levels {
		total += l.Quantity
		side[i] = models.MRankedLevel{Price: l.Price, Quantity: l.Quantity, CumulativeTotal: total}
	}
	return side
}
