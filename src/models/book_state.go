package models

import "time"

// -----------------------------------------------------------------------------
// Subscription status
// -----------------------------------------------------------------------------

type SubscriptionStatus int

const (
	StatusIdle SubscriptionStatus = iota
	StatusSubscribing
	StatusSubscribed
	StatusUnsubscribing
	StatusUnsubscribed
)

func (s SubscriptionStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubscribing:
		return "subscribing"
	case StatusSubscribed:
		return "subscribed"
	case StatusUnsubscribing:
		return "unsubscribing"
	case StatusUnsubscribed:
		return "unsubscribed"
	}
	return "unknown"
}

// MarshalText renders the status by name in JSON payloads.
func (s SubscriptionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Active reports whether the symbol holds or is acquiring a feed subscription.
func (s SubscriptionStatus) Active() bool {
	return s == StatusSubscribing || s == StatusSubscribed
}

// AcceptsOrders reports whether order messages for the symbol are still merged.
// In-flight messages between an unsubscribe request and its ack are applied.
func (s SubscriptionStatus) AcceptsOrders() bool {
	return s == StatusSubscribing || s == StatusSubscribed || s == StatusUnsubscribing
}

// -----------------------------------------------------------------------------
// Book state
// -----------------------------------------------------------------------------

// MBookState is the per-symbol book owned by the book store. A stored value is
// immutable: every mutation produces a new MBookState that replaces the old one.
type MBookState struct {
	Symbol              string             `json:"symbol"`
	Bids                MSide              `json:"bids"`
	Asks                MSide              `json:"asks"`
	SubscriptionStatus  SubscriptionStatus `json:"subscription_status"`
	SnapshotReceived    bool               `json:"snapshot_received"`
	LastUpdateTimestamp time.Time          `json:"timestamp"`
}

// Spread returns best ask minus best bid; ok is false when either side is empty.
func (b MBookState) Spread() (spread float64, ok bool) {
	bid, okBid := b.Bids.Best()
	ask, okAsk := b.Asks.Best()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask.Price - bid.Price, true
}
