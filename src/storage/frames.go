package storage

import (
	"encoding/json"
	"fmt"

	"orderbook-observer/src/models"
)

// frameRow is the flattened column set shared by the sqlite and postgres recorders.
type frameRow struct {
	sessionID        string
	sequence         int64
	symbol           string
	recordedAt       int64
	feedTimestamp    int64
	status           string
	snapshotReceived bool
	bestBid          float64
	bestAsk          float64
	bids             string
	asks             string
}

// -----------------------------------------------------------------------------

func toRow(f models.MBookFrame) (frameRow, error) {
	bids, err := json.Marshal(f.State.Bids)
	if err != nil {
		return frameRow{}, fmt.Errorf("failed to encode bids: %w", err)
	}
	asks, err := json.Marshal(f.State.Asks)
	if err != nil {
		return frameRow{}, fmt.Errorf("failed to encode asks: %w", err)
	}

	row := frameRow{
		sessionID:        f.SessionID,
		sequence:         f.Sequence,
		symbol:           f.State.Symbol,
		recordedAt:       f.RecordedAt.UnixMilli(),
		status:           f.State.SubscriptionStatus.String(),
		snapshotReceived: f.State.SnapshotReceived,
		bids:             string(bids),
		asks:             string(asks),
	}
	if !f.State.LastUpdateTimestamp.IsZero() {
		row.feedTimestamp = f.State.LastUpdateTimestamp.UnixMilli()
	}
	if b, ok := f.State.Bids.Best(); ok {
		row.bestBid = b.Price
	}
	if a, ok := f.State.Asks.Best(); ok {
		row.bestAsk = a.Price
	}
	return row, nil
}
